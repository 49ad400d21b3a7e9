package construct

import "bytes"

// prefixedConstruct is spec §4.6's Prefixed(length_subcon, subcon,
// include_length): build renders subcon to a buffer, writes its length
// with length_subcon, then writes the buffer. Parse reads the length, then
// restricts subcon to a bounded substream of that length.
type prefixedConstruct struct {
	lengthField   Construct
	sub           Construct
	includeLength bool
}

// PrefixedOf builds a length-prefixed wrapper. When includeLength is true
// the encoded length counts the length field's own bytes too.
func PrefixedOf(lengthField, sub Construct, includeLength bool) Construct {
	return &prefixedConstruct{lengthField: lengthField, sub: sub, includeLength: includeLength}
}

func (p *prefixedConstruct) Subcon() Construct { return p.sub }
func (p *prefixedConstruct) FixedSize() bool    { return false }

func (p *prefixedConstruct) SizeOf(ctx *Context, path Path) (int, error) {
	return 0, &SizeUnknownError{pathError{Path: path, Message: "Prefixed has no static size"}}
}

func (p *prefixedConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	lv, err := p.lengthField.Parse(s, ctx, path)
	if err != nil {
		return nil, err
	}
	n, _ := toInt64(lv)
	if p.includeLength {
		lenSize, _ := p.lengthField.SizeOf(ctx, path)
		n -= int64(lenSize)
	}
	bounded, err := NewBoundedStream(s, n)
	if err != nil {
		return nil, attachPath(err, path)
	}
	v, err := p.sub.Parse(bounded, ctx.Child(), path)
	if err != nil {
		return nil, err
	}
	if _, serr := s.Seek(bounded.start+bounded.length, SeekStart); serr != nil {
		return nil, attachPath(serr, path)
	}
	return v, nil
}

func (p *prefixedConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	buf := NewMemStream(nil)
	written, err := p.sub.Build(val, buf, ctx.Child(), path)
	if err != nil {
		return nil, err
	}
	n := int64(len(buf.Bytes()))
	if p.includeLength {
		lenSize, _ := p.lengthField.SizeOf(ctx, path)
		n += int64(lenSize)
	}
	if _, err := p.lengthField.Build(n, s, ctx, path); err != nil {
		return nil, err
	}
	if werr := s.Write(buf.Bytes()); werr != nil {
		return nil, attachPath(werr, path)
	}
	return written, nil
}

// prefixedArrayConstruct is spec §4.6's PrefixedArray(length_subcon,
// subcon): like Prefixed but a count-prefixed sequence of homogeneous
// items, rather than a byte-length-prefixed window.
type prefixedArrayConstruct struct {
	lengthField Construct
	elem        Construct
}

// PrefixedArrayOf builds a count-prefixed homogeneous repeater.
func PrefixedArrayOf(lengthField, elem Construct) Construct {
	return &prefixedArrayConstruct{lengthField: lengthField, elem: elem}
}

func (p *prefixedArrayConstruct) Subcon() Construct { return p.elem }
func (p *prefixedArrayConstruct) FixedSize() bool    { return false }

func (p *prefixedArrayConstruct) SizeOf(ctx *Context, path Path) (int, error) {
	return 0, &SizeUnknownError{pathError{Path: path, Message: "PrefixedArray has no static size"}}
}

func (p *prefixedArrayConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	lv, err := p.lengthField.Parse(s, ctx, path)
	if err != nil {
		return nil, err
	}
	n, _ := toInt64(lv)
	return ArrayOf(Const(n), p.elem).Parse(s, ctx, path)
}

func (p *prefixedArrayConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	items, err := asItems(val)
	if err != nil {
		return nil, &RangeError{pathError{Path: path, Message: err.Error()}}
	}
	if _, err := p.lengthField.Build(int64(len(items)), s, ctx, path); err != nil {
		return nil, err
	}
	return ArrayOf(Const(int64(len(items))), p.elem).Build(val, s, ctx, path)
}

// nullTerminatedConstruct is spec §4.6's NullTerminated(subcon, term,
// include, consume, require): read until terminator; feed the substring
// (with/without terminator per include) to subcon; advance past terminator
// if consume. Missing terminator raises *terminator* error if require.
type nullTerminatedConstruct struct {
	sub     Construct
	term    []byte
	include bool
	consume bool
	require bool
}

// NullTerminatedOf builds a sentinel-delimited wrapper. term defaults to a
// single NUL byte if nil.
func NullTerminatedOf(sub Construct, term []byte, include, consume, require bool) Construct {
	if term == nil {
		term = []byte{0}
	}
	return &nullTerminatedConstruct{sub: sub, term: term, include: include, consume: consume, require: require}
}

func (n *nullTerminatedConstruct) Subcon() Construct { return n.sub }
func (n *nullTerminatedConstruct) FixedSize() bool    { return false }

func (n *nullTerminatedConstruct) SizeOf(ctx *Context, path Path) (int, error) {
	return 0, &SizeUnknownError{pathError{Path: path, Message: "NullTerminated has no static size"}}
}

func (n *nullTerminatedConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	var buf []byte
	found := false
	for {
		b, err := s.Read(1)
		if err != nil {
			if n.require {
				return nil, &TerminatorError{pathError{Path: path, Message: "terminator not found before end of stream"}}
			}
			break
		}
		buf = append(buf, b[0])
		if len(buf) >= len(n.term) && bytes.Equal(buf[len(buf)-len(n.term):], n.term) {
			found = true
			break
		}
	}

	content := buf
	if found {
		content = buf[:len(buf)-len(n.term)]
		if n.include {
			content = append(append([]byte{}, content...), n.term...)
		}
		if !n.consume {
			if _, serr := s.Seek(-int64(len(n.term)), SeekCurrent); serr != nil {
				return nil, attachPath(serr, path)
			}
		}
	}

	sub := NewMemStream(content)
	v, err := n.sub.Parse(sub, ctx.Child(), path)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Build honors include: when include is true the subcon's own built bytes
// already end with the terminator (it parsed them that way), so Build does
// not append a second copy; when false, Build appends the terminator
// itself. consume has no effect on Build.
func (n *nullTerminatedConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	buf := NewMemStream(nil)
	written, err := n.sub.Build(val, buf, ctx.Child(), path)
	if err != nil {
		return nil, err
	}
	if err := s.Write(buf.Bytes()); err != nil {
		return nil, attachPath(err, path)
	}
	if !n.include {
		if err := s.Write(n.term); err != nil {
			return nil, attachPath(err, path)
		}
	}
	return written, nil
}
