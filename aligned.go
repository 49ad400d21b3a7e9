package construct

import "bytes"

// alignedConstruct is spec §4.6's Aligned(modulus, subcon, pattern): pads
// to an alignment boundary with `pattern` bytes after subcon; symmetric in
// both directions.
type alignedConstruct struct {
	modulus int
	sub     Construct
	pattern byte
}

// AlignedOf builds an alignment-padding wrapper.
func AlignedOf(modulus int, sub Construct, pattern byte) Construct {
	return &alignedConstruct{modulus: modulus, sub: sub, pattern: pattern}
}

func (a *alignedConstruct) Subcon() Construct { return a.sub }
func (a *alignedConstruct) FixedSize() bool    { return false }

func (a *alignedConstruct) SizeOf(ctx *Context, path Path) (int, error) {
	base, err := a.sub.SizeOf(ctx, path)
	if err != nil {
		return 0, err
	}
	return base + padLen(base, a.modulus), nil
}

func padLen(base, modulus int) int {
	rem := base % modulus
	if rem == 0 {
		return 0
	}
	return modulus - rem
}

func (a *alignedConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	before, err := s.Tell()
	if err != nil {
		return nil, attachPath(err, path)
	}
	v, err := a.sub.Parse(s, ctx, path)
	if err != nil {
		return nil, err
	}
	after, err := s.Tell()
	if err != nil {
		return nil, attachPath(err, path)
	}
	n := padLen(int(after-before), a.modulus)
	if n > 0 {
		got, rerr := s.Read(n)
		if rerr != nil {
			return nil, attachPath(rerr, path)
		}
		want := bytes.Repeat([]byte{a.pattern}, n)
		if !bytes.Equal(got, want) {
			return nil, &PaddingError{pathError{Path: path, Message: "alignment padding pattern mismatch"}}
		}
	}
	return v, nil
}

func (a *alignedConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	before, err := s.Tell()
	if err != nil {
		return nil, attachPath(err, path)
	}
	written, err := a.sub.Build(val, s, ctx, path)
	if err != nil {
		return nil, err
	}
	after, err := s.Tell()
	if err != nil {
		return nil, attachPath(err, path)
	}
	n := padLen(int(after-before), a.modulus)
	if n > 0 {
		if werr := s.Write(bytes.Repeat([]byte{a.pattern}, n)); werr != nil {
			return nil, attachPath(werr, path)
		}
	}
	return written, nil
}

// paddedWrapConstruct is spec §4.6's Padded(length, subcon, pattern): pad
// to a fixed length with `pattern` bytes after subcon.
type paddedWrapConstruct struct {
	length  int
	sub     Construct
	pattern byte
}

// PaddedOf builds a fixed-length padding wrapper.
func PaddedOf(length int, sub Construct, pattern byte) Construct {
	return &paddedWrapConstruct{length: length, sub: sub, pattern: pattern}
}

func (p *paddedWrapConstruct) Subcon() Construct { return p.sub }
func (p *paddedWrapConstruct) FixedSize() bool    { return p.sub.FixedSize() }

func (p *paddedWrapConstruct) SizeOf(ctx *Context, path Path) (int, error) { return p.length, nil }

func (p *paddedWrapConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	before, err := s.Tell()
	if err != nil {
		return nil, attachPath(err, path)
	}
	v, err := p.sub.Parse(s, ctx, path)
	if err != nil {
		return nil, err
	}
	after, err := s.Tell()
	if err != nil {
		return nil, attachPath(err, path)
	}
	n := p.length - int(after-before)
	if n < 0 {
		return nil, &PaddingError{pathError{Path: path, Message: "subconstruct larger than Padded length"}}
	}
	if n > 0 {
		got, rerr := s.Read(n)
		if rerr != nil {
			return nil, attachPath(rerr, path)
		}
		want := bytes.Repeat([]byte{p.pattern}, n)
		if !bytes.Equal(got, want) {
			return nil, &PaddingError{pathError{Path: path, Message: "padding pattern mismatch"}}
		}
	}
	return v, nil
}

func (p *paddedWrapConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	before, err := s.Tell()
	if err != nil {
		return nil, attachPath(err, path)
	}
	written, err := p.sub.Build(val, s, ctx, path)
	if err != nil {
		return nil, err
	}
	after, err := s.Tell()
	if err != nil {
		return nil, attachPath(err, path)
	}
	n := p.length - int(after-before)
	if n < 0 {
		return nil, &PaddingError{pathError{Path: path, Message: "subconstruct larger than Padded length"}}
	}
	if n > 0 {
		if werr := s.Write(bytes.Repeat([]byte{p.pattern}, n)); werr != nil {
			return nil, attachPath(werr, path)
		}
	}
	return written, nil
}
