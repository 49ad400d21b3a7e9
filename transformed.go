package construct

// transformedConstruct is spec §4.6's Transformed(subcon, parse_fn,
// parse_size, build_fn, build_size): fixed-size total; prefetches bytes,
// applies parse_fn, delegates to subcon on an in-memory stream; build
// reverses.
type transformedConstruct struct {
	sub       Construct
	parseFn   func([]byte) ([]byte, error)
	parseSize int
	buildFn   func([]byte) ([]byte, error)
	buildSize int
}

// TransformedOf builds a fixed-size stream transformer. parseSize is how
// many raw bytes to prefetch before calling parseFn; buildSize is how many
// bytes buildFn is expected to produce after sub has built into a scratch
// buffer.
func TransformedOf(sub Construct, parseFn func([]byte) ([]byte, error), parseSize int, buildFn func([]byte) ([]byte, error), buildSize int) Construct {
	return &transformedConstruct{sub: sub, parseFn: parseFn, parseSize: parseSize, buildFn: buildFn, buildSize: buildSize}
}

func (t *transformedConstruct) Subcon() Construct { return t.sub }
func (t *transformedConstruct) FixedSize() bool    { return true }

func (t *transformedConstruct) SizeOf(ctx *Context, path Path) (int, error) {
	return t.parseSize, nil
}

func (t *transformedConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	raw, err := s.Read(t.parseSize)
	if err != nil {
		return nil, attachPath(err, path)
	}
	transformed, terr := t.parseFn(raw)
	if terr != nil {
		return nil, attachPath(terr, path)
	}
	return t.sub.Parse(NewMemStream(transformed), ctx, path)
}

func (t *transformedConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	buf := NewMemStream(nil)
	written, berr := t.sub.Build(val, buf, ctx, path)
	if berr != nil {
		return nil, berr
	}
	transformed, terr := t.buildFn(buf.Bytes())
	if terr != nil {
		return nil, attachPath(terr, path)
	}
	if len(transformed) != t.buildSize {
		return nil, &FormatError{pathError{Path: path, Message: "Transformed build_fn produced the wrong byte count"}}
	}
	if werr := s.Write(transformed); werr != nil {
		return nil, attachPath(werr, path)
	}
	return written, nil
}

// restreamedConstruct is spec §4.6's Restreamed: the variable-size
// equivalent of Transformed, using a chunked wrapping stream rather than a
// whole-buffer prefetch. The implementation flushes any partial output
// group at close, matching the restream design note in spec §9.
type restreamedConstruct struct {
	sub        Construct
	encodeUnit func([]byte) []byte // applied to each write chunk before forwarding
	decodeUnit func([]byte) []byte // applied to each read chunk after reading
	unitSize   int                 // bytes consumed from the underlying stream per logical unit
}

// RestreamedOf builds a chunked stream transformer: every unitSize bytes
// read from the underlying stream is passed through decodeUnit before
// reaching sub, and every write from sub is passed through encodeUnit
// before reaching the underlying stream.
func RestreamedOf(sub Construct, unitSize int, decodeUnit, encodeUnit func([]byte) []byte) Construct {
	return &restreamedConstruct{sub: sub, unitSize: unitSize, decodeUnit: decodeUnit, encodeUnit: encodeUnit}
}

func (r *restreamedConstruct) Subcon() Construct { return r.sub }
func (r *restreamedConstruct) FixedSize() bool    { return false }

func (r *restreamedConstruct) SizeOf(ctx *Context, path Path) (int, error) {
	return 0, &SizeUnknownError{pathError{Path: path, Message: "Restreamed has no static size"}}
}

func (r *restreamedConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	rs := &restreamingStream{under: s, unitSize: r.unitSize, decodeUnit: r.decodeUnit, encodeUnit: r.encodeUnit}
	return r.sub.Parse(rs, ctx, path)
}

func (r *restreamedConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	rs := &restreamingStream{under: s, unitSize: r.unitSize, decodeUnit: r.decodeUnit, encodeUnit: r.encodeUnit}
	written, err := r.sub.Build(val, rs, ctx, path)
	if err != nil {
		return nil, err
	}
	if ferr := rs.flush(); ferr != nil {
		return nil, attachPath(ferr, path)
	}
	return written, nil
}

// restreamingStream is the chunked wrapping stream backing Restreamed: it
// reads/writes in unitSize-byte groups from the underlying stream, mapping
// logical byte positions through decodeUnit/encodeUnit, and buffers a
// partial outgoing group until flush (on Build completion) or until it
// fills.
type restreamingStream struct {
	under      Stream
	unitSize   int
	decodeUnit func([]byte) []byte
	encodeUnit func([]byte) []byte

	readBuf  []byte
	writeBuf []byte
}

func (r *restreamingStream) Read(n int) ([]byte, error) {
	for len(r.readBuf) < n {
		raw, err := r.under.Read(r.unitSize)
		if err != nil {
			return nil, err
		}
		r.readBuf = append(r.readBuf, r.decodeUnit(raw)...)
	}
	out := r.readBuf[:n]
	r.readBuf = r.readBuf[n:]
	return out, nil
}

func (r *restreamingStream) Write(p []byte) error {
	r.writeBuf = append(r.writeBuf, p...)
	for len(r.writeBuf) >= r.unitSize {
		chunk := r.writeBuf[:r.unitSize]
		if err := r.under.Write(r.encodeUnit(chunk)); err != nil {
			return err
		}
		r.writeBuf = r.writeBuf[r.unitSize:]
	}
	return nil
}

// flush writes out any partial trailing group, per spec §4.6: "the
// implementation must flush any partial groups on close."
func (r *restreamingStream) flush() error {
	if len(r.writeBuf) == 0 {
		return nil
	}
	padded := make([]byte, r.unitSize)
	copy(padded, r.writeBuf)
	r.writeBuf = nil
	return r.under.Write(r.encodeUnit(padded))
}

func (r *restreamingStream) Tell() (int64, error) { return r.under.Tell() }

func (r *restreamingStream) Seek(offset int64, whence int) (int64, error) {
	return r.under.Seek(offset, whence)
}

func (r *restreamingStream) Size() (int64, error) {
	return 0, &SizeUnknownError{pathError{Message: "restreaming stream size is not directly knowable"}}
}
