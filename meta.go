package construct

// computedConstruct is spec §4.7's Computed(expr): no stream I/O; parse
// and build both evaluate expr against the context and return its value.
type computedConstruct struct{ expr Expr }

// ComputedOf builds a no-I/O field whose value is derived from its peers.
func ComputedOf(expr Expr) Construct { return computedConstruct{expr: expr} }

func (c computedConstruct) FixedSize() bool                            { return true }
func (c computedConstruct) SizeOf(ctx *Context, path Path) (int, error) { return 0, nil }

func (c computedConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	return c.expr.Eval(ctx, path)
}

func (c computedConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	return c.expr.Eval(ctx, path)
}

// pointerConstruct is spec §4.7's Pointer(offset, subcon, stream): save
// current position, seek to the evaluated offset, delegate to subcon,
// restore position — regardless of success or failure (spec §5: "must do
// so even under failure").
type pointerConstruct struct {
	offset Expr
	sub    Construct
}

// PointerOf builds a seek-and-delegate meta-construct. offset is evaluated
// against the enclosing context each time.
func PointerOf(offset Expr, sub Construct) Construct {
	return &pointerConstruct{offset: offset, sub: sub}
}

func (p *pointerConstruct) Subcon() Construct { return p.sub }
func (p *pointerConstruct) FixedSize() bool    { return true }

func (p *pointerConstruct) SizeOf(ctx *Context, path Path) (int, error) { return 0, nil }

func (p *pointerConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	off, err := EvalInt(p.offset, ctx, path)
	if err != nil {
		return nil, err
	}
	saved, err := s.Tell()
	if err != nil {
		return nil, attachPath(err, path)
	}
	defer func() { _, _ = s.Seek(saved, SeekStart) }()
	if _, err := s.Seek(int64(off), SeekStart); err != nil {
		return nil, attachPath(err, path)
	}
	return p.sub.Parse(s, ctx, path)
}

func (p *pointerConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	off, err := EvalInt(p.offset, ctx, path)
	if err != nil {
		return nil, err
	}
	saved, err := s.Tell()
	if err != nil {
		return nil, attachPath(err, path)
	}
	defer func() { _, _ = s.Seek(saved, SeekStart) }()
	if _, err := s.Seek(int64(off), SeekStart); err != nil {
		return nil, attachPath(err, path)
	}
	return p.sub.Build(val, s, ctx, path)
}

// peekConstruct is spec §4.7's Peek(subcon): parse subcon then rewind;
// returns the parsed value; build is a no-op.
type peekConstruct struct{ sub Construct }

// PeekOf builds a rewind-after-parse meta-construct.
func PeekOf(sub Construct) Construct { return &peekConstruct{sub: sub} }

func (p *peekConstruct) Subcon() Construct { return p.sub }
func (p *peekConstruct) FixedSize() bool    { return true }

func (p *peekConstruct) SizeOf(ctx *Context, path Path) (int, error) { return 0, nil }

func (p *peekConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	saved, err := s.Tell()
	if err != nil {
		return nil, attachPath(err, path)
	}
	v, perr := p.sub.Parse(s, ctx, path)
	if _, serr := s.Seek(saved, SeekStart); serr != nil {
		return nil, attachPath(serr, path)
	}
	if perr != nil {
		return nil, perr
	}
	return v, nil
}

func (p *peekConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	return nil, nil
}

// tellConstruct is spec §4.7's Tell: returns current offset, no I/O.
type tellConstruct struct{}

// TellConstruct returns the current stream offset as the parsed/built value.
var TellConstruct Construct = tellConstruct{}

func (tellConstruct) FixedSize() bool                            { return true }
func (tellConstruct) SizeOf(ctx *Context, path Path) (int, error) { return 0, nil }

func (tellConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	pos, err := s.Tell()
	if err != nil {
		return nil, attachPath(err, path)
	}
	return pos, nil
}

func (tellConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	pos, err := s.Tell()
	if err != nil {
		return nil, attachPath(err, path)
	}
	return pos, nil
}

// seekConstruct is spec §4.7's Seek(at, whence): repositions the stream.
type seekConstruct struct {
	at     Expr
	whence int
}

// SeekTo builds a stream-repositioning meta-construct.
func SeekTo(at Expr, whence int) Construct { return seekConstruct{at: at, whence: whence} }

func (seekConstruct) FixedSize() bool                            { return true }
func (seekConstruct) SizeOf(ctx *Context, path Path) (int, error) { return 0, nil }

func (s seekConstruct) Parse(stream Stream, ctx *Context, path Path) (any, error) {
	off, err := EvalInt(s.at, ctx, path)
	if err != nil {
		return nil, err
	}
	pos, serr := stream.Seek(int64(off), s.whence)
	if serr != nil {
		return nil, attachPath(serr, path)
	}
	return pos, nil
}

func (s seekConstruct) Build(val any, stream Stream, ctx *Context, path Path) (any, error) {
	return s.Parse(stream, ctx, path)
}

// RawCopyResult is spec §4.7's RawCopy value: {data, value, offset1,
// offset2, length}.
type RawCopyResult struct {
	Data    []byte
	Value   any
	Offset1 int64
	Offset2 int64
	Length  int64
}

// rawCopyConstruct is spec §4.7's RawCopy(subcon): on parse, records the
// raw bytes alongside the parsed value and their offsets; on build, uses
// Data directly if present, else builds Value and captures the bytes
// written.
type rawCopyConstruct struct{ sub Construct }

// RawCopyOf builds a RawCopy wrapper.
func RawCopyOf(sub Construct) Construct { return &rawCopyConstruct{sub: sub} }

func (r *rawCopyConstruct) Subcon() Construct { return r.sub }
func (r *rawCopyConstruct) FixedSize() bool    { return r.sub.FixedSize() }

func (r *rawCopyConstruct) SizeOf(ctx *Context, path Path) (int, error) {
	return r.sub.SizeOf(ctx, path)
}

func (r *rawCopyConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	off1, err := s.Tell()
	if err != nil {
		return nil, attachPath(err, path)
	}
	v, perr := r.sub.Parse(s, ctx, path)
	if perr != nil {
		return nil, perr
	}
	off2, err := s.Tell()
	if err != nil {
		return nil, attachPath(err, path)
	}
	if _, serr := s.Seek(off1, SeekStart); serr != nil {
		return nil, attachPath(serr, path)
	}
	data, rerr := s.Read(int(off2 - off1))
	if rerr != nil {
		return nil, attachPath(rerr, path)
	}
	return RawCopyResult{Data: data, Value: v, Offset1: off1, Offset2: off2, Length: off2 - off1}, nil
}

func (r *rawCopyConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	rc, ok := val.(RawCopyResult)
	if ok && rc.Data != nil {
		if err := s.Write(rc.Data); err != nil {
			return nil, attachPath(err, path)
		}
		return rc, nil
	}
	off1, err := s.Tell()
	if err != nil {
		return nil, attachPath(err, path)
	}
	var toBuild any = val
	if ok {
		toBuild = rc.Value
	}
	written, berr := r.sub.Build(toBuild, s, ctx, path)
	if berr != nil {
		return nil, berr
	}
	off2, err := s.Tell()
	if err != nil {
		return nil, attachPath(err, path)
	}
	if _, serr := s.Seek(off1, SeekStart); serr != nil {
		return nil, attachPath(serr, path)
	}
	data, rerr := s.Read(int(off2 - off1))
	if rerr != nil {
		return nil, attachPath(rerr, path)
	}
	return RawCopyResult{Data: data, Value: written, Offset1: off1, Offset2: off2, Length: off2 - off1}, nil
}
