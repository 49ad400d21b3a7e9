package construct

import "bytes"

// bytesConstruct is the fixed Bytes(n) primitive of spec §4.3.
type bytesConstruct struct{ n int }

// Bytes reads/writes exactly n raw bytes.
func Bytes(n int) Construct { return bytesConstruct{n: n} }

func (b bytesConstruct) FixedSize() bool                            { return true }
func (b bytesConstruct) SizeOf(ctx *Context, path Path) (int, error) { return b.n, nil }

func (b bytesConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	data, err := s.Read(b.n)
	if err != nil {
		return nil, attachPath(err, path)
	}
	return data, nil
}

func (b bytesConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	data, ok := val.([]byte)
	if !ok {
		if str, ok2 := val.(string); ok2 {
			data = []byte(str)
		} else {
			return nil, &FormatError{pathError{Path: path, Message: "Bytes expects a []byte"}}
		}
	}
	if len(data) != b.n {
		return nil, &RangeError{pathError{Path: path, Message: "wrong byte count for fixed Bytes"}}
	}
	if err := s.Write(data); err != nil {
		return nil, attachPath(err, path)
	}
	return data, nil
}

// bytesExprConstruct is Bytes(n) where n is evaluated against the
// enclosing context rather than fixed at definition time — the same
// constant-or-expression treatment spec §4.5 gives Array's count.
type bytesExprConstruct struct{ n Expr }

// BytesExprOf reads/writes exactly n raw bytes, with n resolved per call
// (typically from an earlier sibling field).
func BytesExprOf(n Expr) Construct { return bytesExprConstruct{n: n} }

func (b bytesExprConstruct) FixedSize() bool { return false }

func (b bytesExprConstruct) SizeOf(ctx *Context, path Path) (int, error) {
	n, err := EvalInt(b.n, ctx, path)
	if err != nil {
		return 0, &SizeUnknownError{pathError{Path: path, Message: "Bytes size needs context: " + err.Error()}}
	}
	return n, nil
}

func (b bytesExprConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	n, err := EvalInt(b.n, ctx, path)
	if err != nil {
		return nil, err
	}
	data, rerr := s.Read(n)
	if rerr != nil {
		return nil, attachPath(rerr, path)
	}
	return data, nil
}

func (b bytesExprConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	data, ok := val.([]byte)
	if !ok {
		if str, ok2 := val.(string); ok2 {
			data = []byte(str)
		} else {
			return nil, &FormatError{pathError{Path: path, Message: "Bytes expects a []byte"}}
		}
	}
	if err := s.Write(data); err != nil {
		return nil, attachPath(err, path)
	}
	return data, nil
}

// greedyBytesConstruct reads to EOF and writes as-is (spec §4.3:
// "GreedyBytes").
type greedyBytesConstruct struct{}

// GreedyBytes reads the remainder of the stream, or writes a []byte as-is.
var GreedyBytes Construct = greedyBytesConstruct{}

func (greedyBytesConstruct) FixedSize() bool { return false }

func (greedyBytesConstruct) SizeOf(ctx *Context, path Path) (int, error) {
	return 0, &SizeUnknownError{pathError{Path: path, Message: "GreedyBytes has no static size"}}
}

func (greedyBytesConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	if bs, ok := s.(*BoundedStream); ok {
		remaining, err := bs.Remaining()
		if err != nil {
			return nil, attachPath(err, path)
		}
		return bs.Read(int(remaining))
	}
	size, err := s.Size()
	if err != nil {
		return nil, &SizeUnknownError{pathError{Path: path, Message: "GreedyBytes needs a sized stream"}}
	}
	pos, err := s.Tell()
	if err != nil {
		return nil, attachPath(err, path)
	}
	data, err := s.Read(int(size - pos))
	if err != nil {
		return nil, attachPath(err, path)
	}
	return data, nil
}

func (greedyBytesConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	data, ok := val.([]byte)
	if !ok {
		return nil, &FormatError{pathError{Path: path, Message: "GreedyBytes expects a []byte"}}
	}
	if err := s.Write(data); err != nil {
		return nil, attachPath(err, path)
	}
	return data, nil
}

// flagConstruct is the boolean Flag primitive of spec §4.3.
type flagConstruct struct{}

// Flag reads/writes a single byte: true iff non-zero, \x01/\x00 on build.
var Flag Construct = flagConstruct{}

func (flagConstruct) FixedSize() bool                            { return true }
func (flagConstruct) SizeOf(ctx *Context, path Path) (int, error) { return 1, nil }

func (flagConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	b, err := s.Read(1)
	if err != nil {
		return nil, attachPath(err, path)
	}
	return b[0] != 0, nil
}

func (flagConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	b, ok := val.(bool)
	if !ok {
		n, numOk := toInt64(val)
		if !numOk {
			return nil, &FormatError{pathError{Path: path, Message: "Flag expects a bool"}}
		}
		b = n != 0
	}
	var out byte
	if b {
		out = 1
	}
	if err := s.Write([]byte{out}); err != nil {
		return nil, attachPath(err, path)
	}
	return b, nil
}

// paddingConstruct discards n bytes on parse, writes n zero (or custom
// pattern) bytes on build (spec §4.3: "Padding(n)").
type paddingConstruct struct {
	n       int
	pattern byte
}

// Padding reads/discards, or writes, n bytes of the zero pattern.
func Padding(n int) Construct { return paddingConstruct{n: n, pattern: 0} }

// PaddingWithPattern is Padding with a custom fill byte.
func PaddingWithPattern(n int, pattern byte) Construct {
	return paddingConstruct{n: n, pattern: pattern}
}

func (p paddingConstruct) FixedSize() bool                            { return true }
func (p paddingConstruct) SizeOf(ctx *Context, path Path) (int, error) { return p.n, nil }

func (p paddingConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	if _, err := s.Read(p.n); err != nil {
		return nil, attachPath(err, path)
	}
	return nil, nil
}

func (p paddingConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	buf := bytes.Repeat([]byte{p.pattern}, p.n)
	if err := s.Write(buf); err != nil {
		return nil, attachPath(err, path)
	}
	return nil, nil
}

// passConstruct does nothing at all (spec §4.3: "Pass").
type passConstruct struct{}

// Pass consumes nothing and produces nil.
var Pass Construct = passConstruct{}

func (passConstruct) FixedSize() bool                                 { return true }
func (passConstruct) SizeOf(ctx *Context, path Path) (int, error)     { return 0, nil }
func (passConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) { return nil, nil }
func (passConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	return nil, nil
}

// terminatedConstruct asserts EOF (spec §4.3: "Terminated").
type terminatedConstruct struct{}

// Terminated asserts that the stream is exhausted.
var Terminated Construct = terminatedConstruct{}

func (terminatedConstruct) FixedSize() bool                             { return true }
func (terminatedConstruct) SizeOf(ctx *Context, path Path) (int, error) { return 0, nil }

func (terminatedConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	size, err := s.Size()
	if err == nil {
		pos, terr := s.Tell()
		if terr == nil && pos < size {
			return nil, &StreamError{pathError: pathError{Path: path, Message: "expected end of stream"}}
		}
		return nil, nil
	}
	if _, rerr := s.Read(1); rerr == nil {
		return nil, &StreamError{pathError: pathError{Path: path, Message: "expected end of stream"}}
	}
	return nil, nil
}

func (terminatedConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	return nil, nil
}

// constConstruct asserts a fixed byte sequence on parse, writes it verbatim
// on build, ignoring the input value — the BMP-scenario's "signature"
// field (spec §8 scenario 1).
type constConstruct struct{ value []byte }

// ConstBytes builds a sentinel/signature construct: parse requires exactly
// value to appear; build always writes value regardless of the input.
func ConstBytes(value []byte) Construct { return constConstruct{value: value} }

func (c constConstruct) FixedSize() bool                            { return true }
func (c constConstruct) SizeOf(ctx *Context, path Path) (int, error) { return len(c.value), nil }

func (c constConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	got, err := s.Read(len(c.value))
	if err != nil {
		return nil, attachPath(err, path)
	}
	if !bytes.Equal(got, c.value) {
		return nil, &FormatError{pathError{Path: path, Message: "const mismatch"}}
	}
	return got, nil
}

func (c constConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	if err := s.Write(c.value); err != nil {
		return nil, attachPath(err, path)
	}
	return c.value, nil
}
