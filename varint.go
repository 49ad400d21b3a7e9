package construct

import (
	"github.com/multiformats/go-varint"
)

// streamByteReader/streamByteWriter adapt this package's Stream to the
// io.ByteReader/io.Writer shapes github.com/multiformats/go-varint's
// Read/WriteUvarint helpers expect.
type streamByteReader struct {
	s   Stream
	err error
}

func (r *streamByteReader) ReadByte() (byte, error) {
	b, err := r.s.Read(1)
	if err != nil {
		r.err = err
		return 0, err
	}
	return b[0], nil
}

type streamByteWriter struct{ s Stream }

func (w streamByteWriter) Write(p []byte) (int, error) {
	if err := w.s.Write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// varIntConstruct is the unsigned group-of-7-bits variable-length integer
// of spec §4.3: "continuation bit in MSB, little-endian groups". Encoding
// is delegated to github.com/multiformats/go-varint, which implements the
// same LEB128 scheme; SizeOf always fails since the encoded length isn't
// knowable without the value (spec table: "Variable-length integer ...
// Size-of: fails").
type varIntConstruct struct{}

// VarInt is the unsigned LEB128-style variable-length integer.
var VarInt Construct = varIntConstruct{}

func (varIntConstruct) FixedSize() bool { return false }

func (varIntConstruct) SizeOf(ctx *Context, path Path) (int, error) {
	return 0, &SizeUnknownError{pathError{Path: path, Message: "VarInt has no static size"}}
}

func (varIntConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	n, err := varint.ReadUvarint(&streamByteReader{s: s})
	if err != nil {
		return nil, &FormatError{pathError{Path: path, Message: "malformed VarInt: " + err.Error()}}
	}
	return int64(n), nil
}

func (varIntConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	n, ok := toInt64(val)
	if !ok || n < 0 {
		return nil, &FormatError{pathError{Path: path, Message: "VarInt expects a non-negative integer"}}
	}
	if _, err := varint.WriteUvarint(streamByteWriter{s: s}, uint64(n)); err != nil {
		return nil, attachPath(err, path)
	}
	return n, nil
}

// zigZagConstruct is the signed variable-length integer of spec §4.3:
// "VarInt then (n>>1) ^ -(n&1)".
type zigZagConstruct struct{}

// ZigZag is the signed zig-zag-encoded variable-length integer.
var ZigZag Construct = zigZagConstruct{}

func (zigZagConstruct) FixedSize() bool { return false }

func (zigZagConstruct) SizeOf(ctx *Context, path Path) (int, error) {
	return 0, &SizeUnknownError{pathError{Path: path, Message: "ZigZag has no static size"}}
}

func (zigZagConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	v, err := VarInt.Parse(s, ctx, path)
	if err != nil {
		return nil, err
	}
	n := v.(int64)
	return (n >> 1) ^ -(n & 1), nil
}

func (zigZagConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	n, ok := toInt64(val)
	if !ok {
		return nil, &FormatError{pathError{Path: path, Message: "ZigZag expects an integer"}}
	}
	encoded := (n << 1) ^ (n >> 63)
	if _, err := VarInt.Build(encoded, s, ctx, path); err != nil {
		return nil, err
	}
	return n, nil
}

// BytesIntegerConstruct is an arbitrary-width big/little-endian integer
// stored as exactly n raw bytes, without the 1/2/3/4/8-byte restriction of
// the fixed-width Int family (spec §4.3: "BytesInteger(n, signed,
// swapped)").
type BytesIntegerConstruct struct {
	N       int
	Signed  bool
	Swapped bool // little-endian when true; big-endian (the default) otherwise
}

// BytesInteger builds a BytesIntegerConstruct of n bytes.
func BytesInteger(n int, signed, swapped bool) Construct {
	return BytesIntegerConstruct{N: n, Signed: signed, Swapped: swapped}
}

func (b BytesIntegerConstruct) FixedSize() bool { return true }

func (b BytesIntegerConstruct) SizeOf(ctx *Context, path Path) (int, error) { return b.N, nil }

func (b BytesIntegerConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	raw, err := s.Read(b.N)
	if err != nil {
		return nil, attachPath(err, path)
	}
	buf := make([]byte, b.N)
	copy(buf, raw)
	if b.Swapped {
		reverseBytes(buf)
	}
	endian := BigEndian
	return decodeInt(buf, b.Signed, endian), nil
}

func (b BytesIntegerConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	n, ok := toInt64(val)
	if !ok {
		return nil, &FormatError{pathError{Path: path, Message: "BytesInteger expects an integer"}}
	}
	buf := encodeInt(n, b.N, BigEndian)
	if b.Swapped {
		cp := make([]byte, len(buf))
		copy(cp, buf)
		reverseBytes(cp)
		buf = cp
	}
	if err := s.Write(buf); err != nil {
		return nil, attachPath(err, path)
	}
	return n, nil
}

func reverseBytes(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

// BitsIntegerConstruct reads/writes n bits from a bit-granular Stream
// (spec §4.3: "must run inside bit stream; read n bits"). It is the
// leaf-level counterpart of BitStream/Bitwise in restream.go.
type BitsIntegerConstruct struct {
	N       int
	Signed  bool
	Swapped bool // reverse bit order within the group when true
}

// BitsInteger builds a BitsIntegerConstruct of n bits. Must only be used
// inside Bitwise.
func BitsInteger(n int, signed, swapped bool) Construct {
	return BitsIntegerConstruct{N: n, Signed: signed, Swapped: swapped}
}

func (b BitsIntegerConstruct) FixedSize() bool { return true }

func (b BitsIntegerConstruct) SizeOf(ctx *Context, path Path) (int, error) { return b.N, nil }

func (b BitsIntegerConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	bs, ok := s.(*BitStream)
	if !ok {
		return nil, &AlignmentError{pathError{Path: path, Message: "BitsInteger used outside Bitwise"}}
	}
	bits, err := bs.ReadBits(b.N)
	if err != nil {
		return nil, attachPath(err, path)
	}
	if b.Swapped {
		reverseBitSlice(bits)
	}
	var u uint64
	for _, bit := range bits {
		u = u<<1 | uint64(bit)
	}
	if !b.Signed {
		return int64(u), nil
	}
	shift := 64 - uint(b.N)
	return int64(u<<shift) >> shift, nil
}

func (b BitsIntegerConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	bs, ok := s.(*BitStream)
	if !ok {
		return nil, &AlignmentError{pathError{Path: path, Message: "BitsInteger used outside Bitwise"}}
	}
	n, ok2 := toInt64(val)
	if !ok2 {
		return nil, &FormatError{pathError{Path: path, Message: "BitsInteger expects an integer"}}
	}
	bits := make([]byte, b.N)
	u := uint64(n)
	for i := b.N - 1; i >= 0; i-- {
		bits[i] = byte(u & 1)
		u >>= 1
	}
	if b.Swapped {
		reverseBitSlice(bits)
	}
	if err := bs.WriteBits(bits); err != nil {
		return nil, attachPath(err, path)
	}
	return n, nil
}

func reverseBitSlice(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
