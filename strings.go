package construct

import (
	"bytes"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// StringEncoding names one of the fixed allow-list of encodings spec §4.4
// permits for PaddedString/PascalString/CString/GreedyString, together
// with the unit size its NUL terminator/pad occupies (1 byte for
// single-byte encodings, 2 for UTF-16, 4 for UTF-32) so truncation and
// termination respect codepoint unit size rather than assuming a single
// NUL byte always ends a string.
type StringEncoding struct {
	Name     string
	UnitSize int
	enc      encoding.Encoding // nil for utf-8 and utf-32, handled directly
}

// The fixed allow-list of spec §4.4. ascii is checked strictly (bytes <
// 0x80); utf-8 is Go's native string encoding and is used as is; utf-32,
// which golang.org/x/text has no transformer for, is handled by this
// package directly (see DESIGN.md); utf-16 and latin-1 go through
// golang.org/x/text/encoding.
var (
	ASCII    = StringEncoding{Name: "ascii", UnitSize: 1}
	UTF8     = StringEncoding{Name: "utf-8", UnitSize: 1}
	UTF16BE  = StringEncoding{Name: "utf-16-be", UnitSize: 2, enc: unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)}
	UTF16LE  = StringEncoding{Name: "utf-16-le", UnitSize: 2, enc: unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)}
	UTF32BE  = StringEncoding{Name: "utf-32-be", UnitSize: 4}
	UTF32LE  = StringEncoding{Name: "utf-32-le", UnitSize: 4}
	Latin1   = StringEncoding{Name: "latin-1", UnitSize: 1, enc: charmap.ISO8859_1}
)

func (e StringEncoding) decode(b []byte) (string, error) {
	switch e.Name {
	case "ascii":
		for _, c := range b {
			if c >= 0x80 {
				return "", &StringError{pathError: pathError{Message: "byte out of ASCII range"}}
			}
		}
		return string(b), nil
	case "utf-8":
		return string(b), nil
	case "utf-32-be":
		return decodeUTF32(b, true)
	case "utf-32-le":
		return decodeUTF32(b, false)
	default:
		out, err := e.enc.NewDecoder().Bytes(b)
		if err != nil {
			return "", &StringError{pathError: pathError{Message: "decode failed"}, Cause: err}
		}
		return string(out), nil
	}
}

func (e StringEncoding) encode(s string) ([]byte, error) {
	switch e.Name {
	case "ascii":
		b := []byte(s)
		for _, c := range b {
			if c >= 0x80 {
				return nil, &StringError{pathError: pathError{Message: "rune out of ASCII range"}}
			}
		}
		return b, nil
	case "utf-8":
		return []byte(s), nil
	case "utf-32-be":
		return encodeUTF32(s, true), nil
	case "utf-32-le":
		return encodeUTF32(s, false), nil
	default:
		out, err := e.enc.NewEncoder().Bytes([]byte(s))
		if err != nil {
			return nil, &StringError{pathError: pathError{Message: "encode failed"}, Cause: err}
		}
		return out, nil
	}
}

// nulUnit returns the UnitSize-byte NUL terminator for this encoding.
func (e StringEncoding) nulUnit() []byte { return make([]byte, e.UnitSize) }

func decodeUTF32(b []byte, big bool) (string, error) {
	if len(b)%4 != 0 {
		return "", &StringError{pathError: pathError{Message: "utf-32 byte count not a multiple of 4"}}
	}
	runes := make([]rune, 0, len(b)/4)
	for i := 0; i < len(b); i += 4 {
		var v uint32
		if big {
			v = uint32(b[i])<<24 | uint32(b[i+1])<<16 | uint32(b[i+2])<<8 | uint32(b[i+3])
		} else {
			v = uint32(b[i]) | uint32(b[i+1])<<8 | uint32(b[i+2])<<16 | uint32(b[i+3])<<24
		}
		runes = append(runes, rune(v))
	}
	return string(runes), nil
}

func encodeUTF32(s string, big bool) []byte {
	var out []byte
	for _, r := range s {
		v := uint32(r)
		var b [4]byte
		if big {
			b = [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
		} else {
			b = [4]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
		}
		out = append(out, b[:]...)
	}
	return out
}

// paddedStringConstruct is spec §4.4's PaddedString: build pads with NUL
// to `length` bytes then truncates; parse reads `length` bytes, strips
// trailing NULs, decodes. Non-symmetric by design when the decoded string
// is shorter than length (spec §8 invariant 1 exception list).
type paddedStringConstruct struct {
	length int
	enc    StringEncoding
}

// PaddedString builds a fixed-length, NUL-padded string field.
func PaddedString(length int, enc StringEncoding) Construct {
	return paddedStringConstruct{length: length, enc: enc}
}

func (p paddedStringConstruct) FixedSize() bool                            { return true }
func (p paddedStringConstruct) SizeOf(ctx *Context, path Path) (int, error) { return p.length, nil }

func (p paddedStringConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	raw, err := s.Read(p.length)
	if err != nil {
		return nil, attachPath(err, path)
	}
	raw = stripTrailingNUL(raw, p.enc.UnitSize)
	out, derr := p.enc.decode(raw)
	if derr != nil {
		return nil, attachPath(derr, path)
	}
	return out, nil
}

func (p paddedStringConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	str, ok := val.(string)
	if !ok {
		return nil, &FormatError{pathError{Path: path, Message: "PaddedString expects a string"}}
	}
	raw, err := p.enc.encode(str)
	if err != nil {
		return nil, attachPath(err, path)
	}
	buf := make([]byte, p.length)
	n := copy(buf, raw)
	_ = n
	if len(raw) > p.length {
		buf = raw[:p.length]
	}
	if err := s.Write(buf); err != nil {
		return nil, attachPath(err, path)
	}
	return str, nil
}

func stripTrailingNUL(b []byte, unitSize int) []byte {
	end := len(b)
	nul := make([]byte, unitSize)
	for end >= unitSize && bytes.Equal(b[end-unitSize:end], nul) {
		end -= unitSize
	}
	return b[:end]
}

// pascalStringConstruct is spec §4.4's PascalString: build encodes then
// prefixes with a length construct counting bytes; parse inverts.
type pascalStringConstruct struct {
	lengthField Construct
	enc         StringEncoding
}

// PascalString builds a length-prefixed string field; lengthField is
// typically one of Int8ub/Int16ub/VarInt.
func PascalString(lengthField Construct, enc StringEncoding) Construct {
	return pascalStringConstruct{lengthField: lengthField, enc: enc}
}

func (p pascalStringConstruct) FixedSize() bool { return false }

func (p pascalStringConstruct) SizeOf(ctx *Context, path Path) (int, error) {
	return 0, &SizeUnknownError{pathError{Path: path, Message: "PascalString has no static size"}}
}

func (p pascalStringConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	lv, err := p.lengthField.Parse(s, ctx, path)
	if err != nil {
		return nil, err
	}
	n, _ := toInt64(lv)
	raw, err := s.Read(int(n))
	if err != nil {
		return nil, attachPath(err, path)
	}
	out, derr := p.enc.decode(raw)
	if derr != nil {
		return nil, attachPath(derr, path)
	}
	return out, nil
}

func (p pascalStringConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	str, ok := val.(string)
	if !ok {
		return nil, &FormatError{pathError{Path: path, Message: "PascalString expects a string"}}
	}
	raw, err := p.enc.encode(str)
	if err != nil {
		return nil, attachPath(err, path)
	}
	if _, err := p.lengthField.Build(int64(len(raw)), s, ctx, path); err != nil {
		return nil, err
	}
	if err := s.Write(raw); err != nil {
		return nil, attachPath(err, path)
	}
	return str, nil
}

// cStringConstruct is spec §4.4's CString: reads until a NUL unit
// (encoding-aware), build appends a NUL unit.
type cStringConstruct struct{ enc StringEncoding }

// CString builds a NUL-terminated string field.
func CString(enc StringEncoding) Construct { return cStringConstruct{enc: enc} }

func (c cStringConstruct) FixedSize() bool { return false }

func (c cStringConstruct) SizeOf(ctx *Context, path Path) (int, error) {
	return 0, &SizeUnknownError{pathError{Path: path, Message: "CString has no static size"}}
}

func (c cStringConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	var raw []byte
	nul := c.enc.nulUnit()
	for {
		unit, err := s.Read(c.enc.UnitSize)
		if err != nil {
			return nil, attachPath(err, path)
		}
		if bytes.Equal(unit, nul) {
			break
		}
		raw = append(raw, unit...)
	}
	out, derr := c.enc.decode(raw)
	if derr != nil {
		return nil, attachPath(derr, path)
	}
	return out, nil
}

func (c cStringConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	str, ok := val.(string)
	if !ok {
		return nil, &FormatError{pathError{Path: path, Message: "CString expects a string"}}
	}
	raw, err := c.enc.encode(str)
	if err != nil {
		return nil, attachPath(err, path)
	}
	raw = append(raw, c.enc.nulUnit()...)
	if err := s.Write(raw); err != nil {
		return nil, attachPath(err, path)
	}
	return str, nil
}

// greedyStringConstruct is spec §4.4's GreedyString: like GreedyBytes then
// decode.
type greedyStringConstruct struct{ enc StringEncoding }

// GreedyString reads to EOF and decodes, or encodes and writes as-is.
func GreedyString(enc StringEncoding) Construct { return greedyStringConstruct{enc: enc} }

func (g greedyStringConstruct) FixedSize() bool { return false }

func (g greedyStringConstruct) SizeOf(ctx *Context, path Path) (int, error) {
	return 0, &SizeUnknownError{pathError{Path: path, Message: "GreedyString has no static size"}}
}

func (g greedyStringConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	raw, err := GreedyBytes.Parse(s, ctx, path)
	if err != nil {
		return nil, err
	}
	out, derr := g.enc.decode(raw.([]byte))
	if derr != nil {
		return nil, attachPath(derr, path)
	}
	return out, nil
}

func (g greedyStringConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	str, ok := val.(string)
	if !ok {
		return nil, &FormatError{pathError{Path: path, Message: "GreedyString expects a string"}}
	}
	raw, err := g.enc.encode(str)
	if err != nil {
		return nil, attachPath(err, path)
	}
	if _, berr := GreedyBytes.Build(raw, s, ctx, path); berr != nil {
		return nil, berr
	}
	return str, nil
}
