package construct

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// Endian selects the byte order a fixed-width numeric construct reads and
// writes in (spec §4.3: "big/little/native endian").
type Endian int

const (
	LittleEndian Endian = iota
	BigEndian
	NativeEndian
)

func (e Endian) order() binary.ByteOrder {
	switch e {
	case BigEndian:
		return binary.BigEndian
	case NativeEndian:
		return nativeByteOrder
	default:
		return binary.LittleEndian
	}
}

// nativeByteOrder is resolved once at init time by probing the host's
// actual byte layout, rather than assuming little-endian — most real
// "native" targets are little-endian today but the engine should not bake
// that assumption in.
var nativeByteOrder = func() binary.ByteOrder {
	var x uint16 = 1
	buf := (*[2]byte)(unsafe.Pointer(&x))
	if buf[0] == 1 {
		return binary.LittleEndian
	}
	return binary.BigEndian
}()

// intConstruct is the fixed-width integer family of spec §4.3: 8/16/24/32/64
// bits, signed or unsigned, in any Endian.
type intConstruct struct {
	bytes    int
	signed   bool
	endian   Endian
}

// Int builds a fixed-width integer construct. bytes must be 1, 2, 3, 4, or 8.
func Int(bytes int, signed bool, endian Endian) Construct {
	return intConstruct{bytes: bytes, signed: signed, endian: endian}
}

// Named fixed-width integer constructs, mirroring the source library's
// Int8ub/Int16sl/... naming (ub = unsigned big-endian, sl = signed
// little-endian, and so on).
var (
	Int8ub  = Int(1, false, BigEndian)
	Int8sb  = Int(1, true, BigEndian)
	Int8ul  = Int(1, false, LittleEndian)
	Int8sl  = Int(1, true, LittleEndian)
	Byte    = Int8ub

	Int16ub = Int(2, false, BigEndian)
	Int16sb = Int(2, true, BigEndian)
	Int16ul = Int(2, false, LittleEndian)
	Int16sl = Int(2, true, LittleEndian)

	Int24ub = Int(3, false, BigEndian)
	Int24sb = Int(3, true, BigEndian)
	Int24ul = Int(3, false, LittleEndian)
	Int24sl = Int(3, true, LittleEndian)

	Int32ub = Int(4, false, BigEndian)
	Int32sb = Int(4, true, BigEndian)
	Int32ul = Int(4, false, LittleEndian)
	Int32sl = Int(4, true, LittleEndian)

	Int64ub = Int(8, false, BigEndian)
	Int64sb = Int(8, true, BigEndian)
	Int64ul = Int(8, false, LittleEndian)
	Int64sl = Int(8, true, LittleEndian)

	Int8un  = Int(1, false, NativeEndian)
	Int16un = Int(2, false, NativeEndian)
	Int32un = Int(4, false, NativeEndian)
	Int64un = Int(8, false, NativeEndian)
)

func (c intConstruct) FixedSize() bool { return true }

func (c intConstruct) SizeOf(ctx *Context, path Path) (int, error) { return c.bytes, nil }

func (c intConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	b, err := s.Read(c.bytes)
	if err != nil {
		return nil, attachPath(err, path)
	}
	return decodeInt(b, c.signed, c.endian), nil
}

func (c intConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	n, ok := toInt64(val)
	if !ok {
		return nil, &FormatError{pathError{Path: path, Message: "expected an integer"}}
	}
	if !c.signed {
		if n < 0 || (c.bytes < 8 && n >= int64(1)<<(uint(c.bytes)*8)) {
			return nil, &FormatError{pathError{Path: path, Message: "unsigned integer out of range"}}
		}
	} else {
		lo := -(int64(1) << (uint(c.bytes)*8 - 1))
		hi := int64(1)<<(uint(c.bytes)*8-1) - 1
		if c.bytes < 8 && (n < lo || n > hi) {
			return nil, &FormatError{pathError{Path: path, Message: "signed integer out of range"}}
		}
	}
	b := encodeInt(n, c.bytes, c.endian)
	if err := s.Write(b); err != nil {
		return nil, attachPath(err, path)
	}
	return n, nil
}

func decodeInt(b []byte, signed bool, endian Endian) int64 {
	buf := make([]byte, 8)
	switch endian {
	case BigEndian:
		copy(buf[8-len(b):], b)
	default: // little or native (native resolved to an order, but storage is still little/big)
		if endian == NativeEndian && nativeByteOrder == binary.BigEndian {
			copy(buf[8-len(b):], b)
			break
		}
		copy(buf, b)
	}
	var u uint64
	if endian == BigEndian || (endian == NativeEndian && nativeByteOrder == binary.BigEndian) {
		u = binary.BigEndian.Uint64(buf)
	} else {
		u = binary.LittleEndian.Uint64(buf)
	}
	if !signed {
		return int64(u)
	}
	// sign-extend from len(b)*8 bits
	bits := uint(len(b)) * 8
	shift := 64 - bits
	return int64(u<<shift) >> shift
}

func encodeInt(n int64, nbytes int, endian Endian) []byte {
	full := make([]byte, 8)
	be := endian == BigEndian || (endian == NativeEndian && nativeByteOrder == binary.BigEndian)
	if be {
		binary.BigEndian.PutUint64(full, uint64(n))
		return full[8-nbytes:]
	}
	binary.LittleEndian.PutUint64(full, uint64(n))
	return full[:nbytes]
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// floatConstruct is the IEEE-754 family of spec §4.3: 16/32/64-bit, BE/LE.
type floatConstruct struct {
	bytes  int // 2, 4, or 8
	endian Endian
}

// Float builds an IEEE float construct. bytes must be 2, 4, or 8.
func Float(bytes int, endian Endian) Construct {
	return floatConstruct{bytes: bytes, endian: endian}
}

var (
	Float16b = Float(2, BigEndian)
	Float16l = Float(2, LittleEndian)
	Float32b = Float(4, BigEndian)
	Float32l = Float(4, LittleEndian)
	Float64b = Float(8, BigEndian)
	Float64l = Float(8, LittleEndian)
)

func (f floatConstruct) FixedSize() bool                            { return true }
func (f floatConstruct) SizeOf(ctx *Context, path Path) (int, error) { return f.bytes, nil }

func (f floatConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	b, err := s.Read(f.bytes)
	if err != nil {
		return nil, attachPath(err, path)
	}
	order := f.endian.order()
	switch f.bytes {
	case 2:
		return float16ToFloat64(order.Uint16(b)), nil
	case 4:
		return float64(math.Float32frombits(order.Uint32(b))), nil
	case 8:
		return math.Float64frombits(order.Uint64(b)), nil
	default:
		return nil, &FormatError{pathError{Path: path, Message: "unsupported float width"}}
	}
}

func (f floatConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	fv, ok := toFloat64(val)
	if !ok {
		return nil, &FormatError{pathError{Path: path, Message: "expected a float"}}
	}
	order := f.endian.order()
	buf := make([]byte, f.bytes)
	switch f.bytes {
	case 2:
		order.PutUint16(buf, float64ToFloat16(fv))
	case 4:
		order.PutUint32(buf, math.Float32bits(float32(fv)))
	case 8:
		order.PutUint64(buf, math.Float64bits(fv))
	default:
		return nil, &FormatError{pathError{Path: path, Message: "unsupported float width"}}
	}
	if err := s.Write(buf); err != nil {
		return nil, attachPath(err, path)
	}
	return fv, nil
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return toNumber(v)
	}
}

// float16ToFloat64 decodes an IEEE-754 binary16 value.
func float16ToFloat64(h uint16) float64 {
	sign := uint32(h>>15) & 1
	exp := uint32(h>>10) & 0x1f
	frac := uint32(h) & 0x3ff
	var f32 uint32
	switch {
	case exp == 0 && frac == 0:
		f32 = sign << 31
	case exp == 0x1f:
		f32 = sign<<31 | 0xff<<23 | frac<<13
	case exp == 0:
		// subnormal: normalize
		e := 0
		for frac&0x400 == 0 {
			frac <<= 1
			e--
		}
		frac &= 0x3ff
		exp32 := uint32(int32(e) + 1 + 127 - 15)
		f32 = sign<<31 | exp32<<23 | frac<<13
	default:
		exp32 := exp - 15 + 127
		f32 = sign<<31 | exp32<<23 | frac<<13
	}
	return float64(math.Float32frombits(f32))
}

// float64ToFloat16 encodes to IEEE-754 binary16, with overflow saturating
// to infinity (matching the reference library's lenient behavior).
func float64ToFloat16(f float64) uint16 {
	f32 := float32(f)
	bits := math.Float32bits(f32)
	sign := uint16(bits>>16) & 0x8000
	exp := int32(bits>>23) & 0xff
	frac := bits & 0x7fffff
	if exp == 0xff {
		if frac != 0 {
			return sign | 0x7e00 // NaN
		}
		return sign | 0x7c00 // Inf
	}
	newExp := exp - 127 + 15
	if newExp >= 0x1f {
		return sign | 0x7c00 // overflow -> Inf
	}
	if newExp <= 0 {
		if newExp < -10 {
			return sign // underflow -> 0
		}
		frac |= 0x800000
		shift := uint(14 - newExp)
		return sign | uint16(frac>>shift)
	}
	return sign | uint16(newExp)<<10 | uint16(frac>>13)
}
