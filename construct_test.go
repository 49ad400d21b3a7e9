package construct_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thacuber2a03/construct"
)

func TestStructRoundTrip(t *testing.T) {
	c := construct.StructOf(
		construct.NameField("width", construct.Byte),
		construct.NameField("height", construct.Byte),
		construct.NameField("pixels", construct.ArrayOf(
			construct.Mul(construct.Field("width"), construct.Field("height")),
			construct.Byte,
		)),
	)

	obj := construct.NewObject()
	obj.Set("width", int64(3))
	obj.Set("height", int64(2))
	pixels := construct.NewListObject(nil)
	for _, p := range []int64{7, 8, 9, 11, 12, 13} {
		pixels.Append(p)
	}
	obj.Set("pixels", pixels)

	data, err := construct.Build(c, obj)
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 2, 7, 8, 9, 11, 12, 13}, data)

	v, err := construct.ParseBytes(c, data)
	require.NoError(t, err)
	parsed := v.(*construct.Object)
	width, _ := parsed.Get("width")
	assert.Equal(t, int64(3), width)
	parsedPixels, _ := parsed.Get("pixels")
	assert.Len(t, parsedPixels.(*construct.ListObject).Items(), 6)
}

func TestVarIntRoundTrip(t *testing.T) {
	for _, n := range []int64{0, 1, 127, 128, 300, 16384, 1 << 32} {
		data, err := construct.Build(construct.VarInt, n)
		require.NoError(t, err)
		v, err := construct.ParseBytes(construct.VarInt, data)
		require.NoError(t, err)
		assert.Equal(t, n, v)
	}
}

func TestZigZagRoundTrip(t *testing.T) {
	for _, n := range []int64{0, -1, 1, -64, 64, -1 << 20, 1 << 20} {
		data, err := construct.Build(construct.ZigZag, n)
		require.NoError(t, err)
		v, err := construct.ParseBytes(construct.ZigZag, data)
		require.NoError(t, err)
		assert.Equal(t, n, v)
	}
}

func TestGreedyRangeEmptyInput(t *testing.T) {
	c := construct.GreedyRangeOf(construct.Byte, false)
	v, err := construct.ParseBytes(c, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, v.(*construct.ListObject).Len())
}

func TestGreedyRangeRewindsOnFailure(t *testing.T) {
	c := construct.GreedyRangeOf(construct.Int16ub, false)
	// Three good pairs plus one dangling byte: the dangling byte must not
	// abort the whole parse, only stop the range early.
	data := []byte{0, 1, 0, 2, 0, 3, 0xff}
	v, err := construct.ParseBytes(c, data)
	require.NoError(t, err)
	assert.Equal(t, 3, v.(*construct.ListObject).Len())
}

func TestSelectNoMembersErrors(t *testing.T) {
	c := construct.SelectOf()
	_, err := construct.ParseBytes(c, []byte{1, 2, 3})
	require.Error(t, err)
}

func TestEnumUnknownIntegerPassesThrough(t *testing.T) {
	c := construct.EnumOf(construct.Byte, map[string]int64{"red": 1, "green": 2})
	v, err := construct.ParseBytes(c, []byte{9})
	require.NoError(t, err)
	assert.Equal(t, int64(9), v)
}

func TestEnumKnownValueRoundTrip(t *testing.T) {
	c := construct.EnumOf(construct.Byte, map[string]int64{"red": 1, "green": 2})
	v, err := construct.ParseBytes(c, []byte{2})
	require.NoError(t, err)
	ev := v.(construct.EnumValue)
	assert.Equal(t, "green", ev.Name)

	data, err := construct.Build(c, "red")
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, data)
}

func TestBitwiseBitsIntegerRoundTrip(t *testing.T) {
	c := construct.BitwiseOf(construct.StructOf(
		construct.NameField("a", construct.BitsInteger(4, false, false)),
		construct.NameField("b", construct.BitsInteger(4, false, false)),
	))
	data, err := construct.Build(c, func() *construct.Object {
		o := construct.NewObject()
		o.Set("a", int64(0xA))
		o.Set("b", int64(0x5))
		return o
	}())
	require.NoError(t, err)
	assert.Equal(t, []byte{0xA5}, data)

	v, err := construct.ParseBytes(c, data)
	require.NoError(t, err)
	obj := v.(*construct.Object)
	a, _ := obj.Get("a")
	b, _ := obj.Get("b")
	assert.Equal(t, int64(0xA), a)
	assert.Equal(t, int64(0x5), b)
}

func TestUnionParseFromSelectsEndPosition(t *testing.T) {
	// parseFrom=1 ("b") means the stream ends up wherever Int16ub left it,
	// not wherever Byte ("a") left it, even though both parsed successfully.
	c := construct.StructOf(
		construct.NameField("u", construct.UnionOf(1,
			construct.NameField("a", construct.Byte),
			construct.NameField("b", construct.Int16ub),
		)),
		construct.NameField("rest", construct.Byte),
	)
	data := []byte{0xAA, 0xBB, 0xCC}
	v, err := construct.ParseBytes(c, data)
	require.NoError(t, err)
	obj := v.(*construct.Object)
	u, _ := obj.Get("u")
	uobj := u.(*construct.Object)
	a, _ := uobj.Get("a")
	b, _ := uobj.Get("b")
	assert.Equal(t, int64(0xAA), a)
	assert.Equal(t, int64(0xAABB), b)
	rest, _ := obj.Get("rest")
	assert.Equal(t, int64(0xCC), rest)
}

func TestUnionBuildHonorsParseFrom(t *testing.T) {
	members := func() []construct.Construct {
		return []construct.Construct{
			construct.NameField("a", construct.Byte),
			construct.NameField("b", construct.Int16ub),
		}
	}
	obj := construct.NewObject()
	obj.Set("a", int64(7))
	obj.Set("b", int64(300))

	dataByIndex0, err := construct.Build(construct.UnionOf(0, members()...), obj)
	require.NoError(t, err)
	assert.Equal(t, []byte{7}, dataByIndex0)

	dataByIndex1, err := construct.Build(construct.UnionOf(1, members()...), obj)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x2C}, dataByIndex1)

	dataByName, err := construct.Build(construct.UnionOf("b", members()...), obj)
	require.NoError(t, err)
	assert.Equal(t, dataByIndex1, dataByName)

	_, err = construct.Build(construct.UnionOf(nil, members()...), obj)
	require.Error(t, err)
}

func TestSelectParsePicksFirstSuccess(t *testing.T) {
	// Int32ub can't be satisfied by a 2-byte stream; Int16ub can.
	c := construct.SelectOf(construct.Int32ub, construct.Int16ub)
	v, err := construct.ParseBytes(c, []byte{0x00, 0x01})
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestSelectBuildsFirstAcceptingMember(t *testing.T) {
	// 300 overflows Byte's range, so Select falls through to Int16ub.
	c := construct.SelectOf(construct.Byte, construct.Int16ub)
	data, err := construct.Build(c, int64(300))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x2C}, data)
}

func TestNullTerminatedConsumeTrue(t *testing.T) {
	c := construct.StructOf(
		construct.NameField("s", construct.NullTerminatedOf(construct.GreedyBytes, nil, false, true, true)),
		construct.NameField("rest", construct.Byte),
	)
	data := []byte{'h', 'i', 0, 'X'}
	v, err := construct.ParseBytes(c, data)
	require.NoError(t, err)
	obj := v.(*construct.Object)
	s, _ := obj.Get("s")
	assert.Equal(t, []byte("hi"), s)
	rest, _ := obj.Get("rest")
	assert.Equal(t, int64('X'), rest)
}

func TestNullTerminatedConsumeFalse(t *testing.T) {
	c := construct.StructOf(
		construct.NameField("s", construct.NullTerminatedOf(construct.GreedyBytes, nil, false, false, true)),
		construct.NameField("rest", construct.Byte),
	)
	data := []byte{'h', 'i', 0, 'X'}
	v, err := construct.ParseBytes(c, data)
	require.NoError(t, err)
	obj := v.(*construct.Object)
	s, _ := obj.Get("s")
	assert.Equal(t, []byte("hi"), s)
	// consume=false leaves the terminator itself still readable.
	rest, _ := obj.Get("rest")
	assert.Equal(t, int64(0), rest)
}

func TestNullTerminatedExcludeTerminatorRoundTrip(t *testing.T) {
	c := construct.NullTerminatedOf(construct.GreedyBytes, nil, false, true, true)
	data := []byte{'h', 'i', 0}
	v, err := construct.ParseBytes(c, data)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), v)

	built, err := construct.Build(c, []byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, data, built)
}

func TestNullTerminatedIncludeTerminatorRoundTrip(t *testing.T) {
	// include=true folds the terminator into the subcon's own value, so
	// Build must not append a second copy of it (the bug the review flagged).
	c := construct.NullTerminatedOf(construct.GreedyBytes, nil, true, true, true)
	data := []byte{'h', 'i', 0}
	v, err := construct.ParseBytes(c, data)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi\x00"), v)

	built, err := construct.Build(c, []byte("hi\x00"))
	require.NoError(t, err)
	assert.Equal(t, data, built)
	assert.Len(t, built, 3)
}

func TestNullTerminatedRequireMissingTerminator(t *testing.T) {
	c := construct.NullTerminatedOf(construct.GreedyBytes, nil, false, true, true)
	_, err := construct.ParseBytes(c, []byte("hi"))
	require.Error(t, err)
}

func TestFlagsEnumRoundTrip(t *testing.T) {
	c := construct.FlagsEnumOf(construct.Byte, map[string]int64{"read": 1, "write": 2, "exec": 4})

	obj := construct.NewObject()
	obj.Set("read", true)
	obj.Set("exec", true)
	data, err := construct.Build(c, obj)
	require.NoError(t, err)
	assert.Equal(t, []byte{5}, data)

	v, err := construct.ParseBytes(c, data)
	require.NoError(t, err)
	parsed := v.(*construct.Object)
	read, _ := parsed.Get("read")
	write, _ := parsed.Get("write")
	exec, _ := parsed.Get("exec")
	assert.Equal(t, true, read)
	assert.Equal(t, false, write)
	assert.Equal(t, true, exec)
}

func TestFlagsEnumBuildFromSymbolList(t *testing.T) {
	c := construct.FlagsEnumOf(construct.Byte, map[string]int64{"read": 1, "write": 2, "exec": 4})
	data, err := construct.Build(c, []string{"write"})
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, data)
}

func TestPointerSeeksAndRestores(t *testing.T) {
	c := construct.StructOf(
		construct.NameField("first", construct.Byte),
		construct.NameField("ptr", construct.PointerOf(construct.Const(int64(4)), construct.Byte)),
	)

	obj := construct.NewObject()
	obj.Set("first", int64(0xAA))
	obj.Set("ptr", int64(0xFF))
	data, err := construct.Build(c, obj)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0, 0, 0, 0xFF}, data)

	v, err := construct.ParseBytes(c, data)
	require.NoError(t, err)
	parsed := v.(*construct.Object)
	first, _ := parsed.Get("first")
	ptr, _ := parsed.Get("ptr")
	assert.Equal(t, int64(0xAA), first)
	assert.Equal(t, int64(0xFF), ptr)
}

func TestPeekRewindsAfterParse(t *testing.T) {
	c := construct.StructOf(
		construct.NameField("peeked", construct.PeekOf(construct.Byte)),
		construct.NameField("actual", construct.Byte),
	)
	v, err := construct.ParseBytes(c, []byte{0x42})
	require.NoError(t, err)
	obj := v.(*construct.Object)
	peeked, _ := obj.Get("peeked")
	actual, _ := obj.Get("actual")
	assert.Equal(t, int64(0x42), peeked)
	assert.Equal(t, int64(0x42), actual)
}

func TestRawCopyCapturesRawBytes(t *testing.T) {
	c := construct.StructOf(
		construct.NameField("raw", construct.RawCopyOf(construct.Int16ub)),
	)
	data := []byte{0x01, 0x02}

	v, err := construct.ParseBytes(c, data)
	require.NoError(t, err)
	obj := v.(*construct.Object)
	raw, _ := obj.Get("raw")
	rc := raw.(construct.RawCopyResult)
	assert.Equal(t, data, rc.Data)
	assert.Equal(t, int64(0x0102), rc.Value)
	assert.Equal(t, int64(0), rc.Offset1)
	assert.Equal(t, int64(2), rc.Offset2)
	assert.Equal(t, int64(2), rc.Length)

	// Building a RawCopyResult that still carries Data writes it verbatim.
	objWithData := construct.NewObject()
	objWithData.Set("raw", rc)
	rebuilt, err := construct.Build(c, objWithData)
	require.NoError(t, err)
	assert.Equal(t, data, rebuilt)

	// Building one with only Value set falls back to the subcon's Build.
	objFromValue := construct.NewObject()
	objFromValue.Set("raw", construct.RawCopyResult{Value: int64(0x0304)})
	rebuiltFromValue, err := construct.Build(c, objFromValue)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x03, 0x04}, rebuiltFromValue)
}

func TestPathErrorReportsNestedLocation(t *testing.T) {
	c := construct.StructOf(
		construct.NameField("outer", construct.StructOf(
			construct.NameField("inner", construct.Int32ub),
		)),
	)
	_, err := construct.ParseBytes(c, []byte{1, 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outer")
	assert.Contains(t, err.Error(), "inner")
}
