package construct

// bitwiseConstruct is spec §4.6's Bitwise(subcon): wraps a byte stream
// into a bit stream (MSB-first) and delegates. Requires subcon's total
// size to be a multiple of 8 bits (spec §4.6, §5: "Bitwise region not a
// byte multiple" -> AlignmentError).
type bitwiseConstruct struct {
	sub Construct
}

// BitwiseOf builds a Bitwise wrapper. sub's SizeOf (in bits, per the
// BitsInteger convention) must be a multiple of 8.
func BitwiseOf(sub Construct) Construct { return &bitwiseConstruct{sub: sub} }

func (b *bitwiseConstruct) Subcon() Construct { return b.sub }
func (b *bitwiseConstruct) FixedSize() bool    { return b.sub.FixedSize() }

func (b *bitwiseConstruct) SizeOf(ctx *Context, path Path) (int, error) {
	bits, err := b.sub.SizeOf(ctx, path)
	if err != nil {
		return 0, err
	}
	if bits%8 != 0 {
		return 0, &AlignmentError{pathError{Path: path, Message: "Bitwise region is not a byte multiple"}}
	}
	return bits / 8, nil
}

func (b *bitwiseConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	bs := NewBitStream(s)
	v, err := b.sub.Parse(bs, ctx, path)
	if err != nil {
		return nil, err
	}
	if _, cerr := bs.Tell(); cerr != nil {
		return nil, attachPath(cerr, path)
	}
	if bs.bitsConsumed%8 != 0 {
		return nil, &AlignmentError{pathError{Path: path, Message: "Bitwise region left unaligned slack"}}
	}
	return v, nil
}

func (b *bitwiseConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	bs := NewBitStream(s)
	written, err := b.sub.Build(val, bs, ctx, path)
	if err != nil {
		return nil, err
	}
	if bs.writeBits != 0 {
		return nil, &AlignmentError{pathError{Path: path, Message: "Bitwise region is not a byte multiple"}}
	}
	if cerr := bs.Close(); cerr != nil {
		return nil, attachPath(cerr, path)
	}
	return written, nil
}

// bytewiseConstruct is spec §4.6's Bytewise(subcon): the inverse of
// Bitwise, used to drop back to byte granularity for a sub-region nested
// inside a Bitwise block (e.g. a byte-aligned sub-struct inside a bitfield
// header).
type bytewiseConstruct struct {
	sub Construct
}

// BytewiseOf builds a Bytewise wrapper; sub must only be used beneath a
// Bitwise ancestor, and the current bit position must be byte-aligned.
func BytewiseOf(sub Construct) Construct { return &bytewiseConstruct{sub: sub} }

func (bw *bytewiseConstruct) Subcon() Construct { return bw.sub }
func (bw *bytewiseConstruct) FixedSize() bool    { return bw.sub.FixedSize() }

func (bw *bytewiseConstruct) SizeOf(ctx *Context, path Path) (int, error) {
	n, err := bw.sub.SizeOf(ctx, path)
	if err != nil {
		return 0, err
	}
	return n * 8, nil
}

func (bw *bytewiseConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	bs, ok := s.(*BitStream)
	if !ok {
		return bw.sub.Parse(s, ctx, path)
	}
	if bs.bitsConsumed%8 != 0 {
		return nil, &AlignmentError{pathError{Path: path, Message: "Bytewise requires byte-aligned position"}}
	}
	return bw.sub.Parse(bs, ctx, path)
}

func (bw *bytewiseConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	bs, ok := s.(*BitStream)
	if !ok {
		return bw.sub.Build(val, s, ctx, path)
	}
	if bs.writeBits != 0 {
		return nil, &AlignmentError{pathError{Path: path, Message: "Bytewise requires byte-aligned position"}}
	}
	return bw.sub.Build(val, bs, ctx, path)
}

// byteSwappedConstruct and bitsSwappedConstruct reverse the byte/bit order
// of a region whose length is sub's SizeOf under the current ctx (spec
// §4.6). A subconstruct whose SizeOf fails is rejected with an
// *AlignmentError; one that is not FixedSize but whose SizeOf resolves
// from ctx is swapped over that resolved length.
type byteSwappedConstruct struct{ sub Construct }

// ByteSwappedOf reverses the byte order of sub's encoded region. sub's
// SizeOf must succeed under the ctx in use.
func ByteSwappedOf(sub Construct) Construct { return &byteSwappedConstruct{sub: sub} }

func (b *byteSwappedConstruct) Subcon() Construct { return b.sub }
func (b *byteSwappedConstruct) FixedSize() bool    { return b.sub.FixedSize() }

func (b *byteSwappedConstruct) SizeOf(ctx *Context, path Path) (int, error) {
	return b.sub.SizeOf(ctx, path)
}

func (b *byteSwappedConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	n, err := b.sub.SizeOf(ctx, path)
	if err != nil {
		return nil, notFixedSizeErr(path, "ByteSwapped")
	}
	raw, err := s.Read(n)
	if err != nil {
		return nil, attachPath(err, path)
	}
	swapped := make([]byte, n)
	for i, c := range raw {
		swapped[n-1-i] = c
	}
	return b.sub.Parse(NewMemStream(swapped), ctx, path)
}

func (b *byteSwappedConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	n, err := b.sub.SizeOf(ctx, path)
	if err != nil {
		return nil, notFixedSizeErr(path, "ByteSwapped")
	}
	buf := NewMemStream(nil)
	written, berr := b.sub.Build(val, buf, ctx, path)
	if berr != nil {
		return nil, berr
	}
	raw := buf.Bytes()
	swapped := make([]byte, n)
	for i, c := range raw {
		swapped[n-1-i] = c
	}
	if werr := s.Write(swapped); werr != nil {
		return nil, attachPath(werr, path)
	}
	return written, nil
}

type bitsSwappedConstruct struct{ sub Construct }

// BitsSwappedOf reverses the bit order within each byte of sub's encoded
// region. sub's SizeOf must succeed under the ctx in use.
func BitsSwappedOf(sub Construct) Construct { return &bitsSwappedConstruct{sub: sub} }

func (b *bitsSwappedConstruct) Subcon() Construct { return b.sub }
func (b *bitsSwappedConstruct) FixedSize() bool    { return b.sub.FixedSize() }

func (b *bitsSwappedConstruct) SizeOf(ctx *Context, path Path) (int, error) {
	return b.sub.SizeOf(ctx, path)
}

func reverseBitsInByte(c byte) byte {
	var out byte
	for i := 0; i < 8; i++ {
		out = out<<1 | (c>>i)&1
	}
	return out
}

func (b *bitsSwappedConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	n, err := b.sub.SizeOf(ctx, path)
	if err != nil {
		return nil, notFixedSizeErr(path, "BitsSwapped")
	}
	raw, err := s.Read(n)
	if err != nil {
		return nil, attachPath(err, path)
	}
	swapped := make([]byte, n)
	for i, c := range raw {
		swapped[i] = reverseBitsInByte(c)
	}
	return b.sub.Parse(NewMemStream(swapped), ctx, path)
}

func (b *bitsSwappedConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	n, err := b.sub.SizeOf(ctx, path)
	if err != nil {
		return nil, notFixedSizeErr(path, "BitsSwapped")
	}
	buf := NewMemStream(nil)
	written, berr := b.sub.Build(val, buf, ctx, path)
	if berr != nil {
		return nil, berr
	}
	raw := buf.Bytes()
	swapped := make([]byte, n)
	for i, c := range raw {
		swapped[i] = reverseBitsInByte(c)
	}
	if werr := s.Write(swapped); werr != nil {
		return nil, attachPath(werr, path)
	}
	return written, nil
}

func notFixedSizeErr(path Path, name string) error {
	return &AlignmentError{pathError{Path: path, Message: name + " requires a fixed-size subconstruct"}}
}
