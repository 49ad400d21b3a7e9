package construct

// adapterConstruct is the generic value-transforming Adapter named in the
// glossary: "a construct that wraps a subconstruct to transform its value
// or its stream without changing position semantics." Enum, FlagsEnum and
// the string constructs are all special cases of this same idea; Adapter
// itself is exposed for format-specific mappings (e.g. a biased/offset
// integer) that don't warrant their own construct kind.
type adapterConstruct struct {
	sub    Construct
	decode func(any, *Context) (any, error) // applied to sub's parsed value
	encode func(any, *Context) (any, error) // applied to the caller's value before building into sub
}

// AdapterOf wraps sub with decode/encode value transforms. decode runs
// after sub.Parse; encode runs before sub.Build. Either may be nil to pass
// the value through unchanged.
func AdapterOf(sub Construct, decode, encode func(any, *Context) (any, error)) Construct {
	return &adapterConstruct{sub: sub, decode: decode, encode: encode}
}

func (a *adapterConstruct) Subcon() Construct { return a.sub }
func (a *adapterConstruct) FixedSize() bool    { return a.sub.FixedSize() }

func (a *adapterConstruct) SizeOf(ctx *Context, path Path) (int, error) {
	return a.sub.SizeOf(ctx, path)
}

func (a *adapterConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	v, err := a.sub.Parse(s, ctx, path)
	if err != nil {
		return nil, err
	}
	if a.decode == nil {
		return v, nil
	}
	out, derr := a.decode(v, ctx)
	if derr != nil {
		return nil, attachPath(derr, path)
	}
	return out, nil
}

func (a *adapterConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	in := val
	if a.encode != nil {
		enc, eerr := a.encode(val, ctx)
		if eerr != nil {
			return nil, attachPath(eerr, path)
		}
		in = enc
	}
	written, err := a.sub.Build(in, s, ctx, path)
	if err != nil {
		return nil, err
	}
	if a.decode == nil {
		return written, nil
	}
	out, derr := a.decode(written, ctx)
	if derr != nil {
		return nil, attachPath(derr, path)
	}
	return out, nil
}
