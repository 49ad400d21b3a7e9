package construct

import "sort"

// enumConstruct is spec §4.6's Enum(subcon, mapping): maps integers to
// named symbols. Parse returns the symbol when mapped else the raw
// integer. Build accepts a symbol name, an EnumValue, or a raw integer.
type enumConstruct struct {
	sub      Construct
	byName   map[string]int64
	byValue  map[int64]string
}

// EnumOf wraps sub (typically a fixed-width integer) with a name<->value
// mapping.
func EnumOf(sub Construct, mapping map[string]int64) Construct {
	byValue := make(map[int64]string, len(mapping))
	for name, v := range mapping {
		byValue[v] = name
	}
	return &enumConstruct{sub: sub, byName: mapping, byValue: byValue}
}

func (e *enumConstruct) Subcon() Construct { return e.sub }

func (e *enumConstruct) FixedSize() bool { return e.sub.FixedSize() }

func (e *enumConstruct) SizeOf(ctx *Context, path Path) (int, error) { return e.sub.SizeOf(ctx, path) }

func (e *enumConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	v, err := e.sub.Parse(s, ctx, path)
	if err != nil {
		return nil, err
	}
	n, _ := toInt64(v)
	if name, ok := e.byValue[n]; ok {
		return EnumValue{Name: name, Value: n, Known: true}, nil
	}
	// Unknown integers on parse pass through (spec §4.6).
	return n, nil
}

func (e *enumConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	var n int64
	switch v := val.(type) {
	case EnumValue:
		n = v.Value
	case string:
		known, ok := e.byName[v]
		if !ok {
			return nil, &MappingError{pathError{Path: path, Message: "unknown enum symbol " + v}}
		}
		n = known
	default:
		num, ok := toInt64(val)
		if !ok {
			return nil, &FormatError{pathError{Path: path, Message: "Enum expects a symbol name or integer"}}
		}
		n = num
	}
	if _, err := e.sub.Build(n, s, ctx, path); err != nil {
		return nil, err
	}
	if name, ok := e.byValue[n]; ok {
		return EnumValue{Name: name, Value: n, Known: true}, nil
	}
	return n, nil
}

// flagsEnumConstruct is spec §4.6's FlagsEnum(subcon, mapping): decomposes
// the parsed integer into a record of {name: bool} for each declared flag
// (bits not declared are dropped on build).
type flagsEnumConstruct struct {
	sub     Construct
	mapping map[string]int64
	names   []string // stable iteration order
}

// FlagsEnumOf wraps sub (typically a fixed-width integer) with a
// name->bitmask mapping.
func FlagsEnumOf(sub Construct, mapping map[string]int64) Construct {
	names := make([]string, 0, len(mapping))
	for n := range mapping {
		names = append(names, n)
	}
	sort.Strings(names)
	return &flagsEnumConstruct{sub: sub, mapping: mapping, names: names}
}

func (f *flagsEnumConstruct) Subcon() Construct { return f.sub }

func (f *flagsEnumConstruct) FixedSize() bool { return f.sub.FixedSize() }

func (f *flagsEnumConstruct) SizeOf(ctx *Context, path Path) (int, error) {
	return f.sub.SizeOf(ctx, path)
}

func (f *flagsEnumConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	v, err := f.sub.Parse(s, ctx, path)
	if err != nil {
		return nil, err
	}
	n, _ := toInt64(v)
	out := NewObject()
	for _, name := range f.names {
		bit := f.mapping[name]
		out.Set(name, n&bit == bit && bit != 0)
	}
	return out, nil
}

func (f *flagsEnumConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	var n int64
	switch v := val.(type) {
	case *Object:
		for _, name := range f.names {
			set, _ := v.Get(name)
			if b, ok := set.(bool); ok && b {
				n |= f.mapping[name]
			}
		}
	case []string:
		for _, name := range v {
			bit, ok := f.mapping[name]
			if !ok {
				return nil, &MappingError{pathError{Path: path, Message: "unknown flag symbol " + name}}
			}
			n |= bit
		}
	default:
		num, ok := toInt64(val)
		if !ok {
			return nil, &FormatError{pathError{Path: path, Message: "FlagsEnum expects a record, a symbol list, or an integer"}}
		}
		var declared int64
		for _, bit := range f.mapping {
			declared |= bit
		}
		n = num & declared
	}
	if _, err := f.sub.Build(n, s, ctx, path); err != nil {
		return nil, err
	}
	out := NewObject()
	for _, name := range f.names {
		bit := f.mapping[name]
		out.Set(name, n&bit == bit && bit != 0)
	}
	return out, nil
}
