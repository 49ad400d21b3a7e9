package construct

// structConstruct is spec §4.5's Struct: an ordered list of named
// subconstructs, building an *Object. Parse pushes a child context frame
// linked to the caller's, iterates subconstructs in declared order, and
// inserts each named result into both the frame and the resulting record;
// unnamed results are discarded. Build seeds the child frame from the
// caller's *Object and reflects each written value back into it so later
// siblings (and Computed fields) can reference earlier ones.
type structConstruct struct {
	members []Construct
}

// StructOf builds a Struct from its ordered members. Use NameField to name
// each member; an unnamed member still executes (for side effects like
// Padding or a nested Struct) but its value is discarded from the result.
func StructOf(members ...Construct) Construct {
	for _, m := range members {
		if IsReservedName(nameOf(m)) {
			panic("construct: Struct member uses a reserved context key as its name")
		}
	}
	return &structConstruct{members: members}
}

func (c *structConstruct) FixedSize() bool {
	for _, m := range c.members {
		if !m.FixedSize() {
			return false
		}
	}
	return true
}

func (c *structConstruct) SizeOf(ctx *Context, path Path) (int, error) {
	total := 0
	child := ctx.Child()
	for _, m := range c.members {
		n := nameOf(m)
		sz, err := m.SizeOf(child, path.Down(n))
		if err != nil {
			return 0, err
		}
		total += sz
	}
	return total, nil
}

func (c *structConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	child := ctx.Child()
	for _, m := range c.members {
		n := nameOf(m)
		v, err := m.Parse(s, child, path.Down(n))
		if err != nil {
			return nil, attachPath(err, path.Down(n))
		}
		if n != "" {
			child.Set(n, v)
		}
	}
	return child.AsObject(), nil
}

func (c *structConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	obj, _ := val.(*Object)
	if obj == nil {
		if m, ok := val.(map[string]any); ok {
			obj = NewObject()
			for k, v := range m {
				obj.Set(k, v)
			}
		} else {
			obj = NewObject()
		}
	}
	child := ctx.Child()
	for _, k := range obj.Keys() {
		v, _ := obj.Get(k)
		child.Set(k, v)
	}
	out := NewObject()
	for _, m := range c.members {
		n := nameOf(m)
		var fieldVal any
		if n != "" {
			fieldVal, _ = obj.Get(n)
		}
		written, err := m.Build(fieldVal, s, child, path.Down(n))
		if err != nil {
			return nil, attachPath(err, path.Down(n))
		}
		if n != "" {
			child.Set(n, written)
			out.Set(n, written)
		}
	}
	return out, nil
}
