package construct

// sequenceConstruct is spec §4.5's Sequence: like Struct but results
// accumulate into an ordered *ListObject instead of an *Object. Names (if
// any) still populate the context frame but not the output list, so a
// later member can reference an earlier named one even though the output
// is positional.
type sequenceConstruct struct {
	members []Construct
}

// SeqOf builds a Sequence from its ordered members.
func SeqOf(members ...Construct) Construct {
	return &sequenceConstruct{members: members}
}

func (c *sequenceConstruct) FixedSize() bool {
	for _, m := range c.members {
		if !m.FixedSize() {
			return false
		}
	}
	return true
}

func (c *sequenceConstruct) SizeOf(ctx *Context, path Path) (int, error) {
	total := 0
	child := ctx.Child()
	for _, m := range c.members {
		sz, err := m.SizeOf(child, path.Down(nameOf(m)))
		if err != nil {
			return 0, err
		}
		total += sz
	}
	return total, nil
}

func (c *sequenceConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	child := ctx.Child()
	out := &ListObject{}
	for _, m := range c.members {
		n := nameOf(m)
		v, err := m.Parse(s, child, path.Down(n))
		if err != nil {
			return nil, attachPath(err, path.Down(n))
		}
		if n != "" {
			child.Set(n, v)
		}
		out.Append(v)
	}
	return out, nil
}

func (c *sequenceConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	list, ok := val.(*ListObject)
	if !ok {
		if sl, ok2 := val.([]any); ok2 {
			list = NewListObject(sl)
		} else {
			return nil, &RangeError{pathError{Path: path, Message: "Sequence expects a list of values"}}
		}
	}
	if list.Len() != len(c.members) {
		return nil, &RangeError{pathError{Path: path, Message: "Sequence value count does not match member count"}}
	}
	child := ctx.Child()
	out := &ListObject{}
	for i, m := range c.members {
		n := nameOf(m)
		written, err := m.Build(list.At(i), s, child, path.Down(n))
		if err != nil {
			return nil, attachPath(err, path.Down(n))
		}
		if n != "" {
			child.Set(n, written)
		}
		out.Append(written)
	}
	return out, nil
}
