package construct

import "errors"

var (
	errParseFromRequired    = errors.New("Union build: parseFrom must be set (nil has no designated member)")
	errOutOfRangeParseFrom  = errors.New("Union build: parseFrom index out of range")
	errUnknownParseFromName = errors.New("Union build: parseFrom names no member")
)

// unionConstruct is spec §4.5's Union(subcons, parsefrom): all
// subconstructs share the same starting stream position. Parse runs each
// at that position (each leaving the stream where it ends); afterwards the
// stream is advanced to the end of the construct designated by parsefrom
// (by name or index), or left at the initial position if parsefrom is nil.
// Build writes exactly the member designated by parseFrom; parseFrom ==
// nil has no designated member and is an error on Build.
//
// Per the Open Question resolution in spec §9 / SPEC_FULL.md §9, a
// parseFrom == nil Union never advances the stream on Parse, so one
// nested beneath a GreedyRange/RepeatUntil ancestor would stall that
// ancestor's loop forever. This is not statically rejected at
// tree-construction time; NeedsAdvance exists so a caller can check for
// it manually, since a Union by itself cannot see its own ancestry.
type unionConstruct struct {
	members   []Construct
	parseFrom any // nil, int (index), or string (name)
}

// UnionOf builds a Union. parseFrom selects which member's end position
// the stream advances to after every member has been tried; pass nil to
// leave the stream at the initial position (only safe outside any
// greedy/range ancestor — see NeedsAdvance).
func UnionOf(parseFrom any, members ...Construct) Construct {
	return &unionConstruct{members: members, parseFrom: parseFrom}
}

// NeedsAdvance reports whether a Union configured with parseFrom=nil would
// leave a greedy/range ancestor unable to make progress. Callers
// constructing a tree with GreedyRange/RepeatUntil around a Union should
// check this at definition time (spec §9 open question).
func NeedsAdvance(u Construct) bool {
	uc, ok := u.(*unionConstruct)
	return ok && uc.parseFrom == nil
}

func (u *unionConstruct) FixedSize() bool { return false }

func (u *unionConstruct) SizeOf(ctx *Context, path Path) (int, error) {
	return 0, &SizeUnknownError{pathError{Path: path, Message: "Union has no static size"}}
}

func (u *unionConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	start, err := s.Tell()
	if err != nil {
		return nil, attachPath(err, path)
	}
	out := NewObject()
	var endPos = start
	var chosenEnd int64 = -1
	for i, m := range u.members {
		if _, serr := s.Seek(start, SeekStart); serr != nil {
			return nil, attachPath(serr, path)
		}
		n := nameOf(m)
		v, perr := m.Parse(s, ctx.Child(), path.Down(n))
		if perr != nil {
			continue
		}
		if n != "" {
			out.Set(n, v)
		}
		if u.selects(i, n) {
			chosenEnd, _ = s.Tell()
		}
		_ = endPos
	}
	if chosenEnd >= 0 {
		if _, serr := s.Seek(chosenEnd, SeekStart); serr != nil {
			return nil, attachPath(serr, path)
		}
	} else {
		if _, serr := s.Seek(start, SeekStart); serr != nil {
			return nil, attachPath(serr, path)
		}
	}
	return out, nil
}

func (u *unionConstruct) selects(index int, name string) bool {
	switch pf := u.parseFrom.(type) {
	case int:
		return pf == index
	case string:
		return pf == name
	default:
		return false
	}
}

// Build writes exactly the member designated by parseFrom (spec §4.5:
// "Build writes exactly one designated member; others are ignored"),
// looked up by index or by name depending on parseFrom's type. parseFrom
// == nil has no designated member to build and is always an error.
func (u *unionConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	obj, ok := val.(*Object)
	if !ok {
		return nil, &FormatError{pathError{Path: path, Message: "Union expects a record value"}}
	}
	m, n, err := u.resolveParseFrom()
	if err != nil {
		return nil, &FormatError{pathError{Path: path, Message: err.Error()}}
	}
	var fieldVal any
	if n != "" {
		v, present := obj.Get(n)
		if !present {
			return nil, &FormatError{pathError{Path: path, Message: "Union build: designated member " + n + " missing from value"}}
		}
		fieldVal = v
	} else {
		fieldVal = obj
	}
	written, err := m.Build(fieldVal, s, ctx.Child(), path.Down(n))
	if err != nil {
		return nil, err
	}
	return written, nil
}

// resolveParseFrom looks up the member designated by u.parseFrom, by index
// or by name, returning it along with its field name (empty if unnamed).
func (u *unionConstruct) resolveParseFrom() (Construct, string, error) {
	switch pf := u.parseFrom.(type) {
	case int:
		if pf < 0 || pf >= len(u.members) {
			return nil, "", errOutOfRangeParseFrom
		}
		m := u.members[pf]
		return m, nameOf(m), nil
	case string:
		for _, m := range u.members {
			if nameOf(m) == pf {
				return m, pf, nil
			}
		}
		return nil, "", errUnknownParseFromName
	default:
		return nil, "", errParseFromRequired
	}
}

// selectConstruct is spec §4.5's Select(subcons): parse tries each subcon
// in order, rewinding on failure; first success wins; all-fail raises
// *select* error. Build tries each for acceptance in order.
type selectConstruct struct {
	members []Construct
}

// SelectOf builds a first-success alternation. Per spec §8, Select with no
// members always raises *select* on both parse and build.
func SelectOf(members ...Construct) Construct {
	return &selectConstruct{members: members}
}

func (sel *selectConstruct) FixedSize() bool { return false }

func (sel *selectConstruct) SizeOf(ctx *Context, path Path) (int, error) {
	return 0, &SizeUnknownError{pathError{Path: path, Message: "Select has no static size"}}
}

func (sel *selectConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	start, err := s.Tell()
	if err != nil {
		return nil, attachPath(err, path)
	}
	var causes []error
	for _, m := range sel.members {
		if _, serr := s.Seek(start, SeekStart); serr != nil {
			return nil, attachPath(serr, path)
		}
		v, perr := m.Parse(s, ctx.Child(), path.Down(nameOf(m)))
		if perr == nil {
			return v, nil
		}
		causes = append(causes, perr)
	}
	if _, serr := s.Seek(start, SeekStart); serr != nil {
		return nil, attachPath(serr, path)
	}
	return nil, &SelectError{pathError: pathError{Path: path, Message: "all alternatives failed"}, Causes: causes}
}

func (sel *selectConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	var causes []error
	for _, m := range sel.members {
		probe := NewMemStream(nil)
		written, err := m.Build(val, probe, ctx.Child(), path.Down(nameOf(m)))
		if err != nil {
			causes = append(causes, err)
			continue
		}
		if werr := s.Write(probe.Bytes()); werr != nil {
			return nil, attachPath(werr, path)
		}
		return written, nil
	}
	return nil, &SelectError{pathError: pathError{Path: path, Message: "no alternative accepted the value"}, Causes: causes}
}
