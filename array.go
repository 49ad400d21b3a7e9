package construct

import "github.com/pkg/errors"

// arrayConstruct is spec §4.5's Array(count, subcon): a homogeneous
// fixed-count repeater. count may be a constant or an Expr evaluated
// against the enclosing context (e.g. "this.width * this.height").
type arrayConstruct struct {
	count Expr
	elem  Construct
}

// ArrayOf builds a fixed-count repeater. count is typically Const(n) or an
// expression built from This()/Field().
func ArrayOf(count Expr, elem Construct) Construct {
	return arrayConstruct{count: count, elem: elem}
}

func (a arrayConstruct) FixedSize() bool {
	_, isConst := a.count.(exprFunc)
	return isConst && a.elem.FixedSize()
}

func (a arrayConstruct) SizeOf(ctx *Context, path Path) (int, error) {
	n, err := EvalInt(a.count, ctx, path)
	if err != nil {
		return 0, &SizeUnknownError{pathError{Path: path, Message: "Array count needs context: " + err.Error()}}
	}
	elemSize, err := a.elem.SizeOf(ctx, path)
	if err != nil {
		return 0, err
	}
	return n * elemSize, nil
}

func (a arrayConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	n, err := EvalInt(a.count, ctx, path)
	if err != nil {
		return nil, err
	}
	out := &ListObject{}
	for i := 0; i < n; i++ {
		iterCtx := ctx.WithIndex(i)
		v, err := a.elem.Parse(s, iterCtx, path.Down(indexName(i)))
		if err != nil {
			return nil, attachPath(err, path.Down(indexName(i)))
		}
		out.Append(v)
	}
	return out, nil
}

func (a arrayConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	n, err := EvalInt(a.count, ctx, path)
	if err != nil {
		return nil, err
	}
	items, err := asItems(val)
	if err != nil {
		return nil, &RangeError{pathError{Path: path, Message: err.Error()}}
	}
	if len(items) != n {
		return nil, &RangeError{pathError{Path: path, Message: "wrong element count for Array"}}
	}
	out := &ListObject{}
	for i, item := range items {
		iterCtx := ctx.WithIndex(i)
		written, err := a.elem.Build(item, s, iterCtx, path.Down(indexName(i)))
		if err != nil {
			return nil, attachPath(err, path.Down(indexName(i)))
		}
		out.Append(written)
	}
	return out, nil
}

func indexName(i int) string { return "[" + itoa(i) + "]" }

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

func asItems(val any) ([]any, error) {
	switch v := val.(type) {
	case *ListObject:
		return v.Items(), nil
	case []any:
		return v, nil
	case nil:
		return nil, nil
	default:
		return nil, errors.New("expected a list of values")
	}
}

// greedyRangeConstruct is spec §4.5's GreedyRange(subcon, discard): parses
// repeatedly; on any failure the stream is rewound to the position after
// the last successful item.
type greedyRangeConstruct struct {
	elem    Construct
	discard bool
	hook    func(item any, accumulated []any, ctx *Context) error // may return ErrCancelParsing
}

// GreedyRangeOf builds a greedy repeater: parses subcon until it fails,
// rewinding to the last successful position. If discard is true the parsed
// list itself is dropped (only the side effect of consuming bytes is
// kept) — matching the source library's discard-on-parse lazy ranges.
func GreedyRangeOf(elem Construct, discard bool) Construct {
	return &greedyRangeConstruct{elem: elem, discard: discard}
}

// WithHook attaches a post-parse processing hook to a GreedyRange/RepeatUntil
// construct, the Go realization of `subcon * callable` (spec §6). The hook
// may return ErrCancelParsing to stop iteration early without that being
// treated as a failure (spec §4.7, "CancelParsing sentinel").
func WithHook(c Construct, hook func(item any, accumulated []any, ctx *Context) error) Construct {
	switch t := c.(type) {
	case *greedyRangeConstruct:
		cp := *t
		cp.hook = hook
		return &cp
	case *repeatUntilConstruct:
		cp := *t
		cp.hook = hook
		return &cp
	default:
		panic("construct: WithHook only applies to GreedyRange/RepeatUntil")
	}
}

func (g *greedyRangeConstruct) FixedSize() bool { return false }

func (g *greedyRangeConstruct) SizeOf(ctx *Context, path Path) (int, error) {
	return 0, &SizeUnknownError{pathError{Path: path, Message: "GreedyRange has no static size"}}
}

func (g *greedyRangeConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	var items []any
	i := 0
	for {
		pos, terr := s.Tell()
		if terr != nil {
			return nil, attachPath(terr, path)
		}
		iterCtx := ctx.WithIndex(i)
		v, err := g.elem.Parse(s, iterCtx, path.Down(indexName(i)))
		if err != nil {
			if _, serr := s.Seek(pos, SeekStart); serr != nil {
				return nil, attachPath(serr, path)
			}
			break
		}
		items = append(items, v)
		if g.hook != nil {
			if herr := g.hook(v, items, ctx); herr != nil {
				if errIsCancel(herr) {
					break
				}
				return nil, attachPath(herr, path)
			}
		}
		i++
	}
	if g.discard {
		return &ListObject{}, nil
	}
	return NewListObject(items), nil
}

func (g *greedyRangeConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	items, err := asItems(val)
	if err != nil {
		return nil, &RangeError{pathError{Path: path, Message: err.Error()}}
	}
	out := &ListObject{}
	for i, item := range items {
		iterCtx := ctx.WithIndex(i)
		written, err := g.elem.Build(item, s, iterCtx, path.Down(indexName(i)))
		if err != nil {
			return nil, attachPath(err, path.Down(indexName(i)))
		}
		out.Append(written)
	}
	return out, nil
}

// repeatUntilConstruct is spec §4.5's RepeatUntil(predicate, subcon,
// discard): parse items; after each, call predicate with (obj, accumulated
// list, context); include the terminal item.
type repeatUntilConstruct struct {
	predicate func(obj any, accumulated []any, ctx *Context) (bool, error)
	elem      Construct
	discard   bool
	hook      func(item any, accumulated []any, ctx *Context) error
}

// RepeatUntilOf builds a predicate-terminated repeater.
func RepeatUntilOf(predicate func(obj any, accumulated []any, ctx *Context) (bool, error), elem Construct, discard bool) Construct {
	return &repeatUntilConstruct{predicate: predicate, elem: elem, discard: discard}
}

func (r *repeatUntilConstruct) FixedSize() bool { return false }

func (r *repeatUntilConstruct) SizeOf(ctx *Context, path Path) (int, error) {
	return 0, &SizeUnknownError{pathError{Path: path, Message: "RepeatUntil has no static size"}}
}

func (r *repeatUntilConstruct) Parse(s Stream, ctx *Context, path Path) (any, error) {
	var items []any
	i := 0
	for {
		iterCtx := ctx.WithIndex(i)
		v, err := r.elem.Parse(s, iterCtx, path.Down(indexName(i)))
		if err != nil {
			return nil, attachPath(err, path.Down(indexName(i)))
		}
		items = append(items, v)
		if r.hook != nil {
			if herr := r.hook(v, items, ctx); herr != nil {
				if errIsCancel(herr) {
					break
				}
				return nil, attachPath(herr, path)
			}
		}
		done, perr := r.predicate(v, items, ctx)
		if perr != nil {
			return nil, attachPath(perr, path)
		}
		if done {
			break
		}
		i++
	}
	if r.discard {
		return &ListObject{}, nil
	}
	return NewListObject(items), nil
}

func (r *repeatUntilConstruct) Build(val any, s Stream, ctx *Context, path Path) (any, error) {
	items, err := asItems(val)
	if err != nil {
		return nil, &RangeError{pathError{Path: path, Message: err.Error()}}
	}
	out := &ListObject{}
	satisfied := false
	for i, item := range items {
		iterCtx := ctx.WithIndex(i)
		written, err := r.elem.Build(item, s, iterCtx, path.Down(indexName(i)))
		if err != nil {
			return nil, attachPath(err, path.Down(indexName(i)))
		}
		out.Append(written)
		done, perr := r.predicate(written, out.Items(), ctx)
		if perr != nil {
			return nil, attachPath(perr, path)
		}
		if done {
			satisfied = true
			break
		}
	}
	if !satisfied {
		return nil, &RangeError{pathError{Path: path, Message: "RepeatUntil predicate never satisfied"}}
	}
	return out, nil
}

func errIsCancel(err error) bool {
	return errors.Is(err, ErrCancelParsing)
}
