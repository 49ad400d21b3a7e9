package construct

import "fmt"

// Expr is a deferred expression evaluated against a Context at parse/build
// time (spec §4.2). Every construct parameter that can be "a constant or an
// expression" (a count, a size, a predicate, an offset) accepts an Expr;
// Const wraps a plain value into one.
type Expr interface {
	Eval(ctx *Context, path Path) (any, error)
}

// exprFunc adapts a plain function into an Expr; this is the "closure
// variant as an equivalent escape hatch" design note from spec §9.
type exprFunc func(ctx *Context, path Path) (any, error)

func (f exprFunc) Eval(ctx *Context, path Path) (any, error) { return f(ctx, path) }

// Func builds an Expr from an arbitrary Go function, for logic the
// attribute/operator builders below can't express directly.
func Func(f func(ctx *Context) (any, error)) Expr {
	return exprFunc(func(ctx *Context, path Path) (any, error) {
		v, err := f(ctx)
		if err != nil {
			return nil, attachPath(err, path)
		}
		return v, nil
	})
}

// Const wraps a fixed Go value (or another Expr, passed through unchanged)
// as an Expr, so call sites can accept "a constant or an expression"
// uniformly.
func Const(v any) Expr {
	if e, ok := v.(Expr); ok {
		return e
	}
	return exprFunc(func(*Context, Path) (any, error) { return v, nil })
}

// This is the base object representing "the current context"; attribute
// access via This().Attr(name) builds a path expression (spec §4.2).
func This() Expr { return thisExpr{} }

type thisExpr struct{}

func (thisExpr) Eval(ctx *Context, path Path) (any, error) { return ctx, nil }

// pathExpr resolves a dotted attribute chain against whatever its parent
// expression evaluates to; the context itself is the usual base case.
type pathExpr struct {
	base Expr
	name string
}

// Attr builds a.name as a deferred expression, navigating "_"/"_root"/
// "_params" the same as any other name when e evaluates to a *Context.
func Attr(e Expr, name string) Expr { return pathExpr{base: e, name: name} }

func (p pathExpr) Eval(ctx *Context, path Path) (any, error) {
	base, err := p.base.Eval(ctx, path)
	if err != nil {
		return nil, err
	}
	switch b := base.(type) {
	case *Context:
		v, ok := b.Get(p.name)
		if !ok {
			return nil, &ContextError{pathError{Path: path, Message: fmt.Sprintf("no such key %q in context", p.name)}}
		}
		return v, nil
	case *Object:
		v, ok := b.Get(p.name)
		if !ok {
			return nil, &ContextError{pathError{Path: path, Message: fmt.Sprintf("no such field %q", p.name)}}
		}
		return v, nil
	default:
		return nil, &ContextError{pathError{Path: path, Message: fmt.Sprintf("cannot access %q on %T", p.name, base)}}
	}
}

// Field is sugar for Attr(This(), name) — "this.width"-style in spec
// notation becomes construct.Field("width") here.
func Field(name string) Expr { return Attr(This(), name) }

// Parent navigates "_": the parent context of the current frame.
func Parent(e Expr) Expr { return Attr(e, "_") }

// RootCtx navigates "_root": the outermost context frame.
func RootCtx() Expr { return Field("_root") }

// Params navigates "_params": the external arguments of the invocation.
func Params() Expr { return Field("_params") }

// binOp is an arithmetic/logical/comparison operator node over two
// subexpressions, evaluated numerically via toNumber.
type binOp struct {
	op          string
	left, right Expr
}

func (b binOp) Eval(ctx *Context, path Path) (any, error) {
	lv, err := b.left.Eval(ctx, path)
	if err != nil {
		return nil, err
	}
	rv, err := b.right.Eval(ctx, path)
	if err != nil {
		return nil, err
	}
	switch b.op {
	case "+":
		if ls, ok := lv.(string); ok {
			rs, _ := rv.(string)
			return ls + rs, nil
		}
		if lb, ok := lv.([]byte); ok {
			rb, _ := rv.([]byte)
			out := make([]byte, 0, len(lb)+len(rb))
			out = append(out, lb...)
			out = append(out, rb...)
			return out, nil
		}
	}
	ln, lok := toNumber(lv)
	rn, rok := toNumber(rv)
	if !lok || !rok {
		return nil, &ContextError{pathError{Path: path, Message: fmt.Sprintf("cannot apply %s to %T and %T", b.op, lv, rv)}}
	}
	switch b.op {
	case "+":
		return ln + rn, nil
	case "-":
		return ln - rn, nil
	case "*":
		return ln * rn, nil
	case "/":
		if rn == 0 {
			return nil, &ContextError{pathError{Path: path, Message: "division by zero"}}
		}
		return ln / rn, nil
	case "%":
		if rn == 0 {
			return nil, &ContextError{pathError{Path: path, Message: "modulo by zero"}}
		}
		return int64(ln) % int64(rn), nil
	case "==":
		return ln == rn, nil
	case "!=":
		return ln != rn, nil
	case "<":
		return ln < rn, nil
	case "<=":
		return ln <= rn, nil
	case ">":
		return ln > rn, nil
	case ">=":
		return ln >= rn, nil
	case "&&":
		return ln != 0 && rn != 0, nil
	case "||":
		return ln != 0 || rn != 0, nil
	default:
		return nil, &ContextError{pathError{Path: path, Message: fmt.Sprintf("unknown operator %q", b.op)}}
	}
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// Add, Sub, Mul, Div, Mod build arithmetic expressions; Eq, Ne, Lt, Le, Gt,
// Ge build comparisons; And, Or build logical operators. Together these
// are the operator-node half of the "small expression tree with
// context-lookup leaves and operator nodes" design note (spec §9).
func Add(a, b Expr) Expr { return binOp{"+", a, b} }
func Sub(a, b Expr) Expr { return binOp{"-", a, b} }
func Mul(a, b Expr) Expr { return binOp{"*", a, b} }
func Div(a, b Expr) Expr { return binOp{"/", a, b} }
func Mod(a, b Expr) Expr { return binOp{"%", a, b} }
func Eq(a, b Expr) Expr  { return binOp{"==", a, b} }
func Ne(a, b Expr) Expr  { return binOp{"!=", a, b} }
func Lt(a, b Expr) Expr  { return binOp{"<", a, b} }
func Le(a, b Expr) Expr  { return binOp{"<=", a, b} }
func Gt(a, b Expr) Expr  { return binOp{">", a, b} }
func Ge(a, b Expr) Expr  { return binOp{">=", a, b} }
func And(a, b Expr) Expr { return binOp{"&&", a, b} }
func Or(a, b Expr) Expr  { return binOp{"||", a, b} }

// EvalInt evaluates e and coerces the result to an int, for call sites
// that need a count/length/offset (Array, BytesExprOf, Pointer, Seek).
func EvalInt(e Expr, ctx *Context, path Path) (int, error) {
	v, err := e.Eval(ctx, path)
	if err != nil {
		return 0, err
	}
	n, ok := toNumber(v)
	if !ok {
		return 0, &ContextError{pathError{Path: path, Message: fmt.Sprintf("expected a number, got %T", v)}}
	}
	return int(n), nil
}

// EvalBool evaluates e and coerces the result to a bool, for predicates
// (RepeatUntil) and conditionals.
func EvalBool(e Expr, ctx *Context, path Path) (bool, error) {
	v, err := e.Eval(ctx, path)
	if err != nil {
		return false, err
	}
	if b, ok := v.(bool); ok {
		return b, nil
	}
	n, ok := toNumber(v)
	if !ok {
		return false, &ContextError{pathError{Path: path, Message: fmt.Sprintf("expected a bool, got %T", v)}}
	}
	return n != 0, nil
}
