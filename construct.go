// Package construct is a declarative binary format toolkit: a symmetric
// parse/build engine over a tree of composable constructs that describe
// how to translate between byte streams and structured Go values. A single
// construct definition serves both directions — Parse turns bytes into a
// value, Build turns a value back into bytes — and the same definition
// yields a size where one is statically determinable.
package construct

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// Construct is the uniform contract every node in the tree implements:
// parse, build, size-of and the fixed-size flag. Access to a wrapped
// subconstruct is the separate Subconstructor interface. Implementations must be referentially transparent — safe
// to reuse for many parse/build calls with no hidden mutation between them
// (spec §3, "Lifecycle").
type Construct interface {
	// Parse reads this construct's value from s under ctx, with path
	// naming the construct's position for error reporting.
	Parse(s Stream, ctx *Context, path Path) (any, error)

	// Build writes val to s under ctx and returns the value actually
	// written (adapters may normalize it, e.g. Enum resolving a name to
	// its integer and back).
	Build(val any, s Stream, ctx *Context, path Path) (any, error)

	// SizeOf returns this construct's length in bytes given ctx, or a
	// *SizeUnknownError if it cannot be determined without reading/writing.
	SizeOf(ctx *Context, path Path) (int, error)

	// FixedSize reports whether SizeOf never depends on ctx.
	FixedSize() bool
}

// Subconstructor is implemented by adapters and wrappers that delegate to
// exactly one nested construct, exposing it for introspection/tooling.
type Subconstructor interface {
	Subcon() Construct
}

// Named is implemented by constructs that know their own field name, as
// assigned by an enclosing Struct/Sequence (spec §3: "name (optional,
// assigned by enclosing composite)").
type Named interface {
	Name() string
}

// Documented is implemented by constructs carrying an optional docstring
// (spec §3).
type Documented interface {
	Doc() string
}

// namedConstruct pairs a Construct with a field name and/or docstring,
// implementing Named/Documented without every construct kind needing to
// carry those fields itself. Struct/Sequence members are built with
// NameField below.
type namedConstruct struct {
	Construct
	name string
	doc  string
}

func (n *namedConstruct) Name() string { return n.name }
func (n *namedConstruct) Doc() string  { return n.doc }
func (n *namedConstruct) Subcon() Construct {
	if s, ok := n.Construct.(Subconstructor); ok {
		return s.Subcon()
	}
	return n.Construct
}

// NameField names a subconstruct for use inside Struct/Sequence — the Go
// realization of the source syntax's "name / subcon" sugar (spec §6).
// NameField panics if name collides with a reserved context key (spec §9,
// "hidden context keys collision risk").
func NameField(name string, c Construct) Construct {
	if IsReservedName(name) {
		panic("construct: " + name + " is a reserved context key and cannot name a field")
	}
	return &namedConstruct{Construct: c, name: name}
}

// Doc attaches a docstring to c — the Go realization of `subcon * "docstring"`.
func Doc(c Construct, doc string) Construct {
	if nc, ok := c.(*namedConstruct); ok {
		nc.doc = doc
		return nc
	}
	return &namedConstruct{Construct: c, doc: doc}
}

// nameOf returns c's field name if it has one, else "".
func nameOf(c Construct) string {
	if n, ok := c.(Named); ok {
		return n.Name()
	}
	return ""
}

// ParseOptions carries the external parameters forwarded into a root
// context's `_params`.
type ParseOptions struct {
	Params any
}

// BuildOptions mirrors ParseOptions for the build direction.
type BuildOptions struct {
	Params any
}

// ParseBytes is the top-level parse entry point (spec §6: `parse(bytes,
// **params)`). It wraps data in a Stream, builds the root context with
// `_parsing=true`, and dispatches into c.
func ParseBytes(c Construct, data []byte, opts ...ParseOptions) (any, error) {
	return ParseStream(c, NewMemStream(data), opts...)
}

// ParseStream is the top-level parse entry point over an existing Stream
// (spec §6: `parse_stream`).
func ParseStream(c Construct, s Stream, opts ...ParseOptions) (any, error) {
	var o ParseOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	ctx := NewRootContext(ModeParsing, s, o.Params)
	v, err := c.Parse(s, ctx, Tagged("parsing"))
	if err != nil {
		return nil, attachPath(err, Tagged("parsing"))
	}
	return v, nil
}

// ParseFile opens path in binary read mode and parses it (spec §6:
// `parse_file`).
func ParseFile(c Construct, path string, opts ...ParseOptions) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "construct: opening file to parse")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrap(err, "construct: reading file to parse")
	}
	adviseSequentialRead(f, int64(len(data)))
	return ParseBytes(c, data, opts...)
}

// Build is the top-level build entry point (spec §6: `build(value,
// **params)`), returning the accumulated bytes.
func Build(c Construct, val any, opts ...BuildOptions) ([]byte, error) {
	s := NewMemStream(nil)
	if err := BuildStream(c, val, s, opts...); err != nil {
		return nil, err
	}
	return s.Bytes(), nil
}

// BuildStream writes val into an existing Stream (spec §6: `build_stream`).
func BuildStream(c Construct, val any, s Stream, opts ...BuildOptions) error {
	var o BuildOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	ctx := NewRootContext(ModeBuilding, s, o.Params)
	_, err := c.Build(val, s, ctx, Tagged("building"))
	if err != nil {
		return attachPath(err, Tagged("building"))
	}
	return nil
}

// BuildFile builds val and writes it to path (spec §6: `build_file`).
func BuildFile(c Construct, val any, path string, opts ...BuildOptions) error {
	data, err := Build(c, val, opts...)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// SizeOf is the top-level size entry point (spec §6: `sizeof(**params)`).
func SizeOf(c Construct, opts ...ParseOptions) (int, error) {
	var o ParseOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	ctx := NewRootContext(ModeSizing, nil, o.Params)
	return c.SizeOf(ctx, Tagged("sizing"))
}
