// Command construct is a front-end over the engine's built-in formats,
// generalizing the teacher's single-purpose `knode <file>` CLI into a
// parse/sizeof/build/repl subcommand surface.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/subcommands"

	"github.com/thacuber2a03/construct"
	"github.com/thacuber2a03/construct/formats/bmp"
	"github.com/thacuber2a03/construct/formats/knode"
)

// formats is the registry of named constructs this binary knows how to
// drive; a real deployment would grow this list per format package it
// vendors in.
var formats = map[string]construct.Construct{
	"bmp":   bmp.Format(),
	"knode": knode.Format(),
}

func lookupFormat(name string) (construct.Construct, error) {
	c, ok := formats[name]
	if !ok {
		names := make([]string, 0, len(formats))
		for n := range formats {
			names = append(names, n)
		}
		return nil, fmt.Errorf("unknown format %q (known: %s)", name, strings.Join(names, ", "))
	}
	return c, nil
}

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&parseCmd{}, "")
	subcommands.Register(&sizeofCmd{}, "")
	subcommands.Register(&buildCmd{}, "")
	subcommands.Register(&replCmd{}, "")
	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}

// parseCmd implements `construct parse <format> <file>`.
type parseCmd struct {
	full    bool
	private bool
}

func (*parseCmd) Name() string     { return "parse" }
func (*parseCmd) Synopsis() string { return "parse a file against a known format and print it as JSON" }
func (*parseCmd) Usage() string {
	return "parse <format> <file>:\n\tparse <file> against a registered format and print the result.\n"
}
func (p *parseCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&p.full, "full-strings", false, "don't truncate long strings in the printed output")
	f.BoolVar(&p.private, "private", false, "show underscore-prefixed context entries")
}

func (p *parseCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: construct parse <format> <file>")
		return subcommands.ExitUsageError
	}
	c, err := lookupFormat(args[0])
	if err != nil {
		log.Print(err)
		return subcommands.ExitFailure
	}

	construct.SetPrintSettings(construct.PrintSettings{PrintFullStrings: p.full, PrintPrivateEntries: p.private})
	v, err := construct.ParseFile(c, args[1])
	if err != nil {
		log.Print(err)
		return subcommands.ExitFailure
	}

	out, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		log.Print(err)
		return subcommands.ExitFailure
	}
	fmt.Printf("%s\n", out)
	return subcommands.ExitSuccess
}

// sizeofCmd implements `construct sizeof <format>`, printing a format's
// fixed byte length or reporting that it depends on context.
type sizeofCmd struct{}

func (*sizeofCmd) Name() string     { return "sizeof" }
func (*sizeofCmd) Synopsis() string { return "print a registered format's fixed size, if it has one" }
func (*sizeofCmd) Usage() string {
	return "sizeof <format>:\n\treport the static size in bytes of a registered format.\n"
}
func (*sizeofCmd) SetFlags(f *flag.FlagSet) {}

func (*sizeofCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: construct sizeof <format>")
		return subcommands.ExitUsageError
	}
	c, err := lookupFormat(args[0])
	if err != nil {
		log.Print(err)
		return subcommands.ExitFailure
	}

	n, err := construct.SizeOf(c)
	if err != nil {
		fmt.Println("size depends on context:", err)
		return subcommands.ExitSuccess
	}
	fmt.Println(n)
	return subcommands.ExitSuccess
}

// buildCmd implements `construct build <format> <json-file> <out-file>`,
// building a value read from a JSON object/list tree.
type buildCmd struct{}

func (*buildCmd) Name() string     { return "build" }
func (*buildCmd) Synopsis() string { return "build a registered format from a JSON description" }
func (*buildCmd) Usage() string {
	return "build <format> <json-file> <out-file>:\n\tbuild <out-file> from the JSON value in <json-file>.\n"
}
func (*buildCmd) SetFlags(f *flag.FlagSet) {}

func (*buildCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: construct build <format> <json-file> <out-file>")
		return subcommands.ExitUsageError
	}
	c, err := lookupFormat(args[0])
	if err != nil {
		log.Print(err)
		return subcommands.ExitFailure
	}

	raw, err := os.ReadFile(args[1])
	if err != nil {
		log.Print(err)
		return subcommands.ExitFailure
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		log.Print(err)
		return subcommands.ExitFailure
	}

	if err := construct.BuildFile(c, jsonToValue(generic), args[2]); err != nil {
		log.Print(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// jsonToValue converts the generic tree produced by json.Unmarshal (map,
// slice, float64, string, bool, nil) into construct's value space
// (*Object, *ListObject, int64, float64, ...), matching the mapping
// described in spec §3's value-space table.
func jsonToValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		obj := construct.NewObject()
		for k, vv := range t {
			obj.Set(k, jsonToValue(vv))
		}
		return obj
	case []any:
		items := make([]any, len(t))
		for i, vv := range t {
			items[i] = jsonToValue(vv)
		}
		return construct.NewListObject(items)
	case float64:
		if t == float64(int64(t)) {
			return int64(t)
		}
		return t
	default:
		return v
	}
}

// replCmd implements `construct repl <format> <file>`: parse the file,
// then let the user navigate the result with dotted field paths
// (`a.b[2].c`) instead of a full expression-language parser, since the
// engine's Expr values are built with Go combinators (Field, Attr, Mul,
// ...) rather than parsed from source text.
type replCmd struct{}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "interactively navigate a parsed value" }
func (*replCmd) Usage() string {
	return "repl <format> <file>:\n\tparse <file> and explore the result with dotted field paths.\n"
}
func (*replCmd) SetFlags(f *flag.FlagSet) {}

func (*replCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: construct repl <format> <file>")
		return subcommands.ExitUsageError
	}
	c, err := lookupFormat(args[0])
	if err != nil {
		log.Print(err)
		return subcommands.ExitFailure
	}
	root, err := construct.ParseFile(c, args[1])
	if err != nil {
		log.Print(err)
		return subcommands.ExitFailure
	}

	rl, err := readline.New("construct> ")
	if err != nil {
		log.Print(err)
		return subcommands.ExitFailure
	}
	defer rl.Close()

	fmt.Println("type a dotted path (e.g. header.version), or 'exit'")
	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF or readline.ErrInterrupt
			return subcommands.ExitSuccess
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" {
			return subcommands.ExitSuccess
		}
		v, err := navigate(root, line)
		if err != nil {
			fmt.Println(err)
			continue
		}
		out, err := json.MarshalIndent(v, "", "\t")
		if err != nil {
			fmt.Println(err)
			continue
		}
		fmt.Printf("%s\n", out)
	}
}

// navigate walks a dotted path with optional `[index]` segments over a
// tree of *construct.Object/*construct.ListObject values.
func navigate(v any, path string) (any, error) {
	cur := v
	for _, segment := range strings.Split(path, ".") {
		name, indices, err := splitIndices(segment)
		if err != nil {
			return nil, err
		}
		if name != "" {
			obj, ok := cur.(*construct.Object)
			if !ok {
				return nil, fmt.Errorf("%q is not a record", segment)
			}
			cur, ok = obj.Get(name)
			if !ok {
				return nil, fmt.Errorf("no such field %q", name)
			}
		}
		for _, idx := range indices {
			list, ok := cur.(*construct.ListObject)
			if !ok {
				return nil, fmt.Errorf("%q is not a list", segment)
			}
			if idx < 0 || idx >= list.Len() {
				return nil, fmt.Errorf("index %d out of range (len %d)", idx, list.Len())
			}
			cur = list.At(idx)
		}
	}
	return cur, nil
}

func splitIndices(segment string) (name string, indices []int, err error) {
	i := strings.IndexByte(segment, '[')
	if i < 0 {
		return segment, nil, nil
	}
	name = segment[:i]
	rest := segment[i:]
	for len(rest) > 0 {
		if rest[0] != '[' {
			return "", nil, fmt.Errorf("malformed index in %q", segment)
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return "", nil, fmt.Errorf("unterminated index in %q", segment)
		}
		n, convErr := strconv.Atoi(rest[1:end])
		if convErr != nil {
			return "", nil, fmt.Errorf("bad index in %q: %w", segment, convErr)
		}
		indices = append(indices, n)
		rest = rest[end+1:]
	}
	return name, indices, nil
}
