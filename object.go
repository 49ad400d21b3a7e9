package construct

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// Object is the ordered-mapping value container produced by Struct and
// consumed by Struct.Build: an ordered mapping from name to value,
// preserving insertion order. Per the REDESIGN FLAGS note in spec.md §9,
// this exposes a single key-access API rather than the source library's
// dual key/attribute access, which only made sense in a dynamically typed
// host language.
type Object struct {
	keys   []string
	values map[string]any
}

// NewObject returns an empty record container.
func NewObject() *Object {
	return &Object{values: make(map[string]any)}
}

// Get looks up name, reporting whether it was present.
func (o *Object) Get(name string) (any, bool) {
	v, ok := o.values[name]
	return v, ok
}

// MustGet looks up name, returning nil if absent. Convenient for
// expression evaluation where a missing key is reported separately.
func (o *Object) MustGet(name string) any {
	return o.values[name]
}

// Set inserts or overwrites name, appending it to Keys() the first time
// it's seen so insertion order survives repeated Set calls.
func (o *Object) Set(name string, v any) {
	if _, ok := o.values[name]; !ok {
		o.keys = append(o.keys, name)
	}
	o.values[name] = v
}

// Keys returns the field names in insertion order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len reports the number of fields.
func (o *Object) Len() int { return len(o.keys) }

// MarshalJSON renders the object honoring the process-wide PrintSettings:
// reserved/underscore-prefixed keys and false bool values are omitted, and
// long strings are truncated, unless the corresponding setting asks to
// keep them, mirroring the
// "print-false-flags"/"print-private-entries" knobs from the source
// library's Container.__repr__.
func (o *Object) MarshalJSON() ([]byte, error) {
	settings := GetPrintSettings()
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, k := range o.keys {
		if !settings.PrintPrivateEntries && strings.HasPrefix(k, "_") {
			continue
		}
		v := o.values[k]
		if b, ok := v.(bool); ok && !b && !settings.PrintFalseFlags {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := marshalPrintValue(v, settings)
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Search recursively looks for the first field named `name`, descending
// into any nested *Object or *ListObject values.
func (o *Object) Search(name string) (any, bool) {
	if v, ok := o.values[name]; ok {
		return v, true
	}
	for _, k := range o.keys {
		if found, ok := searchIn(o.values[k], name); ok {
			return found, true
		}
	}
	return nil, false
}

// SearchAll recursively collects every field named `name`.
func (o *Object) SearchAll(name string) []any {
	var out []any
	if v, ok := o.values[name]; ok {
		out = append(out, v)
	}
	for _, k := range o.keys {
		out = append(out, searchAllIn(o.values[k], name)...)
	}
	return out
}

// SearchAllRegex is SearchAll with names matched against a regular
// expression instead of exact equality.
func (o *Object) SearchAllRegex(pattern string) ([]any, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	var out []any
	for _, k := range o.keys {
		if re.MatchString(k) {
			out = append(out, o.values[k])
		}
		out = append(out, searchAllRegexIn(o.values[k], re)...)
	}
	return out, nil
}

func searchIn(v any, name string) (any, bool) {
	switch t := v.(type) {
	case *Object:
		return t.Search(name)
	case *ListObject:
		for _, item := range t.items {
			if found, ok := searchIn(item, name); ok {
				return found, true
			}
		}
	}
	return nil, false
}

func searchAllIn(v any, name string) []any {
	switch t := v.(type) {
	case *Object:
		return t.SearchAll(name)
	case *ListObject:
		var out []any
		for _, item := range t.items {
			out = append(out, searchAllIn(item, name)...)
		}
		return out
	}
	return nil
}

func searchAllRegexIn(v any, re *regexp.Regexp) []any {
	switch t := v.(type) {
	case *Object:
		all, _ := t.SearchAllRegex(re.String())
		return all
	case *ListObject:
		var out []any
		for _, item := range t.items {
			out = append(out, searchAllRegexIn(item, re)...)
		}
		return out
	}
	return nil
}

// ListObject is the ordered-sequence value container produced by Sequence,
// Array, GreedyRange, and RepeatUntil.
type ListObject struct {
	items []any
}

// NewListObject wraps an existing slice (copied) as a ListObject.
func NewListObject(items []any) *ListObject {
	cp := make([]any, len(items))
	copy(cp, items)
	return &ListObject{items: cp}
}

// Items returns the elements in order.
func (l *ListObject) Items() []any {
	out := make([]any, len(l.items))
	copy(out, l.items)
	return out
}

// Len reports the number of elements.
func (l *ListObject) Len() int { return len(l.items) }

// MarshalJSON renders the list honoring the process-wide PrintSettings
// (see Object.MarshalJSON).
func (l *ListObject) MarshalJSON() ([]byte, error) {
	settings := GetPrintSettings()
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range l.items {
		if i > 0 {
			buf.WriteByte(',')
		}
		vb, err := marshalPrintValue(v, settings)
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// marshalPrintValue is the scalar counterpart of the two MarshalJSON
// methods above, truncating long strings unless PrintFullStrings is set.
func marshalPrintValue(v any, settings PrintSettings) ([]byte, error) {
	if s, ok := v.(string); ok && !settings.PrintFullStrings && len(s) > 64 {
		return json.Marshal(s[:64] + "...")
	}
	return json.Marshal(v)
}

// At returns the i'th element.
func (l *ListObject) At(i int) any { return l.items[i] }

// Append adds an element, returning the new length.
func (l *ListObject) Append(v any) int {
	l.items = append(l.items, v)
	return len(l.items)
}

// Search recursively looks for the first field named `name` among elements.
func (l *ListObject) Search(name string) (any, bool) {
	for _, item := range l.items {
		if found, ok := searchIn(item, name); ok {
			return found, true
		}
	}
	return nil, false
}

// SearchAll recursively collects every field named `name` among elements.
func (l *ListObject) SearchAll(name string) []any {
	var out []any
	for _, item := range l.items {
		out = append(out, searchAllIn(item, name)...)
	}
	return out
}

// EnumValue is the tagged enum symbol: it carries both the resolved name
// and the underlying integer (spec §4.6, Enum parse result). It is a plain
// struct: callers compare its Name or Value field, not the EnumValue itself.
type EnumValue struct {
	Name    string
	Value   int64
	Known   bool // true for every value Enum produces; an unmapped integer passes through as a bare int64 instead
}
