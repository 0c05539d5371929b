// Package shape classifies stored values into the four shapes the scanner
// understands and rewrites them without touching anything it cannot read.
package shape

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/sw33tLie/wphttp/pkg/phpserial"
	"github.com/tidwall/gjson"
)

// TitleKey is the conventional per-entry label field.
const TitleKey = "title"

// ErrOpaque is returned when a value holds data that cannot be interpreted
// safely, so it must not be rewritten.
var ErrOpaque = errors.New("shape: value contains opaque data")

type Kind int

const (
	Scalar Kind = iota
	FlatMap
	NestedMap
	ListOfMaps
)

func (k Kind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case FlatMap:
		return "flat-map"
	case NestedMap:
		return "nested-map"
	case ListOfMaps:
		return "list-of-maps"
	}
	return "unknown"
}

// Encoding is the serialization the value was read from and is written back in.
type Encoding int

const (
	Plain Encoding = iota
	PHP
	JSON
)

func (e Encoding) String() string {
	switch e {
	case PHP:
		return "php"
	case JSON:
		return "json"
	}
	return "plain"
}

type ValueKind int

const (
	String ValueKind = iota
	// Literal is a non-string scalar (number, bool, null). Never matched, never rewritten.
	Literal
	// Opaque is an object, a nested structure deeper than two levels or
	// anything else that did not decode into plain values.
	Opaque
)

type Value struct {
	Kind ValueKind
	Str  string
}

type Field struct {
	Key   string
	Value Value
}

// Entry is one outer element of a NestedMap or ListOfMaps. Entries whose
// value is not a map carry it in Value with IsMap unset.
type Entry struct {
	Key    string
	IsMap  bool
	Fields []Field
	Value  Value
}

type Shape struct {
	Kind     Kind
	Encoding Encoding
	// Opaque marks a value that looks serialized but could not be decoded,
	// or decoded to an object.
	Opaque  bool
	Text    string
	Fields  []Field
	Entries []Entry

	raw string
	php phpserial.Node
}

// Raw returns the stored text the shape was decoded from.
func (s Shape) Raw() string { return s.raw }

// HasOpaque reports whether any part of the value is opaque.
func (s Shape) HasOpaque() bool {
	if s.Opaque {
		return true
	}
	for _, f := range s.Fields {
		if f.Value.Kind == Opaque {
			return true
		}
	}
	for _, e := range s.Entries {
		if !e.IsMap && e.Value.Kind == Opaque {
			return true
		}
		for _, f := range e.Fields {
			if f.Value.Kind == Opaque {
				return true
			}
		}
	}
	return false
}

// Outer returns the outer elements of the value as entries: flat map fields
// become bare entries and a scalar becomes a single unnamed entry.
func (s Shape) Outer() []Entry {
	switch s.Kind {
	case NestedMap, ListOfMaps:
		return s.Entries
	case FlatMap:
		out := make([]Entry, 0, len(s.Fields))
		for _, f := range s.Fields {
			out = append(out, Entry{Key: f.Key, Value: f.Value})
		}
		return out
	}
	if s.Opaque {
		return []Entry{{Value: Value{Kind: Opaque}}}
	}
	return []Entry{{Value: Value{Kind: String, Str: s.Text}}}
}

// Decode classifies raw. PHP serialized data is tried first, then JSON
// objects and arrays; anything else is a plain scalar.
func Decode(raw string) Shape {
	trimmed := strings.TrimSpace(raw)
	if phpserial.Looks(trimmed) {
		n, err := phpserial.Decode(trimmed)
		if err != nil {
			return Shape{Kind: Scalar, Encoding: PHP, Opaque: true, raw: raw}
		}
		return fromPHP(raw, n)
	}
	if trimmed != "" && (trimmed[0] == '{' || trimmed[0] == '[') && gjson.Valid(trimmed) {
		return fromJSON(raw, gjson.Parse(trimmed))
	}
	return Shape{Kind: Scalar, Encoding: Plain, Text: raw, raw: raw}
}

func fromPHP(raw string, n phpserial.Node) Shape {
	s := Shape{Encoding: PHP, raw: raw, php: n}
	if n.Kind != phpserial.KindArray {
		s.Kind, s.Text = Scalar, n.Str
		s.Opaque = n.Kind == phpserial.KindObject
		if s.Opaque {
			s.Text = ""
		}
		return s
	}

	nested := false
	for _, it := range n.Items {
		if it.Value.Kind == phpserial.KindArray {
			nested = true
			break
		}
	}
	if !nested {
		s.Kind = FlatMap
		for _, it := range n.Items {
			s.Fields = append(s.Fields, Field{Key: it.Key.Str, Value: phpValue(it.Value)})
		}
		return s
	}

	s.Kind = ListOfMaps
	for i, it := range n.Items {
		if it.Key.Kind != phpserial.KindInt || it.Key.Str != strconv.Itoa(i) {
			s.Kind = NestedMap
		}
		e := Entry{Key: it.Key.Str}
		if it.Value.Kind == phpserial.KindArray {
			e.IsMap = true
			for _, inner := range it.Value.Items {
				e.Fields = append(e.Fields, Field{Key: inner.Key.Str, Value: phpValue(inner.Value)})
			}
		} else {
			e.Value = phpValue(it.Value)
		}
		s.Entries = append(s.Entries, e)
	}
	return s
}

// nestedPHPPattern is the head of an array, object or string serialized
// again inside a string value.
var nestedPHPPattern = regexp.MustCompile(`^\s*(?:a:\d+:\{|[OCs]:\d+:")`)

func nestedPHP(s string) bool {
	return phpserial.Looks(s) && nestedPHPPattern.MatchString(s)
}

func phpValue(n phpserial.Node) Value {
	switch n.Kind {
	case phpserial.KindString:
		if nestedPHP(n.Str) && Decode(n.Str).HasOpaque() {
			return Value{Kind: Opaque}
		}
		return Value{Kind: String, Str: n.Str}
	case phpserial.KindArray, phpserial.KindObject:
		return Value{Kind: Opaque}
	}
	return Value{Kind: Literal, Str: n.Raw()}
}

func fromJSON(raw string, r gjson.Result) Shape {
	s := Shape{Encoding: JSON, raw: raw}
	type pair struct {
		key string
		val gjson.Result
	}
	var pairs []pair
	nested := false
	i := 0
	r.ForEach(func(k, v gjson.Result) bool {
		key := k.Str
		if r.IsArray() {
			key = strconv.Itoa(i)
		}
		i++
		pairs = append(pairs, pair{key, v})
		if v.IsObject() || v.IsArray() {
			nested = true
		}
		return true
	})

	if !nested {
		s.Kind = FlatMap
		for _, p := range pairs {
			s.Fields = append(s.Fields, Field{Key: p.key, Value: jsonValue(p.val)})
		}
		return s
	}

	s.Kind = NestedMap
	if r.IsArray() {
		s.Kind = ListOfMaps
	}
	for _, p := range pairs {
		e := Entry{Key: p.key}
		if p.val.IsObject() || p.val.IsArray() {
			e.IsMap = true
			j := 0
			p.val.ForEach(func(k, v gjson.Result) bool {
				key := k.Str
				if p.val.IsArray() {
					key = strconv.Itoa(j)
				}
				j++
				e.Fields = append(e.Fields, Field{Key: key, Value: jsonValue(v)})
				return true
			})
		} else {
			e.Value = jsonValue(p.val)
		}
		s.Entries = append(s.Entries, e)
	}
	return s
}

func jsonValue(r gjson.Result) Value {
	switch r.Type {
	case gjson.String:
		return Value{Kind: String, Str: r.Str}
	case gjson.JSON:
		return Value{Kind: Opaque}
	}
	return Value{Kind: Literal, Str: r.Raw}
}
