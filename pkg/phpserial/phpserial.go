// Package phpserial decodes and encodes PHP serialize() output while keeping
// array order and the exact text of every value it does not rewrite.
//
// Objects, custom-serialized classes, enums and references are decoded only
// far enough to find where they end; their text is carried verbatim as
// KindObject nodes.
package phpserial

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrSyntax is returned when the input is not well-formed serialized data.
var ErrSyntax = errors.New("phpserial: malformed input")

type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	}
	return "unknown"
}

// Node is one decoded value. Str holds the decoded bytes for strings, the
// literal text for scalars and the class name for objects.
type Node struct {
	Kind  Kind
	Str   string
	Items []Item

	raw string
}

// Item is one key/value pair of an array, in serialized order.
type Item struct {
	Key   Node
	Value Node
}

// String builds a string node.
func String(s string) Node {
	return Node{Kind: KindString, Str: s}
}

// Raw returns the serialized text the node was decoded from.
func (n Node) Raw() string { return n.raw }

// Encode serializes the node. Strings and arrays are rebuilt so that byte
// lengths stay correct after edits; every other kind is emitted as read.
func (n Node) Encode() string {
	var b strings.Builder
	n.encode(&b)
	return b.String()
}

func (n Node) encode(b *strings.Builder) {
	switch n.Kind {
	case KindString:
		b.WriteString("s:")
		b.WriteString(strconv.Itoa(len(n.Str)))
		b.WriteString(":\"")
		b.WriteString(n.Str)
		b.WriteString("\";")
	case KindArray:
		b.WriteString("a:")
		b.WriteString(strconv.Itoa(len(n.Items)))
		b.WriteString(":{")
		for _, it := range n.Items {
			it.Key.encode(b)
			it.Value.encode(b)
		}
		b.WriteString("}")
	default:
		if n.raw != "" {
			b.WriteString(n.raw)
			return
		}
		switch n.Kind {
		case KindNull:
			b.WriteString("N;")
		case KindBool:
			b.WriteString("b:" + n.Str + ";")
		case KindInt:
			b.WriteString("i:" + n.Str + ";")
		case KindFloat:
			b.WriteString("d:" + n.Str + ";")
		}
	}
}

// Looks reports whether s has the outer form of serialized data, the same
// test WordPress applies before calling unserialize.
func Looks(s string) bool {
	s = strings.TrimSpace(s)
	if s == "N;" {
		return true
	}
	if len(s) < 4 || s[1] != ':' {
		return false
	}
	last := s[len(s)-1]
	if last != ';' && last != '}' {
		return false
	}
	switch s[0] {
	case 's', 'a', 'O', 'C', 'E', 'b', 'i', 'd', 'r', 'R':
		return true
	}
	return false
}

// Decode parses a single serialized value. Surrounding whitespace is
// ignored; any other trailing data is an error.
func Decode(data string) (Node, error) {
	d := &decoder{s: strings.TrimSpace(data)}
	n, err := d.value()
	if err != nil {
		return Node{}, err
	}
	if d.pos != len(d.s) {
		return Node{}, d.fail("trailing data")
	}
	return n, nil
}

type decoder struct {
	s   string
	pos int
}

func (d *decoder) fail(what string) error {
	return fmt.Errorf("%w: %s at offset %d", ErrSyntax, what, d.pos)
}

func (d *decoder) expect(lit string) error {
	if !strings.HasPrefix(d.s[d.pos:], lit) {
		return d.fail("expected " + strconv.Quote(lit))
	}
	d.pos += len(lit)
	return nil
}

// until returns the text up to the next stop byte and consumes the stop.
func (d *decoder) until(stop byte) (string, error) {
	i := strings.IndexByte(d.s[d.pos:], stop)
	if i < 0 {
		return "", d.fail("unterminated token")
	}
	tok := d.s[d.pos : d.pos+i]
	d.pos += i + 1
	return tok, nil
}

func (d *decoder) length(stop byte) (int, error) {
	tok, err := d.until(stop)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(tok)
	if err != nil || n < 0 {
		return 0, d.fail("bad length " + strconv.Quote(tok))
	}
	return n, nil
}

// quoted reads n bytes enclosed in double quotes.
func (d *decoder) quoted(n int) (string, error) {
	if err := d.expect("\""); err != nil {
		return "", err
	}
	if n > len(d.s)-d.pos {
		return "", d.fail("string length exceeds input")
	}
	v := d.s[d.pos : d.pos+n]
	d.pos += n
	if err := d.expect("\""); err != nil {
		return "", err
	}
	return v, nil
}

func (d *decoder) value() (Node, error) {
	if d.pos >= len(d.s) {
		return Node{}, d.fail("unexpected end of input")
	}
	start := d.pos
	n, err := d.node()
	if err != nil {
		return Node{}, err
	}
	n.raw = d.s[start:d.pos]
	return n, nil
}

func (d *decoder) node() (Node, error) {
	tag := d.s[d.pos]
	if tag == 'N' {
		if err := d.expect("N;"); err != nil {
			return Node{}, err
		}
		return Node{Kind: KindNull}, nil
	}
	d.pos++
	if err := d.expect(":"); err != nil {
		return Node{}, err
	}

	switch tag {
	case 'b':
		tok, err := d.until(';')
		if err != nil {
			return Node{}, err
		}
		if tok != "0" && tok != "1" {
			return Node{}, d.fail("bad bool")
		}
		return Node{Kind: KindBool, Str: tok}, nil
	case 'i':
		tok, err := d.until(';')
		if err != nil {
			return Node{}, err
		}
		if _, err := strconv.ParseInt(tok, 10, 64); err != nil {
			return Node{}, d.fail("bad int")
		}
		return Node{Kind: KindInt, Str: tok}, nil
	case 'd':
		tok, err := d.until(';')
		if err != nil {
			return Node{}, err
		}
		if tok == "" {
			return Node{}, d.fail("bad float")
		}
		return Node{Kind: KindFloat, Str: tok}, nil
	case 's':
		n, err := d.length(':')
		if err != nil {
			return Node{}, err
		}
		v, err := d.quoted(n)
		if err != nil {
			return Node{}, err
		}
		if err := d.expect(";"); err != nil {
			return Node{}, err
		}
		return Node{Kind: KindString, Str: v}, nil
	case 'a':
		count, err := d.length(':')
		if err != nil {
			return Node{}, err
		}
		items, err := d.items(count)
		if err != nil {
			return Node{}, err
		}
		return Node{Kind: KindArray, Items: items}, nil
	case 'O':
		n, err := d.length(':')
		if err != nil {
			return Node{}, err
		}
		class, err := d.quoted(n)
		if err != nil {
			return Node{}, err
		}
		if err := d.expect(":"); err != nil {
			return Node{}, err
		}
		count, err := d.length(':')
		if err != nil {
			return Node{}, err
		}
		items, err := d.items(count)
		if err != nil {
			return Node{}, err
		}
		return Node{Kind: KindObject, Str: class, Items: items}, nil
	case 'C':
		n, err := d.length(':')
		if err != nil {
			return Node{}, err
		}
		class, err := d.quoted(n)
		if err != nil {
			return Node{}, err
		}
		if err := d.expect(":"); err != nil {
			return Node{}, err
		}
		size, err := d.length(':')
		if err != nil {
			return Node{}, err
		}
		if err := d.expect("{"); err != nil {
			return Node{}, err
		}
		if d.pos+size > len(d.s) {
			return Node{}, d.fail("payload length exceeds input")
		}
		d.pos += size
		if err := d.expect("}"); err != nil {
			return Node{}, err
		}
		return Node{Kind: KindObject, Str: class}, nil
	case 'E':
		n, err := d.length(':')
		if err != nil {
			return Node{}, err
		}
		name, err := d.quoted(n)
		if err != nil {
			return Node{}, err
		}
		if err := d.expect(";"); err != nil {
			return Node{}, err
		}
		return Node{Kind: KindObject, Str: name}, nil
	case 'r', 'R':
		if _, err := d.length(';'); err != nil {
			return Node{}, err
		}
		return Node{Kind: KindObject}, nil
	}
	return Node{}, d.fail("unknown type tag " + strconv.QuoteRune(rune(tag)))
}

func (d *decoder) items(count int) ([]Item, error) {
	if err := d.expect("{"); err != nil {
		return nil, err
	}
	// Every element takes at least four bytes of input.
	if count > (len(d.s)-d.pos)/4 {
		return nil, d.fail("element count exceeds input")
	}
	items := make([]Item, 0, count)
	for i := 0; i < count; i++ {
		key, err := d.value()
		if err != nil {
			return nil, err
		}
		if key.Kind != KindInt && key.Kind != KindString {
			return nil, d.fail("array key must be int or string")
		}
		val, err := d.value()
		if err != nil {
			return nil, err
		}
		items = append(items, Item{Key: key, Value: val})
	}
	if err := d.expect("}"); err != nil {
		return nil, err
	}
	return items, nil
}
