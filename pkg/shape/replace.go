package shape

import (
	"fmt"
	"strings"

	"github.com/sw33tLie/wphttp/pkg/match"
	"github.com/sw33tLie/wphttp/pkg/phpserial"
	"github.com/tidwall/sjson"
)

// Replace substitutes from with to in every string value of s and returns
// the re-encoded value. Keys and literals are left alone. A shape holding
// any opaque value is refused as a whole with ErrOpaque.
func Replace(s Shape, from, to string) (string, error) {
	if s.HasOpaque() {
		return "", ErrOpaque
	}
	switch s.Encoding {
	case PHP:
		return rewritePHP(s.php, from, to).Encode(), nil
	case JSON:
		return rewriteJSON(s, from, to)
	}
	return match.ReplaceAll(s.raw, from, to), nil
}

func rewritePHP(n phpserial.Node, from, to string) phpserial.Node {
	switch n.Kind {
	case phpserial.KindString:
		if !match.Matches(n.Str, from) {
			return n
		}
		// Serialized data stored as a string is rewritten through its own
		// shape so the inner lengths stay right.
		if nestedPHP(n.Str) {
			if inner, err := Replace(Decode(n.Str), from, to); err == nil {
				return phpserial.String(inner)
			}
		}
		return phpserial.String(match.ReplaceAll(n.Str, from, to))
	case phpserial.KindArray:
		items := make([]phpserial.Item, len(n.Items))
		for i, it := range n.Items {
			items[i] = phpserial.Item{Key: it.Key, Value: rewritePHP(it.Value, from, to)}
		}
		n.Items = items
	}
	return n
}

// rewriteJSON edits matching string leaves in place so untouched parts of
// the document keep their formatting.
func rewriteJSON(s Shape, from, to string) (string, error) {
	out := s.raw
	set := func(path []string, v Value) error {
		if v.Kind != String || !match.Matches(v.Str, from) {
			return nil
		}
		var err error
		out, err = sjson.Set(out, joinPath(path...), match.ReplaceAll(v.Str, from, to))
		if err != nil {
			return fmt.Errorf("set %s: %w", joinPath(path...), err)
		}
		return nil
	}

	for _, f := range s.Fields {
		if err := set([]string{f.Key}, f.Value); err != nil {
			return "", err
		}
	}
	for _, e := range s.Entries {
		if !e.IsMap {
			if err := set([]string{e.Key}, e.Value); err != nil {
				return "", err
			}
			continue
		}
		for _, f := range e.Fields {
			if err := set([]string{e.Key, f.Key}, f.Value); err != nil {
				return "", err
			}
		}
	}
	return out, nil
}

// joinPath builds a gjson/sjson path, escaping path syntax inside keys.
func joinPath(keys ...string) string {
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('.')
		}
		for _, r := range k {
			if strings.ContainsRune(`\.*?|#@!=<>%`, r) {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}
