package shape

import "github.com/sw33tLie/wphttp/pkg/match"

// Location identifies one matched string inside a shape. Entry is the outer
// key (empty for scalars and flat maps), Key the field name.
type Location struct {
	Entry string
	Key   string
	Title string
}

// Result lists matches in iteration order. Unverifiable counts opaque values
// that were skipped; they are neither matches nor non-matches.
type Result struct {
	Locations    []Location
	Unverifiable int
}

func (r Result) Matched() bool { return len(r.Locations) > 0 }

// Title is the title attached to the first match, if any.
func (r Result) Title() string {
	if len(r.Locations) == 0 {
		return ""
	}
	return r.Locations[0].Title
}

// FindMatches walks s in stored order and never modifies it.
func FindMatches(s Shape, needle string) Result {
	var res Result
	switch s.Kind {
	case Scalar:
		if s.Opaque {
			res.Unverifiable++
		} else if match.Matches(s.Text, needle) {
			res.Locations = append(res.Locations, Location{})
		}
	case FlatMap:
		walkFields(&res, "", s.Fields, needle)
	case NestedMap, ListOfMaps:
		for _, e := range s.Entries {
			if e.IsMap {
				walkFields(&res, e.Key, e.Fields, needle)
				continue
			}
			switch e.Value.Kind {
			case Opaque:
				res.Unverifiable++
			case String:
				if match.Matches(e.Value.Str, needle) {
					res.Locations = append(res.Locations, Location{Entry: e.Key})
				}
			}
		}
	}
	return res
}

func walkFields(res *Result, entry string, fields []Field, needle string) {
	title := ""
	for _, f := range fields {
		switch f.Value.Kind {
		case Opaque:
			res.Unverifiable++
		case String:
			if f.Key == TitleKey {
				title = f.Value.Str
			}
			if match.Matches(f.Value.Str, needle) {
				res.Locations = append(res.Locations, Location{Entry: entry, Key: f.Key, Title: title})
			}
		}
	}
}
