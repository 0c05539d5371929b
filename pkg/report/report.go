package report

import "sort"

// MatchReport describes one scanned location. Title is the label of the
// first offending entry found in enumeration order.
type MatchReport struct {
	Total        int    `json:"total" yaml:"total"`
	Invalid      int    `json:"invalid" yaml:"invalid"`
	Unverifiable int    `json:"unverifiable,omitempty" yaml:"unverifiable,omitempty"`
	Title        string `json:"title,omitempty" yaml:"title,omitempty"`
}

// Consistent reports whether the counters respect Invalid <= Total and the
// title is only set alongside a match.
func (r MatchReport) Consistent() bool {
	if r.Invalid < 0 || r.Total < 0 || r.Invalid > r.Total {
		return false
	}
	return r.Title == "" || r.Invalid > 0
}

// Aggregate folds named reports into one. Counters are summed; the title is
// taken from the first name in priority whose report has one. Names absent
// from priority are considered afterwards in lexical order.
func Aggregate(priority []string, reports map[string]MatchReport) MatchReport {
	var out MatchReport
	for _, r := range reports {
		out.Total += r.Total
		out.Invalid += r.Invalid
		out.Unverifiable += r.Unverifiable
	}

	seen := make(map[string]bool, len(priority))
	order := make([]string, 0, len(reports))
	for _, name := range priority {
		if _, ok := reports[name]; ok && !seen[name] {
			order = append(order, name)
		}
		seen[name] = true
	}
	var rest []string
	for name := range reports {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	order = append(order, rest...)

	for _, name := range order {
		if t := reports[name].Title; t != "" {
			out.Title = t
			break
		}
	}
	return out
}
