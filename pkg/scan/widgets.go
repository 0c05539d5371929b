package scan

import (
	"github.com/sw33tLie/wphttp/pkg/match"
	"github.com/sw33tLie/wphttp/pkg/report"
	"github.com/sw33tLie/wphttp/pkg/shape"
)

// verdict is what a strategy concludes about one widget instance.
type verdict struct {
	matched      bool
	title        string
	unverifiable int
}

// Each widget type stores different fields, so each gets its own rule for
// what to check and what to call the instance.
type widgetStrategy func(e shape.Entry, needle string) verdict

var widgetStrategies = map[Kind]widgetStrategy{
	KindWidgetText:  textWidgetStrategy,
	KindWidgetImage: imageWidgetStrategy,
	KindWidgetVideo: videoWidgetStrategy,
	KindWidgetRSS:   rssWidgetStrategy,
}

func field(e shape.Entry, key string) (shape.Value, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return shape.Value{}, false
}

func stringField(e shape.Entry, key string) string {
	if v, ok := field(e, key); ok && v.Kind == shape.String {
		return v.Str
	}
	return ""
}

// textWidgetStrategy checks the text body only and labels with the title.
func textWidgetStrategy(e shape.Entry, needle string) verdict {
	v, ok := field(e, "text")
	if !ok {
		return verdict{}
	}
	if v.Kind == shape.Opaque {
		return verdict{unverifiable: 1}
	}
	if v.Kind != shape.String || !match.Matches(v.Str, needle) {
		return verdict{}
	}
	return verdict{matched: true, title: stringField(e, shape.TitleKey)}
}

// imageWidgetStrategy checks url and link_url. Untitled images are labelled
// by their url, then their link.
func imageWidgetStrategy(e shape.Entry, needle string) verdict {
	var out verdict
	for _, key := range []string{"url", "link_url"} {
		v, ok := field(e, key)
		if !ok {
			continue
		}
		if v.Kind == shape.Opaque {
			out.unverifiable++
			continue
		}
		if v.Kind == shape.String && match.Matches(v.Str, needle) {
			out.matched = true
		}
	}
	if !out.matched {
		return out
	}
	for _, key := range []string{shape.TitleKey, "url", "link_url"} {
		if t := stringField(e, key); t != "" {
			out.title = t
			break
		}
	}
	return out
}

// videoWidgetStrategy checks every string field; the label is the title seen
// before the first match.
func videoWidgetStrategy(e shape.Entry, needle string) verdict {
	var out verdict
	title := ""
	for _, f := range e.Fields {
		switch f.Value.Kind {
		case shape.Opaque:
			out.unverifiable++
		case shape.String:
			if f.Key == shape.TitleKey {
				title = f.Value.Str
			}
			if !out.matched && match.Matches(f.Value.Str, needle) {
				out.matched = true
				out.title = title
			}
		}
	}
	return out
}

// rssWidgetStrategy checks every string field; a title is reported only when
// the entry has one.
func rssWidgetStrategy(e shape.Entry, needle string) verdict {
	var out verdict
	for _, f := range e.Fields {
		switch f.Value.Kind {
		case shape.Opaque:
			out.unverifiable++
		case shape.String:
			if match.Matches(f.Value.Str, needle) {
				out.matched = true
			}
		}
	}
	if out.matched {
		out.title = stringField(e, shape.TitleKey)
	}
	return out
}

// widgetReport applies strategy to every instance stored in s. A value that
// is not a map holds no instances; one that failed to decode cannot be
// checked at all.
func widgetReport(s shape.Shape, strategy widgetStrategy, needle string) report.MatchReport {
	var r report.MatchReport
	if s.Kind == shape.Scalar {
		if s.Opaque {
			r.Unverifiable = 1
		}
		return r
	}
	for _, e := range s.Outer() {
		if e.IsMap {
			r.Total++
			v := strategy(e, needle)
			r.Unverifiable += v.unverifiable
			if v.matched {
				r.Invalid++
				if r.Title == "" {
					r.Title = v.title
				}
			}
			continue
		}
		switch e.Value.Kind {
		case shape.Opaque:
			r.Total++
			r.Unverifiable++
		case shape.String:
			r.Total++
			if match.Matches(e.Value.Str, needle) {
				r.Invalid++
			}
		}
	}
	return r
}
