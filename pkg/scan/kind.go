package scan

import (
	"fmt"
	"strings"

	"github.com/sw33tLie/wphttp/pkg/storage"
)

// Kind is a place a match can live.
type Kind string

const (
	KindOptions     Kind = "options"
	KindWidgetText  Kind = "widget_text"
	KindWidgetImage Kind = "widget_image"
	KindWidgetVideo Kind = "widget_video"
	KindWidgetRSS   Kind = "widget_rss"
	KindContent     Kind = "content"
	KindCustom      Kind = "custom"
	KindMeta        Kind = "meta"
	KindOtherMeta   Kind = "other_meta"
)

// ScopeWidgets names all widget kinds at once.
const ScopeWidgets = "widgets"

var (
	WidgetKinds = []Kind{KindWidgetText, KindWidgetImage, KindWidgetVideo, KindWidgetRSS}
	AllKinds    = []Kind{KindOptions, KindWidgetText, KindWidgetImage, KindWidgetVideo, KindWidgetRSS, KindContent, KindCustom, KindMeta, KindOtherMeta}

	// DefaultTitlePriority decides which widget kind labels the combined report.
	DefaultTitlePriority = []Kind{KindWidgetVideo, KindWidgetImage, KindWidgetRSS, KindWidgetText}
)

// widgetsLike is excluded from the options scan; widget options have their
// own kinds.
const widgetsLike = "widget"

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown kind %q", s)
}

// ParseKinds reads a comma separated list of kinds.
func ParseKinds(list []string) ([]Kind, error) {
	out := make([]Kind, 0, len(list))
	for _, s := range list {
		for _, part := range strings.Split(s, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			k, err := ParseKind(part)
			if err != nil {
				return nil, err
			}
			out = append(out, k)
		}
	}
	return out, nil
}

func (k Kind) IsWidget() bool {
	return k.OptionName() != ""
}

// OptionName is the option row holding the widget instances of k.
func (k Kind) OptionName() string {
	switch k {
	case KindWidgetText:
		return "widget_text"
	case KindWidgetImage:
		return "widget_media_image"
	case KindWidgetVideo:
		return "widget_media_video"
	case KindWidgetRSS:
		return "widget_rss"
	}
	return ""
}

// PatternFor returns the candidate query of a row-addressed kind. Widget
// kinds are addressed by option name and have none.
func PatternFor(k Kind, needle string) (storage.PatternQuery, bool) {
	switch k {
	case KindOptions:
		return storage.PatternQuery{Table: storage.TableOptions, Column: storage.ColumnOptionValue, Pattern: needle, ExcludeLike: widgetsLike}, true
	case KindContent:
		return storage.PatternQuery{Table: storage.TablePosts, Column: storage.ColumnPostContent, Pattern: needle, Scope: storage.PublishedPostsPages}, true
	case KindCustom:
		return storage.PatternQuery{Table: storage.TablePosts, Column: storage.ColumnPostContent, Pattern: needle, Scope: storage.PublishedCustom}, true
	case KindMeta:
		return storage.PatternQuery{Table: storage.TablePostMeta, Column: storage.ColumnMetaValue, Pattern: needle, Scope: storage.PublishedPostsPages}, true
	case KindOtherMeta:
		return storage.PatternQuery{Table: storage.TablePostMeta, Column: storage.ColumnMetaValue, Pattern: needle, Scope: storage.OutsidePublishedPostsPages}, true
	}
	return storage.PatternQuery{}, false
}
