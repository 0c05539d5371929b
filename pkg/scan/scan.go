package scan

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/sw33tLie/wphttp/internal/utils"
	"github.com/sw33tLie/wphttp/pkg/report"
	"github.com/sw33tLie/wphttp/pkg/shape"
	"github.com/sw33tLie/wphttp/pkg/storage"
)

type Config struct {
	// TitlePriority orders widget kinds when labelling the combined widget
	// report. Empty means DefaultTitlePriority.
	TitlePriority []Kind
}

// Scanner reports where a needle occurs. It only reads from the store.
type Scanner struct {
	store    storage.RecordStore
	priority []string
}

func New(store storage.RecordStore, cfg Config) *Scanner {
	priority := cfg.TitlePriority
	if len(priority) == 0 {
		priority = DefaultTitlePriority
	}
	names := make([]string, len(priority))
	for i, k := range priority {
		names[i] = string(k)
	}
	return &Scanner{store: store, priority: names}
}

type MetaItem struct {
	MetaID  storage.RecordID `json:"meta_id" yaml:"meta_id"`
	PostID  storage.RecordID `json:"post_id" yaml:"post_id"`
	MetaKey string           `json:"meta_key" yaml:"meta_key"`
}

type MetaResult struct {
	Total int        `json:"total" yaml:"total"`
	Items []MetaItem `json:"items" yaml:"items"`
}

// PostRef is one line of the links table. MetaKey is set when the post is
// listed because of its metadata rather than its content.
type PostRef struct {
	ID      storage.RecordID `json:"id" yaml:"id"`
	Title   string           `json:"title" yaml:"title"`
	MetaKey string           `json:"meta_key,omitempty" yaml:"meta_key,omitempty"`
}

type Summary struct {
	Needle          string                      `json:"needle" yaml:"needle"`
	Options         report.MatchReport          `json:"options" yaml:"options"`
	Widgets         report.MatchReport          `json:"widgets" yaml:"widgets"`
	WidgetKinds     map[Kind]report.MatchReport `json:"widget_kinds" yaml:"widget_kinds"`
	Content         []storage.RecordID          `json:"content" yaml:"content"`
	CustomContent   []storage.RecordID          `json:"custom_content" yaml:"custom_content"`
	PublishedMeta   MetaResult                  `json:"published_meta" yaml:"published_meta"`
	UnpublishedMeta MetaResult                  `json:"unpublished_meta" yaml:"unpublished_meta"`
	Posts           []PostRef                   `json:"posts" yaml:"posts"`
}

// Clean reports whether nothing was found anywhere.
func (s *Summary) Clean() bool {
	return s.Options.Invalid == 0 && s.Widgets.Invalid == 0 && len(s.Content) == 0 &&
		len(s.CustomContent) == 0 && len(s.PublishedMeta.Items) == 0 && len(s.UnpublishedMeta.Items) == 0
}

// Options reports non-widget options containing needle.
func (s *Scanner) Options(ctx context.Context, needle string) (report.MatchReport, error) {
	var r report.MatchReport
	total, err := s.store.CountAll(ctx, storage.TableOptions)
	if err != nil {
		return r, fmt.Errorf("counting options: %w", err)
	}
	r.Total = total
	if needle == "" {
		return r, nil
	}
	q, _ := PatternFor(KindOptions, needle)
	rows, err := s.store.FindByPattern(ctx, q)
	if err != nil {
		return r, fmt.Errorf("scanning options: %w", err)
	}
	r.Invalid = len(rows)
	if len(rows) > 0 {
		r.Title = rows[0].Key
	}
	return r, nil
}

// Widget reports the instances of one widget kind containing needle. A site
// without that widget option is a valid empty result.
func (s *Scanner) Widget(ctx context.Context, kind Kind, needle string) (report.MatchReport, error) {
	strategy, ok := widgetStrategies[kind]
	if !ok {
		return report.MatchReport{}, fmt.Errorf("%s is not a widget kind", kind)
	}
	raw, err := s.store.GetSerializedValue(ctx, kind.OptionName())
	if errors.Is(err, storage.ErrNotFound) {
		return report.MatchReport{}, nil
	}
	if err != nil {
		return report.MatchReport{}, fmt.Errorf("reading %s: %w", kind.OptionName(), err)
	}
	r := widgetReport(shape.Decode(raw), strategy, needle)
	utils.Log.WithFields(logrus.Fields{"kind": kind, "total": r.Total, "invalid": r.Invalid}).Debug("Scanned widgets")
	return r, nil
}

// WidgetKinds scans every widget kind separately.
func (s *Scanner) WidgetKinds(ctx context.Context, needle string) (map[Kind]report.MatchReport, error) {
	out := make(map[Kind]report.MatchReport, len(WidgetKinds))
	for _, k := range WidgetKinds {
		r, err := s.Widget(ctx, k, needle)
		if err != nil {
			return nil, err
		}
		out[k] = r
	}
	return out, nil
}

// Widgets folds the widget kinds into one report.
func (s *Scanner) Widgets(ctx context.Context, needle string) (report.MatchReport, error) {
	kinds, err := s.WidgetKinds(ctx, needle)
	if err != nil {
		return report.MatchReport{}, err
	}
	return s.aggregate(kinds), nil
}

func (s *Scanner) aggregate(kinds map[Kind]report.MatchReport) report.MatchReport {
	named := make(map[string]report.MatchReport, len(kinds))
	for k, r := range kinds {
		named[string(k)] = r
	}
	return report.Aggregate(s.priority, named)
}

func (s *Scanner) find(ctx context.Context, kind Kind, needle string) ([]storage.Row, error) {
	if needle == "" {
		return nil, nil
	}
	q, ok := PatternFor(kind, needle)
	if !ok {
		return nil, fmt.Errorf("%s is not addressed by rows", kind)
	}
	rows, err := s.store.FindByPattern(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", kind, err)
	}
	return rows, nil
}

func (s *Scanner) ids(ctx context.Context, kind Kind, needle string) ([]storage.RecordID, error) {
	rows, err := s.find(ctx, kind, needle)
	if err != nil {
		return nil, err
	}
	out := make([]storage.RecordID, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out, nil
}

// PublishedContent lists published posts and pages whose content contains needle.
func (s *Scanner) PublishedContent(ctx context.Context, needle string) ([]storage.RecordID, error) {
	return s.ids(ctx, KindContent, needle)
}

// CustomContent lists published posts of any other type whose content contains needle.
func (s *Scanner) CustomContent(ctx context.Context, needle string) ([]storage.RecordID, error) {
	return s.ids(ctx, KindCustom, needle)
}

// PublishedMeta lists metadata of published posts and pages containing
// needle, one item per post. The first item seen for a post is kept and
// Total counts posts, not rows.
func (s *Scanner) PublishedMeta(ctx context.Context, needle string) (MetaResult, error) {
	rows, err := s.find(ctx, KindMeta, needle)
	if err != nil {
		return MetaResult{}, err
	}
	res := MetaResult{Items: []MetaItem{}}
	seen := make(map[storage.RecordID]bool, len(rows))
	for _, r := range rows {
		if seen[r.PostID] {
			continue
		}
		seen[r.PostID] = true
		res.Items = append(res.Items, MetaItem{MetaID: r.ID, PostID: r.PostID, MetaKey: r.Key})
	}
	res.Total = len(res.Items)
	return res, nil
}

// UnpublishedMeta lists every other metadata row containing needle.
func (s *Scanner) UnpublishedMeta(ctx context.Context, needle string) (MetaResult, error) {
	rows, err := s.find(ctx, KindOtherMeta, needle)
	if err != nil {
		return MetaResult{}, err
	}
	res := MetaResult{Total: len(rows), Items: make([]MetaItem, 0, len(rows))}
	for _, r := range rows {
		res.Items = append(res.Items, MetaItem{MetaID: r.ID, PostID: r.PostID, MetaKey: r.Key})
	}
	return res, nil
}

// Posts builds the links table: posts listed because of meta come first and
// keep their meta key, then posts whose content matched. The result is
// sorted by title, then id.
func (s *Scanner) Posts(ctx context.Context, needle string, meta MetaResult) ([]PostRef, error) {
	rows, err := s.find(ctx, KindContent, needle)
	if err != nil {
		return nil, err
	}

	var refs []PostRef
	add := func(ref PostRef) {
		for _, r := range refs {
			if r.ID == ref.ID {
				return
			}
		}
		refs = append(refs, ref)
	}

	if len(meta.Items) > 0 {
		ids := make([]storage.RecordID, 0, len(meta.Items))
		for _, m := range meta.Items {
			ids = append(ids, m.PostID)
		}
		titles, err := s.store.GetPostTitles(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("reading post titles: %w", err)
		}
		for _, m := range meta.Items {
			title, ok := titles[m.PostID]
			if !ok {
				continue
			}
			add(PostRef{ID: m.PostID, Title: title, MetaKey: m.MetaKey})
		}
	}
	for _, r := range rows {
		add(PostRef{ID: r.ID, Title: r.Title})
	}

	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].Title != refs[j].Title {
			return refs[i].Title < refs[j].Title
		}
		return refs[i].ID < refs[j].ID
	})
	if refs == nil {
		refs = []PostRef{}
	}
	return refs, nil
}

// ScanAll runs every scan. The first store failure aborts it.
func (s *Scanner) ScanAll(ctx context.Context, needle string) (*Summary, error) {
	sum := &Summary{Needle: needle}
	var err error

	if sum.Options, err = s.Options(ctx, needle); err != nil {
		return nil, err
	}
	if sum.WidgetKinds, err = s.WidgetKinds(ctx, needle); err != nil {
		return nil, err
	}
	sum.Widgets = s.aggregate(sum.WidgetKinds)
	if sum.Content, err = s.PublishedContent(ctx, needle); err != nil {
		return nil, err
	}
	if sum.CustomContent, err = s.CustomContent(ctx, needle); err != nil {
		return nil, err
	}
	if sum.PublishedMeta, err = s.PublishedMeta(ctx, needle); err != nil {
		return nil, err
	}
	if sum.UnpublishedMeta, err = s.UnpublishedMeta(ctx, needle); err != nil {
		return nil, err
	}
	if sum.Posts, err = s.Posts(ctx, needle, sum.PublishedMeta); err != nil {
		return nil, err
	}

	utils.Log.WithFields(logrus.Fields{
		"needle":  needle,
		"options": sum.Options.Invalid,
		"widgets": sum.Widgets.Invalid,
		"content": len(sum.Content),
		"custom":  len(sum.CustomContent),
		"meta":    len(sum.PublishedMeta.Items),
		"other":   len(sum.UnpublishedMeta.Items),
	}).Info("Scan complete")
	return sum, nil
}
