package scan

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/sw33tLie/wphttp/pkg/report"
	"github.com/sw33tLie/wphttp/pkg/storage"
)

const needle = "http://site"

func openTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "wp.sqlite"), storage.WithCreateSchema())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustPost(t *testing.T, db *storage.DB, p storage.Post) storage.RecordID {
	t.Helper()
	id, err := db.AddPost(context.Background(), p)
	if err != nil {
		t.Fatalf("add post: %v", err)
	}
	return id
}

func mustOption(t *testing.T, db *storage.DB, name, value string) {
	t.Helper()
	if _, err := db.AddOption(context.Background(), name, value); err != nil {
		t.Fatalf("add option: %v", err)
	}
}

func mustMeta(t *testing.T, db *storage.DB, post storage.RecordID, key, value string) storage.RecordID {
	t.Helper()
	id, err := db.AddMeta(context.Background(), post, key, value)
	if err != nil {
		t.Fatalf("add meta: %v", err)
	}
	return id
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Widget_RSS ")
	if err != nil || k != KindWidgetRSS {
		t.Fatalf("want widget_rss, got %q %v", k, err)
	}
	if _, err := ParseKind("widgets"); err == nil {
		t.Fatalf("widgets is a scope, not a kind")
	}
	kinds, err := ParseKinds([]string{"video,image", "text"})
	if err != nil {
		t.Fatalf("parse kinds: %v", err)
	}
	if !reflect.DeepEqual(kinds, []Kind{KindWidgetVideo, KindWidgetImage, KindWidgetText}) {
		t.Fatalf("unexpected kinds %v", kinds)
	}
}

func TestPublishedContentThreePosts(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	for _, title := range []string{"A", "B", "C"} {
		mustPost(t, db, storage.Post{Title: title, Content: `<a href="http://site/` + title + `">x</a>`})
	}

	s := New(db, Config{})
	ids, err := s.PublishedContent(ctx, needle)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !reflect.DeepEqual(ids, []storage.RecordID{1, 2, 3}) {
		t.Fatalf("want ids 1 2 3, got %v", ids)
	}
	refs, err := s.Posts(ctx, needle, MetaResult{})
	if err != nil {
		t.Fatalf("posts: %v", err)
	}
	want := []PostRef{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}, {ID: 3, Title: "C"}}
	if !reflect.DeepEqual(refs, want) {
		t.Fatalf("want %v, got %v", want, refs)
	}
}

func TestOptionsSkipsWidgets(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	mustOption(t, db, "home", "https://site")
	mustOption(t, db, "banner", "HTTP://SITE/banner.png")
	mustOption(t, db, "widget_text", `a:1:{i:2;a:1:{s:4:"text";s:11:"http://site";}}`)
	mustOption(t, db, "footer", "see http://site/about")

	r, err := New(db, Config{}).Options(ctx, needle)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	want := report.MatchReport{Total: 4, Invalid: 2, Title: "banner"}
	if r != want {
		t.Fatalf("want %+v, got %+v", want, r)
	}
}

func TestWidgetPriority(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	mustOption(t, db, "widget_text", `a:2:{i:2;a:2:{s:5:"title";s:4:"Note";s:4:"text";s:10:"plain text";}s:12:"_multiwidget";i:1;}`)
	mustOption(t, db, "widget_media_image", `a:1:{i:3;a:2:{s:5:"title";s:0:"";s:3:"url";s:17:"http://site/a.png";}}`)
	mustOption(t, db, "widget_media_video", `a:1:{i:4;a:2:{s:5:"title";s:5:"Promo";s:3:"url";s:17:"http://site/v.mp4";}}`)
	mustOption(t, db, "widget_rss", `a:1:{i:5;a:2:{s:5:"title";s:4:"Feed";s:3:"url";s:18:"https://site/feed/";}}`)

	s := New(db, Config{})
	kinds, err := s.WidgetKinds(ctx, needle)
	if err != nil {
		t.Fatalf("widgets: %v", err)
	}
	want := map[Kind]report.MatchReport{
		KindWidgetText:  {Total: 1},
		KindWidgetImage: {Total: 1, Invalid: 1, Title: "http://site/a.png"},
		KindWidgetVideo: {Total: 1, Invalid: 1, Title: "Promo"},
		KindWidgetRSS:   {Total: 1},
	}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("want %+v, got %+v", want, kinds)
	}

	all, err := s.Widgets(ctx, needle)
	if err != nil {
		t.Fatalf("widgets: %v", err)
	}
	if all.Title != "Promo" || all.Invalid != 2 || all.Total != 4 {
		t.Fatalf("unexpected aggregate %+v", all)
	}

	imageFirst := New(db, Config{TitlePriority: []Kind{KindWidgetImage, KindWidgetVideo}})
	all, err = imageFirst.Widgets(ctx, needle)
	if err != nil {
		t.Fatalf("widgets: %v", err)
	}
	if all.Title != "http://site/a.png" {
		t.Fatalf("priority not honored: %+v", all)
	}
}

func TestWidgetMissingOption(t *testing.T) {
	r, err := New(openTestDB(t), Config{}).Widget(context.Background(), KindWidgetRSS, needle)
	if err != nil {
		t.Fatalf("widget: %v", err)
	}
	if r != (report.MatchReport{}) {
		t.Fatalf("want empty report, got %+v", r)
	}
}

func TestWidgetOpaqueStillReported(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	mustOption(t, db, "widget_media_video", `a:1:{i:2;a:2:{s:6:"player";O:8:"stdClass":0:{}s:3:"url";s:11:"http://site";}}`)

	r, err := New(db, Config{}).Widget(ctx, KindWidgetVideo, needle)
	if err != nil {
		t.Fatalf("widget: %v", err)
	}
	want := report.MatchReport{Total: 1, Invalid: 1, Unverifiable: 1}
	if r != want {
		t.Fatalf("want %+v, got %+v", want, r)
	}
	if !r.Consistent() {
		t.Fatalf("inconsistent report %+v", r)
	}
}

func TestWidgetStrategies(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	// rss: the first match precedes the title field, so no title is reported by
	// the video rule but the rss rule still finds it.
	mustOption(t, db, "widget_rss", `a:1:{i:2;a:2:{s:3:"url";s:11:"http://site";s:5:"title";s:4:"Feed";}}`)
	mustOption(t, db, "widget_media_video", `a:1:{i:2;a:2:{s:3:"url";s:11:"http://site";s:5:"title";s:5:"Promo";}}`)
	mustOption(t, db, "widget_text", `a:2:{i:2;a:2:{s:5:"title";s:4:"Note";s:4:"text";s:11:"http://site";}i:3;a:2:{s:5:"title";s:5:"Other";s:4:"text";s:3:"abc";}}`)

	s := New(db, Config{})
	tests := []struct {
		kind Kind
		want report.MatchReport
	}{
		{KindWidgetRSS, report.MatchReport{Total: 1, Invalid: 1, Title: "Feed"}},
		{KindWidgetVideo, report.MatchReport{Total: 1, Invalid: 1}},
		{KindWidgetText, report.MatchReport{Total: 2, Invalid: 1, Title: "Note"}},
	}
	for _, tt := range tests {
		r, err := s.Widget(ctx, tt.kind, needle)
		if err != nil {
			t.Fatalf("%s: %v", tt.kind, err)
		}
		if r != tt.want {
			t.Fatalf("%s: want %+v, got %+v", tt.kind, tt.want, r)
		}
	}
}

func TestMetaScans(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	a := mustPost(t, db, storage.Post{Title: "Zeta", Content: "clean"})
	b := mustPost(t, db, storage.Post{Title: "Alpha", Content: "http://site/inline"})
	draft := mustPost(t, db, storage.Post{Title: "Draft", Content: "clean", Status: "draft"})

	first := mustMeta(t, db, a, "_thumbnail_url", "http://site/a.png")
	mustMeta(t, db, a, "_gallery", `a:1:{i:0;s:11:"http://site";}`)
	mustMeta(t, db, b, "hero", "http://site/b.png")
	other := mustMeta(t, db, draft, "hero", "http://site/c.png")

	s := New(db, Config{})
	meta, err := s.PublishedMeta(ctx, needle)
	if err != nil {
		t.Fatalf("meta: %v", err)
	}
	if meta.Total != 2 || len(meta.Items) != 2 {
		t.Fatalf("want 3 rows deduped to 2 posts, got %+v", meta)
	}
	if meta.Items[0] != (MetaItem{MetaID: first, PostID: a, MetaKey: "_thumbnail_url"}) {
		t.Fatalf("first seen item not kept: %+v", meta.Items[0])
	}

	unpublished, err := s.UnpublishedMeta(ctx, needle)
	if err != nil {
		t.Fatalf("other meta: %v", err)
	}
	if !reflect.DeepEqual(unpublished.Items, []MetaItem{{MetaID: other, PostID: draft, MetaKey: "hero"}}) {
		t.Fatalf("unexpected unpublished meta %+v", unpublished)
	}

	refs, err := s.Posts(ctx, needle, meta)
	if err != nil {
		t.Fatalf("posts: %v", err)
	}
	want := []PostRef{
		{ID: b, Title: "Alpha", MetaKey: "hero"},
		{ID: a, Title: "Zeta", MetaKey: "_thumbnail_url"},
	}
	if !reflect.DeepEqual(refs, want) {
		t.Fatalf("want %+v, got %+v", want, refs)
	}
}

func TestScanAllClean(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	mustOption(t, db, "home", "https://site")
	mustPost(t, db, storage.Post{Title: "A", Content: "https://site/ok"})

	sum, err := New(db, Config{}).ScanAll(ctx, needle)
	if err != nil {
		t.Fatalf("scan all: %v", err)
	}
	if !sum.Clean() {
		t.Fatalf("expected a clean summary, got %+v", sum)
	}
	if sum.Options.Total != 1 || len(sum.Posts) != 0 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	for k, r := range sum.WidgetKinds {
		if !r.Consistent() {
			t.Fatalf("%s: inconsistent %+v", k, r)
		}
	}
}

func TestWidgetNonArrayValues(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	mustOption(t, db, "widget_rss", `a:999999999999999999:{i:1;s:3:"abc";}`)
	mustOption(t, db, "widget_text", "")
	mustOption(t, db, "widget_media_image", "http://site/stray.png")

	s := New(db, Config{})
	tests := []struct {
		kind Kind
		want report.MatchReport
	}{
		{KindWidgetRSS, report.MatchReport{Unverifiable: 1}},
		{KindWidgetText, report.MatchReport{}},
		{KindWidgetImage, report.MatchReport{}},
	}
	for _, tt := range tests {
		r, err := s.Widget(ctx, tt.kind, needle)
		if err != nil {
			t.Fatalf("%s: %v", tt.kind, err)
		}
		if r != tt.want {
			t.Fatalf("%s: want %+v, got %+v", tt.kind, tt.want, r)
		}
	}
	if _, err := s.ScanAll(ctx, needle); err != nil {
		t.Fatalf("scan all with a corrupt widget: %v", err)
	}
}
