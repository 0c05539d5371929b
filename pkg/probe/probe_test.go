package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

const page = `<!doctype html>
<html><head>
<title>
  Example Site
</title>
<link rel="stylesheet" href="http://site.test/style.css">
<script src="https://site.test/app.js"></script>
</head><body>
<img src="HTTP://site.test/a.png" srcset="https://site.test/a.png 1x, http://site.test/a@2x.png 2x">
<iframe src="//cdn.test/embed"></iframe>
<form action="http://site.test/search"></form>
</body></html>`

func TestRunFindsInsecureReferences(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	res, err := Run(context.Background(), Config{URL: srv.URL, Retries: 0, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Title != "Example Site" {
		t.Fatalf("unexpected title %q", res.Title)
	}
	want := []Reference{
		{Tag: "img", Attr: "src", URL: "HTTP://site.test/a.png"},
		{Tag: "img", Attr: "srcset", URL: "http://site.test/a@2x.png"},
		{Tag: "link", Attr: "href", URL: "http://site.test/style.css"},
		{Tag: "form", Attr: "action", URL: "http://site.test/search"},
	}
	if !reflect.DeepEqual(res.Insecure, want) {
		t.Fatalf("want %+v, got %+v", want, res.Insecure)
	}
}

func TestRunFailsOnErrorStatus(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := Run(context.Background(), Config{URL: srv.URL, HTTPClient: srv.Client()}); err == nil {
		t.Fatalf("expected an error for a 404")
	}
}

func TestRunRequiresHTTPS(t *testing.T) {
	if _, err := Run(context.Background(), Config{URL: "http://site.test"}); err == nil {
		t.Fatalf("expected an error for a plain http url")
	}
}
