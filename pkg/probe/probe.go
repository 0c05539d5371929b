package probe

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/html"
)

const USER_AGENT = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

const (
	DefaultTimeout = 15 * time.Second
	DefaultRetries = 2
)

type Config struct {
	URL     string
	Timeout time.Duration
	Retries int
	// HTTPClient replaces the transport client, mostly for tests.
	HTTPClient *http.Client
}

// Reference is an element pulling a resource over plain http.
type Reference struct {
	Tag  string `json:"tag" yaml:"tag"`
	Attr string `json:"attr" yaml:"attr"`
	URL  string `json:"url" yaml:"url"`
}

type Result struct {
	URL        string      `json:"url" yaml:"url"`
	StatusCode int         `json:"status_code" yaml:"status_code"`
	Title      string      `json:"title,omitempty" yaml:"title,omitempty"`
	Insecure   []Reference `json:"insecure" yaml:"insecure"`
}

// Elements and the attributes that load something.
var selectors = []struct {
	tag   string
	attrs []string
}{
	{"img", []string{"src", "srcset"}},
	{"script", []string{"src"}},
	{"link", []string{"href"}},
	{"iframe", []string{"src"}},
	{"source", []string{"src", "srcset"}},
	{"video", []string{"src", "poster"}},
	{"audio", []string{"src"}},
	{"embed", []string{"src"}},
	{"form", []string{"action"}},
}

func newClient(cfg Config) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.Logger = log.New(io.Discard, "", 0)
	client.RetryMax = cfg.Retries
	if cfg.HTTPClient != nil {
		client.HTTPClient = cfg.HTTPClient
	}
	client.HTTPClient.Timeout = cfg.Timeout
	return client
}

// Run fetches cfg.URL and lists the elements of the page loading plain http
// resources.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	if !strings.HasPrefix(strings.ToLower(cfg.URL), "https://") {
		return nil, fmt.Errorf("probe needs an https url, got %q", cfg.URL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = DefaultRetries
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, cfg.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", USER_AGENT)
	req.Header.Set("Accept-Language", "en")

	resp, err := newClient(cfg).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", cfg.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetching %s: status %d", cfg.URL, resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", cfg.URL, err)
	}

	res := &Result{URL: cfg.URL, StatusCode: resp.StatusCode, Insecure: []Reference{}}
	if title, ok := htmlTitle(doc); ok {
		res.Title = title
	}
	res.Insecure = insecureReferences(goquery.NewDocumentFromNode(doc))
	return res, nil
}

func insecureReferences(doc *goquery.Document) []Reference {
	out := []Reference{}
	for _, sel := range selectors {
		doc.Find(sel.tag).Each(func(_ int, s *goquery.Selection) {
			for _, attr := range sel.attrs {
				v, ok := s.Attr(attr)
				if !ok {
					continue
				}
				for _, u := range candidates(attr, v) {
					if strings.HasPrefix(strings.ToLower(u), "http://") {
						out = append(out, Reference{Tag: sel.tag, Attr: attr, URL: u})
					}
				}
			}
		})
	}
	return out
}

// candidates splits srcset lists into their urls.
func candidates(attr, v string) []string {
	v = strings.TrimSpace(v)
	if attr != "srcset" {
		return []string{v}
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if fields := strings.Fields(part); len(fields) > 0 {
			out = append(out, fields[0])
		}
	}
	return out
}
