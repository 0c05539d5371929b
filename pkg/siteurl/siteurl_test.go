package siteurl

import (
	"errors"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		home       string
		want       Site
	}{
		{
			name:       "configured https",
			configured: "https://example.com/",
			home:       "https://example.com",
			want:       Site{URL: "https://example.com", Needle: "http://example.com", Domain: "example.com"},
		},
		{
			name: "stored home only",
			home: "HTTPS://Blog.Example.co.uk",
			want: Site{URL: "HTTPS://Blog.Example.co.uk", Needle: "http://Blog.Example.co.uk", Domain: "example.co.uk"},
		},
		{
			name:       "fake mode",
			configured: "http://staging.local",
			home:       "https://example.com",
			want:       Site{URL: "https://example.com", Needle: "http://example.com", Fake: true, Domain: "example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.configured, tt.home)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if got != tt.want {
				t.Fatalf("want %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestResolveRequiresHTTPS(t *testing.T) {
	for _, in := range [][2]string{{"http://a.test", "http://a.test"}, {"", ""}, {"http://a.test", ""}} {
		if _, err := Resolve(in[0], in[1]); !errors.Is(err, ErrNotHTTPS) {
			t.Fatalf("Resolve(%q, %q): expected ErrNotHTTPS, got %v", in[0], in[1], err)
		}
	}
}

func TestDomain(t *testing.T) {
	tests := map[string]string{
		"https://www.example.com/path": "example.com",
		"https://localhost:8443":       "localhost",
		"https://127.0.0.1":            "127.0.0.1",
	}
	for in, want := range tests {
		if got := Domain(in); got != want {
			t.Fatalf("Domain(%q) = %q, want %q", in, got, want)
		}
	}
}
