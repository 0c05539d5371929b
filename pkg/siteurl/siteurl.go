// Package siteurl derives the insecure needle and its secure replacement
// from the site address.
package siteurl

import (
	"errors"
	"net/url"
	"strings"

	"github.com/sw33tLie/wphttp/internal/utils"
	"github.com/sw33tLie/wphttp/pkg/match"
	"github.com/weppos/publicsuffix-go/publicsuffix"
)

// ErrNotHTTPS means neither the configured site nor the stored home option
// uses https, so there is nothing to migrate to.
var ErrNotHTTPS = errors.New("siteurl: site does not use https")

// Site is the resolved address pair.
type Site struct {
	// URL is the secure site address and the replacement text.
	URL string `json:"url" yaml:"url"`
	// Needle is URL with its scheme downgraded to http.
	Needle string `json:"needle" yaml:"needle"`
	// Fake is set when the configured address is not https and the stored
	// home option was used instead (a test copy of a live site).
	Fake   bool   `json:"fake,omitempty" yaml:"fake,omitempty"`
	Domain string `json:"domain,omitempty" yaml:"domain,omitempty"`
}

// Resolve picks the site address: configured when it is https, otherwise
// the stored home when that is https. configured may be empty.
func Resolve(configured, storedHome string) (Site, error) {
	configured = Untrailingslash(strings.TrimSpace(configured))
	storedHome = Untrailingslash(strings.TrimSpace(storedHome))
	if configured == "" {
		configured = storedHome
	}

	var s Site
	switch {
	case IsHTTPS(configured):
		s.URL = configured
	case IsHTTPS(storedHome) && storedHome != configured:
		s.URL = storedHome
		s.Fake = true
	default:
		return Site{}, ErrNotHTTPS
	}
	s.Needle = match.ReplaceAll(s.URL, "https://", "http://")
	s.Domain = Domain(s.URL)
	return s, nil
}

func IsHTTPS(u string) bool {
	return match.Matches(u, "https://")
}

func Untrailingslash(s string) string {
	return strings.TrimRight(s, `/\`)
}

// Domain returns the registrable domain of u, e.g.
// "https://blog.example.co.uk/x" -> "example.co.uk". Hosts without a public
// suffix (localhost, IPs) are returned as they are.
func Domain(u string) string {
	host := u
	if p, err := url.Parse(u); err == nil && p.Host != "" {
		host = p.Hostname()
	}
	host = strings.ToLower(host)
	if !strings.Contains(host, ".") || utils.IsIP(host) {
		return host
	}
	d, err := publicsuffix.Domain(host)
	if err != nil {
		return host
	}
	return d
}
