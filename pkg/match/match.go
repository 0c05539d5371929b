// Package match holds the case-insensitive substring primitives every scan
// and replacement reduces to.
package match

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Matches reports whether needle occurs in haystack, ignoring case.
// An empty haystack or needle never matches.
func Matches(haystack, needle string) bool {
	return Index(haystack, needle) >= 0
}

// Index returns the byte offset of the first case-insensitive occurrence of
// needle in haystack, or -1.
func Index(haystack, needle string) int {
	i, _ := indexFrom(haystack, needle, 0)
	return i
}

// Count returns the number of non-overlapping case-insensitive occurrences.
func Count(haystack, needle string) int {
	n := 0
	for i, end := indexFrom(haystack, needle, 0); i >= 0; i, end = indexFrom(haystack, needle, end) {
		n++
	}
	return n
}

// ReplaceAll replaces every case-insensitive occurrence of from with to.
// Bytes outside the matched spans are copied unchanged.
func ReplaceAll(s, from, to string) string {
	i, end := indexFrom(s, from, 0)
	if i < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	last := 0
	for ; i >= 0; i, end = indexFrom(s, from, last) {
		b.WriteString(s[last:i])
		b.WriteString(to)
		last = end
	}
	b.WriteString(s[last:])
	return b.String()
}

// indexFrom returns the span of the first match at or after start. The
// span can differ in length from needle when folded runes have different
// encoded sizes.
func indexFrom(haystack, needle string, start int) (int, int) {
	if needle == "" || haystack == "" {
		return -1, -1
	}
	for i := start; i < len(haystack); i++ {
		if !utf8.RuneStart(haystack[i]) {
			continue
		}
		if n, ok := prefixFold(haystack[i:], needle); ok {
			return i, i + n
		}
	}
	return -1, -1
}

// prefixFold reports whether s starts with prefix under simple case folding
// and how many bytes of s the prefix covers.
func prefixFold(s, prefix string) (int, bool) {
	i := 0
	for prefix != "" {
		if i >= len(s) {
			return 0, false
		}
		r, rn := utf8.DecodeRuneInString(s[i:])
		p, pn := utf8.DecodeRuneInString(prefix)
		if r == utf8.RuneError || p == utf8.RuneError {
			// Invalid bytes only match themselves.
			if s[i:i+rn] != prefix[:pn] {
				return 0, false
			}
		} else if !foldEqual(r, p) {
			return 0, false
		}
		i += rn
		prefix = prefix[pn:]
	}
	return i, true
}

func foldEqual(a, b rune) bool {
	if a == b {
		return true
	}
	for f := unicode.SimpleFold(a); f != a; f = unicode.SimpleFold(f) {
		if f == b {
			return true
		}
	}
	return false
}
