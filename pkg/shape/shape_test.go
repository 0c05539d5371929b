package shape

import (
	"errors"
	"reflect"
	"strconv"
	"testing"
)

func TestDecodeClassifies(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		kind     Kind
		encoding Encoding
		opaque   bool
	}{
		{"plain text", `<p>see http://a.test</p>`, Scalar, Plain, false},
		{"serialized string", `s:13:"http://a.test";`, Scalar, PHP, false},
		{"flat php", `a:2:{s:5:"title";s:1:"T";s:3:"url";s:8:"http://x";}`, FlatMap, PHP, false},
		{"nested php", `a:2:{i:2;a:1:{s:4:"text";s:1:"x";}s:12:"_multiwidget";i:1;}`, NestedMap, PHP, false},
		{"list php", `a:2:{i:0;a:1:{s:3:"url";s:1:"a";}i:1;a:1:{s:3:"url";s:1:"b";}}`, ListOfMaps, PHP, false},
		{"broken php", `a:1:{s:3:"url";s:99:"http://x";}`, Scalar, PHP, true},
		{"php object", `O:8:"stdClass":0:{}`, Scalar, PHP, true},
		{"flat json", `{"title":"T","url":"http://x"}`, FlatMap, JSON, false},
		{"nested json", `{"a":{"url":"http://x"}}`, NestedMap, JSON, false},
		{"json list", `[{"url":"http://x"},{"url":"http://y"}]`, ListOfMaps, JSON, false},
		{"json-ish text", `{not json}`, Scalar, Plain, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Decode(tt.raw)
			if s.Kind != tt.kind || s.Encoding != tt.encoding || s.Opaque != tt.opaque {
				t.Fatalf("Decode(%q) = kind %v encoding %v opaque %v, want %v %v %v",
					tt.raw, s.Kind, s.Encoding, s.Opaque, tt.kind, tt.encoding, tt.opaque)
			}
		})
	}
}

func TestDecodeDeepValuesAreOpaque(t *testing.T) {
	s := Decode(`a:1:{i:0;a:2:{s:5:"title";s:1:"T";s:5:"items";a:1:{i:0;s:8:"http://x";}}}`)
	if s.Kind != ListOfMaps {
		t.Fatalf("expected list of maps, got %v", s.Kind)
	}
	if got := s.Entries[0].Fields[1].Value.Kind; got != Opaque {
		t.Fatalf("expected third-level array to be opaque, got %v", got)
	}
	if !s.HasOpaque() {
		t.Fatalf("expected HasOpaque")
	}
}

func TestFindMatchesFlatMapTitles(t *testing.T) {
	s := Decode(`a:4:{s:3:"src";s:10:"http://a/1";s:5:"title";s:3:"Two";s:4:"link";s:10:"http://a/2";s:5:"count";i:3;}`)
	got := FindMatches(s, "HTTP://a")
	want := Result{Locations: []Location{
		{Key: "src", Title: ""},
		{Key: "link", Title: "Two"},
	}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected matches.\nwant: %#v\ngot:  %#v", want, got)
	}
}

func TestFindMatchesSkipsOpaque(t *testing.T) {
	s := Decode(`a:2:{i:0;a:2:{s:5:"title";s:1:"A";s:3:"url";s:8:"http://x";}i:1;O:3:"Foo":1:{s:3:"url";s:8:"http://x";}}`)
	got := FindMatches(s, "http://x")
	if len(got.Locations) != 1 || got.Locations[0].Entry != "0" || got.Locations[0].Title != "A" {
		t.Fatalf("unexpected locations: %#v", got.Locations)
	}
	if got.Unverifiable != 1 {
		t.Fatalf("expected 1 unverifiable value, got %d", got.Unverifiable)
	}
}

func TestFindMatchesResetsTitlePerEntry(t *testing.T) {
	s := Decode(`{"1":{"title":"First","url":"https://ok"},"2":{"url":"http://bad"}}`)
	got := FindMatches(s, "http://")
	if len(got.Locations) != 1 || got.Locations[0].Title != "" {
		t.Fatalf("expected one untitled match, got %#v", got.Locations)
	}
}

func TestReplaceFlatMapRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "php",
			raw:  `a:2:{s:5:"title";s:1:"T";s:3:"url";s:8:"http://x";}`,
			want: `a:2:{s:5:"title";s:1:"T";s:3:"url";s:9:"https://x";}`,
		},
		{
			name: "json",
			raw:  `{"title":"T","url":"http://x"}`,
			want: `{"title":"T","url":"https://x"}`,
		},
		{
			name: "plain",
			raw:  `<a href="HTTP://x/y">T</a>`,
			want: `<a href="https://x/y">T</a>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Replace(Decode(tt.raw), "http://", "https://")
			if err != nil {
				t.Fatalf("replace: %v", err)
			}
			if got != tt.want {
				t.Fatalf("want %s, got %s", tt.want, got)
			}
		})
	}
}

func TestReplaceLeavesLiteralsAndKeys(t *testing.T) {
	raw := `a:3:{s:8:"http://k";s:8:"http://v";s:3:"num";i:7;s:4:"flag";b:1;}`
	got, err := Replace(Decode(raw), "http://", "https://")
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	want := `a:3:{s:8:"http://k";s:9:"https://v";s:3:"num";i:7;s:4:"flag";b:1;}`
	if got != want {
		t.Fatalf("want %s, got %s", want, got)
	}
}

func TestReplaceNestedJSON(t *testing.T) {
	raw := `[{"url":"http://a","w":2},{"url":"https://b"}]`
	got, err := Replace(Decode(raw), "http://", "https://")
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	want := `[{"url":"https://a","w":2},{"url":"https://b"}]`
	if got != want {
		t.Fatalf("want %s, got %s", want, got)
	}
}

func TestReplaceRefusesOpaque(t *testing.T) {
	raws := []string{
		`a:2:{i:0;a:1:{s:3:"url";s:8:"http://x";}i:1;O:3:"Foo":0:{}}`,
		`a:1:{s:3:"url";s:99:"http://x";}`,
		`{"a":{"deep":{"url":"http://x"}},"b":{"url":"http://y"}}`,
	}
	for _, raw := range raws {
		if _, err := Replace(Decode(raw), "http://", "https://"); !errors.Is(err, ErrOpaque) {
			t.Fatalf("Replace(%q): expected ErrOpaque, got %v", raw, err)
		}
	}
}

func TestOuter(t *testing.T) {
	s := Decode(`a:2:{s:1:"a";s:1:"x";s:1:"b";i:1;}`)
	got := s.Outer()
	if len(got) != 2 || got[0].IsMap || got[0].Value.Str != "x" || got[1].Value.Kind != Literal {
		t.Fatalf("unexpected outer entries: %#v", got)
	}
	if got := Decode("plain").Outer(); len(got) != 1 || got[0].Value.Str != "plain" {
		t.Fatalf("unexpected scalar outer: %#v", got)
	}
}

func TestJoinPathEscapes(t *testing.T) {
	if got := joinPath("a.b", "c*"); got != `a\.b.c\*` {
		t.Fatalf("unexpected path %q", got)
	}
}

func TestReplaceDoubleSerialized(t *testing.T) {
	inner := `a:1:{s:3:"url";s:8:"http://x";}`
	raw := `a:1:{s:4:"data";s:` + strconv.Itoa(len(inner)) + `:"` + inner + `";}`

	got, err := Replace(Decode(raw), "http://", "https://")
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	fixed := `a:1:{s:3:"url";s:9:"https://x";}`
	want := `a:1:{s:4:"data";s:` + strconv.Itoa(len(fixed)) + `:"` + fixed + `";}`
	if got != want {
		t.Fatalf("want %s, got %s", want, got)
	}
}

func TestDoubleSerializedBrokenIsOpaque(t *testing.T) {
	inner := `a:1:{s:3:"url";s:99:"http://x";}`
	raw := `a:1:{s:4:"data";s:` + strconv.Itoa(len(inner)) + `:"` + inner + `";}`

	s := Decode(raw)
	if !s.HasOpaque() {
		t.Fatalf("broken inner serialization should be opaque: %+v", s)
	}
	if _, err := Replace(s, "http://", "https://"); !errors.Is(err, ErrOpaque) {
		t.Fatalf("expected ErrOpaque, got %v", err)
	}
}
