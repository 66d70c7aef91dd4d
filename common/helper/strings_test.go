package helper

import (
	"reflect"
	"testing"
)

func TestSplitCSV(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"en,de,pt", []string{"en", "de", "pt"}},
		{" en , de ", []string{"en", "de"}},
		{"en,,de,", []string{"en", "de"}},
		{"", nil},
		{"   ", nil},
	}
	for _, c := range cases {
		if got := SplitCSV(c.in); !reflect.DeepEqual(got, c.want) {
			t.Fatalf("SplitCSV(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestContainsFold(t *testing.T) {
	items := []string{"en", "DE", " pt "}
	for _, target := range []string{"EN", "de", "pt", " PT "} {
		if !ContainsFold(items, target) {
			t.Fatalf("ContainsFold must match %q", target)
		}
	}
	if ContainsFold(items, "fr") {
		t.Fatal("fr must not match")
	}
	if ContainsFold(nil, "en") {
		t.Fatal("empty list never matches")
	}
}

func TestBuildFullURL(t *testing.T) {
	cases := []struct {
		host, path, want string
	}{
		{"https://api.example.com", "game/url", "https://api.example.com/game/url"},
		{"https://api.example.com/", "/game/url", "https://api.example.com/game/url"},
		{"https://api.example.com", "https://other.example.com/x", "https://other.example.com/x"},
		{"https://api.example.com", "", ""},
		{"", "game/url", "game/url"},
	}
	for _, c := range cases {
		if got := BuildFullURL(c.host, c.path); got != c.want {
			t.Fatalf("BuildFullURL(%q, %q) = %q, want %q", c.host, c.path, got, c.want)
		}
	}
}

func TestParseAmount(t *testing.T) {
	if v, ok := ParseAmount(" 10.55 "); !ok || v.String() != "10.55" {
		t.Fatalf("ParseAmount: %v %v", v, ok)
	}
	if _, ok := ParseAmount("abc"); ok {
		t.Fatal("non-numeric must fail")
	}
	if _, ok := ParseAmount(""); ok {
		t.Fatal("empty must fail")
	}
}
