package bridge

import (
	"net/url"
	"testing"
)

func TestResolveChallenge(t *testing.T) {
	cases := []struct {
		raw  string
		want Challenge
		ok   bool
	}{
		{"login_challenge=abc123", "abc123", true},
		{"login_challenge=%20abc%20", "abc", true},
		{"login_challenge=", "", false},
		{"other=abc", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		params, err := url.ParseQuery(c.raw)
		if err != nil {
			t.Fatalf("parse %q: %v", c.raw, err)
		}
		got, ok := ResolveChallenge(params)
		if got != c.want || ok != c.ok {
			t.Fatalf("ResolveChallenge(%q) = (%q, %v), want (%q, %v)", c.raw, got, ok, c.want, c.ok)
		}
	}
}
