package keys

import (
	"regexp"
	"testing"
)

func TestFenceHash(t *testing.T) {
	cases := map[string]string{
		"gfhelper:fences":  "gfhelper:fences:1",
		"gfhelper:fences:": "gfhelper:fences:1",
		" my  fences ":     "my_fences:1",
		"mad/fences!":      "mad-fences-:1",
	}
	for in, want := range cases {
		if got := FenceHash(in, 1); got != want {
			t.Errorf("FenceHash(%q)=%q want %q", in, got, want)
		}
	}
}

func TestFenceHash_OnlySafeCharacters(t *testing.T) {
	k := FenceHash("weird prefix*with{braces}", 42)
	if !regexp.MustCompile(`^[A-Za-z0-9:_\-]+$`).MatchString(k) {
		t.Fatalf("key contains disallowed characters: %s", k)
	}
}

func TestParseDigest(t *testing.T) {
	if ParseDigest("a", "polygon", "x") != ParseDigest("a", " Polygon ", "x") {
		t.Fatal("type should be normalized")
	}
	if ParseDigest("ab", "", "c") == ParseDigest("a", "", "bc") {
		t.Fatal("field boundaries must be part of the digest")
	}
	if ParseDigest("a", "polygon", "x") == ParseDigest("a", "polygon", "y") {
		t.Fatal("different data must differ")
	}
}
