package canon

import (
	"testing"
	"time"
)

func TestCanonicalizeSortsKeysAtEveryDepth(t *testing.T) {
	in := []byte(`{"b":1,"a":{"d":2,"c":3}}`)
	got, err := Canonicalize(in)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	want := `{"a":{"c":3,"d":2},"b":1}`
	if string(got) != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestCanonicalizeIntegerHasNoTrailingZero(t *testing.T) {
	got, err := Canonicalize([]byte(`{"n":5.0}`))
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	if string(got) != `{"n":5}` {
		t.Fatalf("got %s", got)
	}
}

func TestCanonicalizeRoundTrip(t *testing.T) {
	in := []byte(`{"z":[1,2,3],"a":"héllo","m":{"k":true,"j":null}}`)
	c1, err := Canonicalize(in)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	c2, err := Canonicalize(c1)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	if string(c1) != string(c2) {
		t.Fatalf("round-trip mismatch: %s vs %s", c1, c2)
	}
}

func TestCanonicalizeNoASCIIEscaping(t *testing.T) {
	got, err := Canonicalize([]byte(`{"name":"Café"}`))
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	want := `{"name":"Café"}`
	if string(got) != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestTimeFormat(t *testing.T) {
	ts := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	if got := Time(ts); got != "2026-07-29T12:00:00.000000Z" {
		t.Fatalf("got %s", got)
	}
}

func TestSHA256HexOfEmpty(t *testing.T) {
	const wantEmpty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := SHA256Hex([]byte{}); got != wantEmpty {
		t.Fatalf("empty sha256 got %s want %s", got, wantEmpty)
	}
}
