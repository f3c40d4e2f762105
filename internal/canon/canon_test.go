package canon

import "testing"

type sample struct {
	Z string `json:"z"`
	A string `json:"a"`
}

func TestMarshal_NoTrailingNewline(t *testing.T) {
	b, err := Marshal(sample{Z: "zee", A: "aye"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if len(b) == 0 || b[len(b)-1] == '\n' {
		t.Errorf("expected no trailing newline, got %q", b)
	}
}

func TestMarshal_NoHTMLEscaping(t *testing.T) {
	b, err := Marshal(map[string]string{"url": "https://a.example/b?x=1&y=2"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if contains(string(b), "\\u0026") || !contains(string(b), "&") {
		t.Errorf("expected ampersand not HTML-escaped, got %q", b)
	}
}

func TestDigest_StableAcrossFieldOrder(t *testing.T) {
	d1, err := Digest(map[string]int{"a": 1, "b": 2})
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	d2, err := Digest(map[string]int{"b": 2, "a": 1})
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if d1 != d2 {
		t.Errorf("expected stable digest regardless of map literal order, got %q vs %q", d1, d2)
	}
}

func TestDigest_ChangesWithContent(t *testing.T) {
	d1, _ := Digest(map[string]int{"a": 1})
	d2, _ := Digest(map[string]int{"a": 2})
	if d1 == d2 {
		t.Error("expected different digests for different content")
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
