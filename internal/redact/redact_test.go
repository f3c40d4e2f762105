package redact

import (
	"fmt"
	"strings"
	"testing"
)

func TestString_FormattingNeverLeaksValue(t *testing.T) {
	s := String("super-secret-token")

	forms := []string{
		fmt.Sprintf("%v", s),
		fmt.Sprintf("%s", s),
		fmt.Sprintf("%+v", s),
		fmt.Sprintf("%#v", s),
	}
	for _, got := range forms {
		if strings.Contains(got, "super-secret-token") {
			t.Fatalf("formatted output leaked secret: %q", got)
		}
	}
}

func TestString_Reveal(t *testing.T) {
	s := String("super-secret-token")
	if s.Reveal() != "super-secret-token" {
		t.Fatalf("Reveal() = %q, want original value", s.Reveal())
	}
}

type holder struct {
	Token String
}

func TestString_EmbeddedInStruct(t *testing.T) {
	h := holder{Token: "super-secret-token"}
	got := fmt.Sprintf("%+v", h)
	if strings.Contains(got, "super-secret-token") {
		t.Fatalf("struct dump leaked secret: %q", got)
	}
}
