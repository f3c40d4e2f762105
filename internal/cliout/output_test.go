package cliout

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewOutput_NonFileWriterDefaultsToHuman(t *testing.T) {
	var buf bytes.Buffer
	o := NewOutput(&buf)

	if o.IsJSON() {
		t.Error("expected a non-*os.File writer to default to human format")
	}
}

func TestSetFormat_DisablesAutoDetect(t *testing.T) {
	var buf bytes.Buffer
	o := NewOutput(&buf)

	o.SetFormat(FormatHuman)
	if o.autoDetect {
		t.Error("expected SetFormat to disable auto-detection")
	}
	if o.IsJSON() {
		t.Error("expected IsJSON() false after SetFormat(FormatHuman)")
	}
}

func TestSuccess_HumanFormat(t *testing.T) {
	var buf bytes.Buffer
	o := NewOutput(&buf)
	o.SetFormat(FormatHuman)
	o.SetColorEnabled(false)

	o.Success("restacked 3 branches")

	if got := buf.String(); got != "✓ restacked 3 branches\n" {
		t.Errorf("got %q", got)
	}
}

func TestSuccess_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	o := NewOutput(&buf)
	o.SetFormat(FormatJSON)

	o.Success("restacked 3 branches")

	var decoded map[string]string
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decoding JSON output: %v", err)
	}
	if decoded["status"] != "success" || decoded["message"] != "restacked 3 branches" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestHeader_SuppressedInJSON(t *testing.T) {
	var buf bytes.Buffer
	o := NewOutput(&buf)
	o.SetFormat(FormatJSON)

	o.Header("Stack")

	if buf.Len() != 0 {
		t.Errorf("expected no output for Header() in JSON mode, got %q", buf.String())
	}
}

func TestErrorf_FormatsMessage(t *testing.T) {
	var buf bytes.Buffer
	o := NewOutput(&buf)
	o.SetFormat(FormatHuman)
	o.SetColorEnabled(false)

	o.Errorf("branch %q has no parent", "feature")

	if !strings.Contains(buf.String(), `branch "feature" has no parent`) {
		t.Errorf("got %q", buf.String())
	}
}
