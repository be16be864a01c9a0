package format

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

type rowsFixture []string

func (r rowsFixture) TableHeaders() []string { return []string{"NAME"} }

func (r rowsFixture) TableRows() [][]string {
	out := make([][]string, len(r))
	for i, s := range r {
		out[i] = []string{s}
	}
	return out
}

func TestWrite_JSONEnvelope(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, map[string]any{"data": rowsFixture{"kai"}}, "json", false); err != nil {
		t.Fatalf("write: %v", err)
	}
	var env map[string]any
	if err := json.Unmarshal(buf.Bytes(), &env); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	if _, ok := env["data"]; !ok {
		t.Fatalf("missing data: %q", buf.String())
	}
}

func TestWrite_TableUsesTabularRowsAndHints(t *testing.T) {
	var buf bytes.Buffer
	v := map[string]any{"data": rowsFixture{"kai", "leilani"}, "_hints": []string{"surflog shaka <id>"}}
	if err := Write(&buf, v, "table", false); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"NAME", "kai", "leilani", "hint: surflog shaka <id>"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestWrite_TableFallsBackToFields(t *testing.T) {
	var buf bytes.Buffer
	v := map[string]any{"data": map[string]any{"count": 6, "viewerHasReacted": true}}
	if err := Write(&buf, v, "table", false); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "count") || !strings.Contains(out, "6") || !strings.Contains(out, "true") {
		t.Fatalf("unexpected table:\n%s", out)
	}
}

func TestWrite_TableEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, map[string]any{"data": rowsFixture{}}, "table", false); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), "(no results)") {
		t.Fatalf("got %q", buf.String())
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, nil, "edn", false); err == nil {
		t.Fatalf("expected error")
	}
}

func TestWrite_YAMLKeepsJSONKeys(t *testing.T) {
	var buf bytes.Buffer
	v := map[string]any{
		"data":   map[string]any{"sessionId": 7, "viewerHasReacted": true},
		"_hints": []string{"surflog reactors 7"},
	}
	if err := Write(&buf, v, "yaml", false); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"sessionId: 7", "viewerHasReacted: true", "_hints:", "- surflog reactors 7"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}
