package output

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/dl/srcsearch/internal/corpus"
	"github.com/dl/srcsearch/internal/search"
)

func sampleResult() *search.MatchResult {
	return &search.MatchResult{
		Line:       []byte("the needle line"),
		MatchLeft:  4,
		MatchRight: 10,
		Context: []search.MatchContext{
			{
				LineNum: 7,
				Before:  [][]byte{[]byte("line six")},
				After:   [][]byte{[]byte("line eight")},
				Paths:   []corpus.Path{{Ref: "main", Path: "src/a.go"}},
			},
		},
	}
}

func TestTextFormatter(t *testing.T) {
	f := NewTextFormatter(NoStyles(), true)
	got := string(f.Format(nil, sampleResult()))

	want := "main-src/a.go-6-line six\n" +
		"main:src/a.go:7:the needle line\n" +
		"main-src/a.go-8-line eight\n"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestTextFormatterNoContext(t *testing.T) {
	f := NewTextFormatter(NoStyles(), false)
	got := string(f.Format(nil, sampleResult()))
	if strings.Contains(got, "line six") || strings.Contains(got, "line eight") {
		t.Errorf("context lines present: %s", got)
	}
	if !strings.Contains(got, "the needle line") {
		t.Errorf("match line missing: %s", got)
	}
}

func TestJSONFormatter(t *testing.T) {
	f := NewJSONFormatter()
	data := f.Format(nil, sampleResult())

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if m["line"] != "the needle line" {
		t.Errorf("line = %v", m["line"])
	}
	if m["match_left"] != float64(4) || m["match_right"] != float64(10) {
		t.Errorf("match offsets = %v, %v", m["match_left"], m["match_right"])
	}
	ctx := m["context"].([]any)[0].(map[string]any)
	if ctx["line_number"] != float64(7) {
		t.Errorf("line_number = %v", ctx["line_number"])
	}
	paths := ctx["paths"].([]any)
	if len(paths) != 1 {
		t.Fatalf("paths = %v", paths)
	}
}
