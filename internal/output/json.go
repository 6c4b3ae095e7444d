package output

import (
	"encoding/json"

	"github.com/dl/srcsearch/internal/search"
)

// JSONFormatter renders results as JSON Lines, one object per match.
type JSONFormatter struct{}

// NewJSONFormatter creates a JSONFormatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

type jsonMatch struct {
	Line       string        `json:"line"`
	MatchLeft  int           `json:"match_left"`
	MatchRight int           `json:"match_right"`
	Context    []jsonContext `json:"context"`
}

type jsonContext struct {
	LineNum int        `json:"line_number"`
	Before  []string   `json:"context_before,omitempty"`
	After   []string   `json:"context_after,omitempty"`
	Paths   []jsonPath `json:"paths"`
}

type jsonPath struct {
	Ref  string `json:"ref"`
	Path string `json:"path"`
}

func (f *JSONFormatter) Format(buf []byte, r *search.MatchResult) []byte {
	jm := jsonMatch{
		Line:       string(r.Line),
		MatchLeft:  r.MatchLeft,
		MatchRight: r.MatchRight,
	}
	for i := range r.Context {
		ctx := &r.Context[i]
		jc := jsonContext{LineNum: ctx.LineNum}
		for _, l := range ctx.Before {
			jc.Before = append(jc.Before, string(l))
		}
		for _, l := range ctx.After {
			jc.After = append(jc.After, string(l))
		}
		for _, p := range ctx.Paths {
			jc.Paths = append(jc.Paths, jsonPath{Ref: p.Ref, Path: p.Path})
		}
		jm.Context = append(jm.Context, jc)
	}
	data, err := json.Marshal(jm)
	if err != nil {
		return buf
	}
	buf = append(buf, data...)
	buf = append(buf, '\n')
	return buf
}
