package output

import (
	"strconv"

	"github.com/dl/srcsearch/internal/search"
)

// Formatter renders one match result, appending to buf.
type Formatter interface {
	Format(buf []byte, r *search.MatchResult) []byte
}

// TextFormatter renders human-readable grep-like output:
//
//	ref:path:lineno:matched line
//	ref-path-lineno-context line
type TextFormatter struct {
	styles      Styles
	showContext bool
}

// NewTextFormatter creates a TextFormatter.
func NewTextFormatter(styles Styles, showContext bool) *TextFormatter {
	return &TextFormatter{styles: styles, showContext: showContext}
}

func (f *TextFormatter) Format(buf []byte, r *search.MatchResult) []byte {
	for i := range r.Context {
		ctx := &r.Context[i]
		p := ctx.Paths[0]

		if f.showContext {
			for j := len(ctx.Before) - 1; j >= 0; j-- {
				buf = f.line(buf, p.Ref, p.Path, ctx.LineNum-j-1, ctx.Before[j], true)
			}
		}
		buf = f.line(buf, p.Ref, p.Path, ctx.LineNum, r.Line, false)
		if f.showContext {
			for j, l := range ctx.After {
				buf = f.line(buf, p.Ref, p.Path, ctx.LineNum+j+1, l, true)
			}
		}
	}
	return buf
}

func (f *TextFormatter) line(buf []byte, ref, path string, lineno int, text []byte, context bool) []byte {
	sep := ":"
	if context {
		sep = "-"
	}
	buf = append(buf, f.styles.Ref.Render(ref)...)
	buf = append(buf, f.styles.Separator.Render(sep)...)
	buf = append(buf, f.styles.Path.Render(path)...)
	buf = append(buf, f.styles.Separator.Render(sep)...)
	buf = append(buf, f.styles.LineNum.Render(strconv.Itoa(lineno))...)
	buf = append(buf, f.styles.Separator.Render(sep)...)
	if context {
		buf = append(buf, f.styles.Context.Render(string(text))...)
	} else {
		buf = append(buf, text...)
	}
	buf = append(buf, '\n')
	return buf
}
