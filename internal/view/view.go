// Package view renders the HTML pages and the fragments patched into them
// over server-sent events. Pages are html/template files embedded in the
// binary and exposed as templ components.
package view

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"io"
	"strconv"

	"github.com/a-h/templ"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"github.com/msomdec/tempo/internal/calendar"
)

//go:embed templates/*.html
var files embed.FS

var markdown = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

var funcs = template.FuncMap{
	"duration": func(minutes *int) string {
		if minutes == nil {
			return calendar.FormatDuration(0)
		}
		return calendar.FormatDuration(*minutes)
	},
	"markdown": renderMarkdown,
	"str":      str,
	"num":      num,
	"float":    float,
	"pct": func(v float64) string {
		return strconv.FormatFloat(v, 'f', 1, 64)
	},
	"round": func(v float64) int {
		return int(v + 0.5)
	},
	"opacity": func(ratio float64) string {
		return strconv.FormatFloat(0.15+0.85*ratio, 'f', 2, 64)
	},
	"signals": Signals,
	"goals": func() []string {
		return []string{"1", "2", "3", "4", "5", "6", "7"}
	},
	"exkey":     ExerciseNameKey,
	"repskey":   SetRepsKey,
	"weightkey": SetWeightKey,
	"restkey":   SetRestKey,
	"rekey":     RoutineExerciseKey,
}

var templates = template.Must(template.New("").Funcs(funcs).ParseFS(files, "templates/*.html"))

// render exposes a named template as a templ component.
func render(name string, data any) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return templates.ExecuteTemplate(w, name, data)
	})
}

// String renders c to a string.
func String(ctx context.Context, c templ.Component) (string, error) {
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Signals encodes datastar signals as the JSON value of a data-signals
// attribute.
func Signals(values map[string]string) string {
	b, err := json.Marshal(values)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// renderMarkdown converts notes to HTML. Raw HTML in the input is escaped
// by the renderer.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func num(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func float(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}
