// Package web renders the server-side HTML pages and serves the stylesheet.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
)

//go:embed templates/*.html static/main.css
var assets embed.FS

// Page is the data every page template receives.
type Page struct {
	Title string
	// Section selects the active navigation tab: "home" or "workspace".
	Section string
	State   template.JS
	Data    any
}

// Renderer executes the embedded page templates.
type Renderer struct {
	tmpl *template.Template
	css  []byte
}

func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{
		"shortID": func(id string) string {
			if len(id) <= 12 {
				return id
			}
			return id[:12]
		},
		"isActive": func(active, key string) bool { return active == key },
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}
	tmpl, err := template.New("root").Funcs(funcs).ParseFS(assets, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	raw, err := assets.ReadFile("static/main.css")
	if err != nil {
		return nil, fmt.Errorf("read stylesheet: %w", err)
	}
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	out, err := m.Bytes("text/css", raw)
	if err != nil {
		slog.Warn("stylesheet minify failed, serving original", "error", err)
		out = raw
	}
	return &Renderer{tmpl: tmpl, css: out}, nil
}

// Render executes the named page template into w. Nothing is written when
// the template fails.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, page *Page) error {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, page); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// StyleHandler serves the minified stylesheet.
func (r *Renderer) StyleHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Write(r.css)
	})
}
