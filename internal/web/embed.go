// Package web holds the server-rendered pages and their static assets.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
)

//go:embed templates
var TemplatesFS embed.FS

//go:embed static
var StaticFS embed.FS

const baseLayout = "templates/layouts/base.html"

// Pages maps a page file name to its template. Each page is parsed into its
// own set together with the base layout so block overrides stay per page.
type Pages struct {
	templates map[string]*template.Template
}

// LoadTemplates parses every page under templates/pages.
func LoadTemplates() (*Pages, error) {
	entries, err := fs.ReadDir(TemplatesFS, "templates/pages")
	if err != nil {
		return nil, err
	}

	pages := &Pages{templates: make(map[string]*template.Template, len(entries))}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		tmpl, err := template.New(entry.Name()).ParseFS(TemplatesFS, baseLayout, path.Join("templates/pages", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", entry.Name(), err)
		}
		pages.templates[entry.Name()] = tmpl
	}

	return pages, nil
}

// Has reports whether a page named name was loaded.
func (p *Pages) Has(name string) bool {
	_, ok := p.templates[name]
	return ok
}

// Render executes the page into a buffer first so a template error never
// leaves a half written response.
func (p *Pages) Render(w http.ResponseWriter, status int, name string, data interface{}) error {
	tmpl, ok := p.templates[name]
	if !ok {
		return fmt.Errorf("page %q not found", name)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// GetStaticFS returns the static file system for serving static files
func GetStaticFS() (fs.FS, error) {
	return fs.Sub(StaticFS, "static")
}
