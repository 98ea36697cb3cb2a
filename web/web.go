// Package web holds the embedded HTML templates of the public survey pages.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

//go:embed templates
var files embed.FS

const layout = "templates/base.html"

// Templates renders pages by name, e.g. "survey.html" or "take_survey/TEXT.html".
type Templates struct {
	pages map[string]*template.Template
}

func Load() (*Templates, error) {
	t := &Templates{pages: map[string]*template.Template{}}
	err := fs.WalkDir(files, "templates", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || p == layout || path.Ext(p) != ".html" {
			return nil
		}
		page, err := template.New(path.Base(layout)).ParseFS(files, layout, p)
		if err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}
		t.pages[strings.TrimPrefix(p, "templates/")] = page
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Templates) Has(name string) bool {
	_, ok := t.pages[name]
	return ok
}

// Render executes the page into a buffer first, so a failing template
// leaves w untouched.
func (t *Templates) Render(w http.ResponseWriter, status int, name string, data any) error {
	page, ok := t.pages[name]
	if !ok {
		return fmt.Errorf("no template %q", name)
	}

	var buf bytes.Buffer
	err := page.ExecuteTemplate(&buf, "base", data)
	if err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}
