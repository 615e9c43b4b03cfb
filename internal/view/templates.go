package view

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/odyssey-erp/fatoora/web"
)

// Engine renders the embedded document templates.
type Engine struct {
	templates *template.Template
}

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"nonEmpty": func(s, fallback string) string {
			if strings.TrimSpace(s) == "" {
				return fallback
			}
			return s
		},
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/documents/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Has reports whether a template with the given name is defined.
func (e *Engine) Has(name string) bool {
	return e != nil && e.templates.Lookup(name) != nil
}

// Execute writes the named template to w.
func (e *Engine) Execute(w io.Writer, name string, data any) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	return e.templates.ExecuteTemplate(w, name, data)
}
