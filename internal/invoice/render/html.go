package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/odyssey-erp/fatoora/internal/view"
	"github.com/odyssey-erp/fatoora/internal/zatca"
)

const qrImageSize = 180

// HTMLRenderer produces the bilingual right-to-left print view.
type HTMLRenderer struct {
	engine *view.Engine
}

// NewHTMLRenderer parses the embedded document templates.
func NewHTMLRenderer() (*HTMLRenderer, error) {
	engine, err := view.NewEngine()
	if err != nil {
		return nil, fmt.Errorf("render: parse templates: %w", err)
	}
	return &HTMLRenderer{engine: engine}, nil
}

type htmlData struct {
	Doc     Document
	QRImage template.URL
}

// Render executes the template matching the document's variant.
func (r *HTMLRenderer) Render(doc Document) (string, error) {
	if r == nil || r.engine == nil {
		return "", fmt.Errorf("render: html renderer not initialised")
	}
	name := string(doc.Mode.Template)
	if !r.engine.Has(name) {
		return "", fmt.Errorf("render: no template for %q", name)
	}

	data := htmlData{Doc: doc}
	if doc.QRPayload != "" {
		uri, err := zatca.DataURI(doc.QRPayload, qrImageSize)
		if err != nil {
			return "", err
		}
		data.QRImage = template.URL(uri)
	}

	var buf bytes.Buffer
	if err := r.engine.Execute(&buf, name, data); err != nil {
		return "", fmt.Errorf("render: execute %s: %w", name, err)
	}
	return buf.String(), nil
}
