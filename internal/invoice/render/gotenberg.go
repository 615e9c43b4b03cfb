package render

import (
	"context"
	"fmt"
)

// PDFClient exposes the subset of the report client used by the HTML to PDF path.
type PDFClient interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// GotenbergRenderer converts the HTML view to PDF through a Chromium service.
// Unlike PDFRenderer it keeps the Arabic labels and right-to-left layout.
type GotenbergRenderer struct {
	html   *HTMLRenderer
	client PDFClient
}

// NewGotenbergRenderer wires the HTML renderer to the PDF client.
func NewGotenbergRenderer(html *HTMLRenderer, client PDFClient) (*GotenbergRenderer, error) {
	if html == nil || client == nil {
		return nil, fmt.Errorf("render: gotenberg renderer requires html renderer and pdf client")
	}
	return &GotenbergRenderer{html: html, client: client}, nil
}

// RenderPDF renders doc as HTML and converts it.
func (g *GotenbergRenderer) RenderPDF(ctx context.Context, doc Document) ([]byte, error) {
	page, err := g.html.Render(doc)
	if err != nil {
		return nil, err
	}
	pdf, err := g.client.RenderHTML(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("render: gotenberg: %w", err)
	}
	return pdf, nil
}
