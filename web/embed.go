package web

import "embed"

// Templates embeds the document HTML templates.
//
//go:embed templates/**/*.html
var Templates embed.FS

// Fonts embeds the DejaVu Sans faces used by the in-process PDF engine. They
// cover the Arabic presentation forms.
//
//go:embed fonts/*.ttf
var Fonts embed.FS
