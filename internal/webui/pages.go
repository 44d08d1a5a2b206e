// Package webui embeds the server-rendered pages used around checkout.
package webui

import (
	"embed"
	"html/template"
)

// Template names.
const (
	// RedirectPage auto-submits a signed gateway form.
	RedirectPage = "redirect.html"
	// ErrorPage shows a short message with a link back to the shop.
	ErrorPage = "error.html"
)

//go:embed templates/*.html
var templates embed.FS

// Load parses the embedded templates for gin's HTML renderer.
func Load() (*template.Template, error) {
	return template.ParseFS(templates, "templates/*.html")
}
