package ui

import (
	"embed"
	"html/template"
	"io/fs"
)

// StaticPrefix is where the embedded assets are served.
const StaticPrefix = "/statics"

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Templates parses the page templates.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"join": Join,
	}).ParseFS(templateFS, "templates/*.html")
}

// Static is the asset tree rooted at static/.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
