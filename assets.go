package main

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
)

//go:embed web/templates
var templateFS embed.FS

//go:embed web/static
var staticFS embed.FS

// EmbeddedAssetProvider serves the web UI compiled into the binary.
type EmbeddedAssetProvider struct{}

func (e *EmbeddedAssetProvider) GetTemplates() (*template.Template, error) {
	return template.ParseFS(templateFS, "web/templates/*.html")
}

func (e *EmbeddedAssetProvider) GetStaticHandler() http.Handler {
	staticSubFS, err := fs.Sub(staticFS, "web/static")
	if err != nil {
		panic(err) // the embed directive guarantees the directory
	}
	return http.FileServer(http.FS(staticSubFS))
}
