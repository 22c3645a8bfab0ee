package ui

import (
	"embed"
	"html/template"
	"io/fs"
)

// Assets embeds templates and static directories into the binary.
//
//go:embed templates static
var Assets embed.FS

// Static returns the static asset tree rooted at "static".
func Static() fs.FS {
	sub, err := fs.Sub(Assets, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Templates parses every page template with the given helpers.
func Templates(funcs template.FuncMap) (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(Assets, "templates/*.html")
}
