package web

import (
	"embed"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Templates parses the embedded pages. Each page is addressed by its file name.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"date": func(t time.Time) string { return t.Format("02 Jan 2006") },
	}).ParseFS(templatesFS, "templates/*.html")
}
