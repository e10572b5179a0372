package views

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var files embed.FS

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 }, // 1-based form field numbers
}

// Templates parses every page and the shared layout. Page templates are
// named after their file, e.g. "view_poll.html".
func Templates() *template.Template {
	return template.Must(template.New("").Funcs(funcs).ParseFS(files, "templates/*.html"))
}
