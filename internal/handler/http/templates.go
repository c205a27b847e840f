package http

import (
	"embed"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"lower": strings.ToLower,
	"date": func(t time.Time) string {
		return t.Format("2 Jan 2006")
	},
}).ParseFS(templateFS, "templates/*.html"))
