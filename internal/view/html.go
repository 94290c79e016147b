package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var pageTemplate = template.Must(
	template.New("page.html.tmpl").
		Funcs(template.FuncMap{"capitalize": Capitalize}).
		ParseFS(templateFS, "templates/*.html.tmpl"),
)

// HTML writes p as a complete HTML document.
func HTML(w io.Writer, p Page) error {
	if err := pageTemplate.ExecuteTemplate(w, "page.html.tmpl", p); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}
