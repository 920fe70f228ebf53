// Package templates holds the embedded HTML templates. Every page template
// is parsed into its own set together with the layout and shared partials.
package templates

import (
	"embed"
	"fmt"
	"html/template"

	"folio/internal/history"
	"folio/internal/models"
)

//go:embed *.html
var files embed.FS

var pages = []string{
	"index.html",
	"view.html",
	"new.html",
	"edit.html",
	"history.html",
	"spam.html",
	"moderation.html",
	"reports.html",
	"login.html",
	"register.html",
}

var shared = []string{"layout.html", "sidebar.html", "comments.html", "history_form.html"}

// Tree is the data for one level of the sidebar page tree.
type Tree struct {
	SiloSlug string
	Pages    []*models.Page
}

var funcs = template.FuncMap{
	"historyLink": history.Link,
	"tree": func(siloSlug string, pages []*models.Page) Tree {
		return Tree{SiloSlug: siloSlug, Pages: pages}
	},
}

// Load parses every page template set.
func Load() (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template, len(pages))
	for _, name := range pages {
		patterns := append([]string{name}, shared...)
		t, err := template.New(name).Funcs(funcs).ParseFS(files, patterns...)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		templates[name] = t
	}
	return templates, nil
}
