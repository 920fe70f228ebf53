// Package diff renders the difference between two versions of a field as
// HTML with <ins> and <del> markup.
package diff

import (
	"html"
	"html/template"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Field is the comparison of one named field across two versions.
type Field struct {
	Name    string
	Label   string
	From    string
	To      string
	HTML    template.HTML
	Changed bool
}

// HTML diffs from against to. Text is escaped before markup is added.
func HTML(from, to string) template.HTML {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(from, to, true)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var buff strings.Builder
	for _, d := range diffs {
		text := html.EscapeString(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			buff.WriteString("<ins>")
			buff.WriteString(text)
			buff.WriteString("</ins>")
		case diffmatchpatch.DiffDelete:
			buff.WriteString("<del>")
			buff.WriteString(text)
			buff.WriteString("</del>")
		case diffmatchpatch.DiffEqual:
			buff.WriteString("<span>")
			buff.WriteString(text)
			buff.WriteString("</span>")
		}
	}
	return template.HTML(buff.String())
}

// Compare builds a Field for a named value.
func Compare(name, label, from, to string) Field {
	return Field{
		Name:    name,
		Label:   label,
		From:    from,
		To:      to,
		HTML:    HTML(from, to),
		Changed: from != to,
	}
}
