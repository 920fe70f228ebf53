package renderer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	bm "github.com/microcosm-cc/bluemonday"
	"github.com/niklasfasching/go-org/org"
	bf "github.com/russross/blackfriday"
)

// NewHTMLWriterWithChroma returns an org HTML writer that highlights code
// blocks with chroma.
func NewHTMLWriterWithChroma() *org.HTMLWriter {
	w := org.NewHTMLWriter()
	w.HighlightCodeBlock = func(source, lang string, inline bool, params map[string]string) string {
		var w bytes.Buffer
		lexer := lexers.Get(lang)
		if lexer == nil {
			lexer = lexers.Fallback
		}
		iterator, err := lexer.Tokenise(nil, source)
		if err != nil {
			return source
		}
		formatter := html.New(html.WithClasses(true))
		if err := formatter.Format(&w, styles.Get("friendly"), iterator); err != nil {
			return source
		}
		return w.String()
	}
	return w
}

// Org renders org-mode page content.
func Org(content string) (template.HTML, error) {
	out, err := org.New().Parse(strings.NewReader(content), "").Write(NewHTMLWriterWithChroma())
	if err != nil {
		return "", fmt.Errorf("render org content: %w", err)
	}
	return template.HTML(out), nil
}

var commentPolicy = bm.UGCPolicy()

// Comment renders a visitor comment as markdown and strips anything the
// UGC policy does not allow.
func Comment(text string) template.HTML {
	out := bf.MarkdownCommon([]byte(text))
	return template.HTML(commentPolicy.SanitizeBytes(out))
}
