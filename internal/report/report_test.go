package report

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/history"
	"folio/internal/models"
	"folio/internal/page"
	"folio/internal/testutil"
)

func TestEmptyPages(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	userID := testutil.SeedUser(t, db, "editor", false)
	siloID := testutil.SeedSilo(t, db, "docs")
	pages := page.NewRepository(db)

	create := func(slug, title, pageType, content string) models.Page {
		p := models.Page{SiloID: siloID, Slug: slug, Title: title, PageType: pageType}
		_, err := pages.Create(ctx, &p, &models.Revision{AuthorID: userID, Content: content})
		require.NoError(t, err)
		return p
	}

	zeta := create("zeta", "Zeta", "", "  <p></p>\n")
	alpha := create("alpha", "Alpha", "", "")
	create("nbsp", "Middle", "", "<p>&nbsp;</p>")
	create("full", "Full", "", "* heading")
	create("jump", "Jump", models.PageTypeRedirector, "")
	gone := create("gone", "Gone", "", "")
	require.NoError(t, pages.Delete(ctx, gone.ID))

	// Filling a page's latest version removes it from the report.
	filled := create("filled", "Filled", "", "")
	require.NoError(t, pages.CreateRevision(ctx, &models.Revision{AuthorID: userID, Content: "now with text"}, filled.ID))

	records, err := EmptyPages{Pages: pages}.SourceRecords(ctx)
	require.NoError(t, err)

	var titles []string
	for _, r := range records {
		titles = append(titles, r.Values["Title"])
	}
	assert.Equal(t, []string{"Alpha", "Middle", "Zeta"}, titles)
	assert.Equal(t, history.Link("show", alpha.ID), records[0].Link)
	assert.Equal(t, history.Link("show", zeta.ID), records[2].Link)
}

func TestIsEmptyContent(t *testing.T) {
	for content, want := range map[string]bool{
		"":              true,
		"   ":           true,
		"<p></p>":       true,
		"<p>&nbsp;</p>": true,
		"<p>x</p>":      false,
		"text":          false,
	} {
		assert.Equal(t, want, isEmptyContent(content), "%q", content)
	}
}

type stubReport struct {
	EmptyPages
	name, title string
	sort        int
}

func (s stubReport) Name() string  { return s.name }
func (s stubReport) Title() string { return s.title }
func (s stubReport) Sort() int     { return s.sort }

func TestRegistry(t *testing.T) {
	reg := NewRegistry(
		stubReport{name: "b", title: "Beta", sort: 100},
		EmptyPages{},
		stubReport{name: "first", title: "Zulu", sort: 10},
	)

	var names []string
	for _, r := range reg.List() {
		names = append(names, r.Name())
	}
	assert.Equal(t, []string{"first", "b", "empty-pages"}, names)

	rep, err := reg.Get("empty-pages")
	require.NoError(t, err)
	assert.Equal(t, "Pages with no content", rep.Title())
	assert.Equal(t, "Content reports", rep.Group())

	_, err = reg.Get("nope")
	assert.ErrorIs(t, err, ErrUnknownReport)
}
