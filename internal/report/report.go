// Package report holds the admin content reports.
package report

import (
	"context"
	"errors"
	"sort"
	"strings"

	"folio/internal/history"
	"folio/internal/models"
	"folio/internal/page"
)

// ErrUnknownReport is returned by Registry.Get for a name nobody registered.
var ErrUnknownReport = errors.New("unknown report")

// Column describes one column of a report table.
type Column struct {
	Name  string
	Title string
	Link  bool
}

// Record is one row of a report.
type Record struct {
	Values map[string]string
	Link   string
}

// Report is a named, grouped admin report.
type Report interface {
	Name() string
	Title() string
	Group() string
	Sort() int
	Columns() []Column
	SourceRecords(ctx context.Context) ([]Record, error)
}

// Registry keeps the available reports.
type Registry struct {
	reports map[string]Report
}

// NewRegistry returns a registry holding reports, keyed by name.
func NewRegistry(reports ...Report) *Registry {
	r := &Registry{reports: make(map[string]Report)}
	for _, rep := range reports {
		r.reports[rep.Name()] = rep
	}
	return r
}

// List returns the reports ordered by sort key, then title.
func (r *Registry) List() []Report {
	out := make([]Report, 0, len(r.reports))
	for _, rep := range r.reports {
		out = append(out, rep)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sort() != out[j].Sort() {
			return out[i].Sort() < out[j].Sort()
		}
		return out[i].Title() < out[j].Title()
	})
	return out
}

// Get returns the report called name, or ErrUnknownReport.
func (r *Registry) Get(name string) (Report, error) {
	rep, ok := r.reports[name]
	if !ok {
		return nil, ErrUnknownReport
	}
	return rep, nil
}

// PageLister is the page storage the content reports read.
type PageLister interface {
	ListCurrent(ctx context.Context) ([]page.Current, error)
}

// EmptyPages lists live pages whose latest version has no content.
type EmptyPages struct {
	Pages PageLister
}

// Name is the report's URL segment.
func (EmptyPages) Name() string { return "empty-pages" }

// Title is shown in the report list.
func (EmptyPages) Title() string { return "Pages with no content" }

// Group is the heading the report is listed under.
func (EmptyPages) Group() string { return "Content reports" }

// Sort orders the report within the list.
func (EmptyPages) Sort() int { return 100 }

// Columns is the single linked Title column.
func (EmptyPages) Columns() []Column {
	return []Column{{Name: "Title", Title: "Title", Link: true}}
}

// SourceRecords returns the empty pages sorted by title. Redirector pages
// are skipped.
func (e EmptyPages) SourceRecords(ctx context.Context) ([]Record, error) {
	current, err := e.Pages.ListCurrent(ctx)
	if err != nil {
		return nil, err
	}

	var pages []models.Page
	for _, c := range current {
		if c.Page.PageType == models.PageTypeRedirector {
			continue
		}
		if !c.Content.Valid || isEmptyContent(c.Content.String) {
			pages = append(pages, c.Page)
		}
	}
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Title < pages[j].Title })

	records := make([]Record, 0, len(pages))
	for _, p := range pages {
		records = append(records, Record{
			Values: map[string]string{"Title": p.Title},
			Link:   history.Link("show", p.ID),
		})
	}
	return records, nil
}

func isEmptyContent(content string) bool {
	switch strings.TrimSpace(content) {
	case "", "<p></p>", "<p>&nbsp;</p>":
		return true
	}
	return false
}
