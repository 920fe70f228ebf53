package models

import "time"

// Page types.
const (
	PageTypePage       = "page"
	PageTypeRedirector = "redirector"
)

// Page represents a single wiki page within a silo.
type Page struct {
	ID                int
	SiloID            int
	ParentID          *int
	Slug              string
	Title             string
	PageType          string
	Position          int
	CurrentRevisionID int
	ArchivedAt        *time.Time

	// Set when the page is placed in a tree.
	Path     string
	Children []*Page
}

// Archived reports whether the page has been deleted.
func (p Page) Archived() bool {
	return p.ArchivedAt != nil
}
