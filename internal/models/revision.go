package models

import "time"

// Revision represents a numbered version of a page's content.
type Revision struct {
	ID           int
	PageID       int
	Version      int
	Title        string
	Content      string
	AuthorID     int
	AuthorName   string
	Comment      *string
	WasPublished bool
	CreatedAt    time.Time
}
