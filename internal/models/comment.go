package models

import "time"

// Comment is a visitor comment on a page.
type Comment struct {
	ID              int
	PageID          int
	Name            string
	Comment         string
	IsSpam          bool
	NeedsModeration bool
	AuthorIP        string
	CreatedAt       time.Time
}
