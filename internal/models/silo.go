package models

import "time"

// Silo is a top-level content area.
type Silo struct {
	ID         int
	Slug       string
	Name       string
	ArchivedAt *time.Time
	CoverImage *string
}
