package models

import "time"

// Attachment is an uploaded file served from the uploads directory.
type Attachment struct {
	ID             int
	Filename       string
	UniqueFilename string
	MimeType       string
	Size           int64
	CreatedAt      time.Time
}

// URL is the public path of the stored file.
func (a Attachment) URL() string {
	return "/uploads/" + a.UniqueFilename
}
