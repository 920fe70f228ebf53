package attachment

import (
	"context"
	"database/sql"
	"fmt"

	"folio/internal/models"
)

// Repository provides access to the attachment storage.
type Repository struct {
	DB *sql.DB
}

// NewRepository creates a new attachment repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db}
}

// Create records an uploaded file.
func (r *Repository) Create(ctx context.Context, attachment *models.Attachment) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO attachments (filename, unique_filename, mime_type, size) VALUES (?, ?, ?, ?)",
		attachment.Filename, attachment.UniqueFilename, attachment.MimeType, attachment.Size)
	if err != nil {
		return fmt.Errorf("error saving attachment: %w", err)
	}
	id, _ := res.LastInsertId()
	attachment.ID = int(id)
	return nil
}
