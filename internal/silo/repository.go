package silo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"folio/internal/models"
)

// ErrNotFound is returned when no silo matches.
var ErrNotFound = errors.New("silo not found")

// Repository provides access to the silo storage.
type Repository struct {
	DB *sql.DB
}

// NewRepository creates a new silo repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db}
}

// FindBySlug finds a silo by its slug.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Silo, error) {
	var silo models.Silo
	err := r.DB.QueryRowContext(ctx, "SELECT id, slug, name, archived_at, cover_image FROM silos WHERE slug = ?", slug).
		Scan(&silo.ID, &silo.Slug, &silo.Name, &silo.ArchivedAt, &silo.CoverImage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &silo, nil
}

// FindByID finds a silo by id.
func (r *Repository) FindByID(ctx context.Context, id int) (*models.Silo, error) {
	var silo models.Silo
	err := r.DB.QueryRowContext(ctx, "SELECT id, slug, name, archived_at, cover_image FROM silos WHERE id = ?", id).
		Scan(&silo.ID, &silo.Slug, &silo.Name, &silo.ArchivedAt, &silo.CoverImage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &silo, nil
}

// List lists all non-archived silos.
func (r *Repository) List(ctx context.Context) ([]models.Silo, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, slug, name, archived_at, cover_image FROM silos WHERE archived_at IS NULL ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var silos []models.Silo
	for rows.Next() {
		var silo models.Silo
		if err := rows.Scan(&silo.ID, &silo.Slug, &silo.Name, &silo.ArchivedAt, &silo.CoverImage); err != nil {
			return nil, err
		}
		silos = append(silos, silo)
	}
	return silos, rows.Err()
}

// Create creates a new silo with a published home page in a transaction.
func (r *Repository) Create(ctx context.Context, name, slug string, coverImageURL *string, authorID int) (int, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "INSERT INTO silos (name, slug, cover_image) VALUES (?, ?, ?)", name, slug, coverImageURL)
	if err != nil {
		return 0, fmt.Errorf("error creating silo: %w", err)
	}
	siloID, _ := res.LastInsertId()

	res, err = tx.ExecContext(ctx, "INSERT INTO pages (silo_id, slug, title, current_revision_id) VALUES (?, 'home', 'Home', -1)", siloID)
	if err != nil {
		return 0, fmt.Errorf("error creating home page: %w", err)
	}
	pageID, _ := res.LastInsertId()

	initialContent := fmt.Sprintf("* Welcome to the %s Silo!", name)
	res, err = tx.ExecContext(ctx, "INSERT INTO revisions (page_id, version, title, author_id, comment, content, was_published) VALUES (?, 1, 'Home', ?, 'Initial creation', ?, 1)", pageID, authorID, initialContent)
	if err != nil {
		return 0, fmt.Errorf("error creating initial revision: %w", err)
	}
	revisionID, _ := res.LastInsertId()

	_, err = tx.ExecContext(ctx, "UPDATE pages SET current_revision_id = ? WHERE id = ?", revisionID, pageID)
	if err != nil {
		return 0, fmt.Errorf("error updating page with revision ID: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing transaction: %w", err)
	}
	return int(siloID), nil
}
