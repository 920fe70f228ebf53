package page

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"folio/internal/models"
)

var (
	// ErrNotFound is returned when no page matches.
	ErrNotFound = errors.New("page not found")
	// ErrVersionNotFound is returned when a page has no such version.
	ErrVersionNotFound = errors.New("version not found")
	// ErrLatestVersion is returned when rolling back to the version that is already current.
	ErrLatestVersion = errors.New("version is already the latest")
)

const pageColumns = "id, silo_id, parent_id, slug, title, page_type, position, current_revision_id, archived_at"

const revisionColumns = `r.id, r.page_id, r.version, r.title, r.content, r.author_id,
	COALESCE(u.display_name, ''), r.comment, r.was_published, r.created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPage(row scanner) (models.Page, error) {
	var p models.Page
	err := row.Scan(&p.ID, &p.SiloID, &p.ParentID, &p.Slug, &p.Title, &p.PageType, &p.Position, &p.CurrentRevisionID, &p.ArchivedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

func scanRevision(row scanner) (models.Revision, error) {
	var r models.Revision
	err := row.Scan(&r.ID, &r.PageID, &r.Version, &r.Title, &r.Content, &r.AuthorID, &r.AuthorName, &r.Comment, &r.WasPublished, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrVersionNotFound
	}
	return r, err
}

// Repository provides access to pages and their versions.
type Repository struct {
	DB *sql.DB
}

// NewRepository creates a new page repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db}
}

// FindByPath walks the page tree of a silo one slug at a time.
func (r *Repository) FindByPath(ctx context.Context, siloID int, path []string) (models.Page, error) {
	if len(path) == 0 {
		return models.Page{}, ErrNotFound
	}

	var page models.Page
	var parentID *int

	for _, slug := range path {
		var err error
		if parentID == nil {
			row := r.DB.QueryRowContext(ctx, "SELECT "+pageColumns+" FROM pages WHERE silo_id = ? AND slug = ? AND parent_id IS NULL AND archived_at IS NULL", siloID, slug)
			page, err = scanPage(row)
		} else {
			row := r.DB.QueryRowContext(ctx, "SELECT "+pageColumns+" FROM pages WHERE silo_id = ? AND slug = ? AND parent_id = ? AND archived_at IS NULL", siloID, slug, *parentID)
			page, err = scanPage(row)
		}
		if err != nil {
			return models.Page{}, err
		}

		pageID := page.ID
		parentID = &pageID
	}
	return page, nil
}

// FindByID returns a page, archived or not.
func (r *Repository) FindByID(ctx context.Context, id int) (models.Page, error) {
	return scanPage(r.DB.QueryRowContext(ctx, "SELECT "+pageColumns+" FROM pages WHERE id = ?", id))
}

// ListBySilo lists all non-archived pages for a given silo.
func (r *Repository) ListBySilo(ctx context.Context, siloID int) ([]models.Page, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+pageColumns+" FROM pages WHERE silo_id = ? AND archived_at IS NULL ORDER BY position ASC, id ASC", siloID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []models.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// Current pairs a live page with the content of its latest version.
type Current struct {
	Page     models.Page
	SiloSlug string
	Content  sql.NullString
}

// ListCurrent returns every non-archived page with its latest content.
func (r *Repository) ListCurrent(ctx context.Context) ([]Current, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT p.id, p.silo_id, p.parent_id, p.slug, p.title, p.page_type, p.position, p.current_revision_id, p.archived_at,
	s.slug, rv.content
FROM pages p
JOIN silos s ON s.id = p.silo_id
LEFT JOIN revisions rv ON rv.id = p.current_revision_id
WHERE p.archived_at IS NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Current
	for rows.Next() {
		var c Current
		p := &c.Page
		if err := rows.Scan(&p.ID, &p.SiloID, &p.ParentID, &p.Slug, &p.Title, &p.PageType, &p.Position, &p.CurrentRevisionID, &p.ArchivedAt, &c.SiloSlug, &c.Content); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// insertRevision writes the next version of a page and points the page at it.
func insertRevision(ctx context.Context, tx *sql.Tx, pageID int, revision *models.Revision) error {
	var latest int
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM revisions WHERE page_id = ?", pageID).Scan(&latest); err != nil {
		return fmt.Errorf("error reading latest version: %w", err)
	}
	revision.PageID = pageID
	revision.Version = latest + 1

	res, err := tx.ExecContext(ctx, "INSERT INTO revisions (page_id, version, title, author_id, comment, content, was_published) VALUES (?, ?, ?, ?, ?, ?, ?)",
		pageID, revision.Version, revision.Title, revision.AuthorID, revision.Comment, revision.Content, revision.WasPublished)
	if err != nil {
		return fmt.Errorf("error creating revision: %w", err)
	}
	revisionID, _ := res.LastInsertId()
	revision.ID = int(revisionID)

	_, err = tx.ExecContext(ctx, "UPDATE pages SET current_revision_id = ?, title = ? WHERE id = ?", revisionID, revision.Title, pageID)
	if err != nil {
		return fmt.Errorf("error updating page with revision ID: %w", err)
	}
	return nil
}

// Create creates a new page and its first version in a transaction.
func (r *Repository) Create(ctx context.Context, page *models.Page, revision *models.Revision) (int64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if page.PageType == "" {
		page.PageType = models.PageTypePage
	}
	if revision.Title == "" {
		revision.Title = page.Title
	}

	res, err := tx.ExecContext(ctx, "INSERT INTO pages (silo_id, parent_id, slug, title, page_type, position, current_revision_id) VALUES (?, ?, ?, ?, ?, ?, -1)",
		page.SiloID, page.ParentID, page.Slug, page.Title, page.PageType, page.Position)
	if err != nil {
		return 0, fmt.Errorf("error creating page: %w", err)
	}
	pageID, _ := res.LastInsertId()
	page.ID = int(pageID)

	if err := insertRevision(ctx, tx, page.ID, revision); err != nil {
		return 0, err
	}
	page.CurrentRevisionID = revision.ID

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing transaction: %w", err)
	}
	return pageID, nil
}

// GetPathByID recursively finds the full path of a page given its ID.
func (r *Repository) GetPathByID(ctx context.Context, pageID int) (string, error) {
	var slug string
	var parentID sql.NullInt64
	err := r.DB.QueryRowContext(ctx, "SELECT slug, parent_id FROM pages WHERE id = ?", pageID).Scan(&slug, &parentID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}

	if !parentID.Valid {
		return slug, nil
	}

	parentPath, err := r.GetPathByID(ctx, int(parentID.Int64))
	if err != nil {
		return "", err
	}

	return parentPath + "/" + slug, nil
}

// CreateRevision adds a new version to a page.
func (r *Repository) CreateRevision(ctx context.Context, revision *models.Revision, pageID int) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if revision.Title == "" {
		if err := tx.QueryRowContext(ctx, "SELECT title FROM pages WHERE id = ?", pageID).Scan(&revision.Title); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("error reading page title: %w", err)
		}
	}

	if err := insertRevision(ctx, tx, pageID, revision); err != nil {
		return err
	}
	return tx.Commit()
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// GetVersion returns one version of a page. Version 0 means the latest.
func (r *Repository) GetVersion(ctx context.Context, pageID, version int) (models.Revision, error) {
	return getVersion(ctx, r.DB, pageID, version)
}

// LatestVersion returns the version the page currently points at.
func (r *Repository) LatestVersion(ctx context.Context, pageID int) (models.Revision, error) {
	return latestVersion(ctx, r.DB, pageID)
}

func getVersion(ctx context.Context, q queryer, pageID, version int) (models.Revision, error) {
	if version <= 0 {
		return latestVersion(ctx, q, pageID)
	}
	row := q.QueryRowContext(ctx, "SELECT "+revisionColumns+` FROM revisions r
LEFT JOIN users u ON u.id = r.author_id
WHERE r.page_id = ? AND r.version = ?`, pageID, version)
	return scanRevision(row)
}

func latestVersion(ctx context.Context, q queryer, pageID int) (models.Revision, error) {
	row := q.QueryRowContext(ctx, "SELECT "+revisionColumns+` FROM revisions r
LEFT JOIN users u ON u.id = r.author_id
WHERE r.page_id = ? ORDER BY r.version DESC LIMIT 1`, pageID)
	return scanRevision(row)
}

// ListVersions returns all versions of a page, newest first.
func (r *Repository) ListVersions(ctx context.Context, pageID int) ([]models.Revision, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+revisionColumns+` FROM revisions r
LEFT JOIN users u ON u.id = r.author_id
WHERE r.page_id = ? ORDER BY r.version DESC`, pageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []models.Revision
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, rev)
	}
	return versions, rows.Err()
}

// Publish marks the latest version of a page as published.
func (r *Repository) Publish(ctx context.Context, pageID int) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE revisions SET was_published = 1 WHERE id = (SELECT current_revision_id FROM pages WHERE id = ?)", pageID)
	if err != nil {
		return fmt.Errorf("error publishing page: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Rollback writes a new version that restores the title and content of an
// older one. The restored version is returned.
func (r *Repository) Rollback(ctx context.Context, pageID, version, authorID int) (models.Revision, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.Revision{}, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	target, err := getVersion(ctx, tx, pageID, version)
	if err != nil {
		return models.Revision{}, err
	}
	latest, err := latestVersion(ctx, tx, pageID)
	if err != nil {
		return models.Revision{}, err
	}
	if latest.Version == target.Version {
		return models.Revision{}, ErrLatestVersion
	}

	comment := fmt.Sprintf("Reverted to version %d", target.Version)
	revision := models.Revision{
		Title:    target.Title,
		Content:  target.Content,
		AuthorID: authorID,
		Comment:  &comment,
	}
	if err := insertRevision(ctx, tx, pageID, &revision); err != nil {
		return models.Revision{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Revision{}, fmt.Errorf("error committing rollback: %w", err)
	}
	return revision, nil
}

// Delete archives a page.
func (r *Repository) Delete(ctx context.Context, pageID int) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE pages SET archived_at = ? WHERE id = ?", time.Now(), pageID)
	return err
}
