package comment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"folio/internal/models"
)

// ErrNotFound is returned when no comment matches.
var ErrNotFound = errors.New("comment not found")

const commentColumns = "id, page_id, name, comment, is_spam, needs_moderation, COALESCE(author_ip, ''), created_at"

// Repository provides access to the comment storage.
type Repository struct {
	DB *sql.DB
}

// NewRepository creates a new comment repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db}
}

func scanComments(rows *sql.Rows) ([]models.Comment, error) {
	defer rows.Close()
	var out []models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.PageID, &c.Name, &c.Comment, &c.IsSpam, &c.NeedsModeration, &c.AuthorIP, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Create stores a comment.
func (r *Repository) Create(ctx context.Context, c *models.Comment) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO comments (page_id, name, comment, is_spam, needs_moderation, author_ip) VALUES (?, ?, ?, ?, ?, ?)",
		c.PageID, c.Name, c.Comment, c.IsSpam, c.NeedsModeration, c.AuthorIP)
	if err != nil {
		return fmt.Errorf("error creating comment: %w", err)
	}
	id, _ := res.LastInsertId()
	c.ID = int(id)
	return r.DB.QueryRowContext(ctx, "SELECT created_at FROM comments WHERE id = ?", c.ID).Scan(&c.CreatedAt)
}

// FindByID returns one comment.
func (r *Repository) FindByID(ctx context.Context, id int) (models.Comment, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+commentColumns+" FROM comments WHERE id = ?", id)
	if err != nil {
		return models.Comment{}, err
	}
	comments, err := scanComments(rows)
	if err != nil {
		return models.Comment{}, err
	}
	if len(comments) == 0 {
		return models.Comment{}, ErrNotFound
	}
	return comments[0], nil
}

// ListFilter selects the comments of a page.
type ListFilter struct {
	PageID         int
	IncludeSpam    bool
	IncludePending bool
	Offset         int
	Limit          int
}

func (f ListFilter) where() (string, []any) {
	where := "page_id = ?"
	args := []any{f.PageID}
	if !f.IncludeSpam {
		where += " AND is_spam = 0"
	}
	if !f.IncludePending {
		where += " AND needs_moderation = 0"
	}
	return where, args
}

// List returns a page of comments, newest first, and the total matching.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]models.Comment, int, error) {
	where, args := f.where()

	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM comments WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting comments: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+commentColumns+" FROM comments WHERE "+where+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		append(args, limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing comments: %w", err)
	}
	comments, err := scanComments(rows)
	return comments, total, err
}

// ListModeration returns comments that are spam or awaiting approval.
func (r *Repository) ListModeration(ctx context.Context, limit int) ([]models.Comment, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+commentColumns+" FROM comments WHERE is_spam = 1 OR needs_moderation = 1 ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("error listing comments for moderation: %w", err)
	}
	return scanComments(rows)
}

func (r *Repository) update(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error updating comment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Approve clears the moderation flag.
func (r *Repository) Approve(ctx context.Context, id int) error {
	return r.update(ctx, "UPDATE comments SET needs_moderation = 0 WHERE id = ?", id)
}

// SetSpam flags or unflags a comment as spam. Unflagged comments are also approved.
func (r *Repository) SetSpam(ctx context.Context, id int, spam bool) error {
	if spam {
		return r.update(ctx, "UPDATE comments SET is_spam = 1 WHERE id = ?", id)
	}
	return r.update(ctx, "UPDATE comments SET is_spam = 0, needs_moderation = 0 WHERE id = ?", id)
}

// Delete removes a comment.
func (r *Repository) Delete(ctx context.Context, id int) error {
	return r.update(ctx, "DELETE FROM comments WHERE id = ?", id)
}
