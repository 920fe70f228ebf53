package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// connParams are added to every DSN unless it sets them itself. Writers
// take the lock when their transaction begins and wait for each other
// instead of failing with "database is locked".
var connParams = []struct{ key, value string }{
	{"_foreign_keys", "1"},
	{"_busy_timeout", "5000"},
	{"_txlock", "immediate"},
}

// New opens the SQLite database at dsn and checks the connection.
func New(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", withParams(dsn))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return db, nil
}

func withParams(dsn string) string {
	base, query, _ := strings.Cut(dsn, "?")
	values, err := url.ParseQuery(query)
	if err != nil {
		return dsn
	}
	for _, p := range connParams {
		if !values.Has(p.key) {
			values.Set(p.key, p.value)
		}
	}
	return base + "?" + values.Encode()
}

// Migrate creates the schema. It is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
-- folio database schema

-- Silos are the top-level content areas.
CREATE TABLE IF NOT EXISTS silos (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    slug TEXT UNIQUE NOT NULL,
    name TEXT NOT NULL,
    archived_at TIMESTAMP,
    cover_image TEXT
);

-- Users are the authors of content.
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    display_name TEXT NOT NULL,
    is_admin INTEGER NOT NULL DEFAULT 0
);

-- Identities provide a way for users to authenticate.
CREATE TABLE IF NOT EXISTS identities (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL,
    provider TEXT NOT NULL,
    provider_user_id TEXT NOT NULL,
    password_hash TEXT,
    FOREIGN KEY(user_id) REFERENCES users(id)
);

-- Pages form a tree inside a silo.
CREATE TABLE IF NOT EXISTS pages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    silo_id INTEGER NOT NULL,
    parent_id INTEGER,
    slug TEXT NOT NULL,
    title TEXT NOT NULL,
    page_type TEXT NOT NULL DEFAULT 'page',
    position INTEGER NOT NULL DEFAULT 0,
    current_revision_id INTEGER NOT NULL,
    archived_at TIMESTAMP,
    FOREIGN KEY(silo_id) REFERENCES silos(id),
    FOREIGN KEY(parent_id) REFERENCES pages(id),
    UNIQUE (silo_id, parent_id, slug)
);

-- Revisions are the numbered versions of a page.
CREATE TABLE IF NOT EXISTS revisions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    page_id INTEGER NOT NULL,
    version INTEGER NOT NULL,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    author_id INTEGER NOT NULL,
    comment TEXT,
    was_published INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY(page_id) REFERENCES pages(id),
    FOREIGN KEY(author_id) REFERENCES users(id),
    UNIQUE (page_id, version)
);

-- Comments are visitor posts on a page.
CREATE TABLE IF NOT EXISTS comments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    page_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    comment TEXT NOT NULL,
    is_spam INTEGER NOT NULL DEFAULT 0,
    needs_moderation INTEGER NOT NULL DEFAULT 0,
    author_ip TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY(page_id) REFERENCES pages(id)
);

CREATE INDEX IF NOT EXISTS comments_page_created ON comments(page_id, created_at);

-- Attachments are uploaded files referenced from page content.
CREATE TABLE IF NOT EXISTS attachments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    filename TEXT NOT NULL,
    unique_filename TEXT NOT NULL,
    mime_type TEXT,
    size INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
