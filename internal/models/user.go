package models

// ContextKey is a type for context keys set by the web middleware.
type ContextKey string

// UserKey is the context key for storing the current user.
const UserKey ContextKey = "folio.user"

// User is an author or administrator.
type User struct {
	ID          int
	Username    string
	DisplayName string
	IsAdmin     bool
}
