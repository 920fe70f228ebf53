package models

// ProviderLocal is the username/password identity provider.
const ProviderLocal = "local"

// Identity is one way for a user to sign in.
type Identity struct {
	ID             int
	UserID         int
	Provider       string
	ProviderUserID string
	PasswordHash   *string
}
