package types

import "time"

// AuthProvider identifies where a user's identity originates.
type AuthProvider string

const (
	AuthProviderLocal  AuthProvider = "local"
	AuthProviderGoogle AuthProvider = "google"
)

// Role is stored on every user. Nothing in the auth flow branches on it yet.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents an account in the system.
// It contains identity, provider, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Name is the user's unique display name.
	Name string `json:"name" db:"name"`

	// Email is the user's unique email address.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// It is empty for accounts created through an OAuth provider
	// and is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// IsActive marks whether the account is enabled.
	IsActive bool `json:"is_active" db:"is_active"`

	// AuthProvider records how the account was first created.
	AuthProvider AuthProvider `json:"auth_provider" db:"auth_provider"`

	// Role indicates the user's authorization level ("user" or "admin").
	Role Role `json:"role" db:"role"`

	// ProfilePicture is an optional avatar URL, usually supplied by the OAuth provider.
	ProfilePicture *string `json:"profile_picture" db:"profile_picture"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
