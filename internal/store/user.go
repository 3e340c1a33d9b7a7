package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kasundularaam/flash-feather-starter-v6/types"
)

// Unique index names from the users migration.
const (
	UsersNameKey  = "users_name_key"
	UsersEmailKey = "users_email_key"
)

const userColumns = `id, name, email, password_hash, is_active, auth_provider, role, profile_picture, created_at, updated_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) GetByName(ctx context.Context, name string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE name = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, name))
}

// Create inserts a user. A duplicate name or email yields an error matching ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (name, email, password_hash, is_active, auth_provider, role, profile_picture, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.IsActive,
		string(user.AuthProvider),
		string(user.Role),
		nullString(user.ProfilePicture),
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		return types.User{}, translateError(err)
	}
	return user, nil
}

// UpdateProfilePicture replaces only the profile picture of a user.
func (r *UserRepository) UpdateProfilePicture(ctx context.Context, id int, picture *string) (types.User, error) {
	const query = `
		UPDATE users
		SET profile_picture = $1,
			updated_at = $2
		WHERE id = $3
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, query, nullString(picture), time.Now(), id))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (types.User, error) {
	var (
		user     types.User
		provider string
		role     string
		picture  sql.NullString
	)
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.IsActive,
		&provider,
		&role,
		&picture,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	user.AuthProvider = types.AuthProvider(provider)
	user.Role = types.Role(role)
	if picture.Valid {
		user.ProfilePicture = &picture.String
	}
	return user, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
