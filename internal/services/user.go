package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/kasundularaam/flash-feather-starter-v6/internal/oauth"
	"github.com/kasundularaam/flash-feather-starter-v6/internal/store"
	"github.com/kasundularaam/flash-feather-starter-v6/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByName(ctx context.Context, name string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateProfilePicture(ctx context.Context, id int, picture *string) (types.User, error)
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *UserService) GetByName(ctx context.Context, name string) (types.User, error) {
	return s.repo.GetByName(ctx, name)
}

// CreateLocal stores a password account with the default role.
func (s *UserService) CreateLocal(ctx context.Context, name, email, passwordHash string) (types.User, error) {
	return s.repo.Create(ctx, types.User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
		AuthProvider: types.AuthProviderLocal,
		Role:         types.RoleUser,
	})
}

// BindOAuthIdentity returns the user owning the identity's email, creating a
// Google account on first sight. An existing account only ever has its
// profile picture refreshed; name, role and provider stay as they are.
// created reports whether a new row was inserted.
func (s *UserService) BindOAuthIdentity(ctx context.Context, identity oauth.Identity) (user types.User, created bool, err error) {
	existing, err := s.repo.GetByEmail(ctx, identity.Email)
	switch {
	case err == nil:
		if identity.Picture == "" || pictureEquals(existing.ProfilePicture, identity.Picture) {
			return existing, false, nil
		}
		picture := identity.Picture
		updated, err := s.repo.UpdateProfilePicture(ctx, existing.ID, &picture)
		if err != nil {
			return types.User{}, false, fmt.Errorf("update profile picture: %w", err)
		}
		return updated, false, nil
	case !errors.Is(err, store.ErrNotFound):
		return types.User{}, false, fmt.Errorf("lookup user by email: %w", err)
	}

	user = types.User{
		Name:         identity.Name,
		Email:        identity.Email,
		IsActive:     true,
		AuthProvider: types.AuthProviderGoogle,
		Role:         types.RoleUser,
	}
	if identity.Picture != "" {
		picture := identity.Picture
		user.ProfilePicture = &picture
	}

	user, err = s.repo.Create(ctx, user)
	if err != nil {
		return types.User{}, false, fmt.Errorf("create oauth user: %w", err)
	}
	return user, true, nil
}

func pictureEquals(current *string, next string) bool {
	return current != nil && *current == next
}
