// Package auth mints, validates and refreshes the access/refresh token pair
// and manages the cookies that carry it.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kasundularaam/flash-feather-starter-v6/internal/store"
	"github.com/kasundularaam/flash-feather-starter-v6/types"
)

// Config is the explicit configuration of the auth service.
type Config struct {
	Secret       string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	CookieSecure bool
}

// UserLookup resolves token subjects to users.
type UserLookup interface {
	GetByID(ctx context.Context, id int) (types.User, error)
}

// Session is the outcome of a successful validation. Tokens is set only when
// the pair was rotated and must be written back to the client.
type Session struct {
	User   types.User
	Tokens *TokenPair
}

// Refreshed reports whether a new token pair was minted.
func (s *Session) Refreshed() bool {
	return s != nil && s.Tokens != nil
}

type Option func(*Service)

// WithClock overrides the time source used for minting and validation.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// Service issues and checks token pairs. It holds no per-request state.
type Service struct {
	cfg    Config
	secret []byte
	users  UserLookup
	hasher Hasher
	now    func() time.Time
	logger *slog.Logger
}

func NewService(cfg Config, users UserLookup, hasher Hasher, opts ...Option) *Service {
	if hasher == nil {
		hasher = BcryptHasher{}
	}
	s := &Service{
		cfg:    cfg,
		secret: []byte(cfg.Secret),
		users:  users,
		hasher: hasher,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateAndRefreshToken resolves the user behind an access token. An expired
// access token is refreshed only when it came from a cookie and a refresh
// token is available; header tokens never refresh. Every failure yields nil.
func (s *Service) ValidateAndRefreshToken(ctx context.Context, accessToken, refreshToken string, fromCookie bool) *Session {
	userID, err := s.parseSubject(accessToken)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && fromCookie && refreshToken != "" {
			return s.RefreshAccessToken(ctx, refreshToken)
		}
		s.logger.DebugContext(ctx, "access token rejected", "error", err, "from_cookie", fromCookie)
		return nil
	}

	user, ok := s.lookupUser(ctx, userID)
	if !ok {
		return nil
	}
	return &Session{User: user}
}

// RefreshAccessToken rotates both tokens when the refresh token is valid and
// its subject still exists.
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) *Session {
	userID, err := s.parseSubject(refreshToken)
	if err != nil {
		s.logger.DebugContext(ctx, "refresh token rejected", "error", err)
		return nil
	}

	user, ok := s.lookupUser(ctx, userID)
	if !ok {
		return nil
	}

	tokens, err := s.CreateTokens(user.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to mint refreshed tokens", "error", err, "user_id", user.ID)
		return nil
	}
	return &Session{User: user, Tokens: &tokens}
}

func (s *Service) lookupUser(ctx context.Context, userID int) (types.User, bool) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.ErrorContext(ctx, "failed to load token subject", "error", err, "user_id", userID)
		}
		return types.User{}, false
	}
	return user, true
}
