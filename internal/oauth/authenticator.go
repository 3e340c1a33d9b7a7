package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrAuthFailed is the single condition surfaced for any failed exchange.
	ErrAuthFailed    = errors.New("auth failed")
	ErrStateMismatch = errors.New("oauth state mismatch")
)

// Identity is the verified profile returned by a provider.
type Identity struct {
	Email   string
	Name    string
	Picture string
}

// IdentityProvider turns an authorization code into an Identity.
type IdentityProvider interface {
	LoginURL(state string) string
	Exchange(ctx context.Context, code string) (Identity, error)
}

// StateStore keeps the anti-forgery state between the redirect and the callback.
type StateStore interface {
	Save(w http.ResponseWriter, r *http.Request, state string) error
	// Consume checks the state and invalidates it. It returns ErrStateMismatch
	// when the state is unknown or does not match.
	Consume(w http.ResponseWriter, r *http.Request, state string) error
}

// Authenticator runs the authorization code flow for one provider.
type Authenticator struct {
	provider IdentityProvider
	states   StateStore
}

func NewAuthenticator(provider IdentityProvider, states StateStore) *Authenticator {
	return &Authenticator{provider: provider, states: states}
}

// LoginURL stores a fresh state and returns the provider consent URL.
func (a *Authenticator) LoginURL(w http.ResponseWriter, r *http.Request) (string, error) {
	state := randState(32)
	if err := a.states.Save(w, r, state); err != nil {
		return "", fmt.Errorf("save state: %w", err)
	}
	return a.provider.LoginURL(state), nil
}

// Callback validates the state and exchanges the code. Every error wraps ErrAuthFailed.
func (a *Authenticator) Callback(w http.ResponseWriter, r *http.Request) (Identity, error) {
	q := r.URL.Query()
	if providerErr := q.Get("error"); providerErr != "" {
		return Identity{}, fmt.Errorf("%w: provider returned %s", ErrAuthFailed, providerErr)
	}

	if err := a.states.Consume(w, r, q.Get("state")); err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrAuthFailed, err)
	}

	code := strings.TrimSpace(q.Get("code"))
	if code == "" {
		return Identity{}, fmt.Errorf("%w: missing code", ErrAuthFailed)
	}

	identity, err := a.provider.Exchange(r.Context(), code)
	if err != nil {
		if errors.Is(err, ErrAuthFailed) {
			return Identity{}, err
		}
		return Identity{}, fmt.Errorf("%w: exchange: %w", ErrAuthFailed, err)
	}
	if identity.Email == "" {
		return Identity{}, fmt.Errorf("%w: provider returned no email", ErrAuthFailed)
	}
	return identity, nil
}

func randState(size int) string {
	b := make([]byte, size)

	// rand.Read never returns an error
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
