package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockIdentityProvider struct {
	loginFunc    func(state string) string
	exchangeFunc func(ctx context.Context, code string) (Identity, error)
}

func (m *mockIdentityProvider) LoginURL(state string) string {
	return m.loginFunc(state)
}

func (m *mockIdentityProvider) Exchange(ctx context.Context, code string) (Identity, error) {
	return m.exchangeFunc(ctx, code)
}

func newMockProvider(identity Identity, err error) *mockIdentityProvider {
	return &mockIdentityProvider{
		loginFunc: func(state string) string {
			return "https://accounts.example.com/auth?state=" + url.QueryEscape(state)
		},
		exchangeFunc: func(_ context.Context, code string) (Identity, error) {
			if code != "good-code" {
				return Identity{}, errors.New("invalid_grant")
			}
			return identity, err
		},
	}
}

// loginAndCallback runs the redirect leg, then replays its cookies on a callback request.
func loginAndCallback(t *testing.T, a *Authenticator, code string, stateOverride *string) (Identity, error) {
	t.Helper()

	loginRec := httptest.NewRecorder()
	loginURL, err := a.LoginURL(loginRec, httptest.NewRequest(http.MethodGet, "/api/auth/google", nil))
	require.NoError(t, err)

	parsed, err := url.Parse(loginURL)
	require.NoError(t, err)
	state := parsed.Query().Get("state")
	require.NotEmpty(t, state)
	if stateOverride != nil {
		state = *stateOverride
	}

	q := url.Values{}
	q.Set("state", state)
	q.Set("code", code)
	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?"+q.Encode(), nil)
	for _, c := range loginRec.Result().Cookies() {
		req.AddCookie(c)
	}
	return a.Callback(httptest.NewRecorder(), req)
}

func TestAuthenticator_CallbackSuccess(t *testing.T) {
	want := Identity{Email: "user@example.com", Name: "User", Picture: "https://example.com/p.png"}
	a := NewAuthenticator(newMockProvider(want, nil), CookieStateStore{Secure: true})

	got, err := loginAndCallback(t, a, "good-code", nil)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAuthenticator_StateMismatch(t *testing.T) {
	a := NewAuthenticator(newMockProvider(Identity{Email: "user@example.com"}, nil), CookieStateStore{})

	forged := "forged-state"
	_, err := loginAndCallback(t, a, "good-code", &forged)
	require.ErrorIs(t, err, ErrAuthFailed)
	assert.ErrorIs(t, err, ErrStateMismatch)
}

func TestAuthenticator_MissingStateCookie(t *testing.T) {
	a := NewAuthenticator(newMockProvider(Identity{Email: "user@example.com"}, nil), CookieStateStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?state=abc&code=good-code", nil)
	_, err := a.Callback(httptest.NewRecorder(), req)
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestAuthenticator_ExchangeFailures(t *testing.T) {
	tests := []struct {
		name     string
		identity Identity
		err      error
		code     string
	}{
		{name: "provider rejects code", code: "bad-code"},
		{name: "network error", code: "good-code", err: errors.New("dial tcp: timeout")},
		{name: "missing email", code: "good-code", identity: Identity{Name: "No Email"}},
		{name: "empty code", code: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAuthenticator(newMockProvider(tt.identity, tt.err), CookieStateStore{})
			_, err := loginAndCallback(t, a, tt.code, nil)
			assert.ErrorIs(t, err, ErrAuthFailed)
		})
	}
}

func TestAuthenticator_ProviderError(t *testing.T) {
	a := NewAuthenticator(newMockProvider(Identity{Email: "user@example.com"}, nil), CookieStateStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?error=access_denied", nil)
	_, err := a.Callback(httptest.NewRecorder(), req)
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestCookieStateStore_ConsumeClearsCookie(t *testing.T) {
	store := CookieStateStore{Secure: true}

	saveRec := httptest.NewRecorder()
	require.NoError(t, store.Save(saveRec, nil, "state-1"))
	saved := saveRec.Result().Cookies()
	require.Len(t, saved, 1)
	assert.Equal(t, StateCookieName, saved[0].Name)
	assert.True(t, saved[0].HttpOnly)
	assert.Equal(t, int(defaultStateTTL.Seconds()), saved[0].MaxAge)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(saved[0])
	consumeRec := httptest.NewRecorder()
	require.NoError(t, store.Consume(consumeRec, req, "state-1"))

	cleared := consumeRec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Less(t, cleared[0].MaxAge, 0)

	assert.ErrorIs(t, store.Consume(httptest.NewRecorder(), req, ""), ErrStateMismatch)
}
