package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kasundularaam/flash-feather-starter-v6/internal/store"
	"github.com/kasundularaam/flash-feather-starter-v6/types"
)

const (
	testSecret     = "test-secret"
	testAccessTTL  = 60 * time.Second
	testRefreshTTL = time.Hour
)

type mockUsers struct {
	users map[int]types.User
	err   error
}

func (m *mockUsers) GetByID(_ context.Context, id int) (types.User, error) {
	if m.err != nil {
		return types.User{}, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time {
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestService(t *testing.T, users *mockUsers) (*Service, *testClock) {
	t.Helper()

	clock := &testClock{t: time.Unix(1_700_000_000, 0)}
	svc := NewService(Config{
		Secret:       testSecret,
		AccessTTL:    testAccessTTL,
		RefreshTTL:   testRefreshTTL,
		CookieSecure: true,
	}, users, BcryptHasher{Cost: bcrypt.MinCost}, WithClock(clock.Now))
	return svc, clock
}

func defaultUsers() *mockUsers {
	return &mockUsers{users: map[int]types.User{
		1: {ID: 1, Name: "alice", Email: "alice@example.com", AuthProvider: types.AuthProviderLocal, Role: types.RoleUser},
		2: {ID: 2, Name: "bob", Email: "bob@example.com", AuthProvider: types.AuthProviderGoogle, Role: types.RoleUser},
	}}
}

func TestCreateTokens_ValidateReturnsSameUser(t *testing.T) {
	svc, _ := newTestService(t, defaultUsers())

	for _, id := range []int{1, 2} {
		tokens, err := svc.CreateTokens(id)
		require.NoError(t, err)
		assert.NotEqual(t, tokens.AccessToken, tokens.RefreshToken)

		session := svc.ValidateAndRefreshToken(t.Context(), tokens.AccessToken, "", false)
		require.NotNil(t, session)
		assert.Equal(t, id, session.User.ID)
		assert.False(t, session.Refreshed())
	}
}

func TestCreateTokens_ClaimsCarrySubjectAndExpiry(t *testing.T) {
	svc, clock := newTestService(t, defaultUsers())

	tokens, err := svc.CreateTokens(1)
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(tokens.AccessToken, claims)
	require.NoError(t, err)
	assert.Len(t, claims, 2)
	assert.Equal(t, "1", claims["sub"])
	assert.EqualValues(t, clock.Now().Add(testAccessTTL).Unix(), claims["exp"])

	refreshClaims := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(tokens.RefreshToken, refreshClaims)
	require.NoError(t, err)
	assert.EqualValues(t, clock.Now().Add(testRefreshTTL).Unix(), refreshClaims["exp"])
}

func TestAccessTokenExpiryBoundary(t *testing.T) {
	svc, clock := newTestService(t, defaultUsers())
	tokens, err := svc.CreateTokens(1)
	require.NoError(t, err)

	clock.Advance(testAccessTTL - time.Second)
	assert.NotNil(t, svc.ValidateAndRefreshToken(t.Context(), tokens.AccessToken, "", false))

	clock.Advance(2 * time.Second)
	assert.Nil(t, svc.ValidateAndRefreshToken(t.Context(), tokens.AccessToken, "", false))
}

func TestExpiredCookieTokenRefreshes(t *testing.T) {
	svc, clock := newTestService(t, defaultUsers())
	issued, err := svc.CreateTokens(1)
	require.NoError(t, err)

	clock.Advance(testAccessTTL + time.Second)

	session := svc.ValidateAndRefreshToken(t.Context(), issued.AccessToken, issued.RefreshToken, true)
	require.NotNil(t, session)
	require.True(t, session.Refreshed())
	assert.Equal(t, 1, session.User.ID)
	assert.NotEqual(t, issued.AccessToken, session.Tokens.AccessToken)
	assert.NotEqual(t, issued.RefreshToken, session.Tokens.RefreshToken)

	again := svc.ValidateAndRefreshToken(t.Context(), session.Tokens.AccessToken, "", false)
	require.NotNil(t, again)
	assert.Equal(t, 1, again.User.ID)
}

func TestExpiredHeaderTokenDoesNotRefresh(t *testing.T) {
	svc, clock := newTestService(t, defaultUsers())
	issued, err := svc.CreateTokens(1)
	require.NoError(t, err)

	clock.Advance(testAccessTTL + time.Second)

	assert.Nil(t, svc.ValidateAndRefreshToken(t.Context(), issued.AccessToken, issued.RefreshToken, false))
}

func TestExpiredCookieTokenWithoutRefresh(t *testing.T) {
	svc, clock := newTestService(t, defaultUsers())
	issued, err := svc.CreateTokens(1)
	require.NoError(t, err)

	clock.Advance(testAccessTTL + time.Second)

	assert.Nil(t, svc.ValidateAndRefreshToken(t.Context(), issued.AccessToken, "", true))
}

func TestInvalidAccessTokenNeverRefreshes(t *testing.T) {
	svc, _ := newTestService(t, defaultUsers())
	tokens, err := svc.CreateTokens(1)
	require.NoError(t, err)

	foreign := NewService(Config{Secret: "other-secret", AccessTTL: testAccessTTL, RefreshTTL: testRefreshTTL}, defaultUsers(), nil)
	forged, err := foreign.CreateTokens(1)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "wrong signature", token: forged.AccessToken},
		{name: "malformed", token: "not-a-jwt"},
		{name: "tampered", token: tokens.AccessToken + "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, svc.ValidateAndRefreshToken(t.Context(), tt.token, tokens.RefreshToken, true))
		})
	}
}

func TestRejectsUnexpectedAlgorithm(t *testing.T) {
	svc, clock := newTestService(t, defaultUsers())

	claims := jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Minute)),
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	assert.Nil(t, svc.ValidateAndRefreshToken(t.Context(), unsigned, "", false))

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	assert.Nil(t, svc.ValidateAndRefreshToken(t.Context(), hs512, "", false))
}

func TestRejectsTokenWithoutExpiryOrSubject(t *testing.T) {
	svc, clock := newTestService(t, defaultUsers())

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "1"}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	assert.Nil(t, svc.ValidateAndRefreshToken(t.Context(), noExp, "", false))

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Minute)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	assert.Nil(t, svc.ValidateAndRefreshToken(t.Context(), noSub, "", false))
}

func TestMissingUserIsUnauthenticated(t *testing.T) {
	users := defaultUsers()
	svc, _ := newTestService(t, users)

	tokens, err := svc.CreateTokens(99)
	require.NoError(t, err)

	assert.Nil(t, svc.ValidateAndRefreshToken(t.Context(), tokens.AccessToken, tokens.RefreshToken, true))
	assert.Nil(t, svc.RefreshAccessToken(t.Context(), tokens.RefreshToken))
}

func TestStoreFailureFailsClosed(t *testing.T) {
	users := defaultUsers()
	svc, _ := newTestService(t, users)
	tokens, err := svc.CreateTokens(1)
	require.NoError(t, err)

	users.err = errors.New("connection refused")

	assert.Nil(t, svc.ValidateAndRefreshToken(t.Context(), tokens.AccessToken, "", false))
	assert.Nil(t, svc.RefreshAccessToken(t.Context(), tokens.RefreshToken))
}

func TestRefreshAccessToken(t *testing.T) {
	svc, clock := newTestService(t, defaultUsers())
	issued, err := svc.CreateTokens(2)
	require.NoError(t, err)

	clock.Advance(time.Minute * 30)

	session := svc.RefreshAccessToken(t.Context(), issued.RefreshToken)
	require.NotNil(t, session)
	require.True(t, session.Refreshed())
	assert.Equal(t, 2, session.User.ID)
	assert.NotEqual(t, issued.RefreshToken, session.Tokens.RefreshToken)

	clock.Advance(testRefreshTTL)
	assert.Nil(t, svc.RefreshAccessToken(t.Context(), issued.RefreshToken))
	assert.Nil(t, svc.RefreshAccessToken(t.Context(), "garbage"))
}

func TestSetAuthCookies(t *testing.T) {
	svc, _ := newTestService(t, defaultUsers())
	rec := httptest.NewRecorder()

	svc.SetAuthCookies(rec, TokenPair{AccessToken: "a", RefreshToken: "r"})

	cookies := cookiesByName(rec.Result().Cookies())
	require.Contains(t, cookies, AccessTokenCookie)
	require.Contains(t, cookies, RefreshTokenCookie)

	access := cookies[AccessTokenCookie]
	assert.Equal(t, "a", access.Value)
	assert.Equal(t, int(testAccessTTL.Seconds()), access.MaxAge)
	assert.True(t, access.HttpOnly)
	assert.True(t, access.Secure)
	assert.Equal(t, http.SameSiteLaxMode, access.SameSite)

	refresh := cookies[RefreshTokenCookie]
	assert.Equal(t, "r", refresh.Value)
	assert.Equal(t, int(testRefreshTTL.Seconds()), refresh.MaxAge)
	assert.True(t, refresh.HttpOnly)
}

func TestClearAuthCookies(t *testing.T) {
	svc, _ := newTestService(t, defaultUsers())
	rec := httptest.NewRecorder()

	svc.ClearAuthCookies(rec)

	cookies := cookiesByName(rec.Result().Cookies())
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		require.Contains(t, cookies, name)
		assert.Empty(t, cookies[name].Value)
		assert.Less(t, cookies[name].MaxAge, 0)
	}
}

func TestIssueSession(t *testing.T) {
	svc, _ := newTestService(t, defaultUsers())
	rec := httptest.NewRecorder()

	tokens, err := svc.IssueSession(rec, 1)
	require.NoError(t, err)

	cookies := cookiesByName(rec.Result().Cookies())
	assert.Equal(t, tokens.AccessToken, cookies[AccessTokenCookie].Value)
	assert.Equal(t, tokens.RefreshToken, cookies[RefreshTokenCookie].Value)
}

func TestPasswordHashing(t *testing.T) {
	svc, _ := newTestService(t, defaultUsers())

	hash, err := svc.HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)

	assert.True(t, svc.VerifyPassword(hash, "s3cret!"))
	assert.False(t, svc.VerifyPassword(hash, "wrong"))
	assert.False(t, svc.VerifyPassword("", ""))
	assert.False(t, svc.VerifyPassword("", "anything"))
}

func cookiesByName(cookies []*http.Cookie) map[string]*http.Cookie {
	out := make(map[string]*http.Cookie, len(cookies))
	for _, c := range cookies {
		out[c.Name] = c
	}
	return out
}
