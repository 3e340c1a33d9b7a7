package handlers

import (
	"net/http"
	"strings"

	"github.com/kasundularaam/flash-feather-starter-v6/internal/auth"
)

// LogoutPath always bypasses authentication so logout succeeds whatever the
// state of the client's tokens.
const LogoutPath = "/api/auth/logout"

// Authenticate resolves the request's user once, before the handler runs.
//
// The access token comes from the access_token cookie, falling back to a
// bearer header; the refresh token only ever comes from its cookie. Only
// cookie-sourced access tokens are refreshed when expired. A rotated pair is
// written to the response cookies before the handler is invoked. Requests
// that fail to authenticate pass through without a user.
func Authenticate(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == LogoutPath {
				next.ServeHTTP(w, r)
				return
			}

			accessToken, fromCookie := accessToken(r)
			refreshToken := cookieValue(r, auth.RefreshTokenCookie)

			var session *auth.Session
			switch {
			case accessToken != "":
				session = authService.ValidateAndRefreshToken(r.Context(), accessToken, refreshToken, fromCookie)
			case refreshToken != "":
				session = authService.RefreshAccessToken(r.Context(), refreshToken)
			}

			if session == nil {
				next.ServeHTTP(w, r)
				return
			}
			if session.Refreshed() {
				authService.SetAuthCookies(w, *session.Tokens)
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), session.User)))
		})
	}
}

func accessToken(r *http.Request) (token string, fromCookie bool) {
	if v := cookieValue(r, auth.AccessTokenCookie); v != "" {
		return v, true
	}
	return bearerToken(r), false
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
