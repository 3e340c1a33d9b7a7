package auth

import (
	"net/http"
	"time"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// SetAuthCookies writes both tokens as HTTP-only, same-site cookies whose
// max age matches each token's own lifetime.
func (s *Service) SetAuthCookies(w http.ResponseWriter, tokens TokenPair) {
	http.SetCookie(w, s.cookie(AccessTokenCookie, tokens.AccessToken, s.cfg.AccessTTL))
	http.SetCookie(w, s.cookie(RefreshTokenCookie, tokens.RefreshToken, s.cfg.RefreshTTL))
}

// ClearAuthCookies expires both auth cookies.
func (s *Service) ClearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		c := s.cookie(name, "", 0)
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

// IssueSession mints a token pair for the user and sets it on the response.
func (s *Service) IssueSession(w http.ResponseWriter, userID int) (TokenPair, error) {
	tokens, err := s.CreateTokens(userID)
	if err != nil {
		return TokenPair{}, err
	}
	s.SetAuthCookies(w, tokens)
	return tokens, nil
}

func (s *Service) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
