package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var errMissingSubject = errors.New("missing subject")

// TokenPair is an access token and the refresh token minted alongside it.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// CreateTokens mints a fresh access/refresh pair for the user.
// Both tokens carry only the subject and expiry.
func (s *Service) CreateTokens(userID int) (TokenPair, error) {
	now := s.now()

	access, err := s.signToken(userID, now.Add(s.cfg.AccessTTL))
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.signToken(userID, now.Add(s.cfg.RefreshTTL))
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) signToken(userID int, expiresAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(userID),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// parseSubject verifies the signature and expiry and returns the user id.
// An expired token yields an error matching jwt.ErrTokenExpired.
func (s *Service) parseSubject(tokenString string) (int, error) {
	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return 0, err
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return 0, errMissingSubject
	}
	userID, err := strconv.Atoi(subject)
	if err != nil || userID < 1 {
		return 0, fmt.Errorf("invalid subject %q", subject)
	}
	return userID, nil
}
