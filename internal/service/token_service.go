package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// --- Error Definitions ---
var (
	ErrTokenGeneration = errors.New("failed to generate session token")
	ErrInvalidToken    = errors.New("invalid session token")
	ErrTokenExpired    = errors.New("session token has expired")
)

const tokenIssuer = "fitness-coach" // Checked on verify

// TokenService issues and verifies signed session tokens. When no secret is
// configured the service is disabled: Issue returns an empty token and callers
// should skip verification.
type TokenService interface {
	Enabled() bool
	Issue(sessionID string) (string, error)
	Verify(token string) (sessionID string, err error)
}

// --- Service Implementation ---

// tokenService implements the TokenService interface.
type tokenService struct {
	secret []byte // Empty disables the service
	ttl    time.Duration
}

// NewTokenService creates a token service. An empty secret disables it.
func NewTokenService(secret string, ttl time.Duration) TokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour // Default to a day if not set properly
	}
	return &tokenService{secret: []byte(secret), ttl: ttl}
}

// Enabled reports whether a secret is configured.
func (s *tokenService) Enabled() bool {
	return len(s.secret) > 0
}

// Issue signs an HS256 token whose subject is the session id.
func (s *tokenService) Issue(sessionID string) (string, error) {
	if !s.Enabled() {
		return "", nil
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    tokenIssuer,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", ErrTokenGeneration
	}
	return signed, nil
}

// Verify checks the signature and expiry and returns the session id.
func (s *tokenService) Verify(tokenString string) (string, error) {
	if !s.Enabled() {
		return "", ErrInvalidToken
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Validate the alg is what we expect
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" || claims.Issuer != tokenIssuer {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
