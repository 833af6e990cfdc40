package pasteserver

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "momentum-pasted"

// TokenService issues and validates deletion tokens.
//
// A deletion token is a signed JWT whose subject is the paste id, handed out
// once at creation time. Whoever holds it may delete that paste early —
// there are no accounts, so possession of the token is the authorization.
// Token lifetime matches the paste retention window: once the paste expires
// on its own there is nothing left to delete.
type TokenService struct {
	secret   []byte
	lifetime time.Duration
}

// NewTokenService creates a TokenService signing with the given secret.
// The secret should be at least 32 bytes of random data in production.
func NewTokenService(secret string, lifetime time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("pasteserver: signing secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret), lifetime: lifetime}, nil
}

type deleteClaims struct {
	jwt.RegisteredClaims
}

// Generate signs a deletion token for the given paste id.
func (s *TokenService) Generate(pasteID string) (string, error) {
	now := time.Now()
	c := deleteClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   pasteID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("pasteserver: signing delete token: %w", err)
	}
	return signed, nil
}

// Validate verifies a deletion token and returns the paste id it authorizes.
// jwt.WithValidMethods pins HS256 so a forged "none"-algorithm token is
// rejected outright.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&deleteClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("pasteserver: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", errors.New("pasteserver: delete token expired")
		}
		return "", fmt.Errorf("pasteserver: invalid delete token: %w", err)
	}

	c, ok := token.Claims.(*deleteClaims)
	if !ok || !token.Valid || c.Subject == "" {
		return "", errors.New("pasteserver: invalid delete token claims")
	}
	return c.Subject, nil
}
