package session

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/roach88/chefconnect/internal/clock"
)

const (
	tokenIssuer     = "chefconnect"
	purposeSession  = "session"
	purposeReset    = "password-reset"
	resetTokenTTL   = 30 * time.Minute
	defaultTokenTTL = 7 * 24 * time.Hour
)

// ErrInvalidToken is returned for tokens that fail verification.
var ErrInvalidToken = errors.New("session: invalid token")

// Claims are carried by session and password-reset tokens.
type Claims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// tokens signs and verifies HS256 tokens against an injectable clock.
type tokens struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

func (t *tokens) issue(u User, purpose string, ttl time.Duration) (string, error) {
	now := t.clock.Now().UTC()
	claims := Claims{
		Email:   u.Email,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (t *tokens) parse(raw, purpose string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(tok *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Purpose != purpose {
		return nil, fmt.Errorf("%w: wrong purpose %q", ErrInvalidToken, claims.Purpose)
	}
	return claims, nil
}
