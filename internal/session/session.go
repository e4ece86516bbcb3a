// Package session implements the session authority: issuing and verifying
// the signed bearer tokens that prove a caller's identity. Issuance is pure;
// nothing is persisted. The signing secret is injected at construction and
// never rotated during a process lifetime.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/secsky/secsky/backend/internal/common"
)

// DefaultLifetime is the token validity window. There is no refresh
// mechanism; clients re-authenticate when it elapses.
const DefaultLifetime = 30 * 24 * time.Hour

// Claims binds the user's id and email to the token.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
	Email  string `json:"email"`
}

// Authority signs and verifies session tokens with a process-wide HS256
// secret. Safe for concurrent use; the secret is read-only after construction.
type Authority struct {
	secret   []byte
	lifetime time.Duration
}

// NewAuthority creates an Authority with the given signing secret.
// A zero lifetime means DefaultLifetime.
func NewAuthority(secret []byte, lifetime time.Duration) *Authority {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	return &Authority{secret: secret, lifetime: lifetime}
}

// Issue returns a signed token for the given identity.
func (a *Authority) Issue(userID, email string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.lifetime)),
		},
		UserID: userID,
		Email:  email,
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token and returns the user id it binds.
// Any missing, malformed, expired or forged token yields ErrUnauthorized.
func (a *Authority) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", common.ErrUnauthorized
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return "", errors.Join(common.ErrUnauthorized, err)
	}
	if claims.UserID == "" {
		return "", common.ErrUnauthorized
	}
	return claims.UserID, nil
}
