package application

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the JWT claims carried by a session token. The registered
// ID claim holds the login session id.
type TokenClaims struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies HS256 session tokens.
type TokenCodec struct {
	secret []byte
}

// NewTokenCodec returns a codec that signs with the given secret.
func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{secret: []byte(secret)}
}

// Issue signs a token for the user backed by the login session id.
func (c *TokenCodec) Issue(user User, sessionID string, issuedAt, expiresAt time.Time) (string, error) {
	if c == nil || len(c.secret) == 0 {
		return "", fmt.Errorf("token codec not configured")
	}
	claims := TokenClaims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature and expiry of a token relative to now.
// Expired tokens yield ErrSessionExpired; every other failure yields ErrUnauthenticated.
func (c *TokenCodec) Parse(token string, now time.Time) (TokenClaims, error) {
	if c == nil || len(c.secret) == 0 {
		return TokenClaims{}, fmt.Errorf("token codec not configured")
	}

	var claims TokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return TokenClaims{}, ErrSessionExpired
		}
		return TokenClaims{}, ErrUnauthenticated
	}
	if claims.Subject == "" || claims.ID == "" {
		return TokenClaims{}, ErrUnauthenticated
	}
	return claims, nil
}
