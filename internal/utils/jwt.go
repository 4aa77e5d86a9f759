package utils

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenSignature = errors.New("token signature is invalid")
)

// TokenInfo is what taskdesk can learn from an upstream token without the
// signing key: who it was issued for and until when.
type TokenInfo struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token is past its exp claim at now.
// Tokens without exp never expire here.
func (i *TokenInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// InspectToken reads the claims of a token issued by the task API. The
// signature is not verified; the task API does that on every call. This
// only lets taskdesk reject tokens that are already expired before making
// any upstream request.
func InspectToken(tokenString string) (*TokenInfo, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrTokenMalformed
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err != nil {
		return nil, ErrTokenMalformed
	}

	info := infoFromClaims(&claims)
	if info.Expired(time.Now()) {
		return info, ErrTokenExpired
	}
	return info, nil
}

// VerifyToken checks the HMAC signature of a task API token with the shared
// secret before reading its claims.
func VerifyToken(tokenString, secret string) (*TokenInfo, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" || secret == "" {
		return nil, ErrTokenMalformed
	}

	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	switch {
	case err == nil:
		return infoFromClaims(&claims), nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return infoFromClaims(&claims), ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return nil, ErrTokenSignature
	default:
		return nil, ErrTokenMalformed
	}
}

func infoFromClaims(claims *jwt.RegisteredClaims) *TokenInfo {
	info := &TokenInfo{Subject: claims.Subject}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info
}
