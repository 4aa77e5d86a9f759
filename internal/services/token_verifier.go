package services

import (
	"context"
	"crypto/sha256"
	"errors"
	"sync"
	"time"

	"github.com/huangang/taskdesk/internal/config"
	"github.com/huangang/taskdesk/internal/upstream"
	"github.com/huangang/taskdesk/internal/utils"
	"github.com/huangang/taskdesk/pkg/logger"
)

// ErrTokenRejected means the task API refused the token.
var ErrTokenRejected = errors.New("token rejected by task API")

const maxVerifiedTokens = 1024

// TokenVerifier decides whether a token is genuine before taskdesk answers
// from its own data. With a shared secret the signature is checked locally.
// Without one, the task API is asked once with a cheap authenticated call
// and a positive answer is cached until the token expires or the cache
// window ends, whichever is first.
type TokenVerifier struct {
	api    *upstream.Client
	secret string
	ttl    time.Duration
	now    func() time.Time

	mu       sync.Mutex
	verified map[[sha256.Size]byte]time.Time
}

func NewTokenVerifier(api *upstream.Client, cfg config.AuthConfig) *TokenVerifier {
	ttl := time.Duration(cfg.VerifyCacheSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &TokenVerifier{
		api:      api,
		secret:   cfg.TokenSecret,
		ttl:      ttl,
		now:      time.Now,
		verified: make(map[[sha256.Size]byte]time.Time),
	}
}

// Verify returns the token's claims once it is known to be genuine.
// utils.ErrTokenExpired, utils.ErrTokenMalformed, utils.ErrTokenSignature and
// ErrTokenRejected mean the caller is not authenticated; any other error
// means the task API could not be asked.
func (v *TokenVerifier) Verify(ctx context.Context, token string) (*utils.TokenInfo, error) {
	if v.secret != "" {
		return utils.VerifyToken(token, v.secret)
	}

	info, err := utils.InspectToken(token)
	if err != nil {
		return info, err
	}

	key := sha256.Sum256([]byte(token))
	now := v.now()
	if v.cached(key, now) {
		return info, nil
	}

	if _, err := v.api.ListUsers(ctx, upstream.Credential{Token: token}); err != nil {
		if upstream.IsKind(err, upstream.KindUnauthorized) || upstream.IsKind(err, upstream.KindForbidden) {
			logger.Warn().Str("subject", info.Subject).Msg("token rejected by task API")
			return nil, ErrTokenRejected
		}
		return nil, err
	}

	until := now.Add(v.ttl)
	if !info.ExpiresAt.IsZero() && info.ExpiresAt.Before(until) {
		until = info.ExpiresAt
	}
	v.remember(key, until, now)
	return info, nil
}

func (v *TokenVerifier) cached(key [sha256.Size]byte, now time.Time) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	until, ok := v.verified[key]
	if ok && !now.Before(until) {
		delete(v.verified, key)
		return false
	}
	return ok
}

func (v *TokenVerifier) remember(key [sha256.Size]byte, until, now time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.verified) >= maxVerifiedTokens {
		for k, exp := range v.verified {
			if !now.Before(exp) {
				delete(v.verified, k)
			}
		}
	}
	if len(v.verified) < maxVerifiedTokens {
		v.verified[key] = until
	}
}

// Cached reports how many tokens are currently remembered as genuine.
func (v *TokenVerifier) Cached() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.verified)
}
