package application

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"gitlab.com/timkado/api/daisi-token-relay/internal/adapters/config"
	"gitlab.com/timkado/api/daisi-token-relay/internal/adapters/metrics"
	"gitlab.com/timkado/api/daisi-token-relay/internal/domain"
	"gitlab.com/timkado/api/daisi-token-relay/pkg/cachekeys"
	"gitlab.com/timkado/api/daisi-token-relay/pkg/crypto"
	"gitlab.com/timkado/api/daisi-token-relay/pkg/lrucache"
)

const (
	defaultCacheMaxEntries = 128
	defaultSharedCacheTTL  = 300 * time.Second
)

// Opaque cookie value: cookie-safe characters, bounded length.
var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._~-]{1,256}$`)

// TokenResolver turns an inbound session id + token_type pair into exactly
// one Outcome. Auth data is fetched through a bounded memoizing LRU cache,
// so the auth-server exchange runs at most once per cached session id,
// then identity-token claims are verified before the requested field is
// released.
type TokenResolver struct {
	logger   domain.Logger
	cache    *lrucache.Memo[string, domain.AuthData]
	verifier domain.ClaimsVerifier
}

// NewTokenResolver creates a TokenResolver. fetcher performs the encrypted
// auth-server exchange; shared is the optional Redis-backed second-level
// store and may be nil.
func NewTokenResolver(
	logger domain.Logger,
	cfgProvider config.Provider,
	fetcher domain.AuthDataFetcher,
	verifier domain.ClaimsVerifier,
	shared domain.SharedAuthDataStore,
) (*TokenResolver, error) {
	if logger == nil {
		panic("logger is nil in NewTokenResolver")
	}
	if fetcher == nil {
		panic("fetcher is nil in NewTokenResolver")
	}
	if verifier == nil {
		panic("verifier is nil in NewTokenResolver")
	}

	maxEntries := defaultCacheMaxEntries
	sharedTTL := defaultSharedCacheTTL
	if cfgProvider != nil && cfgProvider.Get() != nil {
		cacheCfg := cfgProvider.Get().Cache
		if cacheCfg.MaxEntries > 0 {
			maxEntries = cacheCfg.MaxEntries
		}
		if cacheCfg.SharedTTLSeconds > 0 {
			sharedTTL = time.Duration(cacheCfg.SharedTTLSeconds) * time.Second
		}
	}

	produce := func(ctx context.Context, sessionID string) (domain.AuthData, error) {
		metrics.IncrementSessionCacheMiss()

		if shared != nil {
			key := cachekeys.AuthDataKey(sessionID)
			if data, err := shared.Get(ctx, key); err == nil {
				logger.Debug(ctx, "Auth data served from shared cache", "cache_key", key)
				return data, nil
			}
		}

		data, err := fetcher.Fetch(ctx, sessionID)
		if err != nil {
			return nil, err
		}

		if shared != nil {
			key := cachekeys.AuthDataKey(sessionID)
			if err := shared.Set(ctx, key, data, sharedTTL); err != nil {
				// Non-fatal: the in-process cache already holds the entry.
				logger.Warn(ctx, "Failed to write auth data to shared cache", "cache_key", key, "error", err.Error())
			}
		}
		return data, nil
	}

	cache, err := lrucache.New(maxEntries, produce, crypto.Sha256Hex)
	if err != nil {
		return nil, err
	}

	return &TokenResolver{
		logger:   logger,
		cache:    cache,
		verifier: verifier,
	}, nil
}

// Prime inserts auth data for a session id directly into the in-process
// cache, bypassing the fetcher.
func (r *TokenResolver) Prime(sessionID string, data domain.AuthData) {
	r.cache.Put(sessionID, data)
}

// Resolve runs the per-request state machine. Rules are evaluated in
// strict order and the first match wins; the result is always exactly one
// grant or one rejection.
func (r *TokenResolver) Resolve(ctx context.Context, sessionID, tokenType string) domain.Outcome {
	// 1. Session id must be present and well-formed.
	if !sessionIDPattern.MatchString(sessionID) {
		r.logger.Warn(ctx, "Token request without a usable session id")
		return r.finish(ctx, domain.Block(http.StatusOK, domain.ReasonBadSessionID))
	}

	// 2. Cache lookup, fetching from the auth server at most once per
	// cached session id.
	if r.cache.Contains(sessionID) {
		metrics.IncrementSessionCacheHit()
	}
	authData, err := r.cache.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionUnknown) {
			r.logger.Info(ctx, "Auth server rejected session id")
			return r.finish(ctx, domain.Block(http.StatusOK, domain.ReasonRejectedRequest))
		}
		r.logger.Error(ctx, "Auth data fetch failed", "error", err.Error())
		return r.finish(ctx, domain.Block(http.StatusInternalServerError, domain.ReasonUnknown))
	}

	// 3. Verify identity-token claims before releasing anything.
	claims, err := r.verifier.Verify(ctx, authData[domain.TokenTypeIDToken])
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) || strings.Contains(strings.ToLower(err.Error()), "expired") {
			r.logger.Info(ctx, "Identity token expired")
			return r.finish(ctx, domain.Block(http.StatusOK, domain.ReasonTokenExpired))
		}
		r.logger.Error(ctx, "Identity token verification failed", "error", err.Error())
		return r.finish(ctx, domain.Block(http.StatusInternalServerError, domain.ReasonUnknown))
	}
	if !claims.EmailVerified() {
		r.logger.Warn(ctx, "Identity token carries an unverified email")
		return r.finish(ctx, domain.Block(http.StatusInternalServerError, domain.ReasonBadEmail))
	}

	// 4. Field selection.
	if tokenType == "" {
		tokenType = domain.TokenTypeIDToken
	}
	if !tokenTypeAllowed(tokenType) {
		r.logger.Warn(ctx, "Unsupported token_type requested", "token_type", tokenType)
		return r.finish(ctx, domain.Block(http.StatusInternalServerError, domain.UnsupportedTokenTypeReason(tokenType)))
	}

	return r.finish(ctx, domain.Grant(tokenType, authData[tokenType]))
}

func (r *TokenResolver) finish(ctx context.Context, o domain.Outcome) domain.Outcome {
	if o.Blocked {
		metrics.IncrementRequests(outcomeLabel(o.Reason))
	} else {
		metrics.IncrementRequests("GRANTED")
		r.logger.Debug(ctx, "Token granted", "token_type", o.TokenType)
	}
	return o
}

// outcomeLabel keeps metric cardinality bounded: the dynamic
// unsupported-token-type reason collapses to one label value.
func outcomeLabel(reason string) string {
	switch reason {
	case domain.ReasonBadSessionID, domain.ReasonRejectedRequest,
		domain.ReasonTokenExpired, domain.ReasonBadEmail, domain.ReasonUnknown:
		return reason
	default:
		return "UNSUPPORTED_TOKEN_TYPE"
	}
}

func tokenTypeAllowed(tokenType string) bool {
	for _, t := range domain.AllowedTokenTypes {
		if t == tokenType {
			return true
		}
	}
	return false
}
