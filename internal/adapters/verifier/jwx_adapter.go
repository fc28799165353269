package verifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"gitlab.com/timkado/api/daisi-token-relay/internal/adapters/config"
	"gitlab.com/timkado/api/daisi-token-relay/internal/domain"
)

// JWXAdapter implements domain.ClaimsVerifier using lestrrat-go/jwx: the
// identity token's signature is checked against a JWKS key set and its
// registered claims validated (expiry, optional issuer/audience). The
// resolver only sees the resulting claims mapping.
type JWXAdapter struct {
	logger   domain.Logger
	keySet   jwk.Set
	issuer   string
	audience string
}

// NewJWXAdapter creates a verifier backed by the configured JWKS URL. The
// key set auto-refreshes in the background for the life of appCtx.
func NewJWXAdapter(appCtx context.Context, logger domain.Logger, cfgProvider config.Provider) (*JWXAdapter, error) {
	if logger == nil {
		panic("logger is nil in NewJWXAdapter")
	}
	vCfg := cfgProvider.Get().Verifier
	if vCfg.JWKSURL == "" {
		return nil, errors.New("verifier.jwks_url is not configured")
	}

	cache := jwk.NewCache(appCtx)
	if err := cache.Register(vCfg.JWKSURL); err != nil {
		return nil, fmt.Errorf("failed to register JWKS URL %q: %w", vCfg.JWKSURL, err)
	}
	if _, err := cache.Refresh(appCtx, vCfg.JWKSURL); err != nil {
		return nil, fmt.Errorf("initial JWKS fetch from %q failed: %w", vCfg.JWKSURL, err)
	}

	return &JWXAdapter{
		logger:   logger,
		keySet:   jwk.NewCachedSet(cache, vCfg.JWKSURL),
		issuer:   vCfg.Issuer,
		audience: vCfg.Audience,
	}, nil
}

// NewJWXAdapterWithKeySet creates a verifier around a static key set.
// Used by tests and by deployments that pin the identity provider's keys.
func NewJWXAdapterWithKeySet(logger domain.Logger, keySet jwk.Set, issuer, audience string) *JWXAdapter {
	if logger == nil {
		panic("logger is nil in NewJWXAdapterWithKeySet")
	}
	return &JWXAdapter{logger: logger, keySet: keySet, issuer: issuer, audience: audience}
}

// Verify parses and validates the identity token and returns its claims.
// Expiry is reported as domain.ErrTokenExpired so the resolver can map it
// to its dedicated rejection code.
func (a *JWXAdapter) Verify(ctx context.Context, idToken string) (domain.Claims, error) {
	if idToken == "" {
		return nil, errors.New("identity token is empty")
	}

	opts := []jwt.ParseOption{
		jwt.WithContext(ctx),
		jwt.WithKeySet(a.keySet),
		jwt.WithValidate(true),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	if a.audience != "" {
		opts = append(opts, jwt.WithAudience(a.audience))
	}

	tok, err := jwt.Parse([]byte(idToken), opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired()) {
			return nil, fmt.Errorf("%w: %v", domain.ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("identity token verification failed: %w", err)
	}

	claims := domain.Claims{}
	for k, v := range tok.PrivateClaims() {
		claims[k] = v
	}
	if sub := tok.Subject(); sub != "" {
		claims["sub"] = sub
	}
	if iss := tok.Issuer(); iss != "" {
		claims["iss"] = iss
	}
	if !tok.Expiration().IsZero() {
		claims["exp"] = tok.Expiration()
	}
	return claims, nil
}
