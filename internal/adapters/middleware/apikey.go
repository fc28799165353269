package middleware

import (
	"crypto/subtle"
	"net/http"

	"gitlab.com/timkado/api/daisi-token-relay/internal/adapters/config"
	"gitlab.com/timkado/api/daisi-token-relay/internal/domain"
)

const (
	apiKeyHeaderName = "X-API-Key"
	apiKeyQueryParam = "x-api-key"
)

// APIKeyAuthMiddleware gates the token endpoint behind a shared secret
// when auth.secret_token is configured. An empty secret disables the gate,
// matching deployments where the relay sits behind a trusted proxy.
// The key is accepted in the X-API-Key header or x-api-key query parameter.
func APIKeyAuthMiddleware(cfgProvider config.Provider, logger domain.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cfg := cfgProvider.Get()
			if cfg == nil || cfg.Auth.SecretToken == "" {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := r.Header.Get(apiKeyHeaderName)
			if apiKey == "" {
				apiKey = r.URL.Query().Get(apiKeyQueryParam)
			}

			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(cfg.Auth.SecretToken)) != 1 {
				logger.Warn(r.Context(), "API key authentication failed", "path", r.URL.Path)
				domain.Block(http.StatusUnauthorized, domain.ReasonRejectedRequest).Write(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
