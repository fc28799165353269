package http

import (
	"context"
	"net/http"

	"gitlab.com/timkado/api/daisi-token-relay/internal/application"
	"gitlab.com/timkado/api/daisi-token-relay/internal/domain"
	"gitlab.com/timkado/api/daisi-token-relay/pkg/contextkeys"
	"gitlab.com/timkado/api/daisi-token-relay/pkg/crypto"
)

const (
	sessionIDCookieName = "session_id"
	tokenTypeQueryParam = "token_type"
)

// TokenHandler serves GET /v1/token: it extracts the session_id cookie and
// optional token_type parameter, runs the resolver, and writes the single
// terminal outcome.
func TokenHandler(resolver *application.TokenResolver, logger domain.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := ""
		if cookie, err := r.Cookie(sessionIDCookieName); err == nil {
			sessionID = cookie.Value
		}
		tokenType := r.URL.Query().Get(tokenTypeQueryParam)

		ctx := r.Context()
		if sessionID != "" {
			// Only the hash ever reaches logs.
			ctx = context.WithValue(ctx, contextkeys.SessionIDHashKey, crypto.Sha256Hex(sessionID))
		}
		if tokenType != "" {
			ctx = context.WithValue(ctx, contextkeys.TokenTypeKey, tokenType)
		}

		outcome := resolver.Resolve(ctx, sessionID, tokenType)
		if outcome.Blocked {
			logger.Info(ctx, "Token request blocked", "reason", outcome.Reason, "status", outcome.HTTPStatus)
		}
		outcome.Write(w)
	}
}
