package domain

import (
	"context"
	"errors"
)

// Token field names a caller may request via the token_type parameter.
const (
	TokenTypeAccessToken = "access_token"
	TokenTypeIDToken     = "id_token"
	TokenTypeEmail       = "email"
)

// AllowedTokenTypes is the closed set of requestable token fields, in the
// order they are reported in the unsupported-type rejection reason.
var AllowedTokenTypes = []string{TokenTypeAccessToken, TokenTypeIDToken, TokenTypeEmail}

// ErrSessionUnknown is returned by an AuthDataFetcher when the auth server
// does not recognize the presented session id.
var ErrSessionUnknown = errors.New("session id not recognized by auth server")

// AuthData is the decrypted token-field mapping produced by one exchange
// with the auth server. It carries at least id_token, access_token and
// email, is immutable once produced, and is the only thing the relay
// caches (outcomes never are).
type AuthData map[string]string

// AuthDataFetcher performs one exchange with the remote auth server for a
// session id. The resolver invokes it at most once per cached session id;
// memoization lives in the cache, not here.
type AuthDataFetcher interface {
	Fetch(ctx context.Context, sessionID string) (AuthData, error)
}

// ErrTokenExpired is returned by a ClaimsVerifier when the identity token's
// expiry has passed.
var ErrTokenExpired = errors.New("identity token has expired")

// Claims are the assertions extracted from a verified identity token.
type Claims map[string]any

// EmailVerified reports the token's email_verified claim; absent or
// non-boolean claims count as unverified.
func (c Claims) EmailVerified() bool {
	v, ok := c[ClaimEmailVerified].(bool)
	return ok && v
}

// ClaimEmailVerified is the claim key checked before releasing any token
// field to the caller.
const ClaimEmailVerified = "email_verified"

// ClaimsVerifier validates an identity token string and returns its claims.
// Implementations report expiry as ErrTokenExpired (or an error whose text
// mentions expiry); every other failure is treated as unknown upstream.
type ClaimsVerifier interface {
	Verify(ctx context.Context, idToken string) (Claims, error)
}
