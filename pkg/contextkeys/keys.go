package contextkeys

// contextKey is an unexported type for context keys to avoid collisions.
type contextKey string

const (
	// RequestIDKey is the context key for storing and retrieving a request ID.
	RequestIDKey contextKey = "request_id"

	// SessionIDHashKey is the context key for the hashed session id of the
	// current request. Only the hash is ever logged.
	SessionIDHashKey contextKey = "session_id_hash"

	// TokenTypeKey is the context key for the requested token type.
	TokenTypeKey contextKey = "token_type"
)

// String makes contextKey satisfy fmt.Stringer to help with debugging/logging of keys themselves.
func (c contextKey) String() string {
	return string(c)
}
