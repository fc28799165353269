package cachekeys

import (
	"fmt"

	"gitlab.com/timkado/api/daisi-token-relay/pkg/crypto"
)

// AuthDataKey generates the shared-cache key for the auth data of a
// session. The session id is hashed so raw identifiers never appear in
// Redis keyspace listings or logs.
func AuthDataKey(sessionID string) string {
	return fmt.Sprintf("auth_data:%s", crypto.Sha256Hex(sessionID))
}
