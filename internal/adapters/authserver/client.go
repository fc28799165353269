package authserver

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gitlab.com/timkado/api/daisi-token-relay/internal/adapters/config"
	"gitlab.com/timkado/api/daisi-token-relay/internal/adapters/metrics"
	"gitlab.com/timkado/api/daisi-token-relay/internal/domain"
	"gitlab.com/timkado/api/daisi-token-relay/pkg/crypto"
)

const (
	// Archive member names in the auth server's response.
	archiveMemberKey         = "key"
	archiveMemberSessionData = "session_data"

	// Response bodies larger than this are treated as protocol errors.
	maxResponseBytes = 10 << 20

	defaultTimeout = 10 * time.Second
)

var (
	ErrMalformedArchive = errors.New("auth server response archive is malformed")
	ErrUnexpectedStatus = errors.New("unexpected auth server response status")
)

// request is the plaintext payload encrypted for the auth server.
type request struct {
	SessionID string `json:"session_id"`
}

// envelope is the outer wire form of the encrypted request.
type envelope struct {
	Payload string `json:"payload"` // base64(RSA-OAEP(AES-CBC(request)))
}

// Client performs the hybrid-encrypted exchange with the remote
// authentication server: one synchronous call per uncached session id.
// Key material is loaded once and immutable for the client's lifetime.
type Client struct {
	logger        domain.Logger
	httpClient    *http.Client
	url           string
	serverPublic  *rsa.PublicKey
	privateKey    *rsa.PrivateKey
	requestCipher *crypto.AESCipher
}

// NewClient creates a Client. serverPublic wraps outbound payloads;
// privateKey unwraps the response key material. The HTTP client carries a
// bounded timeout (auth_server.timeout_seconds, default 10s) so a wedged
// auth server cannot pin relay goroutines indefinitely.
func NewClient(
	logger domain.Logger,
	cfgProvider config.Provider,
	serverPublic *rsa.PublicKey,
	privateKey *rsa.PrivateKey,
) (*Client, error) {
	if logger == nil {
		panic("logger is nil in NewClient")
	}
	if serverPublic == nil || privateKey == nil {
		return nil, errors.New("auth server client requires both key halves")
	}

	timeout := defaultTimeout
	url := ""
	if cfgProvider != nil && cfgProvider.Get() != nil {
		asCfg := cfgProvider.Get().AuthServer
		url = asCfg.URL
		if asCfg.TimeoutSeconds > 0 {
			timeout = time.Duration(asCfg.TimeoutSeconds) * time.Second
		}
	}
	if url == "" {
		return nil, errors.New("auth_server.url is not configured")
	}

	requestCipher, err := crypto.NewAESCipher()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize request cipher: %w", err)
	}

	return &Client{
		logger:        logger,
		httpClient:    &http.Client{Timeout: timeout},
		url:           url,
		serverPublic:  serverPublic,
		privateKey:    privateKey,
		requestCipher: requestCipher,
	}, nil
}

// Fetch implements domain.AuthDataFetcher: it encrypts the session id,
// posts it to the auth server, and decrypts the two-member response
// archive into AuthData. An unrecognized session id surfaces as
// domain.ErrSessionUnknown; everything else is an ordinary error.
func (c *Client) Fetch(ctx context.Context, sessionID string) (domain.AuthData, error) {
	started := time.Now()
	data, err := c.fetch(ctx, sessionID)
	metrics.ObserveAuthServerExchangeDuration(time.Since(started).Seconds())

	switch {
	case err == nil:
		metrics.IncrementAuthServerExchange("ok")
	case errors.Is(err, domain.ErrSessionUnknown):
		metrics.IncrementAuthServerExchange("rejected")
	default:
		metrics.IncrementAuthServerExchange("error")
	}
	return data, err
}

func (c *Client) fetch(ctx context.Context, sessionID string) (domain.AuthData, error) {
	body, err := c.buildRequestBody(sessionID)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build auth server request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth server request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read auth server response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		// fallthrough to archive handling below
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		c.logger.Info(ctx, "Auth server did not recognize session id", "status", resp.StatusCode)
		return nil, domain.ErrSessionUnknown
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	// A 200 can still be a rejection: the server answers BLOCKED as JSON
	// instead of an archive.
	if blockedResponse(resp.Header.Get("Content-Type"), raw) {
		c.logger.Info(ctx, "Auth server returned a BLOCKED response for session id")
		return nil, domain.ErrSessionUnknown
	}

	return c.decodeArchive(raw)
}

// buildRequestBody produces {"payload": base64(OAEP(server_pub, AES(session json)))}.
func (c *Client) buildRequestBody(sessionID string) ([]byte, error) {
	plaintext, err := json.Marshal(request{SessionID: sessionID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}
	symCT, err := c.requestCipher.Encrypt(plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt request payload: %w", err)
	}
	wrapped, err := crypto.EncryptOAEP(c.serverPublic, symCT)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap request payload: %w", err)
	}
	return json.Marshal(envelope{Payload: base64.StdEncoding.EncodeToString(wrapped)})
}

// decodeArchive unpacks the two named members, unwraps the session key
// with the relay's private key, and decrypts the session data into
// AuthData.
func (c *Client) decodeArchive(raw []byte) (domain.AuthData, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a zip archive: %v", ErrMalformedArchive, err)
	}

	members := make(map[string][]byte, 2)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: cannot open member %q: %v", ErrMalformedArchive, f.Name, err)
		}
		content, err := io.ReadAll(io.LimitReader(rc, maxResponseBytes))
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: cannot read member %q: %v", ErrMalformedArchive, f.Name, err)
		}
		members[f.Name] = content
	}

	keyBlob, ok := members[archiveMemberKey]
	if !ok {
		return nil, fmt.Errorf("%w: missing member %q", ErrMalformedArchive, archiveMemberKey)
	}
	sessionBlob, ok := members[archiveMemberSessionData]
	if !ok {
		return nil, fmt.Errorf("%w: missing member %q", ErrMalformedArchive, archiveMemberSessionData)
	}

	sessionKey, err := crypto.DecryptOAEP(c.privateKey, keyBlob)
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap session key: %w", err)
	}
	sessionCipher, err := crypto.NewAESCipherFromKey(sessionKey)
	if err != nil {
		return nil, fmt.Errorf("unwrapped session key is unusable: %w", err)
	}
	plaintext, err := sessionCipher.Decrypt(sessionBlob)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt session data: %w", err)
	}

	var authData domain.AuthData
	if err := json.Unmarshal(plaintext, &authData); err != nil {
		return nil, fmt.Errorf("failed to decode session data: %w", err)
	}
	return authData, nil
}

// blockedResponse reports whether a 200 body is the server's JSON BLOCKED
// answer rather than an archive.
func blockedResponse(contentType string, raw []byte) bool {
	if !strings.Contains(contentType, "application/json") && (len(raw) == 0 || raw[0] != '{') {
		return false
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return false
	}
	return body.Status == "BLOCKED"
}
