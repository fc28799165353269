package authserver

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/daisi-token-relay/internal/adapters/config"
	"gitlab.com/timkado/api/daisi-token-relay/internal/domain"
	"gitlab.com/timkado/api/daisi-token-relay/pkg/crypto"
)

type staticProvider struct {
	cfg *config.Config
}

func (p staticProvider) Get() *config.Config { return p.cfg }

type clientFixture struct {
	client     *Client
	relayPriv  *rsa.PrivateKey
	serverPriv *rsa.PrivateKey
}

func newClientFixture(t *testing.T, serverURL string) *clientFixture {
	t.Helper()

	relayPriv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	serverPriv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	cfg := staticProvider{cfg: &config.Config{
		AuthServer: config.AuthServerConfig{URL: serverURL, TimeoutSeconds: 5},
	}}
	client, err := NewClient(domain.NopLogger{}, cfg, &serverPriv.PublicKey, relayPriv)
	require.NoError(t, err)

	return &clientFixture{client: client, relayPriv: relayPriv, serverPriv: serverPriv}
}

// buildArchive produces the two-member response body the auth server
// sends: an OAEP-wrapped session key plus the AES-encrypted auth data.
func buildArchive(t *testing.T, relayPub *rsa.PublicKey, authData domain.AuthData, members ...string) []byte {
	t.Helper()

	sessionCipher, err := crypto.NewAESCipher()
	require.NoError(t, err)
	wrappedKey, err := crypto.EncryptOAEP(relayPub, sessionCipher.Key())
	require.NoError(t, err)
	payload, err := json.Marshal(authData)
	require.NoError(t, err)
	sessionBlob, err := sessionCipher.Encrypt(payload)
	require.NoError(t, err)

	if len(members) == 0 {
		members = []string{archiveMemberKey, archiveMemberSessionData}
	}
	content := map[string][]byte{
		archiveMemberKey:         wrappedKey,
		archiveMemberSessionData: sessionBlob,
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range members {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(content[name])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestFetchDecryptsArchive(t *testing.T) {
	authData := domain.AuthData{
		"id_token":     "MOCK_ID_TOKEN",
		"access_token": "MOCK_ACCESS_TOKEN",
		"email":        "MOCK_EMAIL",
	}

	var fx *clientFixture
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The request envelope must unwrap with the server's private key,
		// proving the payload was OAEP-encrypted for this server.
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var env envelope
		require.NoError(t, json.Unmarshal(body, &env))
		wrapped, err := base64.StdEncoding.DecodeString(env.Payload)
		require.NoError(t, err)
		_, err = crypto.DecryptOAEP(fx.serverPriv, wrapped)
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(buildArchive(t, &fx.relayPriv.PublicKey, authData))
	}))
	defer srv.Close()
	fx = newClientFixture(t, srv.URL)

	got, err := fx.client.Fetch(context.Background(), "MOCK_SESSION_ID")
	require.NoError(t, err)
	assert.Equal(t, authData, got)
}

func TestFetchMissingArchiveMember(t *testing.T) {
	for _, keep := range []string{archiveMemberKey, archiveMemberSessionData} {
		var fx *clientFixture
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(buildArchive(t, &fx.relayPriv.PublicKey, domain.AuthData{"id_token": "x"}, keep))
		}))
		fx = newClientFixture(t, srv.URL)

		_, err := fx.client.Fetch(context.Background(), "MOCK_SESSION_ID")
		assert.ErrorIs(t, err, ErrMalformedArchive)
		srv.Close()
	}
}

func TestFetchNotAnArchive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("definitely not a zip"))
	}))
	defer srv.Close()
	fx := newClientFixture(t, srv.URL)

	_, err := fx.client.Fetch(context.Background(), "MOCK_SESSION_ID")
	assert.ErrorIs(t, err, ErrMalformedArchive)
}

func TestFetchBlockedJSONMapsToSessionUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "BLOCKED", "reason": "REJECTED_REQUEST"}`))
	}))
	defer srv.Close()
	fx := newClientFixture(t, srv.URL)

	_, err := fx.client.Fetch(context.Background(), "UNKNOWN_SESSION_ID")
	assert.ErrorIs(t, err, domain.ErrSessionUnknown)
}

func TestFetchRejectionStatusMapsToSessionUnknown(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		fx := newClientFixture(t, srv.URL)

		_, err := fx.client.Fetch(context.Background(), "UNKNOWN_SESSION_ID")
		assert.ErrorIs(t, err, domain.ErrSessionUnknown, "status %d", status)
		srv.Close()
	}
}

func TestFetchServerErrorIsNotSessionUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	fx := newClientFixture(t, srv.URL)

	_, err := fx.client.Fetch(context.Background(), "MOCK_SESSION_ID")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.NotErrorIs(t, err, domain.ErrSessionUnknown)
}

func TestFetchWrongRelayKeyFailsLoudly(t *testing.T) {
	otherPriv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Archive wrapped for a key the relay does not hold.
		_, _ = w.Write(buildArchive(t, &otherPriv.PublicKey, domain.AuthData{"id_token": "x"}))
	}))
	defer srv.Close()
	fx := newClientFixture(t, srv.URL)

	_, err = fx.client.Fetch(context.Background(), "MOCK_SESSION_ID")
	require.Error(t, err)
	assert.ErrorIs(t, err, crypto.ErrOAEPDecryptFailed)
}

func TestNewClientRequiresURL(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	_, err = NewClient(domain.NopLogger{}, staticProvider{cfg: &config.Config{}}, &priv.PublicKey, priv)
	assert.Error(t, err)
}
