package githubapp

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zahidur-Rahman/Dev-Guardian/internal/retrier"
)

func writeTestKey(t *testing.T) (string, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "app.pem")
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))
	return path, key
}

func fastRetry() retrier.Policy {
	return retrier.Policy{MaxAttempts: 3, MinDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestNewAppAuthMissingKeyFile(t *testing.T) {
	_, err := NewAppAuth(12345, filepath.Join(t.TempDir(), "nope.pem"))
	assert.Error(t, err)
}

func TestNewAppAuthInvalidKeyMaterial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pem")
	require.NoError(t, os.WriteFile(path, []byte("not a key"), 0o600))

	_, err := NewAppAuth(12345, path)
	assert.Error(t, err)
}

func TestAppJWTClaims(t *testing.T) {
	path, key := writeTestKey(t)
	auth, err := NewAppAuth(12345, path)
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	signed, err := auth.AppJWT(now)
	require.NoError(t, err)

	claims := jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(signed, &claims, func(token *jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	}, jwt.WithoutClaimsValidation())
	require.NoError(t, err)

	assert.Equal(t, "12345", claims.Issuer)
	assert.Equal(t, now.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, now.Add(10*time.Minute).Unix(), claims.ExpiresAt.Unix())
}

func newTestTokenProvider(t *testing.T, handler http.Handler) *TokenProvider {
	t.Helper()
	path, _ := writeTestKey(t)
	auth, err := NewAppAuth(12345, path)
	require.NoError(t, err)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewTokenProvider(auth, 99, fastRetry())
	p.baseURL = srv.URL + "/"
	return p
}

func TestTokenMintsAndCaches(t *testing.T) {
	mints := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/app/installations/99/access_tokens", func(w http.ResponseWriter, r *http.Request) {
		mints++
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"token": "ghs_abc", "expires_at": "2099-01-01T00:00:00Z"}`))
	})
	p := newTestTokenProvider(t, mux)

	token, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ghs_abc", token)

	token, err = p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ghs_abc", token)
	assert.Equal(t, 1, mints)
}

func TestTokenRefreshesNearExpiry(t *testing.T) {
	mints := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/app/installations/99/access_tokens", func(w http.ResponseWriter, r *http.Request) {
		mints++
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"token": "ghs_fresh", "expires_at": "2099-01-01T00:00:00Z"}`))
	})
	p := newTestTokenProvider(t, mux)

	now := time.Now()
	p.token = InstallationToken{Value: "ghs_stale", ExpiresAt: now.Add(30 * time.Second)}

	token, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ghs_fresh", token)
	assert.Equal(t, 1, mints)
}

func TestTokenRetriesTransientFailures(t *testing.T) {
	attempts := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/app/installations/99/access_tokens", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			http.Error(w, `{"message": "flaky"}`, http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"token": "ghs_abc", "expires_at": "2099-01-01T00:00:00Z"}`))
	})
	p := newTestTokenProvider(t, mux)

	token, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ghs_abc", token)
	assert.Equal(t, 3, attempts)
}

func TestTokenDoesNotRetryAuthRejection(t *testing.T) {
	attempts := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/app/installations/99/access_tokens", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, `{"message": "bad credentials"}`, http.StatusUnauthorized)
	})
	p := newTestTokenProvider(t, mux)

	_, err := p.Token(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestInstallationTokenValidity(t *testing.T) {
	now := time.Now()

	assert.False(t, InstallationToken{}.Valid(now))
	assert.False(t, InstallationToken{Value: "t", ExpiresAt: now.Add(30 * time.Second)}.Valid(now))
	assert.True(t, InstallationToken{Value: "t", ExpiresAt: now.Add(time.Hour)}.Valid(now))
}
