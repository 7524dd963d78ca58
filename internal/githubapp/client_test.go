package githubapp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDiff = `diff --git a/main.go b/main.go
--- a/main.go
+++ b/main.go
@@ -1,3 +1,4 @@
+import "fmt"
`

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	mux.HandleFunc("/app/installations/99/access_tokens", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"token": "ghs_abc", "expires_at": "2099-01-01T00:00:00Z"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	path, _ := writeTestKey(t)
	auth, err := NewAppAuth(12345, path)
	require.NoError(t, err)

	tokens := NewTokenProvider(auth, 99, fastRetry())
	tokens.baseURL = srv.URL + "/"

	client := NewClient(tokens, fastRetry())
	client.baseURL = srv.URL + "/"
	return client
}

func pullRequestHandler(diff string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.Header.Get("Accept"), ".diff") {
			io.WriteString(w, diff)
			return
		}
		io.WriteString(w, `{"number": 42, "state": "open"}`)
	}
}

func TestFetchDiff(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/o/r/pulls/42", pullRequestHandler(testDiff))
	client := newTestClient(t, mux)

	diff, err := client.FetchDiff(context.Background(), "o/r", 42)
	require.NoError(t, err)
	assert.Equal(t, testDiff, diff)
}

func TestFetchDiffEmptyDiffIsNotAnError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/o/r/pulls/42", pullRequestHandler(""))
	client := newTestClient(t, mux)

	diff, err := client.FetchDiff(context.Background(), "o/r", 42)
	require.NoError(t, err)
	assert.Empty(t, diff)
}

func TestFetchDiffRetriesTransientFailure(t *testing.T) {
	failures := 2
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/o/r/pulls/42", func(w http.ResponseWriter, r *http.Request) {
		if failures > 0 {
			failures--
			http.Error(w, `{"message": "flaky"}`, http.StatusBadGateway)
			return
		}
		pullRequestHandler(testDiff)(w, r)
	})
	client := newTestClient(t, mux)

	diff, err := client.FetchDiff(context.Background(), "o/r", 42)
	require.NoError(t, err)
	assert.Equal(t, testDiff, diff)
}

func TestFetchDiffDoesNotRetryNotFound(t *testing.T) {
	attempts := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/o/r/pulls/42", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, `{"message": "not found"}`, http.StatusNotFound)
	})
	client := newTestClient(t, mux)

	_, err := client.FetchDiff(context.Background(), "o/r", 42)
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestFetchDiffInvalidFullName(t *testing.T) {
	client := newTestClient(t, http.NewServeMux())

	_, err := client.FetchDiff(context.Background(), "no-slash", 42)
	assert.Error(t, err)
}

func TestPostComment(t *testing.T) {
	var posted struct {
		Body string `json:"body"`
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/o/r/issues/42/comments", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id": 1}`)
	})
	client := newTestClient(t, mux)

	err := client.PostComment(context.Background(), "o/r", 42, "Nice change.")
	require.NoError(t, err)
	assert.Equal(t, "Nice change.", posted.Body)
}

func TestPostCommentExhaustsRetries(t *testing.T) {
	attempts := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/o/r/issues/42/comments", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, `{"message": "down"}`, http.StatusInternalServerError)
	})
	client := newTestClient(t, mux)

	err := client.PostComment(context.Background(), "o/r", 42, "body")
	assert.Error(t, err)
	assert.Equal(t, 3, attempts)
}
