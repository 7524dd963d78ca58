package review

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := openai.NewClient(
		option.WithAPIKey("test-key"),
		option.WithBaseURL(srv.URL+"/"),
		option.WithMaxRetries(0),
	)
	return NewOpenAIProvider(client, "gpt-4o-mini")
}

func completionResponse(content string) string {
	return `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"model": "gpt-4o-mini",
		"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": ` + jsonString(content) + `}}]
	}`
}

func jsonString(s string) string {
	if s == "" {
		return `""`
	}
	return `"` + s + `"`
}

func TestOpenAIProviderReturnsReviewText(t *testing.T) {
	var requestBody string
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requestBody = string(body)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, completionResponse("Looks good overall."))
	})

	text, err := provider.Review(context.Background(), Request{Diff: "diff --git a/a b/a"})
	require.NoError(t, err)
	assert.Equal(t, "Looks good overall.", text)
	assert.Contains(t, requestBody, "diff --git a/a b/a")
	assert.NotContains(t, requestBody, strings.TrimSpace(truncationNote))
}

func TestOpenAIProviderDisclosesTruncation(t *testing.T) {
	var requestBody string
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requestBody = string(body)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, completionResponse("Partial review."))
	})

	_, err := provider.Review(context.Background(), Request{Diff: "truncated diff", Truncated: true})
	require.NoError(t, err)
	assert.Contains(t, requestBody, "truncated to fit the review size limit")
}

func TestOpenAIProviderReplacesEmptyReview(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, completionResponse(""))
	})

	text, err := provider.Review(context.Background(), Request{Diff: "some diff"})
	require.NoError(t, err)
	assert.Equal(t, Placeholder, text)
}

func TestOpenAIProviderPropagatesHTTPError(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "boom"}}`, http.StatusInternalServerError)
	})

	_, err := provider.Review(context.Background(), Request{Diff: "some diff"})
	assert.Error(t, err)
}
