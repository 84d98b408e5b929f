package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/templodoabismo/pluma/internal/usecase"
)

func TestGeminiCompleterReturnsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-2.5-flash:generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates": [{"content": {"role": "model",
			"parts": [{"text": "{\"title\":\"Vésper\",\"content\":\"texto\"}"}]}}]}`))
	}))
	defer srv.Close()

	c, err := NewGeminiCompleter(context.Background(), GeminiOptions{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "gemini-2.5-flash",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", c.Model())

	text, err := c.Complete(context.Background(), usecase.CompletionRequest{System: "s", Prompt: "p", MaxTokens: 100})
	require.NoError(t, err)
	assert.Equal(t, `{"title":"Vésper","content":"texto"}`, text)
}

func TestGeminiCompleterPropagatesServiceErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"code": 500, "message": "internal", "status": "INTERNAL"}}`))
	}))
	defer srv.Close()

	c, err := NewGeminiCompleter(context.Background(), GeminiOptions{APIKey: "k", BaseURL: srv.URL, Model: "m"})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), usecase.CompletionRequest{Prompt: "p"})
	assert.Error(t, err)
}
