package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockwatch/stockwatch/internal/common"
	"github.com/stockwatch/stockwatch/internal/llm"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func fakeCompletions(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body["model"])
		assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])

		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSummarizeStats(t *testing.T) {
	srv := fakeCompletions(t, http.StatusOK, `{"summary":"너트 is short by 7."}`)
	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL + "/"}, quietLogger)

	got, err := c.SummarizeStats(context.Background(), llm.SummaryRequest{FileGroup: "stock", LowStockCount: 1})
	require.NoError(t, err)
	assert.Equal(t, "너트 is short by 7.", got)
}

func TestSummarizeStatsErrors(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		srv := fakeCompletions(t, http.StatusTooManyRequests, `{}`)
		c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL}, quietLogger)
		_, err := c.SummarizeStats(context.Background(), llm.SummaryRequest{FileGroup: "stock"})
		assert.True(t, errors.Is(err, common.ErrUnavailable), "got %v", err)
	})
	t.Run("oversized body", func(t *testing.T) {
		srv := fakeCompletions(t, http.StatusOK, strings.Repeat("x", 512))
		c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL, MaxResponseBytes: 128}, quietLogger)
		_, err := c.SummarizeStats(context.Background(), llm.SummaryRequest{FileGroup: "stock"})
		var appErr *common.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "LLM_RESPONSE_TOO_LARGE", appErr.Code)
	})
	t.Run("off-schema answer", func(t *testing.T) {
		srv := fakeCompletions(t, http.StatusOK, `{"summary":""}`)
		c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL}, quietLogger)
		_, err := c.SummarizeStats(context.Background(), llm.SummaryRequest{FileGroup: "stock"})
		assert.Error(t, err)
	})
}

func TestConfigFrom(t *testing.T) {
	c := NewClient(ConfigFrom(common.LLMConfig{APIKey: "k", Model: "m"}), quietLogger)
	assert.Equal(t, DefaultBaseURL+"/chat/completions", c.endpoint())
	assert.Equal(t, "m", c.cfg.Model)
	assert.Equal(t, int64(llm.DefaultMaxResponseBytes), c.cfg.MaxResponseBytes)
}
