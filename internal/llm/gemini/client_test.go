package gemini

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

func fakeGenerate(t *testing.T, status int, text string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/"+DefaultModel+":generateContent"), r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gcfg, _ := body["generationConfig"].(map[string]any)
		assert.Equal(t, "application/json", gcfg["responseMimeType"])
		assert.NotNil(t, gcfg["responseJsonSchema"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"code": status, "message": "quota", "status": "RESOURCE_EXHAUSTED"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"role": "model", "parts": []any{map[string]any{"text": text}}},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), Config{APIKey: "test-key", BaseURL: baseURL}, quietLogger)
	require.NoError(t, err)
	return c
}

func TestSummarizeStats(t *testing.T) {
	srv := fakeGenerate(t, http.StatusOK, `{"summary":"볼트 is short by 8."}`)
	c := newTestClient(t, srv.URL)

	got, err := c.SummarizeStats(context.Background(), llm.SummaryRequest{FileGroup: "stock", LowStockCount: 1})
	require.NoError(t, err)
	assert.Equal(t, "볼트 is short by 8.", got)
}

func TestSummarizeStatsErrors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		srv := fakeGenerate(t, http.StatusBadRequest, "")
		c := newTestClient(t, srv.URL)
		_, err := c.SummarizeStats(context.Background(), llm.SummaryRequest{FileGroup: "stock"})
		var appErr *common.AppError
		require.True(t, errors.As(err, &appErr), "got %v", err)
		assert.Equal(t, "LLM_UNAVAILABLE", appErr.Code)
		assert.True(t, errors.Is(err, common.ErrUnavailable))
	})
	t.Run("off-schema answer", func(t *testing.T) {
		srv := fakeGenerate(t, http.StatusOK, `{"verdict":42}`)
		c := newTestClient(t, srv.URL)
		_, err := c.SummarizeStats(context.Background(), llm.SummaryRequest{FileGroup: "stock"})
		var appErr *common.AppError
		require.True(t, errors.As(err, &appErr), "got %v", err)
		assert.Equal(t, "LLM_BAD_ANSWER", appErr.Code)
	})
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(common.LLMConfig{Provider: "gemini", APIKey: "k", BaseURL: "http://localhost:1"})
	assert.Equal(t, "k", cfg.APIKey)
	assert.Equal(t, "http://localhost:1", cfg.BaseURL)
}
