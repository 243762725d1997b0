package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/stockwatch/stockwatch/internal/common"
)

// DefaultMaxResponseBytes bounds what a summary call may read back. A briefing is a few
// sentences, so anything near this size is a misbehaving endpoint.
const DefaultMaxResponseBytes = 1 << 20

// Call is one JSON POST to a summarization provider.
type Call struct {
	Provider string
	URL      string
	Body     any
	Headers  map[string]string
	// MaxResponseBytes defaults to DefaultMaxResponseBytes.
	MaxResponseBytes int64
}

// PostJSON sends call and returns the response body. Transport failures, non-2xx answers and
// oversized bodies come back as AppErrors wrapping common.ErrUnavailable, so callers can fall
// back without inspecting HTTP details.
func PostJSON(ctx context.Context, client *http.Client, call Call, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 45 * time.Second}
	}
	limit := call.MaxResponseBytes
	if limit <= 0 {
		limit = DefaultMaxResponseBytes
	}

	reqID := uuid.New().String()
	start := time.Now()
	log := logger.With("req_id", reqID, "provider", call.Provider)

	bs, err := json.Marshal(call.Body)
	if err != nil {
		log.Error("llm.http.encode_error", "error", err)
		return nil, common.NewAppError("LLM_REQUEST", "encode request", fmt.Errorf("%w: %v", common.ErrInternal, err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, call.URL, bytes.NewReader(bs))
	if err != nil {
		log.Error("llm.http.build_request_error", "error", err)
		return nil, common.NewAppError("LLM_REQUEST", "build request", fmt.Errorf("%w: %v", common.ErrInternal, err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range call.Headers {
		req.Header.Set(k, v)
	}

	log.Debug("llm.http.request", "url", call.URL, "content_length", len(bs))

	resp, err := client.Do(req)
	if err != nil {
		log.Error("llm.http.send_error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, common.NewAppError("LLM_UNAVAILABLE", call.Provider+" unreachable", fmt.Errorf("%w: %v", common.ErrUnavailable, err))
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warn("llm.http.response_body_close_error", "error", err)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		log.Error("llm.http.read_error", "error", err)
		return nil, common.NewAppError("LLM_UNAVAILABLE", "read response", fmt.Errorf("%w: %v", common.ErrUnavailable, err))
	}
	log.Info("llm.http.response",
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if int64(len(raw)) > limit {
		return nil, common.NewAppError("LLM_RESPONSE_TOO_LARGE",
			fmt.Sprintf("%s answered more than %d bytes", call.Provider, limit), common.ErrUnavailable)
	}
	if resp.StatusCode/100 != 2 {
		return nil, common.NewAppError("LLM_UNAVAILABLE",
			fmt.Sprintf("%s answered status %d", call.Provider, resp.StatusCode), common.ErrUnavailable)
	}
	return raw, nil
}
