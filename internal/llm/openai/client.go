package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stockwatch/stockwatch/internal/common"
	"github.com/stockwatch/stockwatch/internal/llm"
)

type chatCompletion struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// SummarizeStats implements llm.Summarizer over chat/completions in JSON mode.
func (c *Client) SummarizeStats(ctx context.Context, req llm.SummaryRequest) (string, error) {
	rid := uuid.New().String()
	start := time.Now()
	log := c.logger.With("req_id", rid, "file_group", req.FileGroup)
	log.Info("llm.summary.start", "low_stock", req.LowStockCount)

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildSystemPrompt()},
			{"role": "user", "content": llm.BuildUserPrompt(req)},
			{"role": "system", "content": "JSON Schema:\n" + llm.SummarySchemaJSON},
		},
	}
	raw, err := llm.PostJSON(ctx, c.http, llm.Call{
		Provider:         "openai",
		URL:              c.endpoint(),
		Body:             body,
		Headers:          map[string]string{"Authorization": "Bearer " + c.cfg.APIKey},
		MaxResponseBytes: c.cfg.MaxResponseBytes,
	}, log)
	if err != nil {
		log.Error("llm.summary.http_error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", err
	}

	var cc chatCompletion
	if err := json.Unmarshal(raw, &cc); err != nil {
		log.Error("llm.summary.decode_error", "error", err, "raw_bytes", len(raw))
		return "", common.NewAppError("LLM_BAD_ANSWER", "decode completion", fmt.Errorf("%w: %w", common.ErrUnavailable, err))
	}
	if len(cc.Choices) == 0 {
		log.Error("llm.summary.no_choices")
		return "", common.NewAppError("LLM_BAD_ANSWER", "completion has no choices", common.ErrUnavailable)
	}

	summary, err := llm.ParseSummary([]byte(strings.TrimSpace(cc.Choices[0].Message.Content)), log)
	if err != nil {
		log.Error("llm.summary.schema_validation_failed", "error", err)
		return "", err
	}

	log.Info("llm.summary.ok",
		"runes", len([]rune(summary)),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return summary, nil
}
