// Package gemini implements llm.Summarizer on the Gemini API.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/stockwatch/stockwatch/internal/common"
	"github.com/stockwatch/stockwatch/internal/llm"
)

const DefaultModel = "gemini-2.5-flash"

// Config for the Gemini client.
type Config struct {
	APIKey      string // if empty, falls back to env GEMINI_API_KEY
	BaseURL     string // overrides the Gemini API endpoint
	Model       string // default DefaultModel
	Temperature float32
	Timeout     time.Duration
}

// ConfigFrom maps the LLM_* settings onto a client config.
func ConfigFrom(c common.LLMConfig) Config {
	return Config{
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		Model:       c.Model,
		Temperature: c.Temperature,
		Timeout:     c.Timeout,
	}
}

type Client struct {
	cfg    Config
	client *genai.Client
	logger *slog.Logger
}

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, common.NewAppError("LLM_CONFIG", "create gemini client", fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
	}
	return &Client{cfg: cfg, client: gc, logger: logger.With("provider", "gemini", "model", cfg.Model)}, nil
}

// SummarizeStats implements llm.Summarizer.
func (c *Client) SummarizeStats(ctx context.Context, req llm.SummaryRequest) (string, error) {
	rid := uuid.New().String()
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	log := c.logger.With("req_id", rid, "file_group", req.FileGroup)
	log.Info("llm.summary.start", "low_stock", req.LowStockCount)

	temp := c.cfg.Temperature
	gcfg := &genai.GenerateContentConfig{
		SystemInstruction:  genai.NewContentFromText(llm.BuildSystemPrompt(), genai.RoleUser),
		Temperature:        &temp,
		ResponseMIMEType:   "application/json",
		ResponseJsonSchema: llm.SummarySchema(),
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, genai.Text(llm.BuildUserPrompt(req)), gcfg)
	if err != nil {
		log.Error("llm.summary.http_error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", common.NewAppError("LLM_UNAVAILABLE", "gemini generate content", fmt.Errorf("%w: %v", common.ErrUnavailable, err))
	}

	summary, err := llm.ParseSummary([]byte(strings.TrimSpace(resp.Text())), log)
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
