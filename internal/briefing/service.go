package briefing

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/stockwatch/stockwatch/constants"
	"github.com/stockwatch/stockwatch/internal/columns"
	"github.com/stockwatch/stockwatch/internal/common"
	"github.com/stockwatch/stockwatch/internal/llm"
	"github.com/stockwatch/stockwatch/internal/repository"
)

// Source tells where a briefing text came from.
type Source string

const (
	SourceTemplate Source = "template"
	SourceLLM      Source = "llm"
)

type Briefing struct {
	FileGroup string `json:"fileGroup"`
	Stats     Stats  `json:"stats"`
	Text      string `json:"text"`
	Source    Source `json:"source"`
}

type Service struct {
	repo        repository.RowRepository
	aggregator  *Aggregator
	summarizer  llm.Summarizer
	logger      *slog.Logger
	topN        int
	promptRunes int
}

type Option func(*Service)

// WithSummarizer sets the optional text collaborator. A nil summarizer keeps the template path.
func WithSummarizer(s llm.Summarizer) Option {
	return func(svc *Service) { svc.summarizer = s }
}

func WithTopN(n int) Option {
	return func(svc *Service) {
		if n > 0 {
			svc.topN = n
		}
	}
}

func WithPromptRunes(n int) Option {
	return func(svc *Service) {
		if n > 0 {
			svc.promptRunes = n
		}
	}
}

func NewService(repo repository.RowRepository, extractor *columns.Extractor, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:        repo,
		aggregator:  NewAggregator(extractor),
		logger:      logger,
		topN:        constants.DefaultBriefingTopN,
		promptRunes: llm.DefaultMaxPromptRunes,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Brief loads the file group and writes its summary. Only the row load can fail; a summarizer
// error or empty answer falls back to Template.
func (s *Service) Brief(ctx context.Context, fileGroup string) (*Briefing, error) {
	rows, err := s.repo.RangeByFileGroup(ctx, fileGroup)
	if err != nil {
		s.logger.Error("briefing.load_failed", "file_group", fileGroup, "error", err)
		return nil, err
	}
	stats := s.aggregator.Summarize(rows)
	out := &Briefing{FileGroup: fileGroup, Stats: stats, Text: Template(stats), Source: SourceTemplate}

	if s.summarizer == nil {
		return out, nil
	}
	text, err := s.summarizer.SummarizeStats(ctx, s.request(fileGroup, stats))
	switch {
	case err != nil:
		s.logger.Warn("briefing.summarizer_failed",
			"file_group", fileGroup,
			"cause", fallbackCause(err),
			"error", err,
		)
	case strings.TrimSpace(text) == "":
		s.logger.Warn("briefing.summarizer_empty", "file_group", fileGroup)
	default:
		out.Text = strings.TrimSpace(text)
		out.Source = SourceLLM
	}
	s.logger.Info("briefing.done",
		"file_group", fileGroup,
		"rows", stats.TotalRows,
		"low_stock", stats.LowStockCount,
		"source", out.Source,
	)
	return out, nil
}

func (s *Service) request(fileGroup string, stats Stats) llm.SummaryRequest {
	n := min(s.topN, len(stats.LowStockItems))
	top := make([]llm.ShortageLine, n)
	for i := 0; i < n; i++ {
		it := stats.LowStockItems[i]
		top[i] = llm.ShortageLine{
			ItemName:        it.ItemName,
			CurrentStock:    it.CurrentStock,
			BaseStock:       it.BaseStock,
			Shortage:        it.Shortage,
			ShortagePercent: it.ShortagePercent,
			Severity:        string(it.Severity),
		}
	}
	return llm.SummaryRequest{
		FileGroup:      fileGroup,
		TotalRows:      stats.TotalRows,
		ConfirmedItems: stats.ConfirmedItems,
		LowStockCount:  stats.LowStockCount,
		TotalShortage:  stats.TotalShortage,
		CriticalCount:  stats.CriticalCount,
		WarningCount:   stats.WarningCount,
		TopShortages:   top,
		MaxPromptRunes: s.promptRunes,
	}
}

// fallbackCause names why the template was used: the AppError code when there is one.
func fallbackCause(err error) string {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "TIMEOUT"
	}
	return "UNKNOWN"
}
