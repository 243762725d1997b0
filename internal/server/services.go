package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stockwatch/stockwatch/internal/alarm"
	"github.com/stockwatch/stockwatch/internal/briefing"
	"github.com/stockwatch/stockwatch/internal/columns"
	"github.com/stockwatch/stockwatch/internal/common"
	"github.com/stockwatch/stockwatch/internal/export"
	"github.com/stockwatch/stockwatch/internal/ingest"
	"github.com/stockwatch/stockwatch/internal/llm"
	"github.com/stockwatch/stockwatch/internal/llm/gemini"
	"github.com/stockwatch/stockwatch/internal/llm/openai"
	"github.com/stockwatch/stockwatch/internal/projection"
	repo "github.com/stockwatch/stockwatch/internal/repository"
)

// Services is the wired application graph shared by the daemon and the CLI.
type Services struct {
	DB        *repo.DB
	Rows      repo.RowRepository
	Files     repo.ImportFileRepository
	Extractor *columns.Extractor
	Projector *projection.Projector
	Engine    *alarm.Engine
	Importer  ingest.Ingestor
	Exporter  *export.Service
	Briefing  *briefing.Service
}

// ConnectDB opens the configured database and pings it.
func ConnectDB(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*repo.DB, error) {
	db, err := repo.Open(ctx, repo.Config{
		Driver:           cfg.Driver,
		DSN:              cfg.DSN,
		MaxConns:         cfg.MaxConns,
		MinConns:         cfg.MinConns,
		MaxConnLifetime:  cfg.MaxConnLifetime,
		MaxConnIdleTime:  cfg.MaxConnIdleTime,
		DialTimeout:      cfg.DialTimeout,
		StatementTimeout: cfg.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}
	if err := repo.HealthCheck(ctx, db, cfg.HealthTimeout, logger); err != nil {
		repo.Close(db, logger)
		return nil, err
	}
	logger.Info("successfully connected to database", "dialect", db.Dialect)
	return db, nil
}

// NewServices opens storage, runs migrations and wires every component. Callers own Close.
func NewServices(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*Services, error) {
	db, err := ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	rows := repo.NewSQLStore(db, logger)
	files := repo.NewSQLFiles(db, logger)
	if err := rows.Migrate(ctx); err != nil {
		repo.Close(db, logger)
		return nil, err
	}
	if err := files.Migrate(ctx); err != nil {
		repo.Close(db, logger)
		return nil, err
	}

	summarizer, err := NewSummarizer(ctx, cfg.LLM, logger)
	if err != nil {
		repo.Close(db, logger)
		return nil, err
	}
	s, err := Wire(rows, files, cfg.Inventory, summarizer, logger)
	if err != nil {
		repo.Close(db, logger)
		return nil, err
	}
	s.DB = db
	return s, nil
}

// Wire builds the component graph over already-open repositories.
func Wire(rows repo.RowRepository, files repo.ImportFileRepository, cfg common.InventoryConfig, summarizer llm.Summarizer, logger *slog.Logger) (*Services, error) {
	vocab := columns.DefaultVocabulary()
	if cfg.VocabularyFile != "" {
		v, err := columns.LoadVocabulary(cfg.VocabularyFile)
		if err != nil {
			logger.Error("failed to load vocabulary", "path", cfg.VocabularyFile, "error", err)
			return nil, err
		}
		vocab = v
		logger.Info("vocabulary loaded", "path", cfg.VocabularyFile)
	}
	extractor := columns.NewExtractor(columns.NewResolver(vocab))
	projector := projection.NewProjector(extractor, projection.WithExpiryWindow(cfg.ExpiryWindowDays))
	aggregator := briefing.NewAggregator(extractor)

	var briefOpts []briefing.Option
	if summarizer != nil {
		briefOpts = append(briefOpts, briefing.WithSummarizer(summarizer))
	}
	briefOpts = append(briefOpts, briefing.WithTopN(cfg.BriefingTopN), briefing.WithPromptRunes(cfg.BriefingPromptRunes))

	return &Services{
		Rows:      rows,
		Files:     files,
		Extractor: extractor,
		Projector: projector,
		Engine:    alarm.NewEngine(rows, extractor, logger, alarm.WithBulkWorkers(cfg.BulkConfirmWorkers)),
		Importer:  ingest.NewImporter(rows, files, logger),
		Exporter:  export.NewService(rows, projector, aggregator, logger),
		Briefing:  briefing.NewService(rows, extractor, logger, briefOpts...),
	}, nil
}

// NewSummarizer returns nil for provider "none".
func NewSummarizer(ctx context.Context, cfg common.LLMConfig, logger *slog.Logger) (llm.Summarizer, error) {
	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "openai":
		return openai.NewClient(openai.ConfigFrom(cfg), logger), nil
	case "gemini":
		c, err := gemini.NewClient(ctx, gemini.ConfigFrom(cfg), logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, common.InvalidInput(fmt.Sprintf("unknown llm provider %q", cfg.Provider))
	}
}

// Close releases the database.
func (s *Services) Close(logger *slog.Logger) {
	if s.DB != nil {
		repo.Close(s.DB, logger)
	}
}
