package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/stockwatch/stockwatch/constants"
	"github.com/stockwatch/stockwatch/internal/common"
	"github.com/stockwatch/stockwatch/internal/entity"
	"github.com/stockwatch/stockwatch/internal/repository"
	"github.com/stockwatch/stockwatch/internal/tabular"
)

// Importer decodes spreadsheets and appends their rows to a file group.
type Importer struct {
	rows   repository.RowRepository
	files  repository.ImportFileRepository
	logger *slog.Logger

	// groupMu serialises appends so sequence numbers stay contiguous.
	groupMu sync.Mutex
}

// NewImporter builds an importer. files may be nil, which disables duplicate detection.
func NewImporter(rows repository.RowRepository, files repository.ImportFileRepository, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{rows: rows, files: files, logger: logger}
}

// ImportBytes decodes data using name as the type hint. Bytes already imported into the same
// group are skipped and reported as deduplicated.
func (i *Importer) ImportBytes(ctx context.Context, fileGroup, name string, data []byte) (ImportResult, error) {
	return i.importBytes(ctx, fileGroup, name, "", data)
}

func (i *Importer) importBytes(ctx context.Context, fileGroup, name, sourcePath string, data []byte) (ImportResult, error) {
	start := time.Now()
	fileGroup = strings.TrimSpace(fileGroup)
	if fileGroup == "" {
		return ImportResult{}, common.InvalidInput("fileGroup is required")
	}
	codec, err := tabular.ForHint(name)
	if err != nil {
		return ImportResult{}, err
	}

	sum := sha256.Sum256(data)
	out := ImportResult{
		FileGroup:  fileGroup,
		SourcePath: sourcePath,
		Filename:   filepath.Base(name),
		HashHex:    hex.EncodeToString(sum[:]),
		ImportedAt: time.Now().UTC(),
	}

	table, err := codec.Decode(data)
	if err != nil {
		i.logger.Warn("ingest.decode_failed", "file_group", fileGroup, "filename", out.Filename, "error", err)
		return ImportResult{}, err
	}
	out.Headers = table.Headers
	records := table.Records()

	i.groupMu.Lock()
	defer i.groupMu.Unlock()

	var claim *entity.ImportFile
	if i.files != nil {
		prev, err := i.files.GetByGroupAndHash(ctx, fileGroup, out.HashHex)
		switch {
		case err == nil:
			return i.deduplicated(out, prev), nil
		case !errors.Is(err, common.ErrNotFound):
			return ImportResult{}, err
		}
		// The log row is written before the rows so a second importer sharing the
		// database loses on the unique (file_group, content_hash) constraint.
		claim = &entity.ImportFile{
			FileGroup:   fileGroup,
			SourcePath:  sourcePath,
			Filename:    out.Filename,
			FileExt:     constants.NormalizeExt(filepath.Ext(name)),
			FileSize:    len(data),
			ContentHash: out.HashHex,
			RowCount:    len(records),
			ImportedAt:  out.ImportedAt,
		}
		if err := i.files.Create(ctx, claim); err != nil {
			if !errors.Is(err, common.ErrConflict) {
				return ImportResult{}, err
			}
			prev, gErr := i.files.GetByGroupAndHash(ctx, fileGroup, out.HashHex)
			if gErr != nil {
				return ImportResult{}, err
			}
			return i.deduplicated(out, prev), nil
		}
	}

	created, err := i.appendLocked(ctx, fileGroup, records)
	if err != nil {
		if claim != nil {
			if dErr := i.files.Delete(ctx, claim.ID); dErr != nil {
				i.logger.Error("ingest.release_claim_failed", "file_group", fileGroup, "hash", out.HashHex, "error", dErr)
			}
		}
		return ImportResult{}, err
	}
	out.RowsImported = len(created)

	i.logger.Info("ingest.imported",
		"file_group", fileGroup,
		"filename", out.Filename,
		"rows", out.RowsImported,
		"columns", len(out.Headers),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// Append adds records after the existing rows of fileGroup. Existing rows are renumbered
// 0..n-1 in their current order when gaps exist; new rows continue from n. New rows are unconfirmed.
func (i *Importer) Append(ctx context.Context, fileGroup string, records []entity.Fields) ([]*entity.Row, error) {
	i.groupMu.Lock()
	defer i.groupMu.Unlock()
	return i.appendLocked(ctx, fileGroup, records)
}

func (i *Importer) appendLocked(ctx context.Context, fileGroup string, records []entity.Fields) ([]*entity.Row, error) {
	existing, err := i.rows.RangeByFileGroup(ctx, fileGroup)
	if err != nil {
		return nil, err
	}
	for idx, r := range existing {
		if r.SequenceIndex == idx {
			continue
		}
		r.SequenceIndex = idx
		if err := i.rows.Put(ctx, r); err != nil {
			i.logger.Error("ingest.renumber_failed", "row_id", r.ID, "error", err)
			return nil, err
		}
	}

	created := make([]*entity.Row, 0, len(records))
	for idx, fields := range records {
		r, err := i.rows.Create(ctx, fileGroup, len(existing)+idx, fields)
		if err != nil {
			i.logger.Error("ingest.create_row_failed", "file_group", fileGroup, "index", len(existing)+idx, "error", err)
			return created, err
		}
		created = append(created, r)
	}
	return created, nil
}

func (i *Importer) deduplicated(out ImportResult, prev *entity.ImportFile) ImportResult {
	i.logger.Info("ingest.deduplicated", "file_group", out.FileGroup, "filename", out.Filename, "hash", out.HashHex)
	out.Deduplicated = true
	out.RowsImported = 0
	out.ImportedAt = prev.ImportedAt
	return out
}

// ImportPath reads a spreadsheet from disk into the group named after its file stem.
func (i *Importer) ImportPath(ctx context.Context, path string) (ImportResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return ImportResult{}, fmt.Errorf("abs path: %w", err)
	}
	if !AllowedExt(filepath.Ext(abs)) {
		return ImportResult{}, common.InvalidInput(fmt.Sprintf("unsupported or missing extension: %q", filepath.Ext(abs)))
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		i.logger.Error("ingest.read_failed", "path", abs, "error", err)
		return ImportResult{}, fmt.Errorf("read %s: %w", abs, err)
	}
	return i.importBytes(ctx, FileGroupFor(abs), abs, abs, data)
}

// ImportDirectory walks root, skips hidden entries if requested, and imports every
// spreadsheet. Per-file failures are collected, not returned.
func (i *Importer) ImportDirectory(ctx context.Context, root string, skipHidden bool) ([]ImportResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, common.InvalidInput("root_path is required")
	}

	var results []ImportResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			results = append(results, ImportResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := i.ImportPath(ctx, path)
		if err != nil {
			results = append(results, ImportResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}
