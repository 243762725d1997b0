// Package ingest turns spreadsheet files into inventory rows.
package ingest

import (
	"context"
	"time"
)

// ImportResult is the per-file import outcome.
type ImportResult struct {
	FileGroup    string    `json:"fileGroup"`
	SourcePath   string    `json:"sourcePath,omitempty"`
	Filename     string    `json:"filename"`
	Headers      []string  `json:"headers"`
	RowsImported int       `json:"rowsImported"`
	Deduplicated bool      `json:"deduplicated"`
	HashHex      string    `json:"hash"`
	ImportedAt   time.Time `json:"importedAt"`
	Err          string    `json:"error,omitempty"`
}

// DirStats summarizes a directory import.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Ingestor is the behavior the transport and the import queue depend on.
type Ingestor interface {
	ImportBytes(ctx context.Context, fileGroup, name string, data []byte) (ImportResult, error)
	ImportPath(ctx context.Context, path string) (ImportResult, error)
	ImportDirectory(ctx context.Context, root string, skipHidden bool) ([]ImportResult, DirStats, error)
}
