package entity

import (
	"time"

	"github.com/google/uuid"
)

// ImportFile records one spreadsheet appended to a file group. ContentHash is the hex sha256 of the bytes.
type ImportFile struct {
	ID          uuid.UUID `json:"id"`
	FileGroup   string    `json:"file_group"`
	SourcePath  string    `json:"source_path"`
	Filename    string    `json:"filename"`
	FileExt     string    `json:"file_ext"`
	FileSize    int       `json:"file_size"`
	ContentHash string    `json:"content_hash"`
	RowCount    int       `json:"row_count"`
	ImportedAt  time.Time `json:"imported_at"`
}
