package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/stockwatch/stockwatch/internal/common"
	"github.com/stockwatch/stockwatch/internal/entity"
)

// ImportFileRepository keeps the import log used to skip re-importing identical bytes into a group.
type ImportFileRepository interface {
	GetByGroupAndHash(ctx context.Context, fileGroup, hash string) (*entity.ImportFile, error)
	// Create fails with common.ErrConflict when the group already logs the same content hash.
	Create(ctx context.Context, f *entity.ImportFile) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByFileGroup(ctx context.Context, fileGroup string) ([]*entity.ImportFile, error)
	DeleteByFileGroup(ctx context.Context, fileGroup string) (int, error)
}

const filesTable = "import_files"

var fileColumns = []string{
	"id",
	"file_group",
	"source_path",
	"filename",
	"file_ext",
	"file_size",
	"content_hash",
	"row_count",
	"imported_at",
}

// SQLFiles is the ImportFileRepository over the configured database.
type SQLFiles struct {
	db      *sql.DB
	dialect string
	logger  *slog.Logger
}

func NewSQLFiles(db *DB, logger *slog.Logger) *SQLFiles {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLFiles{db: db.SQL, dialect: db.Dialect, logger: logger}
}

func (r *SQLFiles) Migrate(ctx context.Context) error {
	q := createTable(r.dialect, filesTable, []string{"id"}, []string{"file_group", "content_hash"},
		entsql.Column("id").Type("varchar(36) NOT NULL"),
		entsql.Column("file_group").Type("varchar(255) NOT NULL"),
		entsql.Column("source_path").Type("varchar(1024) NOT NULL"),
		entsql.Column("filename").Type("varchar(255) NOT NULL"),
		entsql.Column("file_ext").Type("varchar(16) NOT NULL"),
		entsql.Column("file_size").Type("bigint NOT NULL"),
		entsql.Column("content_hash").Type("varchar(64) NOT NULL"),
		entsql.Column("row_count").Type("integer NOT NULL"),
		entsql.Column("imported_at").Type("bigint NOT NULL"),
	)
	if _, err := r.db.ExecContext(ctx, q); err != nil {
		r.logger.Error("failed to create import files table", "error", err)
		return common.Database("create import files table", err)
	}
	return nil
}

func (r *SQLFiles) GetByGroupAndHash(ctx context.Context, fileGroup, hash string) (*entity.ImportFile, error) {
	q, args := entsql.Dialect(r.dialect).
		Select(fileColumns...).
		From(entsql.Table(filesTable)).
		Where(entsql.And(entsql.EQ("file_group", fileGroup), entsql.EQ("content_hash", hash))).
		Limit(1).
		Query()
	f, err := scanFile(r.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFound("import file", hash)
	}
	if err != nil {
		r.logger.Error("failed to get import file by group and hash", "file_group", fileGroup, "error", err)
		return nil, common.Database("get import file", err)
	}
	return f, nil
}

func (r *SQLFiles) Create(ctx context.Context, f *entity.ImportFile) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.ImportedAt.IsZero() {
		f.ImportedAt = time.Now().UTC()
	}
	q, args := entsql.Dialect(r.dialect).
		Insert(filesTable).
		Columns(fileColumns...).
		Values(f.ID.String(), f.FileGroup, f.SourcePath, f.Filename, f.FileExt, f.FileSize, f.ContentHash,
			f.RowCount, f.ImportedAt.UnixMilli()).
		Query()
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		if _, gErr := r.GetByGroupAndHash(ctx, f.FileGroup, f.ContentHash); gErr == nil {
			return common.Conflict("import file", f.ContentHash)
		}
		r.logger.Error("failed to create import file", "file_group", f.FileGroup, "filename", f.Filename, "error", err)
		return common.Database("create import file", err)
	}
	return nil
}

func (r *SQLFiles) Delete(ctx context.Context, id uuid.UUID) error {
	q, args := entsql.Dialect(r.dialect).
		Delete(filesTable).
		Where(entsql.EQ("id", id.String())).
		Query()
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		r.logger.Error("failed to delete import file", "id", id, "error", err)
		return common.Database("delete import file", err)
	}
	return nil
}

func (r *SQLFiles) ListByFileGroup(ctx context.Context, fileGroup string) ([]*entity.ImportFile, error) {
	q, args := entsql.Dialect(r.dialect).
		Select(fileColumns...).
		From(entsql.Table(filesTable)).
		Where(entsql.EQ("file_group", fileGroup)).
		OrderBy("imported_at").
		Query()
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, common.Database("list import files", err)
	}
	defer rows.Close()
	var out []*entity.ImportFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, common.Database("scan import file", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Database("list import files", err)
	}
	return out, nil
}

func (r *SQLFiles) DeleteByFileGroup(ctx context.Context, fileGroup string) (int, error) {
	q, args := entsql.Dialect(r.dialect).
		Delete(filesTable).
		Where(entsql.EQ("file_group", fileGroup)).
		Query()
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		r.logger.Error("failed to delete import files", "file_group", fileGroup, "error", err)
		return 0, common.Database("delete import files", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func scanFile(sc scanner) (*entity.ImportFile, error) {
	var (
		f          entity.ImportFile
		id         string
		importedAt int64
	)
	if err := sc.Scan(&id, &f.FileGroup, &f.SourcePath, &f.Filename, &f.FileExt, &f.FileSize,
		&f.ContentHash, &f.RowCount, &importedAt); err != nil {
		return nil, err
	}
	fid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("import file id %q: %w", id, err)
	}
	f.ID = fid
	f.ImportedAt = time.UnixMilli(importedAt).UTC()
	return &f, nil
}

// MemoryFiles is the in-process ImportFileRepository.
type MemoryFiles struct {
	mu    sync.RWMutex
	files []*entity.ImportFile
}

func NewMemoryFiles() *MemoryFiles { return &MemoryFiles{} }

func (m *MemoryFiles) GetByGroupAndHash(_ context.Context, fileGroup, hash string) (*entity.ImportFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, f := range m.files {
		if f.FileGroup == fileGroup && f.ContentHash == hash {
			c := *f
			return &c, nil
		}
	}
	return nil, common.NotFound("import file", hash)
}

func (m *MemoryFiles) Create(_ context.Context, f *entity.ImportFile) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.ImportedAt.IsZero() {
		f.ImportedAt = time.Now().UTC()
	}
	c := *f
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.files {
		if g.FileGroup == f.FileGroup && g.ContentHash == f.ContentHash {
			return common.Conflict("import file", f.ContentHash)
		}
	}
	m.files = append(m.files, &c)
	return nil
}

func (m *MemoryFiles) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, f := range m.files {
		if f.ID == id {
			m.files = append(m.files[:i], m.files[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MemoryFiles) ListByFileGroup(_ context.Context, fileGroup string) ([]*entity.ImportFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*entity.ImportFile
	for _, f := range m.files {
		if f.FileGroup == fileGroup {
			c := *f
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ImportedAt.Before(out[j].ImportedAt) })
	return out, nil
}

func (m *MemoryFiles) DeleteByFileGroup(_ context.Context, fileGroup string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.files[:0]
	for _, f := range m.files {
		if f.FileGroup != fileGroup {
			kept = append(kept, f)
		}
	}
	n := len(m.files) - len(kept)
	m.files = kept
	return n, nil
}
