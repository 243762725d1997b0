package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/stockwatch/stockwatch/internal/common"
	"github.com/stockwatch/stockwatch/internal/entity"
)

const rowsTable = "inventory_rows"

var rowColumns = []string{
	"id",
	"file_group",
	"sequence_index",
	"fields",
	"baseline",
	"alarm",
	"created_at",
	"updated_at",
}

// SQLStore persists rows in a single table. Fields are stored as order-preserving JSON,
// timestamps as unix milliseconds and the alarm flag as 0/1 so every dialect reads them the same way.
type SQLStore struct {
	db      *sql.DB
	dialect string
	logger  *slog.Logger
	now     func() time.Time
}

func NewSQLStore(db *DB, logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLStore{db: db.SQL, dialect: db.Dialect, logger: logger, now: time.Now}
}

// Migrate creates the rows table and its file-group index when missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	fieldsType := "text NOT NULL"
	if s.dialect == dialect.MySQL {
		fieldsType = "longtext NOT NULL"
	}
	q := createTable(s.dialect, rowsTable, []string{"id"}, nil,
		entsql.Column("id").Type("varchar(36) NOT NULL"),
		entsql.Column("file_group").Type("varchar(255) NOT NULL"),
		entsql.Column("sequence_index").Type("integer NOT NULL"),
		entsql.Column("fields").Type(fieldsType),
		entsql.Column("baseline").Type("double precision"),
		entsql.Column("alarm").Type("smallint NOT NULL DEFAULT 0"),
		entsql.Column("created_at").Type("bigint NOT NULL"),
		entsql.Column("updated_at").Type("bigint NOT NULL"),
	)
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		s.logger.Error("failed to create rows table", "error", err)
		return common.Database("create rows table", err)
	}
	if s.dialect != dialect.MySQL {
		q = createIndex(s.dialect, "idx_inventory_rows_file_group", rowsTable, "file_group", "sequence_index")
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			s.logger.Error("failed to create rows index", "error", err)
			return common.Database("create rows index", err)
		}
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id uuid.UUID) (*entity.Row, error) {
	q, args := entsql.Dialect(s.dialect).
		Select(rowColumns...).
		From(entsql.Table(rowsTable)).
		Where(entsql.EQ("id", id.String())).
		Query()
	r, err := scanRow(s.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFound("row", id.String())
	}
	if err != nil {
		s.logger.Error("failed to get row", "row_id", id, "error", err)
		return nil, common.Database("get row", err)
	}
	return r, nil
}

// Put upserts the full row.
// Put overwrites an existing row. A row deleted in the meantime is not recreated.
func (s *SQLStore) Put(ctx context.Context, row *entity.Row) error {
	fieldsJSON, baseline, alarm, err := rowValues(row)
	if err != nil {
		return err
	}
	q, args := entsql.Dialect(s.dialect).
		Update(rowsTable).
		Set("file_group", row.FileGroup).
		Set("sequence_index", row.SequenceIndex).
		Set("fields", fieldsJSON).
		Set("baseline", baseline).
		Set("alarm", alarm).
		Set("updated_at", s.now().UnixMilli()).
		Where(entsql.EQ("id", row.ID.String())).
		Query()
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		s.logger.Error("failed to put row", "row_id", row.ID, "error", err)
		return common.Database("put row", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports matched-but-unchanged rows as zero.
		if _, err := s.Get(ctx, row.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) Create(ctx context.Context, fileGroup string, sequenceIndex int, fields entity.Fields) (*entity.Row, error) {
	r := newRow(fileGroup, sequenceIndex, fields, s.now())
	fieldsJSON, baseline, alarm, err := rowValues(r)
	if err != nil {
		return nil, err
	}
	q, args := entsql.Dialect(s.dialect).
		Insert(rowsTable).
		Columns(rowColumns...).
		Values(r.ID.String(), r.FileGroup, r.SequenceIndex, fieldsJSON, baseline, alarm,
			r.CreatedAt.UnixMilli(), r.UpdatedAt.UnixMilli()).
		Query()
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		s.logger.Error("failed to create row", "file_group", fileGroup, "index", sequenceIndex, "error", err)
		return nil, common.Database("create row", err)
	}
	return r, nil
}

func rowValues(row *entity.Row) (fields string, baseline any, alarm int, err error) {
	b, err := json.Marshal(row.Fields)
	if err != nil {
		return "", nil, 0, common.Database("encode fields", err)
	}
	if row.Baseline != nil {
		baseline = *row.Baseline
	}
	if row.Alarm {
		alarm = 1
	}
	return string(b), baseline, alarm, nil
}

func (s *SQLStore) RangeByFileGroup(ctx context.Context, fileGroup string) ([]*entity.Row, error) {
	return s.query(ctx, "range rows", entsql.EQ("file_group", fileGroup))
}

func (s *SQLStore) ListAlarming(ctx context.Context, fileGroup string) ([]*entity.Row, error) {
	p := entsql.And(entsql.EQ("alarm", 1), entsql.NotNull("baseline"))
	if fileGroup != "" {
		p = entsql.And(p, entsql.EQ("file_group", fileGroup))
	}
	return s.query(ctx, "list alarming rows", p)
}

func (s *SQLStore) Delete(ctx context.Context, id uuid.UUID) error {
	q, args := entsql.Dialect(s.dialect).
		Delete(rowsTable).
		Where(entsql.EQ("id", id.String())).
		Query()
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		s.logger.Error("failed to delete row", "row_id", id, "error", err)
		return common.Database("delete row", err)
	}
	return nil
}

func (s *SQLStore) DeleteFileGroup(ctx context.Context, fileGroup string) (int, error) {
	q, args := entsql.Dialect(s.dialect).
		Delete(rowsTable).
		Where(entsql.EQ("file_group", fileGroup)).
		Query()
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		s.logger.Error("failed to delete file group", "file_group", fileGroup, "error", err)
		return 0, common.Database("delete file group", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLStore) ListFileGroups(ctx context.Context) ([]string, error) {
	q, args := entsql.Dialect(s.dialect).
		Select("file_group").
		Distinct().
		From(entsql.Table(rowsTable)).
		OrderBy("file_group").
		Query()
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, common.Database("list file groups", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, common.Database("scan file group", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Database("list file groups", err)
	}
	return out, nil
}

func (s *SQLStore) query(ctx context.Context, op string, where *entsql.Predicate) ([]*entity.Row, error) {
	q, args := entsql.Dialect(s.dialect).
		Select(rowColumns...).
		From(entsql.Table(rowsTable)).
		Where(where).
		OrderBy("file_group", "sequence_index", "created_at").
		Query()
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.logger.Error("row query failed", "op", op, "error", err)
		return nil, common.Database(op, err)
	}
	defer rows.Close()

	var out []*entity.Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, common.Database(op, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Database(op, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(sc scanner) (*entity.Row, error) {
	var (
		id, fileGroup, fieldsJSON string
		seq                       int
		baseline                  sql.NullFloat64
		alarm                     int64
		created, updated          int64
	)
	if err := sc.Scan(&id, &fileGroup, &seq, &fieldsJSON, &baseline, &alarm, &created, &updated); err != nil {
		return nil, err
	}
	rid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("row id %q: %w", id, err)
	}
	r := &entity.Row{
		ID:            rid,
		FileGroup:     fileGroup,
		SequenceIndex: seq,
		Alarm:         alarm != 0,
		CreatedAt:     time.UnixMilli(created).UTC(),
		UpdatedAt:     time.UnixMilli(updated).UTC(),
	}
	if err := json.Unmarshal([]byte(fieldsJSON), &r.Fields); err != nil {
		return nil, fmt.Errorf("row %s fields: %w", id, err)
	}
	if baseline.Valid {
		b := baseline.Float64
		r.Baseline = &b
	}
	return r, nil
}
