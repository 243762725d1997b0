// Package alarm owns the baseline/alarm lifecycle of inventory rows.
//
// A row is UNCONFIRMED until Confirm sets its baseline. From then on every field edit re-evaluates the
// alarm flag against the baseline before the row is written back, so the stored flag never goes stale
// through this package. Confirm always clears the alarm.
package alarm

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/stockwatch/stockwatch/constants"
	"github.com/stockwatch/stockwatch/internal/columns"
	"github.com/stockwatch/stockwatch/internal/entity"
	"github.com/stockwatch/stockwatch/internal/projection"
	"github.com/stockwatch/stockwatch/internal/repository"
)

type Engine struct {
	repo      repository.RowRepository
	extractor *columns.Extractor
	logger    *slog.Logger
	locks     *keyedMutex
	workers   int
}

type Option func(*Engine)

// WithBulkWorkers bounds how many rows BulkConfirm writes concurrently.
func WithBulkWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

func NewEngine(repo repository.RowRepository, extractor *columns.Extractor, logger *slog.Logger, opts ...Option) *Engine {
	if extractor == nil {
		extractor = columns.NewExtractor(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		repo:      repo,
		extractor: extractor,
		logger:    logger,
		locks:     newKeyedMutex(),
		workers:   4,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// CheckResult is the outcome of an evaluation.
type CheckResult struct {
	RowID        uuid.UUID            `json:"rowId"`
	AlarmStatus  bool                 `json:"alarmStatus"`
	CurrentStock float64              `json:"currentStock"`
	BaseStock    *float64             `json:"baseStock"`
	State        constants.AlarmState `json:"state"`
}

// ConfirmResult is the outcome of a confirmation.
type ConfirmResult struct {
	RowID       uuid.UUID `json:"rowId"`
	Baseline    float64   `json:"baseline"`
	AlarmStatus bool      `json:"alarmStatus"`
}

// BulkResult counts a bulk confirmation. Failed rows never stop the batch.
type BulkResult struct {
	SuccessCount   int `json:"successCount"`
	FailCount      int `json:"failCount"`
	TotalProcessed int `json:"totalProcessed"`
}

// Selection picks the rows of a bulk operation: explicit ids win over a file group.
type Selection struct {
	FileGroup string
	RowIDs    []uuid.UUID
}

// Confirm sets the baseline (explicit, else the current quantity, else 0) and clears the alarm.
func (e *Engine) Confirm(ctx context.Context, id uuid.UUID, explicitBaseline *float64) (ConfirmResult, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	row, err := e.repo.Get(ctx, id)
	if err != nil {
		return ConfirmResult{}, err
	}
	baseline := e.baselineFor(row, explicitBaseline)
	row.Baseline = &baseline
	row.Alarm = false
	if err := e.repo.Put(ctx, row); err != nil {
		e.logger.Error("alarm.confirm.write_failed", "row_id", id, "error", err)
		return ConfirmResult{}, err
	}
	e.logger.Debug("alarm.confirm.ok", "row_id", id, "baseline", baseline, "explicit", explicitBaseline != nil)
	return ConfirmResult{RowID: id, Baseline: baseline, AlarmStatus: false}, nil
}

func (e *Engine) baselineFor(row *entity.Row, explicit *float64) float64 {
	if explicit != nil {
		return *explicit
	}
	if q, ok := e.extractor.Quantity(row.Fields); ok {
		return q
	}
	return 0
}

// BulkConfirm confirms every selected row from its own current quantity. Only a failure to
// enumerate the file group is returned as an error; per-row failures are counted.
func (e *Engine) BulkConfirm(ctx context.Context, sel Selection) (BulkResult, error) {
	start := time.Now()
	ids := sel.RowIDs
	if len(ids) == 0 && sel.FileGroup != "" {
		rows, err := e.repo.RangeByFileGroup(ctx, sel.FileGroup)
		if err != nil {
			e.logger.Error("alarm.bulk_confirm.range_failed", "file_group", sel.FileGroup, "error", err)
			return BulkResult{}, err
		}
		ids = make([]uuid.UUID, len(rows))
		for i, r := range rows {
			ids[i] = r.ID
		}
	}

	var ok, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(e.workers)
	for _, id := range ids {
		g.Go(func() error {
			if _, err := e.Confirm(ctx, id, nil); err != nil {
				failed.Add(1)
				e.logger.Warn("alarm.bulk_confirm.row_failed", "row_id", id, "error", err)
				return nil
			}
			ok.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	res := BulkResult{
		SuccessCount:   int(ok.Load()),
		FailCount:      int(failed.Load()),
		TotalProcessed: len(ids),
	}
	e.logger.Info("alarm.bulk_confirm.done",
		"file_group", sel.FileGroup,
		"success", res.SuccessCount,
		"failed", res.FailCount,
		"total", res.TotalProcessed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// Edit sets one field. Confirmed rows are re-evaluated before the write.
func (e *Engine) Edit(ctx context.Context, id uuid.UUID, key string, value any) (*entity.Row, error) {
	return e.EditFields(ctx, id, entity.Fields{{Key: key, Value: value}})
}

// EditFields applies several field edits in one write.
func (e *Engine) EditFields(ctx context.Context, id uuid.UUID, edits entity.Fields) (*entity.Row, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	row, err := e.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, f := range edits {
		row.Fields.Set(f.Key, f.Value)
	}
	if row.Confirmed() {
		e.evaluate(row)
	}
	if err := e.repo.Put(ctx, row); err != nil {
		e.logger.Error("alarm.edit.write_failed", "row_id", id, "error", err)
		return nil, err
	}
	return row, nil
}

// Check applies the optional field values, evaluates the row and stores the result when anything changed.
func (e *Engine) Check(ctx context.Context, id uuid.UUID, fields entity.Fields) (CheckResult, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	row, err := e.repo.Get(ctx, id)
	if err != nil {
		return CheckResult{}, err
	}
	for _, f := range fields {
		row.Fields.Set(f.Key, f.Value)
	}
	before := row.Alarm
	e.evaluate(row)
	if len(fields) > 0 || before != row.Alarm {
		if err := e.repo.Put(ctx, row); err != nil {
			e.logger.Error("alarm.check.write_failed", "row_id", id, "error", err)
			return CheckResult{}, err
		}
	}
	return CheckResult{
		RowID:        id,
		AlarmStatus:  row.Alarming(),
		CurrentStock: e.extractor.QuantityOrZero(row.Fields),
		BaseStock:    row.Baseline,
		State:        row.State(),
	}, nil
}

// Delete removes a row under its lock, so an in-flight edit or confirm finishes first.
func (e *Engine) Delete(ctx context.Context, id uuid.UUID) error {
	unlock := e.locks.Lock(id)
	defer unlock()

	if _, err := e.repo.Get(ctx, id); err != nil {
		return err
	}
	if err := e.repo.Delete(ctx, id); err != nil {
		e.logger.Error("alarm.delete.write_failed", "row_id", id, "error", err)
		return err
	}
	e.logger.Info("alarm.deleted", "row_id", id)
	return nil
}

// ListAlarming returns rows currently alarming, optionally limited to one file group.
func (e *Engine) ListAlarming(ctx context.Context, fileGroup string) ([]*entity.Row, error) {
	rows, err := e.repo.ListAlarming(ctx, fileGroup)
	if err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, r := range rows {
		if r.Alarming() {
			out = append(out, r)
		}
	}
	return out, nil
}

// evaluate recomputes the cached alarm flag from fields and baseline.
func (e *Engine) evaluate(row *entity.Row) {
	row.Alarm = projection.IsShort(row.Baseline, e.extractor.QuantityOrZero(row.Fields))
}
