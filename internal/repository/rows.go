package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/stockwatch/stockwatch/internal/entity"
)

// RowRepository is the keyed record store behind the alarm engine and the importer.
// Get returns an error wrapping common.ErrNotFound for unknown ids; other failures wrap common.ErrDatabase.
type RowRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*entity.Row, error)
	Put(ctx context.Context, row *entity.Row) error
	Create(ctx context.Context, fileGroup string, sequenceIndex int, fields entity.Fields) (*entity.Row, error)
	RangeByFileGroup(ctx context.Context, fileGroup string) ([]*entity.Row, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListAlarming(ctx context.Context, fileGroup string) ([]*entity.Row, error)
	ListFileGroups(ctx context.Context) ([]string, error)
	DeleteFileGroup(ctx context.Context, fileGroup string) (int, error)
}

func newRow(fileGroup string, sequenceIndex int, fields entity.Fields, now time.Time) *entity.Row {
	if fields == nil {
		fields = entity.Fields{}
	}
	return &entity.Row{
		ID:            uuid.New(),
		FileGroup:     fileGroup,
		SequenceIndex: sequenceIndex,
		Fields:        fields.Clone(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
