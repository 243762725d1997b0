package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stockwatch/stockwatch/internal/common"
	"github.com/stockwatch/stockwatch/internal/entity"
)

// MemoryStore is an in-process RowRepository. Rows are cloned on the way in and out.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]*entity.Row
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: map[uuid.UUID]*entity.Row{}, now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (*entity.Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, common.NotFound("row", id.String())
	}
	return r.Clone(), nil
}

// Put overwrites an existing row. A row deleted in the meantime is not recreated.
func (m *MemoryStore) Put(_ context.Context, row *entity.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.rows[row.ID]
	if !ok {
		return common.NotFound("row", row.ID.String())
	}
	c := row.Clone()
	c.CreatedAt = prev.CreatedAt
	c.UpdatedAt = m.now()
	m.rows[c.ID] = c
	return nil
}

func (m *MemoryStore) Create(_ context.Context, fileGroup string, sequenceIndex int, fields entity.Fields) (*entity.Row, error) {
	r := newRow(fileGroup, sequenceIndex, fields, m.now())
	m.mu.Lock()
	m.rows[r.ID] = r.Clone()
	m.mu.Unlock()
	return r, nil
}

func (m *MemoryStore) RangeByFileGroup(_ context.Context, fileGroup string) ([]*entity.Row, error) {
	return m.filter(func(r *entity.Row) bool { return r.FileGroup == fileGroup }), nil
}

func (m *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *MemoryStore) ListAlarming(_ context.Context, fileGroup string) ([]*entity.Row, error) {
	return m.filter(func(r *entity.Row) bool {
		return r.Alarming() && (fileGroup == "" || r.FileGroup == fileGroup)
	}), nil
}

func (m *MemoryStore) ListFileGroups(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := map[string]struct{}{}
	var out []string
	for _, r := range m.rows {
		if _, ok := seen[r.FileGroup]; ok {
			continue
		}
		seen[r.FileGroup] = struct{}{}
		out = append(out, r.FileGroup)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryStore) DeleteFileGroup(_ context.Context, fileGroup string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, r := range m.rows {
		if r.FileGroup == fileGroup {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

// filter returns clones ordered by file group, then sequence index, then creation time.
func (m *MemoryStore) filter(keep func(*entity.Row) bool) []*entity.Row {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*entity.Row
	for _, r := range m.rows {
		if keep(r) {
			out = append(out, r.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.FileGroup != b.FileGroup {
			return a.FileGroup < b.FileGroup
		}
		if a.SequenceIndex != b.SequenceIndex {
			return a.SequenceIndex < b.SequenceIndex
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
	return out
}
