package projection

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockwatch/stockwatch/constants"
	"github.com/stockwatch/stockwatch/internal/entity"
)

var fixedNow = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

func newProjector() *Projector {
	return NewProjector(nil, WithClock(func() time.Time { return fixedNow }))
}

func row(baseline *float64, kv ...any) *entity.Row {
	return &entity.Row{ID: uuid.New(), FileGroup: "g", Fields: entity.FieldsOf(kv...), Baseline: baseline}
}

func TestProject_UnconfirmedRowIsNeverShort(t *testing.T) {
	p := newProjector()
	got := p.Project(row(nil, "현재 재고", "45", "품목명", "볼트"), 0)

	assert.Equal(t, 1, got.SequenceNumber)
	assert.Equal(t, "볼트", got.ItemName)
	assert.Equal(t, 45.0, got.CurrentQuantity)
	assert.Equal(t, 0.0, got.BaselineQuantity)
	assert.Equal(t, constants.RowStatusNormal, got.Status)
	assert.Equal(t, constants.AlarmStateUnconfirmed, got.State)
	assert.Equal(t, "-", got.Unit)
	assert.Equal(t, "-", got.Specification)
}

func TestProject_FallbackItemName(t *testing.T) {
	p := newProjector()
	got := p.Project(row(nil, "id", "abc", "Column 1", nil), 4)

	assert.Equal(t, "Item 5", got.ItemName)
	assert.Equal(t, 5, got.SequenceNumber)
}

func TestProject_Shortage(t *testing.T) {
	p := newProjector()

	short := p.Project(row(entity.Float64Ptr(45), "재고", "30"), 0)
	assert.Equal(t, constants.RowStatusShortage, short.Status)
	assert.Equal(t, 45.0, short.BaselineQuantity)

	equal := p.Project(row(entity.Float64Ptr(45), "재고", "45"), 0)
	assert.Equal(t, constants.RowStatusNormal, equal.Status)

	zeroBase := p.Project(row(entity.Float64Ptr(0), "재고", "-5"), 0)
	assert.Equal(t, constants.RowStatusNormal, zeroBase.Status)

	noQty := p.Project(row(entity.Float64Ptr(3), "품명", "x"), 0)
	assert.Equal(t, constants.RowStatusShortage, noQty.Status)
	assert.Equal(t, 0.0, noQty.CurrentQuantity)
}

func TestProject_NonFiniteQuantityReadsAsZero(t *testing.T) {
	p := newProjector()
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		r := &entity.Row{
			ID:       uuid.New(),
			Fields:   entity.Fields{{Key: "재고", Value: v}, {Key: "유통기한", Value: v}},
			Baseline: entity.Float64Ptr(10),
		}
		var got Projected
		require.NotPanics(t, func() { got = p.Project(r, 0) })
		assert.Equal(t, 0.0, got.CurrentQuantity)
		assert.Nil(t, got.ExpiresOn)
		assert.Equal(t, constants.RowStatusShortage, got.Status)
	}
}

func TestProject_ExpiryOutranksShortage(t *testing.T) {
	p := newProjector()
	base := entity.Float64Ptr(100)

	cases := []struct {
		expiry any
		want   constants.RowStatus
	}{
		{"2026-03-09", constants.RowStatusExpired},
		{"2026-03-10", constants.RowStatusExpired},
		{"2026-03-11", constants.RowStatusExpiringSoon},
		{"2026/03/17", constants.RowStatusExpiringSoon},
		{"2026.03.18", constants.RowStatusShortage},
		{"not a date", constants.RowStatusShortage},
	}
	for _, tc := range cases {
		got := p.Project(row(base, "재고", "1", "유통기한", tc.expiry), 0)
		assert.Equal(t, tc.want, got.Status, "expiry %v", tc.expiry)
	}
}

func TestProject_ExpiryWindowOption(t *testing.T) {
	p := NewProjector(nil, WithClock(func() time.Time { return fixedNow }), WithExpiryWindow(30))
	got := p.Project(row(nil, "expiry", "2026-04-01"), 0)
	assert.Equal(t, constants.RowStatusExpiringSoon, got.Status)
}

func TestParseDate_ExcelSerial(t *testing.T) {
	d, ok := ParseDate(46092.0)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), d)

	_, ok = ParseDate(true)
	assert.False(t, ok)
}

func TestProjectAll_UsesSlicePosition(t *testing.T) {
	p := newProjector()
	out := p.ProjectAll([]*entity.Row{row(nil, "비고", nil), row(nil, "비고", nil)})
	require.Len(t, out, 2)
	assert.Equal(t, "Item 1", out[0].ItemName)
	assert.Equal(t, "Item 2", out[1].ItemName)
}
