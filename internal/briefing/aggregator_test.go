package briefing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockwatch/stockwatch/constants"
	"github.com/stockwatch/stockwatch/internal/entity"
)

func row(name string, qty any, baseline *float64) *entity.Row {
	return &entity.Row{
		ID:       uuid.New(),
		Fields:   entity.FieldsOf("품목명", name, "현재 재고", qty),
		Baseline: baseline,
		Alarm:    baseline != nil,
	}
}

func TestSummarizeStableOrder(t *testing.T) {
	rows := []*entity.Row{
		row("A", "2", entity.Float64Ptr(10)), // 80%
		row("B", "7", entity.Float64Ptr(10)), // 30%
		row("C", "4", entity.Float64Ptr(20)), // 80%
	}
	stats := NewAggregator(nil).Summarize(rows)

	require.Len(t, stats.LowStockItems, 3)
	assert.Equal(t, []string{"A", "C", "B"}, []string{
		stats.LowStockItems[0].ItemName, stats.LowStockItems[1].ItemName, stats.LowStockItems[2].ItemName,
	})
	assert.Equal(t, int64(80), stats.LowStockItems[0].ShortagePercent)
	assert.Equal(t, int64(30), stats.LowStockItems[2].ShortagePercent)
	assert.Equal(t, 2, stats.CriticalCount)
	assert.Equal(t, 1, stats.WarningCount)
	assert.Equal(t, 3, stats.LowStockCount)
	assert.InDelta(t, 27.0, stats.TotalShortage, 1e-9)
}

func TestSummarizeNonIncreasing(t *testing.T) {
	var rows []*entity.Row
	for i, q := range []string{"9", "1", "5", "5", "0", "8", "3"} {
		rows = append(rows, row(string(rune('a'+i)), q, entity.Float64Ptr(10)))
	}
	stats := NewAggregator(nil).Summarize(rows)
	for i := 1; i < len(stats.LowStockItems); i++ {
		assert.GreaterOrEqual(t, stats.LowStockItems[i-1].ShortagePercent, stats.LowStockItems[i].ShortagePercent)
	}
	// percents 10 90 50 50 100 20 70; the two 50% rows keep input order
	assert.Equal(t, "e", stats.LowStockItems[0].ItemName)
	assert.Equal(t, "c", stats.LowStockItems[3].ItemName)
	assert.Equal(t, "d", stats.LowStockItems[4].ItemName)
}

func TestSummarizeCounts(t *testing.T) {
	rows := []*entity.Row{
		row("unconfirmed", "1", nil),
		row("ok", "12", entity.Float64Ptr(10)),
		row("slightly", "9", entity.Float64Ptr(10)), // 10%: short but neither bucket
		row("zero base", "-1", entity.Float64Ptr(0)),
	}
	stats := NewAggregator(nil).Summarize(rows)

	assert.Equal(t, 4, stats.TotalRows)
	assert.Equal(t, 3, stats.ConfirmedItems)
	assert.Equal(t, 2, stats.LowStockCount)
	assert.Equal(t, 1, stats.CriticalCount)
	assert.Equal(t, 0, stats.WarningCount)
	require.Len(t, stats.LowStockItems, 2)
	assert.Equal(t, "zero base", stats.LowStockItems[0].ItemName)
	assert.Equal(t, int64(100), stats.LowStockItems[0].ShortagePercent)
	assert.Equal(t, constants.SeverityNormal, stats.LowStockItems[1].Severity)
}

func TestSeverityOf(t *testing.T) {
	assert.Equal(t, constants.SeverityCritical, SeverityOf(50))
	assert.Equal(t, constants.SeverityWarning, SeverityOf(49))
	assert.Equal(t, constants.SeverityWarning, SeverityOf(20))
	assert.Equal(t, constants.SeverityNormal, SeverityOf(19))
}

func TestClassify(t *testing.T) {
	rows := []*entity.Row{
		row("a", "1", entity.Float64Ptr(10)),
		row("b", "1", nil),
		row("c", "7", entity.Float64Ptr(10)),
	}
	got := NewAggregator(nil).Classify(rows)
	require.Len(t, got, 3)
	assert.Equal(t, constants.SeverityCritical, got[0].Severity)
	assert.Equal(t, constants.SeverityNormal, got[1].Severity)
	assert.Equal(t, constants.SeverityWarning, got[2].Severity)
}
