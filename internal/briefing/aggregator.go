// Package briefing folds a file group's rows into shortage statistics and a short written summary.
package briefing

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/stockwatch/stockwatch/constants"
	"github.com/stockwatch/stockwatch/internal/columns"
	"github.com/stockwatch/stockwatch/internal/entity"
	"github.com/stockwatch/stockwatch/internal/projection"
)

type LowStockItem struct {
	RowID           string             `json:"rowId"`
	ItemName        string             `json:"itemName"`
	CurrentStock    float64            `json:"currentStock"`
	BaseStock       float64            `json:"baseStock"`
	Shortage        float64            `json:"shortage"`
	ShortagePercent int64              `json:"shortagePercent"`
	Severity        constants.Severity `json:"severity"`
}

type Stats struct {
	TotalRows      int            `json:"totalRows"`
	ConfirmedItems int            `json:"confirmedItems"`
	LowStockCount  int            `json:"lowStockCount"`
	TotalShortage  float64        `json:"totalShortage"`
	CriticalCount  int            `json:"criticalCount"`
	WarningCount   int            `json:"warningCount"`
	LowStockItems  []LowStockItem `json:"lowStockItems"`
}

// ClassifiedRow pairs a row with its severity for one snapshot of rows.
type ClassifiedRow struct {
	Row      *entity.Row
	Severity constants.Severity
}

type Aggregator struct {
	projector *projection.Projector
	extractor *columns.Extractor
}

func NewAggregator(extractor *columns.Extractor) *Aggregator {
	if extractor == nil {
		extractor = columns.NewExtractor(nil)
	}
	return &Aggregator{
		projector: projection.NewProjector(extractor),
		extractor: extractor,
	}
}

// Summarize is a read-only fold over rows in the given order. Low-stock items are ordered by
// shortage percent, highest first; equal percents keep input order.
func (a *Aggregator) Summarize(rows []*entity.Row) Stats {
	stats := Stats{TotalRows: len(rows), LowStockItems: []LowStockItem{}}
	total := decimal.Zero
	for i, r := range rows {
		if !r.Confirmed() {
			continue
		}
		stats.ConfirmedItems++
		item, ok := a.lowStock(r, i)
		if !ok {
			continue
		}
		stats.LowStockCount++
		total = total.Add(decimal.NewFromFloat(item.Shortage))
		switch item.Severity {
		case constants.SeverityCritical:
			stats.CriticalCount++
		case constants.SeverityWarning:
			stats.WarningCount++
		}
		stats.LowStockItems = append(stats.LowStockItems, item)
	}
	stats.TotalShortage = total.InexactFloat64()
	sort.SliceStable(stats.LowStockItems, func(i, j int) bool {
		return stats.LowStockItems[i].ShortagePercent > stats.LowStockItems[j].ShortagePercent
	})
	return stats
}

// Classify tags every row: unconfirmed and non-short rows are normal.
func (a *Aggregator) Classify(rows []*entity.Row) []ClassifiedRow {
	out := make([]ClassifiedRow, len(rows))
	for i, r := range rows {
		out[i] = ClassifiedRow{Row: r, Severity: constants.SeverityNormal}
		if item, ok := a.lowStock(r, i); ok {
			out[i].Severity = item.Severity
		}
	}
	return out
}

func (a *Aggregator) lowStock(r *entity.Row, index int) (LowStockItem, bool) {
	if r.Baseline == nil {
		return LowStockItem{}, false
	}
	current := decimal.NewFromFloat(a.extractor.QuantityOrZero(r.Fields))
	base := decimal.NewFromFloat(*r.Baseline)
	if !current.LessThan(base) {
		return LowStockItem{}, false
	}
	shortage := base.Sub(current)
	percent := int64(100)
	if base.IsPositive() {
		percent = shortage.Div(base).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	}
	return LowStockItem{
		RowID:           r.ID.String(),
		ItemName:        a.projector.Project(r, index).ItemName,
		CurrentStock:    current.InexactFloat64(),
		BaseStock:       base.InexactFloat64(),
		Shortage:        shortage.InexactFloat64(),
		ShortagePercent: percent,
		Severity:        SeverityOf(percent),
	}, true
}

// SeverityOf buckets a shortage percent.
func SeverityOf(percent int64) constants.Severity {
	switch {
	case percent >= constants.CriticalShortagePercent:
		return constants.SeverityCritical
	case percent >= constants.WarningShortagePercent:
		return constants.SeverityWarning
	default:
		return constants.SeverityNormal
	}
}
