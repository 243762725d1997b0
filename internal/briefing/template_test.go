package briefing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTemplateNoConfirmed(t *testing.T) {
	got := Template(Stats{TotalRows: 4})
	assert.Equal(t, "4 rows checked, 0 with a confirmed base stock. Confirm base stock to start shortage tracking.", got)
}

func TestTemplateNothingShort(t *testing.T) {
	got := Template(Stats{TotalRows: 2, ConfirmedItems: 2})
	assert.Equal(t, "2 rows checked, 2 with a confirmed base stock. No item is below its base stock.", got)
}

func TestTemplateListsTopThree(t *testing.T) {
	stats := Stats{
		TotalRows: 5, ConfirmedItems: 5, LowStockCount: 4, TotalShortage: 12.5, CriticalCount: 2, WarningCount: 1,
		LowStockItems: []LowStockItem{
			{ItemName: "a", CurrentStock: 0, BaseStock: 5, ShortagePercent: 100},
			{ItemName: "b", CurrentStock: 1.5, BaseStock: 5, ShortagePercent: 70},
			{ItemName: "c", CurrentStock: 3, BaseStock: 5, ShortagePercent: 40},
			{ItemName: "d", CurrentStock: 9, BaseStock: 10, ShortagePercent: 10},
		},
	}
	got := Template(stats)
	assert.Contains(t, got, "4 items are below base stock (total shortage 12.5): 2 critical, 1 warning.")
	assert.Contains(t, got, "Most short: a 0/5 (-100%), b 1.5/5 (-70%), c 3/5 (-40%).")
	assert.NotContains(t, got, "d 9/10")
}

func TestTemplateSingular(t *testing.T) {
	stats := Stats{
		TotalRows: 1, ConfirmedItems: 1, LowStockCount: 1, TotalShortage: 8, CriticalCount: 1,
		LowStockItems: []LowStockItem{{ItemName: "볼트", CurrentStock: 2, BaseStock: 10, ShortagePercent: 80}},
	}
	assert.Equal(t,
		"1 row checked, 1 with a confirmed base stock. 1 item is below base stock (total shortage 8): 1 critical, 0 warning. Most short: 볼트 2/10 (-80%).",
		Template(stats))
}
