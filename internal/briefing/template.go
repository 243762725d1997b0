package briefing

import (
	"fmt"
	"strconv"
	"strings"
)

// templateTopItems caps how many item names the fallback sentence lists.
const templateTopItems = 3

// Template writes the deterministic summary. Every number in it comes straight from stats.
func Template(stats Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s checked, %d with a confirmed base stock.", count(stats.TotalRows, "row", "rows"), stats.ConfirmedItems)
	if stats.ConfirmedItems == 0 {
		b.WriteString(" Confirm base stock to start shortage tracking.")
		return b.String()
	}
	if stats.LowStockCount == 0 {
		b.WriteString(" No item is below its base stock.")
		return b.String()
	}
	fmt.Fprintf(&b, " %s below base stock (total shortage %s): %d critical, %d warning.",
		count(stats.LowStockCount, "item is", "items are"), formatQty(stats.TotalShortage), stats.CriticalCount, stats.WarningCount)

	n := min(len(stats.LowStockItems), templateTopItems)
	if n > 0 {
		parts := make([]string, n)
		for i := 0; i < n; i++ {
			it := stats.LowStockItems[i]
			parts[i] = fmt.Sprintf("%s %s/%s (-%d%%)", it.ItemName, formatQty(it.CurrentStock), formatQty(it.BaseStock), it.ShortagePercent)
		}
		fmt.Fprintf(&b, " Most short: %s.", strings.Join(parts, ", "))
	}
	return b.String()
}

func count(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return strconv.Itoa(n) + " " + many
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
