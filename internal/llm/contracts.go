package llm

import "context"

// ShortageLine is one low-stock item as shown to the model.
type ShortageLine struct {
	ItemName        string  `json:"item_name"`
	CurrentStock    float64 `json:"current_stock"`
	BaseStock       float64 `json:"base_stock"`
	Shortage        float64 `json:"shortage"`
	ShortagePercent int64   `json:"shortage_percent"`
	Severity        string  `json:"severity"`
}

// SummaryRequest carries already-computed statistics. The model only writes prose about them.
type SummaryRequest struct {
	FileGroup      string         `json:"file_group"`
	TotalRows      int            `json:"total_rows"`
	ConfirmedItems int            `json:"confirmed_items"`
	LowStockCount  int            `json:"low_stock_count"`
	TotalShortage  float64        `json:"total_shortage"`
	CriticalCount  int            `json:"critical_count"`
	WarningCount   int            `json:"warning_count"`
	TopShortages   []ShortageLine `json:"top_shortages"`
	MaxPromptRunes int            `json:"-"`
}

// Summarizer is the optional text collaborator behind inventory briefings.
type Summarizer interface {
	SummarizeStats(ctx context.Context, req SummaryRequest) (string, error)
}
