package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/stockwatch/stockwatch/constants"
	"github.com/stockwatch/stockwatch/internal/common"
	"github.com/stockwatch/stockwatch/internal/entity"
)

// CSVCodec keeps every non-empty cell as text.
type CSVCodec struct{}

func (CSVCodec) MimeType() string { return constants.MimeCSV }

func (CSVCodec) Decode(data []byte) (*Table, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	raw, err := r.ReadAll()
	if err != nil {
		return nil, common.NewAppError("INVALID_INPUT", "read csv", fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
	}
	if len(raw) == 0 {
		return &Table{}, nil
	}
	width := 0
	for _, rec := range raw {
		width = max(width, len(rec))
	}
	t := &Table{Headers: normalizeHeaders(raw[0], width)}
	for _, rec := range raw[1:] {
		row := make([]any, len(rec))
		for i, s := range rec {
			if strings.TrimSpace(s) != "" {
				row[i] = s
			}
		}
		t.Rows = append(t.Rows, row)
	}
	t.Rows = pad(t.Rows, len(t.Headers))
	return t, nil
}

func (CSVCodec) Encode(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Headers); err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}
	for _, r := range t.Rows {
		rec := make([]string, len(r))
		for i, v := range r {
			rec[i] = entity.CellString(v)
		}
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv flush: %w", err)
	}
	return buf.Bytes(), nil
}
