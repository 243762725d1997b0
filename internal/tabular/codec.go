// Package tabular decodes spreadsheet bytes into header/row tables and encodes them back.
package tabular

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/stockwatch/stockwatch/constants"
	"github.com/stockwatch/stockwatch/internal/common"
	"github.com/stockwatch/stockwatch/internal/entity"
)

// Table is a decoded sheet. Cells hold nil, string, float64 or bool.
type Table struct {
	Headers []string
	Rows    [][]any
}

type Codec interface {
	Decode(data []byte) (*Table, error)
	Encode(t *Table) ([]byte, error)
	MimeType() string
}

// ForHint picks a codec from a MIME type, an extension or a file name.
func ForHint(hint string) (Codec, error) {
	h := strings.ToLower(strings.TrimSpace(hint))
	if i := strings.Index(h, ";"); i >= 0 {
		h = strings.TrimSpace(h[:i])
	}
	switch {
	case h == constants.MimeXLSX:
		return XLSXCodec{}, nil
	case h == constants.MimeCSV, h == "application/csv":
		return CSVCodec{}, nil
	}
	ext := h
	if strings.Contains(h, ".") {
		ext = filepath.Ext(h)
	}
	switch constants.MimeForExt(ext) {
	case constants.MimeXLSX:
		return XLSXCodec{}, nil
	case constants.MimeCSV:
		return CSVCodec{}, nil
	}
	return nil, common.InvalidInput(fmt.Sprintf("unsupported file type %q", hint))
}

// Records turns each row into ordered fields keyed by header. Values are normalized into the cell
// domain, so NaN and infinities read as nil. Fully empty rows are dropped.
func (t *Table) Records() []entity.Fields {
	out := make([]entity.Fields, 0, len(t.Rows))
	for _, row := range t.Rows {
		fields := make(entity.Fields, 0, len(t.Headers))
		empty := true
		for i, h := range t.Headers {
			var v any
			if i < len(row) {
				v = row[i]
			}
			v = entity.NormalizeCell(v)
			if v != nil && entity.CellString(v) != "" {
				empty = false
			}
			fields = append(fields, entity.Field{Key: h, Value: v})
		}
		if !empty {
			out = append(out, fields)
		}
	}
	return out
}

// FromRecords builds a table whose headers are the union of keys in first-seen order.
func FromRecords(records []entity.Fields) *Table {
	t := &Table{}
	pos := map[string]int{}
	for _, rec := range records {
		for _, f := range rec {
			if _, ok := pos[f.Key]; !ok {
				pos[f.Key] = len(t.Headers)
				t.Headers = append(t.Headers, f.Key)
			}
		}
	}
	for _, rec := range records {
		row := make([]any, len(t.Headers))
		for _, f := range rec {
			row[pos[f.Key]] = f.Value
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// normalizeHeaders fills blanks with "Column N" and suffixes duplicates with " (n)".
func normalizeHeaders(raw []string, width int) []string {
	if width < len(raw) {
		width = len(raw)
	}
	out := make([]string, width)
	seen := map[string]bool{}
	for i := 0; i < width; i++ {
		h := ""
		if i < len(raw) {
			h = strings.TrimSpace(raw[i])
		}
		if h == "" {
			h = fmt.Sprintf("Column %d", i+1)
		}
		base := h
		for n := 2; seen[h]; n++ {
			h = fmt.Sprintf("%s (%d)", base, n)
		}
		seen[h] = true
		out[i] = h
	}
	return out
}

// pad stretches every row to the header width.
func pad(rows [][]any, width int) [][]any {
	for i, r := range rows {
		if len(r) < width {
			rows[i] = append(r, make([]any, width-len(r))...)
		}
	}
	return rows
}
