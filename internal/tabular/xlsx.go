package tabular

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/stockwatch/stockwatch/constants"
	"github.com/stockwatch/stockwatch/internal/common"
)

// XLSXCodec reads the first sheet of a workbook and writes a single-sheet workbook.
type XLSXCodec struct {
	// Sheet names the sheet written by Encode; default "Sheet1".
	Sheet string
}

func (XLSXCodec) MimeType() string { return constants.MimeXLSX }

func (c XLSXCodec) Decode(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, common.NewAppError("INVALID_INPUT", "open workbook", fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Table{}, nil
	}
	sheet := sheets[0]
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, common.NewAppError("INVALID_INPUT", "read sheet", fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
	}
	if len(raw) == 0 {
		return &Table{}, nil
	}

	width := 0
	for _, r := range raw {
		width = max(width, len(r))
	}
	t := &Table{Headers: normalizeHeaders(raw[0], width)}
	for ri, r := range raw[1:] {
		row := make([]any, len(r))
		for ci, s := range r {
			cell, _ := excelize.CoordinatesToCellName(ci+1, ri+2)
			typ, _ := f.GetCellType(sheet, cell)
			row[ci] = decodeCell(typ, s)
		}
		t.Rows = append(t.Rows, row)
	}
	t.Rows = pad(t.Rows, len(t.Headers))
	return t, nil
}

// decodeCell maps a raw cell to the cell domain. Unparseable numeric cells become nil.
func decodeCell(typ excelize.CellType, s string) any {
	if s == "" {
		return nil
	}
	switch typ {
	case excelize.CellTypeBool:
		return s == "1" || strings.EqualFold(s, "true")
	case excelize.CellTypeNumber, excelize.CellTypeDate:
		n, ok := parseFinite(s)
		if !ok {
			return nil
		}
		return n
	case excelize.CellTypeUnset:
		if n, ok := parseFinite(s); ok {
			return n
		}
	case excelize.CellTypeError:
		return nil
	}
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRUE":
		return true
	case "FALSE":
		return false
	}
	return s
}

// parseFinite accepts only finite numbers; ParseFloat alone lets "NaN" and "Inf" through.
func parseFinite(s string) (float64, bool) {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func (c XLSXCodec) Encode(t *Table) ([]byte, error) {
	sheet := c.Sheet
	if sheet == "" {
		sheet = "Sheet1"
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return nil, fmt.Errorf("xlsx sheet: %w", err)
		}
	}

	write := func(col, row int, v any) error {
		if v == nil {
			return nil
		}
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(sheet, cell, v)
	}
	for i, h := range t.Headers {
		if err := write(i+1, 1, h); err != nil {
			return nil, fmt.Errorf("xlsx header: %w", err)
		}
	}
	for ri, r := range t.Rows {
		for ci, v := range r {
			if err := write(ci+1, ri+2, v); err != nil {
				return nil, fmt.Errorf("xlsx cell: %w", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
