// Package export renders file groups back into spreadsheets.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/stockwatch/stockwatch/constants"
	"github.com/stockwatch/stockwatch/internal/briefing"
	"github.com/stockwatch/stockwatch/internal/entity"
	"github.com/stockwatch/stockwatch/internal/projection"
	"github.com/stockwatch/stockwatch/internal/repository"
	"github.com/stockwatch/stockwatch/internal/tabular"
)

// ProjectedHeaders are the display columns of the projected export.
var ProjectedHeaders = []string{"번호", "품목명", "규격", "단위", "현재재고", "기준재고", "상태"}

var statusLabels = map[constants.RowStatus]string{
	constants.RowStatusExpired:      "유통기한 만료",
	constants.RowStatusExpiringSoon: "유통기한 임박",
	constants.RowStatusShortage:     "재고 부족",
	constants.RowStatusNormal:       "정상",
}

// StatusLabel is the Korean text shown in the 상태 column.
func StatusLabel(s constants.RowStatus) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Service is a tiny façade over the row repository that produces XLSX bytes for exports.
type Service struct {
	rows       repository.RowRepository
	projector  *projection.Projector
	aggregator *briefing.Aggregator
	logger     *slog.Logger
}

func NewService(rows repository.RowRepository, projector *projection.Projector, aggregator *briefing.Aggregator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if projector == nil {
		projector = projection.NewProjector(nil)
	}
	if aggregator == nil {
		aggregator = briefing.NewAggregator(nil)
	}
	return &Service{rows: rows, projector: projector, aggregator: aggregator, logger: logger}
}

// ProjectedXLSX writes the seven display columns for a file group. Critical and warning
// shortages are filled red and amber.
func (s *Service) ProjectedXLSX(ctx context.Context, fileGroup string) ([]byte, error) {
	start := time.Now()
	rows, err := s.rows.RangeByFileGroup(ctx, fileGroup)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	const sheet = "재고현황"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	for i, h := range ProjectedHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	_ = f.SetCellStyle(sheet, "A1", "G1", headerStyle)

	fills := map[constants.Severity]int{}
	for sev, color := range map[constants.Severity]string{
		constants.SeverityCritical: "FFC7CE",
		constants.SeverityWarning:  "FFEB9C",
	} {
		id, err := f.NewStyle(&excelize.Style{Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}})
		if err != nil {
			return nil, fmt.Errorf("xlsx style: %w", err)
		}
		fills[sev] = id
	}

	for i, c := range s.aggregator.Classify(rows) {
		p := s.projector.Project(c.Row, i)
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, p.SequenceNumber)
		write(2, p.ItemName)
		write(3, p.Specification)
		write(4, p.Unit)
		write(5, p.CurrentQuantity)
		if c.Row.Confirmed() {
			write(6, p.BaselineQuantity)
		} else {
			write(6, "-")
		}
		write(7, StatusLabel(p.Status))

		if style, ok := fills[c.Severity]; ok {
			first, _ := excelize.CoordinatesToCellName(1, row)
			last, _ := excelize.CoordinatesToCellName(len(ProjectedHeaders), row)
			_ = f.SetCellStyle(sheet, first, last, style)
		}
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 8)  // no
	_ = f.SetColWidth(sheet, "B", "B", 28) // item
	_ = f.SetColWidth(sheet, "C", "D", 14) // 규격, 단위
	_ = f.SetColWidth(sheet, "E", "F", 12) // quantities
	_ = f.SetColWidth(sheet, "G", "G", 16) // status

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"file_group", fileGroup,
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// Raw re-encodes the original fields of a file group with the given codec.
func (s *Service) Raw(ctx context.Context, fileGroup string, codec tabular.Codec) ([]byte, error) {
	rows, err := s.rows.RangeByFileGroup(ctx, fileGroup)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	records := make([]entity.Fields, len(rows))
	for i, r := range rows {
		records[i] = r.Fields
	}
	data, err := codec.Encode(tabular.FromRecords(records))
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.raw.ok", "file_group", fileGroup, "rows", len(rows), "mime", codec.MimeType())
	return data, nil
}

// RawXLSX is Raw with the XLSX codec.
func (s *Service) RawXLSX(ctx context.Context, fileGroup string) ([]byte, error) {
	return s.Raw(ctx, fileGroup, tabular.XLSXCodec{Sheet: "원본"})
}
