package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-tracker/internal/ledger"
)

const sheet = "Invoices"

// LedgerLoader reads the current ledger.
type LedgerLoader interface {
	Load(ctx context.Context) (*ledger.Ledger, error)
}

// Service turns the ledger into an XLSX workbook.
type Service struct {
	store   LedgerLoader
	columns []string
	logger  *slog.Logger
}

// NewService exports columns in the given order. Keys found in records but
// not listed are appended after them in first-seen order.
func NewService(store LedgerLoader, columns []string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, columns: columns, logger: logger}
}

// ExportLedgerXLSX returns the workbook bytes: one header row of field names
// and one row per invoice in ledger order. Absent values are blank cells.
func (s *Service) ExportLedgerXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	l, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	recs := l.Records()

	cols := append([]string(nil), s.columns...)
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		seen[c] = struct{}{}
	}
	for _, r := range recs {
		for _, k := range r.Keys() {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				cols = append(cols, k)
			}
		}
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("failed to close workbook", "error", err)
		}
	}()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	for i, h := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	for row, r := range recs {
		for col, name := range cols {
			v, ok := r.Value(name)
			if !ok {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellStr(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	if len(cols) > 0 {
		last, _ := excelize.ColumnNumberToName(len(cols))
		_ = f.SetColWidth(sheet, "A", last, 24)
		_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(recs),
		"columns", len(cols),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
