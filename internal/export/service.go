package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/digital-products/constants"
	"github.com/joseph-ayodele/digital-products/internal/ledger"
)

const (
	ledgerSheet  = "Ledger"
	summarySheet = "Summary"
)

// RowReader is the ledger view the report needs.
type RowReader interface {
	ReadAll(ctx context.Context) ([]ledger.Row, error)
}

// Service produces an XLSX snapshot of the ledger.
type Service struct {
	rows   RowReader
	logger *slog.Logger
}

func NewService(rows RowReader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{rows: rows, logger: logger}
}

// ExportLedgerXLSX returns the workbook as bytes: one row per ledger entry plus a summary sheet.
func (s *Service) ExportLedgerXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	rows, err := s.rows.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", ledgerSheet); err != nil {
		return nil, err
	}

	headers := append(append([]string{}, constants.LedgerHeader...), "Status")
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(ledgerSheet, cell, h)
	}

	for i, r := range rows {
		line := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, line)
			_ = f.SetCellValue(ledgerSheet, cell, v)
		}
		write(1, r.ProductID)
		write(2, r.SourcePath)
		write(3, r.RemoteLink)
		write(4, rowStatus(r))
	}

	_ = f.SetColWidth(ledgerSheet, "A", "A", 18) // id
	_ = f.SetColWidth(ledgerSheet, "B", "B", 60) // path
	_ = f.SetColWidth(ledgerSheet, "C", "C", 60) // link
	_ = f.SetColWidth(ledgerSheet, "D", "D", 10)

	if err := writeSummary(f, ledger.Summarize(rows)); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// WriteFile exports the ledger and writes the workbook to path.
func (s *Service) WriteFile(ctx context.Context, path string) error {
	b, err := s.ExportLedgerXLSX(ctx)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	s.logger.Info("export.xlsx.written", "path", path, "bytes", len(b))
	return nil
}

func writeSummary(f *excelize.File, sum ledger.Summary) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	lines := [][]any{
		{"Total", sum.Total},
		{"Linked", sum.Resolved},
		{"Awaiting upload", sum.Unresolved},
	}
	for i, l := range lines {
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &l); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 18)
	return nil
}

func rowStatus(r ledger.Row) string {
	if r.Resolved() {
		return "linked"
	}
	return "created"
}
