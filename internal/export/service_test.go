package export

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/digital-products/internal/ledger"
)

type staticRows struct {
	rows []ledger.Row
	err  error
}

func (s staticRows) ReadAll(context.Context) ([]ledger.Row, error) {
	return s.rows, s.err
}

func TestExportLedgerXLSX(t *testing.T) {
	svc := NewService(staticRows{rows: []ledger.Row{
		{ProductID: "101", SourcePath: "/src/a.pdf", RemoteLink: "https://drive/a"},
		{ProductID: "102", SourcePath: "/src/b.pdf"},
	}}, nil)

	b, err := svc.ExportLedgerXLSX(context.Background())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Ledger")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Product ID", "PDF Path", "Drive URL", "Status"},
		{"101", "/src/a.pdf", "https://drive/a", "linked"},
		{"102", "/src/b.pdf", "", "created"},
	}, rows)

	total, err := f.GetCellValue("Summary", "B1")
	require.NoError(t, err)
	assert.Equal(t, "2", total)
	pending, err := f.GetCellValue("Summary", "B3")
	require.NoError(t, err)
	assert.Equal(t, "1", pending)
}

func TestExportPropagatesLedgerError(t *testing.T) {
	svc := NewService(staticRows{err: errors.New("boom")}, nil)
	_, err := svc.ExportLedgerXLSX(context.Background())
	assert.ErrorContains(t, err, "boom")
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	svc := NewService(staticRows{}, nil)
	require.NoError(t, svc.WriteFile(context.Background(), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Ledger")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
