package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/digital-products/internal/common"
)

func TestCSVInitWritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "product_pdf_data.csv")
	require.NoError(t, NewCSVStore(path, nil).Init(context.Background()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Product ID,PDF Path,Drive URL\n", string(raw))
}

func TestCSVInitKeepsExistingRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "product_pdf_data.csv")
	content := "Product ID,PDF Path,Drive URL\n11,/a.pdf,https://x/11\n12,/b.pdf,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s := NewCSVStore(path, nil)
	require.NoError(t, s.Init(context.Background()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(raw))

	rows, err := s.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Resolved())
	assert.False(t, rows[1].Resolved())
}

func TestCSVCorruptLedgerIsLedgerIOError(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty file", content: ""},
		{name: "wrong header", content: "id,path,url\n1,/a.pdf,\n"},
		{name: "short row", content: "Product ID,PDF Path,Drive URL\n1,/a.pdf\n"},
		{name: "unterminated quote", content: "Product ID,PDF Path,Drive URL\n1,\"/a.pdf,\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "ledger.csv")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			s := NewCSVStore(path, nil)

			err := s.Init(context.Background())
			assert.ErrorIs(t, err, common.ErrLedgerIO)
			assert.Equal(t, common.KindLedgerIO, common.KindOf(err))

			_, err = s.ReadAll(context.Background())
			assert.ErrorIs(t, err, common.ErrLedgerIO)

			raw, readErr := os.ReadFile(path)
			require.NoError(t, readErr)
			assert.Equal(t, tt.content, string(raw), "corrupt ledger must not be rewritten")
		})
	}
}

func TestCSVMissingLedgerOnRead(t *testing.T) {
	s := NewCSVStore(filepath.Join(t.TempDir(), "absent.csv"), nil)
	_, err := s.ReadAll(context.Background())
	assert.ErrorIs(t, err, common.ErrLedgerIO)
}

func TestCSVUpdateLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewCSVStore(filepath.Join(dir, "ledger.csv"), nil)
	ctx := context.Background()
	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.Append(ctx, "1", "/a.pdf"))
	require.NoError(t, s.UpdateLink(ctx, "1", "https://x/1"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ledger.csv", entries[0].Name())
}

func TestCSVAppendRepairsMissingTrailingNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.csv")
	require.NoError(t, os.WriteFile(path, []byte("Product ID,PDF Path,Drive URL\n1,/a.pdf,"), 0o644))
	s := NewCSVStore(path, nil)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "2", "/b.pdf"))

	rows, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2", rows[1].ProductID)
}

func TestCSVQuotesPathsWithCommas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.csv")
	s := NewCSVStore(path, nil)
	ctx := context.Background()
	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.Append(ctx, "1", "/src/Report, Final.pdf"))

	rows, err := s.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/src/Report, Final.pdf", rows[0].SourcePath)
}
