package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/digital-products/internal/common"
)

// backends returns a fresh, initialized store per backend that runs in-process.
func backends(t *testing.T) map[string]func() Store {
	t.Helper()
	return map[string]func() Store{
		"csv": func() Store {
			s := NewCSVStore(filepath.Join(t.TempDir(), "ledger.csv"), nil)
			require.NoError(t, s.Init(context.Background()))
			return s
		},
		"sqlite": func() Store {
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"), nil)
			require.NoError(t, err)
			require.NoError(t, s.Init(context.Background()))
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, newStore := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore()

			require.NoError(t, s.Append(ctx, "101", "/src/2024-Q3-Alpha.pdf"))
			require.NoError(t, s.Append(ctx, "102", "/src/2024-Q3-Beta.pdf"))

			rows, err := s.ReadAll(ctx)
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.Equal(t, Row{ProductID: "101", SourcePath: "/src/2024-Q3-Alpha.pdf"}, rows[0])
			assert.False(t, rows[0].Resolved())

			require.NoError(t, s.UpdateLink(ctx, "101", "https://drive.example/file/101"))

			rows, err = s.ReadAll(ctx)
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.Equal(t, Row{
				ProductID:  "101",
				SourcePath: "/src/2024-Q3-Alpha.pdf",
				RemoteLink: "https://drive.example/file/101",
			}, rows[0])
			assert.Equal(t, Row{ProductID: "102", SourcePath: "/src/2024-Q3-Beta.pdf"}, rows[1])
		})
	}
}

func TestStoreRejectsDuplicateProductID(t *testing.T) {
	ctx := context.Background()
	for name, newStore := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore()
			require.NoError(t, s.Append(ctx, "7", "/a.pdf"))
			assert.ErrorIs(t, s.Append(ctx, "7", "/b.pdf"), ErrDuplicate)

			rows, err := s.ReadAll(ctx)
			require.NoError(t, err)
			assert.Len(t, rows, 1)
		})
	}
}

func TestStoreLinkIsNeverOverwritten(t *testing.T) {
	ctx := context.Background()
	for name, newStore := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore()
			require.NoError(t, s.Append(ctx, "7", "/a.pdf"))
			require.NoError(t, s.UpdateLink(ctx, "7", "https://x/1"))

			assert.NoError(t, s.UpdateLink(ctx, "7", "https://x/1"), "same link is a no-op")
			assert.ErrorIs(t, s.UpdateLink(ctx, "7", "https://x/2"), ErrResolved)
			assert.ErrorIs(t, s.UpdateLink(ctx, "7", ""), common.ErrInvalidInput)

			rows, err := s.ReadAll(ctx)
			require.NoError(t, err)
			assert.Equal(t, "https://x/1", rows[0].RemoteLink)
		})
	}
}

func TestStoreUpdateUnknownProduct(t *testing.T) {
	ctx := context.Background()
	for name, newStore := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore()
			assert.ErrorIs(t, s.UpdateLink(ctx, "404", "https://x"), common.ErrNotFound)
		})
	}
}

func TestStoreAppendValidatesInput(t *testing.T) {
	ctx := context.Background()
	for name, newStore := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore()
			assert.ErrorIs(t, s.Append(ctx, "", "/a.pdf"), common.ErrInvalidInput)
			assert.ErrorIs(t, s.Append(ctx, "1", " "), common.ErrInvalidInput)
		})
	}
}

func TestSummarizeAndIndex(t *testing.T) {
	rows := []Row{
		{ProductID: "1", SourcePath: "/a.pdf", RemoteLink: "https://x/1"},
		{ProductID: "2", SourcePath: "/b.pdf"},
		{ProductID: "3", SourcePath: "/c.pdf"},
	}
	assert.Equal(t, Summary{Total: 3, Resolved: 1, Unresolved: 2}, Summarize(rows))

	idx := IndexBySource(rows)
	assert.Equal(t, "2", idx["/b.pdf"].ProductID)
	_, ok := idx["/missing.pdf"]
	assert.False(t, ok)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Options{Backend: "mongo"}, nil)
	assert.ErrorIs(t, err, common.ErrConfig)
}

func TestOpenSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	s, err := Open(ctx, Options{Backend: "sqlite", Path: path}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, "1", "/a.pdf"))
	require.NoError(t, s.Close())

	reopened, err := Open(ctx, Options{Backend: "sqlite", Path: path}, nil)
	require.NoError(t, err)
	defer reopened.Close()
	rows, err := reopened.ReadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
