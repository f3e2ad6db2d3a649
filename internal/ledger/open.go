package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/digital-products/constants"
	"github.com/joseph-ayodele/digital-products/internal/common"
)

// Options selects and locates a ledger backend.
type Options struct {
	Backend string
	Path    string // csv, sqlite
	DSN     string // postgres
}

// Open builds the configured backend and initializes it.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (Store, error) {
	var (
		store Store
		err   error
	)
	switch opts.Backend {
	case constants.LedgerCSV, "":
		store = NewCSVStore(opts.Path, logger)
	case constants.LedgerSQLite:
		store, err = OpenSQLite(opts.Path, logger)
	case constants.LedgerPostgres:
		store, err = OpenPostgres(ctx, PostgresConfig{DSN: opts.DSN}, logger)
	default:
		return nil, common.ConfigError(fmt.Sprintf("unknown ledger backend %q", opts.Backend), common.ErrInvalidInput)
	}
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}
