package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/joseph-ayodele/digital-products/constants"
	"github.com/joseph-ayodele/digital-products/internal/common"
	"github.com/joseph-ayodele/digital-products/internal/export"
	"github.com/joseph-ayodele/digital-products/internal/ledger"
)

func main() {
	var (
		backend    = flag.String("backend", "", "ledger backend: csv, sqlite or postgres (overrides LEDGER_BACKEND)")
		path       = flag.String("path", "", "ledger file for csv/sqlite (overrides LEDGER_PATH)")
		unresolved = flag.Bool("unresolved", false, "list rows still waiting for an upload")
		xlsx       = flag.String("xlsx", "", "also write an XLSX report to this path")
	)
	flag.Parse()

	cfg, err := common.LoadConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *backend != "" {
		cfg.Ledger.Backend = *backend
	}
	if *path != "" {
		cfg.Ledger.Path = *path
	}
	if cfg.Ledger.Backend != constants.LedgerPostgres && cfg.Ledger.Path == "" && cfg.SourceDir == "" {
		log.Println("ERROR: set LEDGER_PATH, SOURCE_DIR or --path")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	ledgerPath := cfg.LedgerPath()
	if cfg.Ledger.Backend != constants.LedgerPostgres {
		// Checking must never create an empty ledger.
		if _, err := os.Stat(ledgerPath); errors.Is(err, fs.ErrNotExist) {
			log.Fatalf("ledger %s: FAIL (not found)", ledgerPath)
		}
	}

	store, err := ledger.Open(ctx, ledger.Options{
		Backend: cfg.Ledger.Backend,
		Path:    ledgerPath,
		DSN:     cfg.Ledger.DSN,
	}, nil)
	if err != nil {
		log.Fatalf("ledger health: FAIL (%v)", err)
	}
	defer func(store ledger.Store) {
		if err := store.Close(); err != nil {
			log.Printf("ERROR: closing ledger: %v", err)
		}
	}(store)

	rows, err := store.ReadAll(ctx)
	if err != nil {
		log.Fatalf("ledger health: FAIL (%v)", err)
	}
	log.Println("ledger health: OK")

	sum := ledger.Summarize(rows)
	log.Printf("rows: %d, linked: %d, awaiting upload: %d", sum.Total, sum.Resolved, sum.Unresolved)

	if *unresolved {
		for _, r := range rows {
			if !r.Resolved() {
				log.Printf("- [%s] %s", r.ProductID, r.SourcePath)
			}
		}
	}

	if *xlsx != "" {
		if err := export.NewService(store, nil).WriteFile(ctx, *xlsx); err != nil {
			log.Fatalf("writing report: %v", err)
		}
		log.Printf("report written to %s", *xlsx)
	}
}
