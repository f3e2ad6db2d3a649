package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/joseph-ayodele/digital-products/constants"
	"github.com/joseph-ayodele/digital-products/internal/catalog"
	"github.com/joseph-ayodele/digital-products/internal/common"
	"github.com/joseph-ayodele/digital-products/internal/console"
	"github.com/joseph-ayodele/digital-products/internal/export"
	"github.com/joseph-ayodele/digital-products/internal/ingest"
	"github.com/joseph-ayodele/digital-products/internal/ledger"
	"github.com/joseph-ayodele/digital-products/internal/metrics"
	"github.com/joseph-ayodele/digital-products/internal/notify"
	"github.com/joseph-ayodele/digital-products/internal/pipeline"
	"github.com/joseph-ayodele/digital-products/internal/storage"
	"github.com/joseph-ayodele/digital-products/internal/storefront"
)

const (
	stageAll    = "all"
	stageCreate = "create"
	stageLinks  = "links"
	stageRepush = "repush"
	stageBulk   = "bulk"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	var (
		dir     = flag.String("dir", "", "source folder with PDFs, images/ and config.json (overrides SOURCE_DIR)")
		limit   = flag.Int("limit", -1, "create products for at most N new PDFs, 0 = all (overrides RUN_LIMIT)")
		action  = flag.String("action", "", "final bulk action: activate, delete or skip (prompts when empty)")
		stage   = flag.String("stage", stageAll, "what to run: all, create, links, repush or bulk")
		inspect = flag.Bool("inspect", false, "parse every PDF before creating its product (overrides INSPECT_PDFS)")
	)
	flag.Parse()

	switch *stage {
	case stageAll, stageCreate, stageLinks, stageRepush, stageBulk:
	default:
		printError("Error: unknown --stage %q\n", *stage)
		return 2
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		printError("Error: %v\n", err)
		return 2
	}
	if *dir != "" {
		cfg.SourceDir = *dir
	}
	if *limit >= 0 {
		cfg.Run.Limit = *limit
	}
	if *inspect {
		cfg.Run.InspectPDFs = true
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		return 2
	}

	logger, closeLog, err := common.NewLogger(cfg.Log)
	if err != nil {
		printError("Error: %v\n", err)
		return 2
	}
	defer func() {
		if err := closeLog(); err != nil {
			printError("Error: closing log file: %v\n", err)
		}
	}()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := console.NewMilestones(os.Stdout)
	logger.Info("batch.start", "source_dir", cfg.SourceDir, "stage", *stage, "ledger_backend", cfg.Ledger.Backend)

	ledgerPath := cfg.LedgerPath()
	store, err := ledger.Open(ctx, ledger.Options{
		Backend: cfg.Ledger.Backend,
		Path:    ledgerPath,
		DSN:     cfg.Ledger.DSN,
	}, logger)
	if err != nil {
		logger.Error("batch.ledger.open_failed", "error", err)
		out.Fail("Cannot open ledger: %v", err)
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("batch.ledger.close_error", "error", err)
		}
	}()

	shop, err := storefront.NewShopify(storefront.ShopifyConfig{
		StoreURL:    cfg.Store.URL,
		AccessToken: cfg.Store.AccessToken,
		APIVersion:  cfg.Store.APIVersion,
		RateLimit:   cfg.Store.RateLimit,
		Burst:       cfg.Store.Burst,
		Timeout:     cfg.Store.Timeout,
	}, logger)
	if err != nil {
		out.Fail("Cannot set up storefront client: %v", err)
		return 1
	}

	var uploader storage.Uploader
	if *stage == stageAll || *stage == stageLinks {
		uploader, err = storage.New(ctx, storage.Options{
			Backend:         cfg.Storage.Backend,
			CredentialsFile: cfg.Storage.CredentialsFile,
			DriveFolderID:   cfg.Storage.DriveFolderID,
			GCSBucket:       cfg.Storage.GCSBucket,
			Prefix:          cfg.Storage.Prefix,
			S3: storage.S3Options{
				Endpoint:  cfg.Storage.S3.Endpoint,
				Bucket:    cfg.Storage.S3.Bucket,
				AccessKey: cfg.Storage.S3.AccessKey,
				SecretKey: cfg.Storage.S3.SecretKey,
				Region:    cfg.Storage.S3.Region,
				UseSSL:    cfg.Storage.S3.UseSSL,
			},
		}, logger)
		if err != nil {
			out.Fail("Cannot set up %s storage: %v", cfg.Storage.Backend, err)
			return 1
		}
	}

	reg := prometheus.NewRegistry()
	observer, err := metrics.NewPrometheusObserver("digital_products", reg)
	if err != nil {
		logger.Warn("batch.metrics.disabled", "error", err)
	}

	var inspector ingest.Inspector
	if cfg.Run.InspectPDFs {
		inspector = ingest.NewPDFInspector()
	}

	deps := pipeline.Dependencies{
		Scanner:    ingest.NewFSScanner(logger),
		Inspector:  inspector,
		Ledger:     store,
		Storefront: shop,
		Storage:    uploader,
		Logger:     logger,
	}
	if observer != nil {
		deps.Observer = observer
	}
	orch, err := pipeline.New(deps)
	if err != nil {
		out.Fail("%v", err)
		return 1
	}

	code := 0
	defer func() {
		if cfg.Metrics.Textfile == "" {
			return
		}
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile, reg); err != nil {
			logger.Warn("batch.metrics.write_failed", "path", cfg.Metrics.Textfile, "error", err)
		}
	}()

	switch *stage {
	case stageAll:
		tmpl, err := catalog.Load(cfg.CatalogPath())
		if err != nil {
			out.Fail("Cannot load %s: %v", cfg.CatalogPath(), err)
			return 1
		}
		out.Stage("Creating products from %s", cfg.SourceDir)
		res, err := orch.Run(ctx, cfg.SourceDir, tmpl, pipeline.CreateOptions{
			Limit:   cfg.Run.Limit,
			Inspect: cfg.Run.InspectPDFs,
		})
		report(out, res.Create)
		if res.Links.Stage != "" {
			out.Stage("Uploading files to %s", uploader.Backend())
			report(out, res.Links)
		}
		if err != nil {
			out.Fail("Run %s stopped: %v", res.RunID, err)
			return 1
		}
	case stageCreate:
		tmpl, err := catalog.Load(cfg.CatalogPath())
		if err != nil {
			out.Fail("Cannot load %s: %v", cfg.CatalogPath(), err)
			return 1
		}
		out.Stage("Creating products from %s", cfg.SourceDir)
		res, err := orch.CreateProducts(ctx, cfg.SourceDir, tmpl, pipeline.CreateOptions{
			Limit:   cfg.Run.Limit,
			Inspect: cfg.Run.InspectPDFs,
		})
		if code = finishStage(out, res, err); code != 0 {
			return code
		}
	case stageLinks:
		out.Stage("Uploading files to %s", uploader.Backend())
		res, err := orch.ResolveLinks(ctx)
		if code = finishStage(out, res, err); code != 0 {
			return code
		}
	case stageRepush:
		out.Stage("Re-pushing recorded links")
		res, err := orch.RepushLinks(ctx)
		return finishStage(out, res, err)
	}

	if *stage == stageAll || *stage == stageLinks {
		deliver(ctx, cfg, store, ledgerPath, out, logger)
	}

	chosen, err := console.ChooseBulkAction(*action)
	if err != nil {
		if errors.Is(err, console.ErrAborted) {
			out.Warn("No action chosen, products left as drafts")
			return code
		}
		out.Fail("%v", err)
		return 1
	}
	out.Stage("Applying %s", chosen)
	res, err := orch.ApplyBulkAction(ctx, chosen)
	if chosen == constants.ActionDelete {
		out.Warn("Delete is not supported, nothing was removed")
	}
	if c := finishStage(out, res, err); c != 0 {
		return c
	}
	logger.Info("batch.done")
	return code
}

// deliver writes the optional XLSX report and sends the ledger to the webhook.
func deliver(ctx context.Context, cfg *common.Config, store ledger.Store, ledgerPath string, out *console.Milestones, logger *slog.Logger) {
	attachment := ""
	if cfg.Ledger.Backend == constants.LedgerCSV {
		attachment = ledgerPath
	}

	if cfg.Report.XLSXPath != "" {
		reportCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if err := export.NewService(store, logger).WriteFile(reportCtx, cfg.Report.XLSXPath); err != nil {
			logger.Warn("batch.report.failed", "error", err)
			out.Warn("Report not written: %v", err)
		} else {
			out.Done("Report written to %s", cfg.Report.XLSXPath)
			if attachment == "" {
				attachment = cfg.Report.XLSXPath
			}
		}
	}

	if cfg.Webhook.URL == "" {
		return
	}
	if attachment == "" {
		logger.Info("batch.webhook.nothing_to_send", "ledger_backend", cfg.Ledger.Backend)
		return
	}
	if notify.NewWebhook(cfg.Webhook.URL, cfg.Webhook.Timeout, logger).Send(ctx, attachment) {
		out.Done("Ledger sent to webhook")
	} else {
		out.Warn("Webhook delivery failed, see log")
	}
}

func report(out *console.Milestones, res pipeline.StageResult) {
	out.Done("%s: %d done, %d skipped, %d failed", res.Stage, res.Succeeded, res.Skipped, res.Failed)
	for _, f := range res.Failures {
		out.Warn("%s (%s): %v", f.Item, f.Kind, f.Err)
	}
}

func finishStage(out *console.Milestones, res pipeline.StageResult, err error) int {
	report(out, res)
	if err != nil {
		out.Fail("%s stopped: %v", res.Stage, err)
		return 1
	}
	return 0
}
