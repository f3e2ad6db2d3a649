package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/digital-products/internal/catalog"
	"github.com/joseph-ayodele/digital-products/internal/common"
	"github.com/joseph-ayodele/digital-products/internal/ingest"
	"github.com/joseph-ayodele/digital-products/internal/ledger"
	"github.com/joseph-ayodele/digital-products/internal/storage"
	"github.com/joseph-ayodele/digital-products/internal/storefront"
)

// Stage names, also used as metric labels.
const (
	StageCreateProducts = "create_products"
	StageResolveLinks   = "resolve_links"
	StageRepushLinks    = "repush_links"
	StageBulkAction     = "bulk_action"
)

// Item outcomes.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// Observer receives progress events. metrics.PrometheusObserver implements it.
type Observer interface {
	RecordItem(stage, outcome string)
	RecordStage(stage string, duration time.Duration)
	RecordOperation(op string, duration time.Duration, err error)
	RecordUpload(sizeBytes int64)
}

type nopObserver struct{}

func (nopObserver) RecordItem(string, string) {}
func (nopObserver) RecordStage(string, time.Duration) {}
func (nopObserver) RecordOperation(string, time.Duration, error) {}
func (nopObserver) RecordUpload(int64) {}

// Dependencies wires the orchestrator. Inspector and Observer are optional.
type Dependencies struct {
	Scanner    ingest.AssetScanner
	Inspector  ingest.Inspector
	Ledger     ledger.Store
	Storefront storefront.Client
	Storage    storage.Uploader
	Observer   Observer
	Logger     *slog.Logger
}

// Orchestrator runs the stages strictly sequentially against one ledger.
type Orchestrator struct {
	scanner    ingest.AssetScanner
	inspector  ingest.Inspector
	ledger     ledger.Store
	storefront storefront.Client
	storage    storage.Uploader
	observer   Observer
	logger     *slog.Logger
}

func New(deps Dependencies) (*Orchestrator, error) {
	if deps.Scanner == nil || deps.Ledger == nil || deps.Storefront == nil {
		return nil, common.ConfigError("pipeline needs a scanner, a ledger and a storefront client", common.ErrInvalidInput)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	return &Orchestrator{
		scanner:    deps.Scanner,
		inspector:  deps.Inspector,
		ledger:     deps.Ledger,
		storefront: deps.Storefront,
		storage:    deps.Storage,
		observer:   deps.Observer,
		logger:     deps.Logger,
	}, nil
}

// ItemFailure records why one item did not complete.
type ItemFailure struct {
	Item string
	Kind common.Kind
	Err  error
}

// StageResult counts what a stage did. Succeeded+Skipped+Failed == Processed.
type StageResult struct {
	Stage     string
	Processed int
	Succeeded int
	Skipped   int
	Failed    int
	Failures  []ItemFailure
}

func (r *StageResult) succeed() {
	r.Processed++
	r.Succeeded++
}

func (r *StageResult) skip() {
	r.Processed++
	r.Skipped++
}

func (r *StageResult) fail(item string, err error) {
	r.Processed++
	r.Failed++
	r.Failures = append(r.Failures, ItemFailure{Item: item, Kind: common.KindOf(err), Err: err})
}

// RunResult is the outcome of stages 1 and 2 under one run id.
type RunResult struct {
	RunID  string
	Create StageResult
	Links  StageResult
}

// Run creates products for every new PDF under root, then resolves links for every
// unresolved ledger row. The bulk action is left to the caller.
func (o *Orchestrator) Run(ctx context.Context, root string, tmpl *catalog.Template, opts CreateOptions) (RunResult, error) {
	runID := uuid.New().String()
	logger := o.logger.With("run_id", runID)
	ctx = common.WithLogger(common.WithRunID(ctx, runID), logger)

	res := RunResult{RunID: runID}
	logger.Info("pipeline.run.start", "root", root)

	var err error
	if res.Create, err = o.CreateProducts(ctx, root, tmpl, opts); err != nil {
		logger.Error("pipeline.run.aborted", "stage", StageCreateProducts, "kind", common.KindOf(err).String(), "error", err)
		return res, err
	}
	if res.Links, err = o.ResolveLinks(ctx); err != nil {
		logger.Error("pipeline.run.aborted", "stage", StageResolveLinks, "kind", common.KindOf(err).String(), "error", err)
		return res, err
	}

	logger.Info("pipeline.run.done",
		"created", res.Create.Succeeded,
		"create_failed", res.Create.Failed,
		"linked", res.Links.Succeeded,
		"link_failed", res.Links.Failed,
	)
	return res, nil
}

// fatal reports whether err must stop the current stage.
func fatal(err error) bool {
	switch common.KindOf(err) {
	case common.KindCanceled, common.KindLedgerIO:
		return true
	default:
		return false
	}
}

// timed runs fn and reports its latency under op.
func (o *Orchestrator) timed(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	o.observer.RecordOperation(op, time.Since(start), err)
	return err
}

func (o *Orchestrator) finish(ctx context.Context, res StageResult, start time.Time) {
	elapsed := time.Since(start)
	o.observer.RecordStage(res.Stage, elapsed)
	common.LoggerFromContext(ctx, o.logger).Info("pipeline.stage.done",
		"stage", res.Stage,
		"processed", res.Processed,
		"succeeded", res.Succeeded,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

func errorsIsAny(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
