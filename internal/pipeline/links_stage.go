package pipeline

import (
	"context"
	"os"
	"time"

	"github.com/joseph-ayodele/digital-products/constants"
	"github.com/joseph-ayodele/digital-products/internal/common"
	"github.com/joseph-ayodele/digital-products/internal/ledger"
)

// ResolveLinks uploads the PDF of every unresolved ledger row, records the link in the
// ledger, then pushes it to the product's variants. Resolved rows are never uploaded
// again. A failed metadata push leaves the ledger row resolved; RepushLinks repairs it.
func (o *Orchestrator) ResolveLinks(ctx context.Context) (StageResult, error) {
	start := time.Now()
	logger := common.LoggerFromContext(ctx, o.logger)
	res := StageResult{Stage: StageResolveLinks}

	if o.storage == nil {
		return res, common.ConfigError("no storage backend configured", common.ErrInvalidInput)
	}

	rows, err := o.ledger.ReadAll(ctx)
	if err != nil {
		logger.Error("pipeline.links.ledger_read_failed", "error", err)
		return res, err
	}
	logger.Info("pipeline.links.start", "rows", len(rows), "backend", o.storage.Backend())

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			o.finish(ctx, res, start)
			return res, err
		}
		if row.Resolved() {
			logger.Debug("pipeline.links.item.already_linked", "product_id", row.ProductID)
			res.skip()
			o.observer.RecordItem(res.Stage, OutcomeSkipped)
			continue
		}

		err := o.resolveOne(ctx, row)
		switch {
		case err == nil:
			res.succeed()
			o.observer.RecordItem(res.Stage, OutcomeSucceeded)
		case fatal(err):
			logger.Error("pipeline.links.stage_aborted",
				"product_id", row.ProductID, "kind", common.KindOf(err).String(), "error", err)
			o.finish(ctx, res, start)
			return res, err
		default:
			logger.Error("pipeline.links.item.failed",
				"product_id", row.ProductID, "source_path", row.SourcePath,
				"kind", common.KindOf(err).String(), "error", err)
			res.fail(row.ProductID, err)
			o.observer.RecordItem(res.Stage, OutcomeFailed)
		}
	}

	o.finish(ctx, res, start)
	return res, nil
}

func (o *Orchestrator) resolveOne(ctx context.Context, row ledger.Row) error {
	logger := common.LoggerFromContext(ctx, o.logger)

	var link string
	err := o.timed("upload", func() error {
		var err error
		link, err = o.storage.Upload(ctx, row.SourcePath)
		return err
	})
	if err != nil {
		return err
	}
	if info, statErr := os.Stat(row.SourcePath); statErr == nil {
		o.observer.RecordUpload(info.Size())
	}
	logger.Info("pipeline.links.item.uploaded", "product_id", row.ProductID, "link", link)

	if err := o.ledger.UpdateLink(ctx, row.ProductID, link); err != nil {
		if errorsIsAny(err, ledger.ErrResolved, common.ErrNotFound, common.ErrInvalidInput) {
			return err
		}
		if common.KindOf(err) != common.KindLedgerIO {
			err = common.LedgerIOError("update ledger link", err)
		}
		return err
	}

	err = o.timed("update_metadata", func() error {
		return o.storefront.UpdateProductMetadata(ctx, row.ProductID, constants.DigitalDownloadKey, link)
	})
	if err != nil {
		logger.Error("pipeline.links.item.metadata_not_pushed",
			"product_id", row.ProductID, "link", link, "error", err)
		return err
	}
	logger.Info("pipeline.links.item.linked", "product_id", row.ProductID)
	return nil
}

// RepushLinks pushes the recorded link of every resolved row to the storefront again,
// without uploading anything.
func (o *Orchestrator) RepushLinks(ctx context.Context) (StageResult, error) {
	start := time.Now()
	logger := common.LoggerFromContext(ctx, o.logger)
	res := StageResult{Stage: StageRepushLinks}

	rows, err := o.ledger.ReadAll(ctx)
	if err != nil {
		logger.Error("pipeline.repush.ledger_read_failed", "error", err)
		return res, err
	}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			o.finish(ctx, res, start)
			return res, err
		}
		if !row.Resolved() {
			res.skip()
			o.observer.RecordItem(res.Stage, OutcomeSkipped)
			continue
		}

		err := o.timed("update_metadata", func() error {
			return o.storefront.UpdateProductMetadata(ctx, row.ProductID, constants.DigitalDownloadKey, row.RemoteLink)
		})
		switch {
		case err == nil:
			logger.Info("pipeline.repush.item.pushed", "product_id", row.ProductID)
			res.succeed()
			o.observer.RecordItem(res.Stage, OutcomeSucceeded)
		case fatal(err):
			o.finish(ctx, res, start)
			return res, err
		default:
			logger.Error("pipeline.repush.item.failed",
				"product_id", row.ProductID, "kind", common.KindOf(err).String(), "error", err)
			res.fail(row.ProductID, err)
			o.observer.RecordItem(res.Stage, OutcomeFailed)
		}
	}

	o.finish(ctx, res, start)
	return res, nil
}
