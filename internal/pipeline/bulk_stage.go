package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/joseph-ayodele/digital-products/constants"
	"github.com/joseph-ayodele/digital-products/internal/common"
)

// ApplyBulkAction applies the operator's final choice to every ledger row. Activation
// failures are logged and do not stop the loop. Delete is accepted and does nothing.
func (o *Orchestrator) ApplyBulkAction(ctx context.Context, action constants.BulkAction) (StageResult, error) {
	start := time.Now()
	logger := common.LoggerFromContext(ctx, o.logger)
	res := StageResult{Stage: StageBulkAction}

	switch action {
	case constants.ActionSkip:
		logger.Info("pipeline.bulk.skipped")
		return res, nil
	case constants.ActionDelete:
		logger.Warn("pipeline.bulk.delete_not_supported")
		return res, nil
	case constants.ActionActivate:
	default:
		return res, fmt.Errorf("bulk action %q: %w", action, common.ErrInvalidInput)
	}

	rows, err := o.ledger.ReadAll(ctx)
	if err != nil {
		logger.Error("pipeline.bulk.ledger_read_failed", "error", err)
		return res, err
	}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			o.finish(ctx, res, start)
			return res, err
		}
		err := o.timed("set_status", func() error {
			return o.storefront.SetStatus(ctx, row.ProductID, constants.ProductStatusActive)
		})
		switch {
		case err == nil:
			logger.Info("pipeline.bulk.item.activated", "product_id", row.ProductID)
			res.succeed()
			o.observer.RecordItem(res.Stage, OutcomeSucceeded)
		case common.KindOf(err) == common.KindCanceled:
			o.finish(ctx, res, start)
			return res, err
		default:
			logger.Error("pipeline.bulk.item.failed",
				"product_id", row.ProductID, "kind", common.KindOf(err).String(), "error", err)
			res.fail(row.ProductID, err)
			o.observer.RecordItem(res.Stage, OutcomeFailed)
		}
	}

	o.finish(ctx, res, start)
	return res, nil
}
