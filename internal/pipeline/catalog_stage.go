package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/digital-products/constants"
	"github.com/joseph-ayodele/digital-products/internal/catalog"
	"github.com/joseph-ayodele/digital-products/internal/common"
	"github.com/joseph-ayodele/digital-products/internal/ingest"
	"github.com/joseph-ayodele/digital-products/internal/ledger"
	"github.com/joseph-ayodele/digital-products/internal/match"
	"github.com/joseph-ayodele/digital-products/internal/storefront"
)

// PageCountKey is the product metafield written when PDFs are inspected.
const PageCountKey = "page_count"

// CreateOptions tunes product creation.
type CreateOptions struct {
	Limit   int  // max new PDFs to create products for, 0 = all
	Inspect bool // parse each PDF before creating its product
}

// CreateProducts scans root and creates one draft product per PDF that has no ledger row
// yet. Each product id is appended to the ledger as soon as the storefront returns it.
// Per-item failures are counted and logged; only ledger failures and cancellation stop
// the stage.
func (o *Orchestrator) CreateProducts(ctx context.Context, root string, tmpl *catalog.Template, opts CreateOptions) (StageResult, error) {
	start := time.Now()
	logger := common.LoggerFromContext(ctx, o.logger)
	res := StageResult{Stage: StageCreateProducts}

	if tmpl == nil {
		return res, common.ConfigError("catalog template is required", common.ErrInvalidInput)
	}

	inv, stats, err := o.scanner.Scan(ctx, root)
	if err != nil {
		logger.Error("pipeline.catalog.scan_failed", "root", root, "error", err)
		return res, err
	}
	logger.Info("pipeline.catalog.scanned",
		"root", root,
		"pdfs", stats.PDFs,
		"images", stats.Images,
		"failed_entries", stats.Failed,
	)

	rows, err := o.ledger.ReadAll(ctx)
	if err != nil {
		logger.Error("pipeline.catalog.ledger_read_failed", "error", err)
		return res, err
	}
	known := ledger.IndexBySource(rows)

	pending := make([]ingest.PDF, 0, len(inv.PDFs))
	for _, pdf := range inv.PDFs {
		if row, ok := known[pdf.Path]; ok {
			logger.Info("pipeline.catalog.item.already_created", "source_path", pdf.Path, "product_id", row.ProductID)
			res.skip()
			o.observer.RecordItem(res.Stage, OutcomeSkipped)
			continue
		}
		pending = append(pending, pdf)
	}
	if opts.Limit > 0 && len(pending) > opts.Limit {
		logger.Info("pipeline.catalog.limited", "limit", opts.Limit, "pending", len(pending))
		pending = pending[:opts.Limit]
	}

	for _, pdf := range pending {
		if err := ctx.Err(); err != nil {
			o.finish(ctx, res, start)
			return res, err
		}

		err := o.createOne(ctx, pdf, inv.Images, tmpl, opts)
		switch {
		case err == nil:
			res.succeed()
			o.observer.RecordItem(res.Stage, OutcomeSucceeded)
		case fatal(err):
			logger.Error("pipeline.catalog.stage_aborted",
				"source_path", pdf.Path, "kind", common.KindOf(err).String(), "error", err)
			o.finish(ctx, res, start)
			return res, err
		default:
			logger.Error("pipeline.catalog.item.failed",
				"source_path", pdf.Path, "kind", common.KindOf(err).String(), "error", err)
			res.fail(pdf.Path, err)
			o.observer.RecordItem(res.Stage, OutcomeFailed)
		}
	}

	o.finish(ctx, res, start)
	return res, nil
}

func (o *Orchestrator) createOne(ctx context.Context, pdf ingest.PDF, images []string, tmpl *catalog.Template, opts CreateOptions) error {
	logger := common.LoggerFromContext(ctx, o.logger)
	title := pdf.Title()

	var metafields []storefront.Metafield
	if opts.Inspect && o.inspector != nil {
		pages, err := o.inspector.PageCount(pdf.Path)
		if err != nil {
			return err
		}
		metafields = append(metafields, storefront.IntegerMetafield(PageCountKey, pages))
	}

	var productID string
	err := o.timed("create_product", func() error {
		var err error
		productID, err = o.storefront.CreateProduct(ctx, productInput(tmpl, title, metafields))
		return err
	})
	if err != nil {
		return err
	}
	logger.Info("pipeline.catalog.item.created", "product_id", productID, "title", title, "source_path", pdf.Path)

	if err := o.ledger.Append(ctx, productID, pdf.Path); err != nil {
		// The product exists remotely but nothing local points at it.
		logger.Error("pipeline.catalog.item.unrecorded", "product_id", productID, "source_path", pdf.Path, "error", err)
		if errors.Is(err, ledger.ErrDuplicate) {
			return err
		}
		if common.KindOf(err) != common.KindLedgerIO {
			err = common.LedgerIOError("append ledger row", err)
		}
		return err
	}

	image, ok := match.FirstMatch(title, images)
	if !ok {
		logger.Info("pipeline.catalog.item.no_image", "product_id", productID, "title", title)
		return nil
	}
	err = o.timed("attach_image", func() error {
		return o.storefront.AttachImage(ctx, productID, image)
	})
	if err != nil {
		if common.KindOf(err) == common.KindCanceled {
			return err
		}
		logger.Warn("pipeline.catalog.item.image_failed", "product_id", productID, "image", image, "error", err)
		return nil
	}
	logger.Info("pipeline.catalog.item.image_attached", "product_id", productID, "image", image)
	return nil
}

func productInput(tmpl *catalog.Template, title string, metafields []storefront.Metafield) storefront.ProductInput {
	return storefront.ProductInput{
		Title:          title,
		BodyHTML:       tmpl.Description,
		Vendor:         tmpl.Vendor,
		ProductType:    tmpl.ProductType,
		Status:         constants.ProductStatusDraft,
		Price:          tmpl.Price.String(),
		CompareAtPrice: tmpl.CompareToPrice.String(),
		Tags:           tmpl.AllTags(),
		SEODescription: tmpl.SearchEngineDescription,
		Metafields:     metafields,
	}
}
