// Package ledger persists the product ↔ source file ↔ cloud link mapping that lets the
// pipeline resume after a crash. It is the only durable record of what has been done.
package ledger

import (
	"context"
	"errors"
)

// Row is one created product.
type Row struct {
	ProductID  string `json:"product_id"`
	SourcePath string `json:"source_path"`
	RemoteLink string `json:"remote_link,omitempty"`
}

// Resolved reports whether the row already carries a shareable link.
func (r Row) Resolved() bool {
	return r.RemoteLink != ""
}

var (
	// ErrDuplicate is returned when appending a product id the ledger already holds.
	ErrDuplicate = errors.New("ledger: duplicate product id")
	// ErrResolved is returned when setting a link on a row that already has one.
	ErrResolved = errors.New("ledger: row already resolved")
)

// Store is the behavior the pipeline depends on.
type Store interface {
	// Init creates an empty ledger if none exists and validates an existing one.
	// Existing data is never truncated.
	Init(ctx context.Context) error
	// Append adds an unresolved row.
	Append(ctx context.Context, productID, sourcePath string) error
	// UpdateLink resolves the row keyed by productID. Readers observe either the old
	// or the new state, never a partial write.
	UpdateLink(ctx context.Context, productID, link string) error
	// ReadAll returns every row in insertion order.
	ReadAll(ctx context.Context) ([]Row, error)
	Close() error
}

// Summary counts rows by resolution state.
type Summary struct {
	Total      int
	Resolved   int
	Unresolved int
}

func Summarize(rows []Row) Summary {
	s := Summary{Total: len(rows)}
	for _, r := range rows {
		if r.Resolved() {
			s.Resolved++
		} else {
			s.Unresolved++
		}
	}
	return s
}

// IndexBySource maps source path to row. Later rows win.
func IndexBySource(rows []Row) map[string]Row {
	out := make(map[string]Row, len(rows))
	for _, r := range rows {
		out[r.SourcePath] = r
	}
	return out
}
