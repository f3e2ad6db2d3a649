package ingest

import (
	"context"
	"path/filepath"
)

// PDF is one candidate product file found under the source folder.
type PDF struct {
	Path string // absolute path
	Name string // base filename, extension included
}

// Title derives the product title from the filename on every call.
func (p PDF) Title() string {
	return Title(p.Name)
}

// NewPDF resolves path to an absolute PDF entry.
func NewPDF(path string) (PDF, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return PDF{}, err
	}
	return PDF{Path: abs, Name: filepath.Base(abs)}, nil
}

// Inventory is what one scan of the source folder produced.
type Inventory struct {
	PDFs   []PDF
	Images []string // absolute paths, directory-listing order
}

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned uint32
	PDFs    uint32
	Images  uint32
	Hidden  uint32
	Failed  uint32
}

// AssetScanner is the behavior the pipeline depends on.
type AssetScanner interface {
	// Scan walks root for PDFs and lists root/images for cover images.
	Scan(ctx context.Context, root string) (Inventory, DirStats, error)
}

// Inspector reads structural facts from a PDF before it becomes a product.
type Inspector interface {
	PageCount(path string) (int, error)
}
