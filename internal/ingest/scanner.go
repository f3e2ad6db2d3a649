package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/digital-products/constants"
)

// FSScanner reads assets from the local filesystem.
type FSScanner struct {
	SkipHidden bool
	logger     *slog.Logger
}

var _ AssetScanner = (*FSScanner)(nil)

func NewFSScanner(logger *slog.Logger) *FSScanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSScanner{SkipHidden: true, logger: logger}
}

// Scan walks root recursively for PDFs and lists root/images (non-recursive) for
// JPEG covers. Unreadable entries are counted as failed and skipped; a missing images
// directory yields no images.
func (s *FSScanner) Scan(ctx context.Context, root string) (Inventory, DirStats, error) {
	var inv Inventory
	var stats DirStats

	if strings.TrimSpace(root) == "" {
		return inv, stats, errors.New("root_path is required")
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return inv, stats, fmt.Errorf("abs root: %w", err)
	}

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			if path == absRoot {
				return walkErr
			}
			s.logger.Warn("ingest.scan.entry_error", "path", path, "error", walkErr)
			stats.Failed++
			return nil
		}
		if path != absRoot && s.SkipHidden && IsHidden(path) {
			stats.Hidden++
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !hasExt(path, constants.IsPDF) {
			return nil
		}
		stats.PDFs++
		inv.PDFs = append(inv.PDFs, PDF{Path: path, Name: d.Name()})
		return nil
	})
	if err != nil {
		return inv, stats, fmt.Errorf("walk: %w", err)
	}

	images, err := s.listImages(filepath.Join(absRoot, constants.ImagesDir))
	if err != nil {
		return inv, stats, err
	}
	inv.Images = images
	stats.Images = uint32(len(images))

	s.logger.Info("ingest.scan.ok",
		"root", absRoot,
		"scanned", stats.Scanned,
		"pdfs", stats.PDFs,
		"images", stats.Images,
		"hidden", stats.Hidden,
		"failed", stats.Failed,
	)
	return inv, stats, nil
}

func (s *FSScanner) listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("ingest.scan.no_images_dir", "dir", dir)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read images dir: %w", err)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() || (s.SkipHidden && IsHidden(e.Name())) {
			continue
		}
		if !hasExt(e.Name(), constants.IsImage) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}
