package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/digital-products/constants"
)

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

// Title derives a product title from a PDF filename: the stem is split on '-' into at
// most three parts and the last part, trimmed, is the title. Names with fewer than two
// hyphens keep whatever follows the last one, or the whole stem when there is none.
func Title(filename string) string {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	parts := strings.SplitN(stem, "-", 3)
	return strings.TrimSpace(parts[len(parts)-1])
}

func hasExt(path string, match func(string) bool) bool {
	return match(constants.NormalizeExt(filepath.Ext(path)))
}
