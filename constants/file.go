package constants

import "strings"

// PDFExtensions holds the extensions treated as downloadable product files.
var PDFExtensions = map[string]struct{}{
	"pdf": {},
}

// ImageExtensions holds the extensions considered when matching a cover image.
var ImageExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
}

// ImagesDir is the subdirectory of the source folder that holds cover images.
const ImagesDir = "images"

// ConfigFileName is the catalog template expected in the source folder.
const ConfigFileName = "config.json"

// LedgerFileName is the default ledger file written to the source folder.
const LedgerFileName = "product_pdf_data.csv"

// LedgerHeader is the fixed column layout of the ledger.
var LedgerHeader = []string{"Product ID", "PDF Path", "Drive URL"}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsPDF reports whether ext (with or without dot) is a PDF extension.
func IsPDF(ext string) bool {
	_, ok := PDFExtensions[NormalizeExt(ext)]
	return ok
}

// IsImage reports whether ext (with or without dot) is a supported cover image extension.
func IsImage(ext string) bool {
	_, ok := ImageExtensions[NormalizeExt(ext)]
	return ok
}
