package ingest

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PDFInspector counts pages with pdfcpu. A file pdfcpu cannot read is reported as an
// error so the caller can skip it before any remote call.
type PDFInspector struct{}

var _ Inspector = PDFInspector{}

func NewPDFInspector() PDFInspector {
	api.DisableConfigDir()
	return PDFInspector{}
}

func (PDFInspector) PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("read pdf %s: %w", path, err)
	}
	return n, nil
}
