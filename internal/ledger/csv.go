package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joseph-ayodele/digital-products/constants"
	"github.com/joseph-ayodele/digital-products/internal/common"
)

// CSVStore keeps the ledger in a flat CSV file with the header
// "Product ID,PDF Path,Drive URL". Updates rewrite the whole file through a temp file
// and a rename in the same directory.
type CSVStore struct {
	path   string
	logger *slog.Logger
}

var _ Store = (*CSVStore)(nil)

func NewCSVStore(path string, logger *slog.Logger) *CSVStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVStore{path: path, logger: logger}
}

// Path returns the ledger file location.
func (s *CSVStore) Path() string {
	return s.path
}

func (s *CSVStore) Init(_ context.Context) error {
	_, err := os.Stat(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := s.writeAtomic(nil); err != nil {
			return err
		}
		s.logger.Info("ledger.csv.created", "path", s.path)
		return nil
	case err != nil:
		return common.LedgerIOError("stat ledger", err)
	}

	rows, err := s.read()
	if err != nil {
		return err
	}
	s.logger.Info("ledger.csv.opened", "path", s.path, "rows", len(rows))
	return nil
}

func (s *CSVStore) Append(_ context.Context, productID, sourcePath string) error {
	if strings.TrimSpace(productID) == "" || strings.TrimSpace(sourcePath) == "" {
		return fmt.Errorf("append: product id and source path are required: %w", common.ErrInvalidInput)
	}

	rows, err := s.read()
	if err != nil {
		return err
	}
	if slices.ContainsFunc(rows, func(r Row) bool { return r.ProductID == productID }) {
		return fmt.Errorf("append %s: %w", productID, ErrDuplicate)
	}

	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return common.LedgerIOError("open ledger for append", err)
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			s.logger.Warn("ledger.csv.close_error", "path", s.path, "error", err)
		}
	}(f)

	if err := ensureTrailingNewline(f); err != nil {
		return common.LedgerIOError("inspect ledger tail", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{productID, sourcePath, ""}); err != nil {
		return common.LedgerIOError("append row", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return common.LedgerIOError("flush row", err)
	}
	if err := f.Sync(); err != nil {
		return common.LedgerIOError("sync ledger", err)
	}

	s.logger.Info("ledger.csv.appended", "product_id", productID, "source_path", sourcePath)
	return nil
}

func (s *CSVStore) UpdateLink(_ context.Context, productID, link string) error {
	if strings.TrimSpace(link) == "" {
		return fmt.Errorf("update %s: empty link: %w", productID, common.ErrInvalidInput)
	}

	rows, err := s.read()
	if err != nil {
		return err
	}

	found, changed := false, false
	for i := range rows {
		if rows[i].ProductID != productID {
			continue
		}
		found = true
		if rows[i].Resolved() {
			if rows[i].RemoteLink == link {
				continue
			}
			return fmt.Errorf("update %s: %w", productID, ErrResolved)
		}
		rows[i].RemoteLink = link
		changed = true
	}
	if !found {
		return fmt.Errorf("update %s: %w", productID, common.ErrNotFound)
	}
	if !changed {
		return nil
	}

	if err := s.writeAtomic(rows); err != nil {
		return err
	}
	s.logger.Info("ledger.csv.link_updated", "product_id", productID)
	return nil
}

func (s *CSVStore) ReadAll(_ context.Context) ([]Row, error) {
	return s.read()
}

func (s *CSVStore) Close() error {
	return nil
}

func (s *CSVStore) read() ([]Row, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, common.LedgerIOError("open ledger", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(constants.LedgerHeader)

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("missing header")
		}
		return nil, common.LedgerIOError("read ledger header", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	if !slices.Equal(header, constants.LedgerHeader) {
		return nil, common.LedgerIOError("read ledger header",
			fmt.Errorf("unexpected header %q", header))
	}

	var rows []Row
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, common.LedgerIOError("parse ledger", err)
		}
		rows = append(rows, Row{
			ProductID:  rec[0],
			SourcePath: rec[1],
			RemoteLink: strings.TrimSpace(rec[2]),
		})
	}
	return rows, nil
}

func (s *CSVStore) writeAtomic(rows []Row) (err error) {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".ledger-*.tmp")
	if err != nil {
		return common.LedgerIOError("create temp ledger", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)
	if err = w.Write(constants.LedgerHeader); err != nil {
		return common.LedgerIOError("write header", err)
	}
	for _, r := range rows {
		if err = w.Write([]string{r.ProductID, r.SourcePath, r.RemoteLink}); err != nil {
			return common.LedgerIOError("write row", err)
		}
	}
	w.Flush()
	if err = w.Error(); err != nil {
		return common.LedgerIOError("flush ledger", err)
	}
	if err = tmp.Sync(); err != nil {
		return common.LedgerIOError("sync temp ledger", err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		return common.LedgerIOError("chmod temp ledger", err)
	}
	if err = tmp.Close(); err != nil {
		return common.LedgerIOError("close temp ledger", err)
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return common.LedgerIOError("replace ledger", err)
	}
	return nil
}

func ensureTrailingNewline(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return err
	}
	if last[0] == '\n' {
		return nil
	}
	_, err = f.Write([]byte("\n"))
	return err
}
