package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/digital-products/internal/common"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS product_ledger (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	product_id TEXT NOT NULL UNIQUE,
	pdf_path   TEXT NOT NULL,
	drive_url  TEXT NOT NULL DEFAULT ''
)`

// SQLiteStore keeps the ledger in a SQLite database keyed by product id. Every
// mutation runs in its own transaction.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the database at path. Use ":memory:" for tests.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, common.LedgerIOError("open sqlite ledger", err)
	}
	// One writer, and a single shared connection keeps ":memory:" databases alive.
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db, path: path, logger: logger}, nil
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return common.LedgerIOError("create sqlite schema", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM product_ledger`).Scan(&n); err != nil {
		return common.LedgerIOError("count sqlite ledger", err)
	}
	s.logger.Info("ledger.sqlite.opened", "path", s.path, "rows", n)
	return nil
}

func (s *SQLiteStore) Append(ctx context.Context, productID, sourcePath string) error {
	if strings.TrimSpace(productID) == "" || strings.TrimSpace(sourcePath) == "" {
		return fmt.Errorf("append: product id and source path are required: %w", common.ErrInvalidInput)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO product_ledger (product_id, pdf_path) VALUES (?, ?)
		 ON CONFLICT(product_id) DO NOTHING`, productID, sourcePath)
	if err != nil {
		return common.LedgerIOError("insert ledger row", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return common.LedgerIOError("insert ledger row", err)
	}
	if n == 0 {
		return fmt.Errorf("append %s: %w", productID, ErrDuplicate)
	}
	s.logger.Info("ledger.sqlite.appended", "product_id", productID, "source_path", sourcePath)
	return nil
}

func (s *SQLiteStore) UpdateLink(ctx context.Context, productID, link string) (err error) {
	if strings.TrimSpace(link) == "" {
		return fmt.Errorf("update %s: empty link: %w", productID, common.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.LedgerIOError("begin ledger tx", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current string
	err = tx.QueryRowContext(ctx,
		`SELECT drive_url FROM product_ledger WHERE product_id = ?`, productID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update %s: %w", productID, common.ErrNotFound)
	}
	if err != nil {
		return common.LedgerIOError("select ledger row", err)
	}
	if current != "" {
		if current == link {
			return tx.Commit()
		}
		return fmt.Errorf("update %s: %w", productID, ErrResolved)
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE product_ledger SET drive_url = ? WHERE product_id = ?`, link, productID); err != nil {
		return common.LedgerIOError("update ledger row", err)
	}
	if err = tx.Commit(); err != nil {
		return common.LedgerIOError("commit ledger tx", err)
	}
	s.logger.Info("ledger.sqlite.link_updated", "product_id", productID)
	return nil
}

func (s *SQLiteStore) ReadAll(ctx context.Context) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT product_id, pdf_path, drive_url FROM product_ledger ORDER BY seq`)
	if err != nil {
		return nil, common.LedgerIOError("query ledger", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ProductID, &r.SourcePath, &r.RemoteLink); err != nil {
			return nil, common.LedgerIOError("scan ledger row", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, common.LedgerIOError("iterate ledger", err)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
