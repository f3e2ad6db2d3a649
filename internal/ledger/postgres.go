package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/digital-products/internal/common"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS product_ledger (
	seq        BIGSERIAL PRIMARY KEY,
	product_id TEXT NOT NULL UNIQUE,
	pdf_path   TEXT NOT NULL,
	drive_url  TEXT NOT NULL DEFAULT ''
)`

// PostgresConfig holds pool settings for the Postgres ledger.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// PostgresStore keeps the ledger in a Postgres table. Link updates lock the row.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgres creates a pgx pool and pings it.
func OpenPostgres(ctx context.Context, cfg PostgresConfig, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxConns == 0 {
		cfg.MaxConns = 4
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	logger.Info("ledger.postgres.connecting")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, common.LedgerIOError("parse ledger dsn", err)
	}
	pc.MaxConns = cfg.MaxConns
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "digital-products"

	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("ledger.postgres.connect_failed", "error", err)
		return nil, common.LedgerIOError("connect ledger database", err)
	}
	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		logger.Error("ledger.postgres.ping_failed", "error", err)
		return nil, common.LedgerIOError("ping ledger database", err)
	}

	logger.Info("ledger.postgres.connected")
	return &PostgresStore{pool: pool, logger: logger}, nil
}

func (s *PostgresStore) Init(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return common.LedgerIOError("create postgres schema", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, productID, sourcePath string) error {
	if strings.TrimSpace(productID) == "" || strings.TrimSpace(sourcePath) == "" {
		return fmt.Errorf("append: product id and source path are required: %w", common.ErrInvalidInput)
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO product_ledger (product_id, pdf_path) VALUES ($1, $2)
		 ON CONFLICT (product_id) DO NOTHING`, productID, sourcePath)
	if err != nil {
		return common.LedgerIOError("insert ledger row", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("append %s: %w", productID, ErrDuplicate)
	}
	s.logger.Info("ledger.postgres.appended", "product_id", productID, "source_path", sourcePath)
	return nil
}

func (s *PostgresStore) UpdateLink(ctx context.Context, productID, link string) (err error) {
	if strings.TrimSpace(link) == "" {
		return fmt.Errorf("update %s: empty link: %w", productID, common.ErrInvalidInput)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return common.LedgerIOError("begin ledger tx", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var current string
	err = tx.QueryRow(ctx,
		`SELECT drive_url FROM product_ledger WHERE product_id = $1 FOR UPDATE`, productID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("update %s: %w", productID, common.ErrNotFound)
	}
	if err != nil {
		return common.LedgerIOError("select ledger row", err)
	}
	if current != "" {
		if current == link {
			return tx.Commit(ctx)
		}
		return fmt.Errorf("update %s: %w", productID, ErrResolved)
	}

	if _, err = tx.Exec(ctx,
		`UPDATE product_ledger SET drive_url = $1 WHERE product_id = $2`, link, productID); err != nil {
		return common.LedgerIOError("update ledger row", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return common.LedgerIOError("commit ledger tx", err)
	}
	s.logger.Info("ledger.postgres.link_updated", "product_id", productID)
	return nil
}

func (s *PostgresStore) ReadAll(ctx context.Context) ([]Row, error) {
	rows, err := s.pool.Query(ctx,
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

func (s *PostgresStore) Close() error {
	s.logger.Info("ledger.postgres.closing")
	s.pool.Close()
	return nil
}
