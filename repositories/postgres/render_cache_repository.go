package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avillia/receipt-service/models"
	"github.com/avillia/receipt-service/repositories"
)

// RenderCacheRepository stores rendered receipts in txt_receipts_cache.
// Put runs in a SERIALIZABLE transaction so the count, the eviction and the
// insert form one unit; a concurrent writer makes it fail with
// repositories.ErrCapacityRace instead of overshooting the capacity.
type RenderCacheRepository struct {
	db       *DB
	capacity int
	logger   *zap.Logger
}

// NewRenderCacheRepository creates a render cache bounded to capacity rows
func NewRenderCacheRepository(db *DB, capacity int, logger *zap.Logger) repositories.RenderCacheRepository {
	return &RenderCacheRepository{
		db:       db,
		capacity: capacity,
		logger:   logger,
	}
}

// Capacity returns the maximum number of rows
func (r *RenderCacheRepository) Capacity() int {
	return r.capacity
}

// Get returns the cached text for a receipt and fingerprint
func (r *RenderCacheRepository) Get(ctx context.Context, receiptID uuid.UUID, fingerprint string) (string, bool, error) {
	query := `
		SELECT txt
		FROM txt_receipts_cache
		WHERE receipt_id = $1 AND config_str = $2
	`

	var text string
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, receiptID, fingerprint).Scan(&text)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read render cache: %w", err)
	}
	return text, true, nil
}

// Put stores the entry, evicting the oldest rows first when the table is full
func (r *RenderCacheRepository) Put(ctx context.Context, entry *models.RenderCacheEntry) error {
	err := withTx(ctx, r.db, &sql.TxOptions{Isolation: sql.LevelSerializable}, r.logger, func(tx *sql.Tx) error {
		return r.put(ctx, tx, entry)
	})
	if err != nil {
		return r.classify(err)
	}
	return nil
}

func (r *RenderCacheRepository) put(ctx context.Context, tx *sql.Tx, entry *models.RenderCacheEntry) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE txt_receipts_cache
		SET txt = $3
		WHERE receipt_id = $1 AND config_str = $2
	`, entry.ReceiptID, entry.Fingerprint, entry.Text)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err != nil {
		return err
	} else if n > 0 {
		return nil
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM txt_receipts_cache`).Scan(&count); err != nil {
		return err
	}

	if overflow := count - r.capacity + 1; overflow > 0 {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM txt_receipts_cache
			WHERE id IN (
				SELECT id FROM txt_receipts_cache
				ORDER BY creation_date, id
				LIMIT $1
			)
		`, overflow); err != nil {
			return err
		}
		r.logger.Debug("render cache evicted",
			zap.Int("rows", overflow),
			zap.Int("capacity", r.capacity))
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO txt_receipts_cache (receipt_id, config_str, txt, creation_date)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (receipt_id, config_str) DO UPDATE SET txt = EXCLUDED.txt
	`, entry.ReceiptID, entry.Fingerprint, entry.Text, entry.CreatedAt)
	return err
}

func (r *RenderCacheRepository) classify(err error) error {
	switch {
	case isRetryable(err):
		return fmt.Errorf("%w: %v", repositories.ErrCapacityRace, err)
	case isForeignKeyViolation(err):
		return fmt.Errorf("render cache receipt: %w", repositories.ErrNotFound)
	default:
		return fmt.Errorf("failed to write render cache: %w", err)
	}
}

// DeleteForReceipt drops every cached rendering of a receipt
func (r *RenderCacheRepository) DeleteForReceipt(ctx context.Context, receiptID uuid.UUID) error {
	_, err := GetExecutor(ctx, r.db).ExecContext(ctx,
		`DELETE FROM txt_receipts_cache WHERE receipt_id = $1`, receiptID)
	if err != nil {
		return fmt.Errorf("failed to invalidate render cache: %w", err)
	}
	return nil
}

// Count returns the number of cached renderings
func (r *RenderCacheRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := GetExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM txt_receipts_cache`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count render cache: %w", err)
	}
	return count, nil
}
