package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/avillia/receipt-service/models"
	"github.com/avillia/receipt-service/repositories"
)

// ReceiptRepository implements the repositories.ReceiptRepository interface
type ReceiptRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(db *DB, logger *zap.Logger) repositories.ReceiptRepository {
	return &ReceiptRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a receipt and its items. Run it inside
// TransactionManager.InTransaction to make the two inserts atomic.
func (r *ReceiptRepository) Create(ctx context.Context, receipt *models.Receipt) error {
	executor := GetExecutor(ctx, r.db)

	_, err := executor.ExecContext(ctx, `
		INSERT INTO receipts (id, user_id, is_cashless_payment, payment_amount, creation_date)
		VALUES ($1, $2, $3, $4, $5)
	`,
		receipt.ID,
		receipt.UserID,
		receipt.IsCashlessPayment,
		receipt.PaymentAmount,
		receipt.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("receipt owner %s: %w", receipt.UserID, repositories.ErrNotFound)
		}
		return fmt.Errorf("failed to create receipt: %w", err)
	}

	itemQuery := `
		INSERT INTO receipt_items (id, receipt_id, name, price, quantity, position)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for i, item := range receipt.Items {
		if _, err := executor.ExecContext(ctx, itemQuery,
			item.ID, receipt.ID, item.Name, item.Price, item.Quantity, i,
		); err != nil {
			return fmt.Errorf("failed to create receipt item: %w", err)
		}
	}

	r.logger.Debug("receipt created",
		zap.String("id", receipt.ID.String()),
		zap.Int("items", len(receipt.Items)))
	return nil
}

// GetByID retrieves a receipt with its items and issuer name
func (r *ReceiptRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Receipt, error) {
	query := `
		SELECT r.id, r.user_id, u.name, r.is_cashless_payment, r.payment_amount, r.creation_date
		FROM receipts r
		JOIN users u ON u.id = r.user_id
		WHERE r.id = $1
	`

	executor := GetExecutor(ctx, r.db)
	receipt := &models.Receipt{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&receipt.ID,
		&receipt.UserID,
		&receipt.IssuerName,
		&receipt.IsCashlessPayment,
		&receipt.PaymentAmount,
		&receipt.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("receipt %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}

	if err := r.attachItems(ctx, []*models.Receipt{receipt}); err != nil {
		return nil, err
	}
	return receipt, nil
}

// List returns the number of receipts matching filter and the requested page
func (r *ReceiptRepository) List(ctx context.Context, filter models.ReceiptFilter) (int, []*models.Receipt, error) {
	where, args := receiptFilterClause(filter)
	executor := GetExecutor(ctx, r.db)

	var total int
	countQuery := `SELECT COUNT(*) FROM receipts r ` + receiptTotalsJoin + where
	if err := executor.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return 0, nil, fmt.Errorf("failed to count receipts: %w", err)
	}
	if total == 0 {
		return 0, []*models.Receipt{}, nil
	}

	pageQuery := fmt.Sprintf(`
		SELECT r.id, r.user_id, u.name, r.is_cashless_payment, r.payment_amount, r.creation_date
		FROM receipts r
		JOIN users u ON u.id = r.user_id
		%s%s
		ORDER BY r.creation_date DESC, r.id
		LIMIT $%d OFFSET $%d
	`, receiptTotalsJoin, where, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := executor.QueryContext(ctx, pageQuery, args...)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	defer rows.Close()

	receipts := make([]*models.Receipt, 0, filter.Limit)
	for rows.Next() {
		receipt := &models.Receipt{}
		if err := rows.Scan(
			&receipt.ID,
			&receipt.UserID,
			&receipt.IssuerName,
			&receipt.IsCashlessPayment,
			&receipt.PaymentAmount,
			&receipt.CreatedAt,
		); err != nil {
			return 0, nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipts = append(receipts, receipt)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, fmt.Errorf("error iterating receipts: %w", err)
	}

	if err := r.attachItems(ctx, receipts); err != nil {
		return 0, nil, err
	}
	return total, receipts, nil
}

// Delete removes a receipt; items and cached renderings cascade
func (r *ReceiptRepository) Delete(ctx context.Context, id uuid.UUID) error {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, `DELETE FROM receipts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete receipt: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("receipt %s: %w", id, repositories.ErrNotFound)
	}

	r.logger.Debug("receipt deleted", zap.String("id", id.String()))
	return nil
}

// attachItems loads the items of every receipt with one query
func (r *ReceiptRepository) attachItems(ctx context.Context, receipts []*models.Receipt) error {
	if len(receipts) == 0 {
		return nil
	}

	ids := make([]string, len(receipts))
	byID := make(map[uuid.UUID]*models.Receipt, len(receipts))
	for i, receipt := range receipts {
		ids[i] = receipt.ID.String()
		receipt.Items = []models.ReceiptItem{}
		byID[receipt.ID] = receipt
	}

	query := `
		SELECT id, receipt_id, name, price, quantity
		FROM receipt_items
		WHERE receipt_id = ANY($1::uuid[])
		ORDER BY receipt_id, position
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to load receipt items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.ReceiptItem
		if err := rows.Scan(&item.ID, &item.ReceiptID, &item.Name, &item.Price, &item.Quantity); err != nil {
			return fmt.Errorf("failed to scan receipt item: %w", err)
		}
		if receipt, ok := byID[item.ReceiptID]; ok {
			receipt.Items = append(receipt.Items, item)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating receipt items: %w", err)
	}
	return nil
}

// receiptTotalsJoin exposes t.total for the total filters
const receiptTotalsJoin = `
		LEFT JOIN (
			SELECT receipt_id, SUM(price * quantity) AS total
			FROM receipt_items
			GROUP BY receipt_id
		) t ON t.receipt_id = r.id
`

// receiptFilterClause renders the WHERE clause and its positional arguments
func receiptFilterClause(filter models.ReceiptFilter) (string, []interface{}) {
	conditions := []string{"r.user_id = $1"}
	args := []interface{}{filter.UserID}

	add := func(condition string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.CreatedAfter != nil {
		add("r.creation_date >= $%d", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		add("r.creation_date <= $%d", *filter.CreatedBefore)
	}
	if filter.IsCashless != nil {
		add("r.is_cashless_payment = $%d", *filter.IsCashless)
	}
	if filter.MinTotal != nil {
		add("COALESCE(t.total, 0) >= $%d", *filter.MinTotal)
	}
	if filter.MaxTotal != nil {
		add("COALESCE(t.total, 0) <= $%d", *filter.MaxTotal)
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}
