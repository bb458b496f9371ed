// Package receipts creates, lists and renders receipts
package receipts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/avillia/receipt-service/internal/runtimeconfig"
	"github.com/avillia/receipt-service/models"
	"github.com/avillia/receipt-service/repositories"
	"github.com/avillia/receipt-service/services"
	"github.com/avillia/receipt-service/services/rendercache"
)

// Text width bounds
const (
	MinWidth     = 20
	MaxWidth     = 100
	DefaultWidth = 32
)

// Listing bounds
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// ItemInput is one purchased line of a new receipt
type ItemInput struct {
	Name     string
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// CreateInput describes a new receipt
type CreateInput struct {
	Items             []ItemInput
	IsCashlessPayment bool
	PaymentAmount     decimal.Decimal
}

// Page is one page of a receipt listing
type Page struct {
	Total    int
	Starting int
	Ending   int
	Count    int
	Receipts []*models.Receipt
}

// Service implements receipt business logic
type Service struct {
	receipts repositories.ReceiptRepository
	txMgr    repositories.TransactionManager
	cache    *rendercache.Cache
	settings runtimeconfig.Provider
	renderer Renderer
	logger   *zap.Logger
}

// NewService creates a new receipt service
func NewService(
	receipts repositories.ReceiptRepository,
	txMgr repositories.TransactionManager,
	cache *rendercache.Cache,
	settings runtimeconfig.Provider,
	renderer Renderer,
	logger *zap.Logger,
) *Service {
	return &Service{
		receipts: receipts,
		txMgr:    txMgr,
		cache:    cache,
		settings: settings,
		renderer: renderer,
		logger:   logger,
	}
}

// Create stores a receipt owned by userID and returns it as stored
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*models.Receipt, error) {
	if len(in.Items) == 0 {
		return nil, services.ErrInvalidInput.WithDetail("items", "at least one item is required")
	}

	items := make([]models.ReceiptItem, len(in.Items))
	for i, item := range in.Items {
		if item.Price.IsNegative() || !item.Quantity.IsPositive() {
			return nil, services.ErrInvalidInput.WithDetail("items", "price must be non-negative and quantity positive")
		}
		items[i] = models.ReceiptItem{Name: item.Name, Price: item.Price, Quantity: item.Quantity}
	}

	receipt := models.NewReceipt(userID, in.IsCashlessPayment, in.PaymentAmount, items)
	if in.PaymentAmount.LessThan(receipt.Total()) {
		return nil, services.ErrInvalidPayment.
			WithDetail("total", receipt.Total().StringFixed(2)).
			WithDetail("payment", in.PaymentAmount.StringFixed(2))
	}

	stored, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context) (*models.Receipt, error) {
		if err := s.receipts.Create(ctx, receipt); err != nil {
			return nil, err
		}
		return s.receipts.GetByID(ctx, receipt.ID)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrUserNotFound.Wrap(err)
		}
		return nil, services.ErrDatabaseError.Wrap(err)
	}

	s.logger.Info("receipt created",
		zap.String("receipt_id", stored.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Int("items", len(stored.Items)))
	return stored, nil
}

// Get returns a receipt to its owner; anyone else is forbidden
func (s *Service) Get(ctx context.Context, requester, id uuid.UUID) (*models.Receipt, error) {
	receipt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !receipt.IsOwnedBy(requester) {
		return nil, services.ErrForbidden.WithDetail("receipt_id", id.String())
	}
	return receipt, nil
}

// List returns a page of the requester's receipts, newest first
func (s *Service) List(ctx context.Context, filter models.ReceiptFilter) (*Page, error) {
	if filter.Limit == 0 {
		filter.Limit = DefaultLimit
	}
	if filter.Limit < 1 || filter.Limit > MaxLimit {
		return nil, services.ErrInvalidInput.WithDetail("limit", "must be between 1 and 100")
	}
	if filter.Offset < 0 {
		return nil, services.ErrInvalidInput.WithDetail("offset", "must not be negative")
	}

	total, receipts, err := s.receipts.List(ctx, filter)
	if err != nil {
		return nil, services.ErrDatabaseError.Wrap(err)
	}

	ending := filter.Offset + filter.Limit
	if ending > total {
		ending = total
	}
	return &Page{
		Total:    total,
		Starting: filter.Offset,
		Ending:   ending,
		Count:    len(receipts),
		Receipts: receipts,
	}, nil
}

// Delete removes an owned receipt and its cached renderings
func (s *Service) Delete(ctx context.Context, requester, id uuid.UUID) error {
	if _, err := s.Get(ctx, requester, id); err != nil {
		return err
	}

	if err := s.receipts.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return services.ErrReceiptNotFound.Wrap(err)
		}
		return services.ErrDatabaseError.Wrap(err)
	}

	if err := s.cache.InvalidateReceipt(ctx, id); err != nil {
		s.logger.Warn("failed to invalidate render cache",
			zap.String("receipt_id", id.String()),
			zap.Error(err))
	}

	s.logger.Info("receipt deleted", zap.String("receipt_id", id.String()))
	return nil
}

// RenderText returns the printable form of a receipt. Renderings are
// memoized per receipt, formatting settings and width.
func (s *Service) RenderText(ctx context.Context, id uuid.UUID, width int) (string, error) {
	if width < MinWidth || width > MaxWidth {
		return "", services.ErrInvalidWidth.WithDetail("width", width)
	}

	receipt, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}

	opts, err := LoadFormattingOptions(ctx, s.settings)
	if err != nil {
		return "", err
	}
	fingerprint := rendercache.Fingerprint(opts.Values(), width)

	if text, ok, err := s.cache.Get(ctx, id, fingerprint); err != nil {
		s.logger.Warn("render cache read failed", zap.String("receipt_id", id.String()), zap.Error(err))
	} else if ok {
		return text, nil
	}

	text, err := s.renderer.Render(receipt, opts, width)
	if err != nil {
		return "", services.ErrRenderFailed.Wrap(err)
	}

	if err := s.cache.Put(ctx, id, fingerprint, text); err != nil {
		s.logger.Warn("render cache write failed",
			zap.String("receipt_id", id.String()),
			zap.String("code", string(services.GetErrorCode(err))),
			zap.Error(err))
	}
	return text, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*models.Receipt, error) {
	receipt, err := s.receipts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrReceiptNotFound.Wrap(err)
		}
		return nil, services.ErrDatabaseError.Wrap(err)
	}
	return receipt, nil
}
