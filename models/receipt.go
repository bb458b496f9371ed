package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentType is how a receipt was paid
type PaymentType string

const (
	PaymentCash     PaymentType = "cash"
	PaymentCashless PaymentType = "cashless"
)

// ReceiptItem is one purchased line
type ReceiptItem struct {
	ID        uuid.UUID       `json:"-" db:"id"`
	ReceiptID uuid.UUID       `json:"-" db:"receipt_id"`
	Name      string          `json:"name" db:"name"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Quantity  decimal.Decimal `json:"quantity" db:"quantity"`
}

// TableName returns the table name for the ReceiptItem model
func (ReceiptItem) TableName() string {
	return "receipt_items"
}

// Total is price times quantity
func (i ReceiptItem) Total() decimal.Decimal {
	return i.Price.Mul(i.Quantity)
}

// Receipt is a stored purchase
type Receipt struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	UserID            uuid.UUID       `json:"-" db:"user_id"`
	IssuerName        string          `json:"-" db:"-"`
	IsCashlessPayment bool            `json:"-" db:"is_cashless_payment"`
	PaymentAmount     decimal.Decimal `json:"-" db:"payment_amount"`
	Items             []ReceiptItem   `json:"-" db:"-"`
	CreatedAt         time.Time       `json:"-" db:"creation_date"`
}

// TableName returns the table name for the Receipt model
func (Receipt) TableName() string {
	return "receipts"
}

// NewReceipt creates a receipt owned by userID; item ids are assigned here
func NewReceipt(userID uuid.UUID, isCashless bool, payment decimal.Decimal, items []ReceiptItem) *Receipt {
	r := &Receipt{
		ID:                uuid.New(),
		UserID:            userID,
		IsCashlessPayment: isCashless,
		PaymentAmount:     payment,
		CreatedAt:         time.Now().UTC(),
	}
	r.Items = make([]ReceiptItem, len(items))
	for i, item := range items {
		item.ID = uuid.New()
		item.ReceiptID = r.ID
		r.Items[i] = item
	}
	return r
}

// Total sums the item totals
func (r *Receipt) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.Items {
		total = total.Add(item.Total())
	}
	return total
}

// Rest is the change returned to the buyer
func (r *Receipt) Rest() decimal.Decimal {
	return r.PaymentAmount.Sub(r.Total())
}

// PaymentType reports cash or cashless
func (r *Receipt) PaymentType() PaymentType {
	if r.IsCashlessPayment {
		return PaymentCashless
	}
	return PaymentCash
}

// IsOwnedBy reports whether userID created the receipt
func (r *Receipt) IsOwnedBy(userID uuid.UUID) bool {
	return r.UserID == userID
}

// ReceiptFilter narrows a receipt listing. Nil fields are not applied.
type ReceiptFilter struct {
	UserID        uuid.UUID
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	MinTotal      *decimal.Decimal
	MaxTotal      *decimal.Decimal
	IsCashless    *bool
	Limit         int
	Offset        int
}

// RenderCacheEntry is a memoized text rendering of a receipt
type RenderCacheEntry struct {
	ID          int64     `json:"id" db:"id"`
	ReceiptID   uuid.UUID `json:"receipt_id" db:"receipt_id"`
	Fingerprint string    `json:"config_str" db:"config_str"`
	Text        string    `json:"txt" db:"txt"`
	CreatedAt   time.Time `json:"creation_date" db:"creation_date"`
}

// TableName returns the table name for the RenderCacheEntry model
func (RenderCacheEntry) TableName() string {
	return "txt_receipts_cache"
}
