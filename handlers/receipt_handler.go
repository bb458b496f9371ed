package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/avillia/receipt-service/middleware"
	"github.com/avillia/receipt-service/models"
	"github.com/avillia/receipt-service/services"
	"github.com/avillia/receipt-service/services/receipts"
	"github.com/avillia/receipt-service/utils"
)

// ReceiptService defines the receipt operations the handler needs
type ReceiptService interface {
	Create(ctx context.Context, userID uuid.UUID, in receipts.CreateInput) (*models.Receipt, error)
	Get(ctx context.Context, requester, id uuid.UUID) (*models.Receipt, error)
	List(ctx context.Context, filter models.ReceiptFilter) (*receipts.Page, error)
	Delete(ctx context.Context, requester, id uuid.UUID) error
	RenderText(ctx context.Context, id uuid.UUID, width int) (string, error)
}

// ProductItem is one purchased line in a create request
type ProductItem struct {
	Name     string          `json:"name" validate:"required,max=255"`
	Price    decimal.Decimal `json:"price" validate:"gte=0"`
	Quantity decimal.Decimal `json:"quantity" validate:"gt=0"`
}

// PaymentInfo describes how a receipt was paid
type PaymentInfo struct {
	IsCashlessPayment bool            `json:"is_cashless_payment"`
	Amount            decimal.Decimal `json:"amount" validate:"gte=0"`
}

// CreateReceiptRequest represents a request to store a receipt
type CreateReceiptRequest struct {
	Products []ProductItem `json:"products" validate:"required,min=1,dive"`
	Payment  PaymentInfo   `json:"payment"`
}

// ItemResponse is a receipt line with its total
type ItemResponse struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
}

// ReceiptResponse represents a receipt in API responses
type ReceiptResponse struct {
	ID        uuid.UUID       `json:"id"`
	Items     []ItemResponse  `json:"items"`
	Payment   PaymentInfo     `json:"payment"`
	Total     decimal.Decimal `json:"total"`
	Rest      decimal.Decimal `json:"rest"`
	CreatedAt time.Time       `json:"created_at"`
}

// Pagination describes the returned slice of a listing
type Pagination struct {
	Starting int `json:"starting"`
	Ending   int `json:"ending"`
	Count    int `json:"count"`
}

// ReceiptCollectionResponse is one page of receipts
type ReceiptCollectionResponse struct {
	Pagination Pagination        `json:"pagination"`
	Receipts   []ReceiptResponse `json:"receipts"`
	Total      int               `json:"total"`
}

// ReceiptTextResponse carries a printable receipt
type ReceiptTextResponse struct {
	ReceiptID uuid.UUID `json:"receipt_id"`
	Receipt   string    `json:"receipt"`
}

// ReceiptHandler handles receipt-related HTTP requests
type ReceiptHandler struct {
	service ReceiptService
	logger  *zap.Logger
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(service ReceiptService, logger *zap.Logger) *ReceiptHandler {
	return &ReceiptHandler{
		service: service,
		logger:  logger,
	}
}

// HandleCreate handles POST /receipts
func (h *ReceiptHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	userID, ok := h.requester(w, r)
	if !ok {
		return
	}

	var req CreateReceiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	in := receipts.CreateInput{
		IsCashlessPayment: req.Payment.IsCashlessPayment,
		PaymentAmount:     req.Payment.Amount,
		Items:             make([]receipts.ItemInput, len(req.Products)),
	}
	for i, p := range req.Products {
		in.Items[i] = receipts.ItemInput{Name: p.Name, Price: p.Price, Quantity: p.Quantity}
	}

	receipt, err := h.service.Create(ctx, userID, in)
	if err != nil {
		h.logger.Warn("failed to create receipt",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, receiptToResponse(receipt))
}

// HandleList handles GET /receipts
func (h *ReceiptHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := h.requester(w, r)
	if !ok {
		return
	}

	filter, err := parseReceiptFilter(r)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	filter.UserID = userID

	page, err := h.service.List(ctx, filter)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	response := ReceiptCollectionResponse{
		Pagination: Pagination{Starting: page.Starting, Ending: page.Ending, Count: page.Count},
		Receipts:   make([]ReceiptResponse, len(page.Receipts)),
		Total:      page.Total,
	}
	for i, receipt := range page.Receipts {
		response.Receipts[i] = receiptToResponse(receipt)
	}

	h.logger.Debug("listed receipts",
		zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
		zap.Int("count", page.Count),
		zap.Int("total", page.Total))

	_ = utils.WriteOK(w, response)
}

// HandleGet handles GET /receipts/{id}
func (h *ReceiptHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requester(w, r)
	if !ok {
		return
	}
	id, err := utils.ParseUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	receipt, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, receiptToResponse(receipt))
}

// HandleDelete handles DELETE /receipts/{id}
func (h *ReceiptHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requester(w, r)
	if !ok {
		return
	}
	id, err := utils.ParseUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	utils.WriteNoContent(w)
}

// HandleText handles GET /receipts/{id}/text. The printable form is public
// so a receipt can be shared by link. ?format=plain returns bare text.
func (h *ReceiptHandler) HandleText(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	q := r.URL.Query()
	widthKey := "width"
	if q.Get(widthKey) == "" && q.Get("chars_per_line") != "" {
		widthKey = "chars_per_line"
	}
	width, err := utils.QueryInt(q, widthKey, receipts.DefaultWidth)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	text, err := h.service.RenderText(r.Context(), id, width)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if q.Get("format") == "plain" {
		_ = utils.WriteText(w, http.StatusOK, text)
		return
	}
	_ = utils.WriteOK(w, ReceiptTextResponse{ReceiptID: id, Receipt: text})
}

// requester resolves the authenticated user; a subject that is not a user id
// means the token was not minted by this service
func (h *ReceiptHandler) requester(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	if middleware.GetPrincipalFromContext(r.Context()) == nil {
		_ = utils.WriteChallenge(w, "Not authenticated")
		return uuid.Nil, false
	}
	userID := middleware.GetUserIDFromContext(r.Context())
	if userID == uuid.Nil {
		HandleServiceError(w, services.ErrCredentialMalformed, h.logger)
		return uuid.Nil, false
	}
	return userID, true
}

func parseReceiptFilter(r *http.Request) (models.ReceiptFilter, error) {
	q := r.URL.Query()
	var (
		filter models.ReceiptFilter
		err    error
	)

	if filter.Limit, err = utils.QueryInt(q, "limit", receipts.DefaultLimit); err != nil {
		return filter, err
	}
	if filter.Offset, err = utils.QueryInt(q, "offset", 0); err != nil {
		return filter, err
	}
	if filter.CreatedAfter, err = utils.QueryTime(q, "created_after"); err != nil {
		return filter, err
	}
	if filter.CreatedBefore, err = utils.QueryTime(q, "created_before"); err != nil {
		return filter, err
	}
	if filter.MinTotal, err = utils.QueryDecimal(q, "min_total"); err != nil {
		return filter, err
	}
	if filter.MaxTotal, err = utils.QueryDecimal(q, "max_total"); err != nil {
		return filter, err
	}
	if filter.IsCashless, err = utils.QueryBool(q, "is_cashless_operation"); err != nil {
		return filter, err
	}
	return filter, nil
}

func receiptToResponse(r *models.Receipt) ReceiptResponse {
	items := make([]ItemResponse, len(r.Items))
	for i, item := range r.Items {
		items[i] = ItemResponse{
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
			Total:    item.Total(),
		}
	}
	return ReceiptResponse{
		ID:    r.ID,
		Items: items,
		Payment: PaymentInfo{
			IsCashlessPayment: r.IsCashlessPayment,
			Amount:            r.PaymentAmount,
		},
		Total:     r.Total(),
		Rest:      r.Rest(),
		CreatedAt: r.CreatedAt,
	}
}
