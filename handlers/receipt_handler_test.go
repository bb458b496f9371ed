package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/avillia/receipt-service/internal/auth"
	"github.com/avillia/receipt-service/middleware"
	"github.com/avillia/receipt-service/models"
	"github.com/avillia/receipt-service/services"
	"github.com/avillia/receipt-service/services/receipts"
)

// MockReceiptService is a mock implementation of ReceiptService
type MockReceiptService struct {
	mock.Mock
}

func (m *MockReceiptService) Create(ctx context.Context, userID uuid.UUID, in receipts.CreateInput) (*models.Receipt, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Receipt), args.Error(1)
}

func (m *MockReceiptService) Get(ctx context.Context, requester, id uuid.UUID) (*models.Receipt, error) {
	args := m.Called(ctx, requester, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Receipt), args.Error(1)
}

func (m *MockReceiptService) List(ctx context.Context, filter models.ReceiptFilter) (*receipts.Page, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*receipts.Page), args.Error(1)
}

func (m *MockReceiptService) Delete(ctx context.Context, requester, id uuid.UUID) error {
	args := m.Called(ctx, requester, id)
	return args.Error(0)
}

func (m *MockReceiptService) RenderText(ctx context.Context, id uuid.UUID, width int) (string, error) {
	args := m.Called(ctx, id, width)
	return args.String(0), args.Error(1)
}

// withSubject authenticates every request as subject
func withSubject(subject string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := &auth.Principal{Subject: subject, Grants: auth.PermissionSetFromStrings([]string{"*@receipts"})}
			next.ServeHTTP(w, r.WithContext(middleware.WithPrincipal(r.Context(), p)))
		})
	}
}

func newReceiptRouter(svc ReceiptService, subject string) http.Handler {
	h := NewReceiptHandler(svc, zap.NewNop())
	r := chi.NewRouter()
	r.Get("/receipts/{id}/text", h.HandleText)
	r.Group(func(r chi.Router) {
		if subject != "" {
			r.Use(withSubject(subject))
		}
		r.Post("/receipts", h.HandleCreate)
		r.Get("/receipts", h.HandleList)
		r.Get("/receipts/{id}", h.HandleGet)
		r.Delete("/receipts/{id}", h.HandleDelete)
	})
	return r
}

func sampleReceipt(owner uuid.UUID) *models.Receipt {
	r := models.NewReceipt(owner, false, decimal.RequireFromString("1000"), []models.ReceiptItem{
		{Name: "Mavic 3T", Price: decimal.RequireFromString("298.50"), Quantity: decimal.NewFromInt(3)},
	})
	r.CreatedAt = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	return r
}

func TestReceiptHandler_Create(t *testing.T) {
	userID := uuid.New()

	t.Run("creates receipt", func(t *testing.T) {
		svc := new(MockReceiptService)
		stored := sampleReceipt(userID)
		svc.On("Create", mock.Anything, userID, mock.MatchedBy(func(in receipts.CreateInput) bool {
			return len(in.Items) == 1 &&
				in.Items[0].Name == "Mavic 3T" &&
				in.Items[0].Quantity.Equal(decimal.NewFromInt(3)) &&
				in.PaymentAmount.Equal(decimal.NewFromInt(1000)) &&
				!in.IsCashlessPayment
		})).Return(stored, nil)

		body := `{"products":[{"name":"Mavic 3T","price":"298.50","quantity":3}],"payment":{"is_cashless_payment":false,"amount":1000}}`
		req := httptest.NewRequest(http.MethodPost, "/receipts", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		newReceiptRouter(svc, userID.String()).ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code)
		var response struct {
			Data ReceiptResponse `json:"data"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, stored.ID, response.Data.ID)
		assert.True(t, response.Data.Total.Equal(decimal.RequireFromString("895.50")))
		assert.True(t, response.Data.Rest.Equal(decimal.RequireFromString("104.50")))
		assert.True(t, response.Data.Items[0].Total.Equal(decimal.RequireFromString("895.50")))
		svc.AssertExpectations(t)
	})

	t.Run("rejects invalid body", func(t *testing.T) {
		svc := new(MockReceiptService)
		req := httptest.NewRequest(http.MethodPost, "/receipts", bytes.NewBufferString(`{"products":`))
		w := httptest.NewRecorder()
		newReceiptRouter(svc, userID.String()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects empty products and non-positive quantity", func(t *testing.T) {
		svc := new(MockReceiptService)
		for _, body := range []string{
			`{"products":[],"payment":{"amount":1}}`,
			`{"products":[{"name":"x","price":1,"quantity":0}],"payment":{"amount":1}}`,
			`{"products":[{"name":"","price":1,"quantity":1}],"payment":{"amount":1}}`,
		} {
			req := httptest.NewRequest(http.MethodPost, "/receipts", bytes.NewBufferString(body))
			w := httptest.NewRecorder()
			newReceiptRouter(svc, userID.String()).ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code, body)
		}
		svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("insufficient payment maps to 400", func(t *testing.T) {
		svc := new(MockReceiptService)
		svc.On("Create", mock.Anything, userID, mock.Anything).Return(nil, services.ErrInvalidPayment)

		body := `{"products":[{"name":"x","price":10,"quantity":1}],"payment":{"amount":1}}`
		req := httptest.NewRequest(http.MethodPost, "/receipts", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		newReceiptRouter(svc, userID.String()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		svc := new(MockReceiptService)
		req := httptest.NewRequest(http.MethodPost, "/receipts", bytes.NewBufferString(`{}`))
		w := httptest.NewRecorder()
		newReceiptRouter(svc, "").ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
	})

	t.Run("subject that is not a user id", func(t *testing.T) {
		svc := new(MockReceiptService)
		req := httptest.NewRequest(http.MethodPost, "/receipts", bytes.NewBufferString(`{}`))
		w := httptest.NewRecorder()
		newReceiptRouter(svc, "service-account").ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestReceiptHandler_List(t *testing.T) {
	userID := uuid.New()

	t.Run("passes filters and paginates", func(t *testing.T) {
		svc := new(MockReceiptService)
		svc.On("List", mock.Anything, mock.MatchedBy(func(f models.ReceiptFilter) bool {
			return f.UserID == userID &&
				f.Limit == 5 && f.Offset == 10 &&
				f.MinTotal != nil && f.MinTotal.Equal(decimal.NewFromInt(100)) &&
				f.MaxTotal == nil &&
				f.IsCashless != nil && *f.IsCashless &&
				f.CreatedAfter != nil && f.CreatedAfter.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) &&
				f.CreatedBefore == nil
		})).Return(&receipts.Page{
			Total:    12,
			Starting: 10,
			Ending:   12,
			Count:    1,
			Receipts: []*models.Receipt{sampleReceipt(userID)},
		}, nil)

		req := httptest.NewRequest(http.MethodGet,
			"/receipts?limit=5&offset=10&min_total=100&is_cashless_operation=true&created_after=2026-01-01", nil)
		w := httptest.NewRecorder()
		newReceiptRouter(svc, userID.String()).ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var response struct {
			Data ReceiptCollectionResponse `json:"data"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, 12, response.Data.Total)
		assert.Equal(t, Pagination{Starting: 10, Ending: 12, Count: 1}, response.Data.Pagination)
		assert.Len(t, response.Data.Receipts, 1)
		svc.AssertExpectations(t)
	})

	t.Run("defaults", func(t *testing.T) {
		svc := new(MockReceiptService)
		svc.On("List", mock.Anything, models.ReceiptFilter{UserID: userID, Limit: receipts.DefaultLimit}).
			Return(&receipts.Page{Receipts: []*models.Receipt{}}, nil)

		w := httptest.NewRecorder()
		newReceiptRouter(svc, userID.String()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/receipts", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("malformed query", func(t *testing.T) {
		svc := new(MockReceiptService)
		for _, q := range []string{"limit=ten", "min_total=lots", "created_before=soon", "is_cashless_operation=maybe"} {
			w := httptest.NewRecorder()
			newReceiptRouter(svc, userID.String()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/receipts?"+q, nil))
			assert.Equal(t, http.StatusBadRequest, w.Code, q)
		}
	})

	t.Run("out of range limit from service", func(t *testing.T) {
		svc := new(MockReceiptService)
		svc.On("List", mock.Anything, mock.Anything).
			Return(nil, services.ErrInvalidInput.WithDetail("limit", "must be between 1 and 100"))

		w := httptest.NewRecorder()
		newReceiptRouter(svc, userID.String()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/receipts?limit=500", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestReceiptHandler_GetAndDelete(t *testing.T) {
	userID := uuid.New()
	receipt := sampleReceipt(userID)

	t.Run("get own receipt", func(t *testing.T) {
		svc := new(MockReceiptService)
		svc.On("Get", mock.Anything, userID, receipt.ID).Return(receipt, nil)

		w := httptest.NewRecorder()
		newReceiptRouter(svc, userID.String()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/receipts/"+receipt.ID.String(), nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("get foreign receipt", func(t *testing.T) {
		svc := new(MockReceiptService)
		svc.On("Get", mock.Anything, userID, receipt.ID).Return(nil, services.ErrForbidden)

		w := httptest.NewRecorder()
		newReceiptRouter(svc, userID.String()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/receipts/"+receipt.ID.String(), nil))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("get missing receipt", func(t *testing.T) {
		svc := new(MockReceiptService)
		svc.On("Get", mock.Anything, userID, receipt.ID).Return(nil, services.ErrReceiptNotFound)

		w := httptest.NewRecorder()
		newReceiptRouter(svc, userID.String()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/receipts/"+receipt.ID.String(), nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		svc := new(MockReceiptService)
		w := httptest.NewRecorder()
		newReceiptRouter(svc, userID.String()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/receipts/42", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("delete", func(t *testing.T) {
		svc := new(MockReceiptService)
		svc.On("Delete", mock.Anything, userID, receipt.ID).Return(nil)

		w := httptest.NewRecorder()
		newReceiptRouter(svc, userID.String()).ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/receipts/"+receipt.ID.String(), nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
		svc.AssertExpectations(t)
	})
}

func TestReceiptHandler_Text(t *testing.T) {
	id := uuid.New()

	t.Run("default width without authentication", func(t *testing.T) {
		svc := new(MockReceiptService)
		svc.On("RenderText", mock.Anything, id, receipts.DefaultWidth).Return("RECEIPT", nil)

		w := httptest.NewRecorder()
		newReceiptRouter(svc, "").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/receipts/"+id.String()+"/text", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var response struct {
			Data ReceiptTextResponse `json:"data"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, id, response.Data.ReceiptID)
		assert.Equal(t, "RECEIPT", response.Data.Receipt)
	})

	t.Run("width and legacy parameter", func(t *testing.T) {
		svc := new(MockReceiptService)
		svc.On("RenderText", mock.Anything, id, 40).Return("A", nil).Once()
		svc.On("RenderText", mock.Anything, id, 50).Return("B", nil).Once()

		w := httptest.NewRecorder()
		newReceiptRouter(svc, "").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/receipts/"+id.String()+"/text?width=40", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		newReceiptRouter(svc, "").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/receipts/"+id.String()+"/text?chars_per_line=50", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("plain format", func(t *testing.T) {
		svc := new(MockReceiptService)
		svc.On("RenderText", mock.Anything, id, receipts.DefaultWidth).Return("line 1\nline 2\n", nil)

		w := httptest.NewRecorder()
		newReceiptRouter(svc, "").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/receipts/"+id.String()+"/text?format=plain", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Equal(t, "line 1\nline 2\n", w.Body.String())
	})

	t.Run("width out of range", func(t *testing.T) {
		svc := new(MockReceiptService)
		svc.On("RenderText", mock.Anything, id, 10).Return("", services.ErrInvalidWidth.WithDetail("width", 10))

		w := httptest.NewRecorder()
		newReceiptRouter(svc, "").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/receipts/"+id.String()+"/text?width=10", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("explicit zero width is passed through", func(t *testing.T) {
		svc := new(MockReceiptService)
		svc.On("RenderText", mock.Anything, id, 0).Return("", services.ErrInvalidWidth.WithDetail("width", 0))

		w := httptest.NewRecorder()
		newReceiptRouter(svc, "").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/receipts/"+id.String()+"/text?width=0", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "RenderText", mock.Anything, id, receipts.DefaultWidth)
	})

	t.Run("formatting setting missing", func(t *testing.T) {
		svc := new(MockReceiptService)
		svc.On("RenderText", mock.Anything, id, receipts.DefaultWidth).
			Return("", services.NewConfigurationMissingError("delimiter", nil))

		w := httptest.NewRecorder()
		newReceiptRouter(svc, "").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/receipts/"+id.String()+"/text", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
