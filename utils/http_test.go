package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestDataEnvelope(t *testing.T) {
	type receiptRef struct {
		ID    string `json:"id"`
		Total string `json:"total"`
	}

	t.Run("ok", func(t *testing.T) {
		w := httptest.NewRecorder()
		require.NoError(t, WriteOK(w, receiptRef{ID: "r-1", Total: "151"}))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"data":{"id":"r-1","total":"151"}}`, w.Body.String())
	})

	t.Run("created", func(t *testing.T) {
		w := httptest.NewRecorder()
		require.NoError(t, WriteCreated(w, receiptRef{ID: "r-2", Total: "0"}))

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.JSONEq(t, `{"data":{"id":"r-2","total":"0"}}`, w.Body.String())
	})

	t.Run("bare json for token bodies", func(t *testing.T) {
		w := httptest.NewRecorder()
		require.NoError(t, WriteJSON(w, http.StatusOK, map[string]string{"access_token": "x", "token_type": "bearer"}))

		assert.JSONEq(t, `{"access_token":"x","token_type":"bearer"}`, w.Body.String())
	})

	t.Run("nil body writes headers only", func(t *testing.T) {
		w := httptest.NewRecorder()
		require.NoError(t, WriteJSON(w, http.StatusAccepted, nil))

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("no content after delete", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteNoContent(w)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestWriteText_PrintableReceipt(t *testing.T) {
	w := httptest.NewRecorder()
	receipt := "     Front Desk     \n====================\n"

	require.NoError(t, WriteText(w, http.StatusOK, receipt))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, receipt, w.Body.String())
}

func TestWriteError_CodeTable(t *testing.T) {
	for status, code := range map[int]string{
		http.StatusBadRequest:          "bad_request",
		http.StatusUnauthorized:        "unauthorized",
		http.StatusForbidden:           "forbidden",
		http.StatusNotFound:            "not_found",
		http.StatusConflict:            "conflict",
		http.StatusServiceUnavailable:  "unavailable",
		http.StatusInternalServerError: "internal_error",
		http.StatusTooManyRequests:     "internal_error",
	} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			w := httptest.NewRecorder()
			require.NoError(t, WriteError(w, status, "msg", map[string]interface{}{"receipt_id": "r-1"}))

			assert.Equal(t, status, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, code, body.Error)
			assert.Equal(t, "msg", body.Message)
			assert.Equal(t, "r-1", body.Details["receipt_id"])
		})
	}
}

func TestWriteChallenge(t *testing.T) {
	w := httptest.NewRecorder()
	require.NoError(t, WriteChallenge(w, "Token has expired"))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
	body := decodeError(t, w)
	assert.Equal(t, "unauthorized", body.Error)
	assert.Equal(t, "Token has expired", body.Message)

	w = httptest.NewRecorder()
	require.NoError(t, WriteChallenge(w, ""))
	assert.Equal(t, "Authentication required", decodeError(t, w).Message)
}

func TestShorthandWriters(t *testing.T) {
	tests := []struct {
		name    string
		write   func(w http.ResponseWriter) error
		status  int
		message string
		details bool
	}{
		{
			name: "bad request keeps field details",
			write: func(w http.ResponseWriter) error {
				return WriteBadRequest(w, "Validation failed", map[string]interface{}{"width": "out of range"})
			},
			status:  http.StatusBadRequest,
			message: "Validation failed",
			details: true,
		},
		{
			name:    "unauthorized default",
			write:   func(w http.ResponseWriter) error { return WriteUnauthorized(w, "") },
			status:  http.StatusUnauthorized,
			message: "Authentication required",
		},
		{
			name:    "forbidden default",
			write:   func(w http.ResponseWriter) error { return WriteForbidden(w, "") },
			status:  http.StatusForbidden,
			message: "Access forbidden",
		},
		{
			name:    "forbidden names the missing grant",
			write:   func(w http.ResponseWriter) error { return WriteForbidden(w, "Requires POST@receipts") },
			status:  http.StatusForbidden,
			message: "Requires POST@receipts",
		},
		{
			name:    "not found default",
			write:   func(w http.ResponseWriter) error { return WriteNotFound(w, "") },
			status:  http.StatusNotFound,
			message: "Resource not found",
		},
		{
			name: "duplicate login",
			write: func(w http.ResponseWriter) error {
				return WriteConflict(w, "Login already exists", map[string]interface{}{"login": "eve"})
			},
			status:  http.StatusConflict,
			message: "Login already exists",
			details: true,
		},
		{
			name:    "internal default",
			write:   func(w http.ResponseWriter) error { return WriteInternalServerError(w, "") },
			status:  http.StatusInternalServerError,
			message: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			require.NoError(t, tt.write(w))

			assert.Equal(t, tt.status, w.Code)
			assert.Empty(t, w.Header().Get("WWW-Authenticate"))
			body := decodeError(t, w)
			assert.Equal(t, errorCodes[tt.status], body.Error)
			assert.Equal(t, tt.message, body.Message)
			assert.Equal(t, tt.details, body.Details != nil)
		})
	}
}
