package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/avillia/receipt-service/internal/auth"
)

func TestRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "abc")
	assert.Equal(t, "abc", GetRequestIDFromContext(ctx))
	assert.Empty(t, GetRequestIDFromContext(context.Background()))

	var seen string
	handler := chimiddleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestIDFromContext(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
}

func TestGetUserIDFromContext(t *testing.T) {
	id := uuid.New()

	ctx := WithPrincipal(context.Background(), &auth.Principal{Subject: id.String()})
	assert.Equal(t, id, GetUserIDFromContext(ctx))

	ctx = WithPrincipal(context.Background(), &auth.Principal{Subject: "not-a-uuid"})
	assert.Equal(t, uuid.Nil, GetUserIDFromContext(ctx))

	assert.Equal(t, uuid.Nil, GetUserIDFromContext(context.Background()))
}
