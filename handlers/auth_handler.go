package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avillia/receipt-service/middleware"
	"github.com/avillia/receipt-service/models"
	"github.com/avillia/receipt-service/services/identity"
	"github.com/avillia/receipt-service/utils"
)

// IdentityService defines the account operations the handler needs
type IdentityService interface {
	Login(ctx context.Context, login, password string) (string, error)
	Signup(ctx context.Context, in identity.SignupInput) (*models.User, error)
	AssignRole(ctx context.Context, roleName, login string) (bool, error)
}

// LoginRequest represents a password login
type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse is the OAuth2-style bearer token answer
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// SignupRequest represents a new account
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,max=255"`
	Login    string `json:"login" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

// SignupResponse describes the created account
type SignupResponse struct {
	ID       uuid.UUID `json:"id"`
	Login    string    `json:"login"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	LoginURL string    `json:"login_url"`
}

// AssignRoleRequest asks to give a user a role
type AssignRoleRequest struct {
	Login    string `json:"login" validate:"required"`
	RoleName string `json:"role_name" validate:"required"`
}

// AssignRoleResponse reports whether the assignment changed anything
type AssignRoleResponse struct {
	Changed bool   `json:"changed"`
	Info    string `json:"info"`
}

// AuthHandler handles login, signup and role assignment
type AuthHandler struct {
	service  IdentityService
	loginURL string
	logger   *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service IdentityService, loginURL string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		loginURL: loginURL,
		logger:   logger,
	}
}

// HandleLogin handles POST /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	token, err := h.service.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		h.logger.Info("login rejected",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
			zap.String("login", req.Login))
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// HandleSignup handles POST /auth/signup
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.service.Signup(r.Context(), identity.SignupInput{
		Login:    req.Login,
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, SignupResponse{
		ID:       user.ID,
		Login:    user.Login,
		Name:     user.Name,
		Email:    user.Email,
		LoginURL: h.loginURL,
	})
}

// HandleAssignRole handles PATCH /auth/add_role
func (h *AuthHandler) HandleAssignRole(w http.ResponseWriter, r *http.Request) {
	var req AssignRoleRequest
	if !h.decode(w, r, &req) {
		return
	}

	changed, err := h.service.AssignRole(r.Context(), req.RoleName, req.Login)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	info := fmt.Sprintf("user %q is now %q", req.Login, req.RoleName)
	if !changed {
		info = fmt.Sprintf("no changes: user %q is already %q", req.Login, req.RoleName)
	}
	_ = utils.WriteOK(w, AssignRoleResponse{Changed: changed, Info: info})
}

func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return false
	}
	if err := utils.ValidateStruct(dst); err != nil {
		HandleValidationError(w, err, h.logger)
		return false
	}
	return true
}
