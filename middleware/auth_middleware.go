package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/avillia/receipt-service/internal/auth"
	"github.com/avillia/receipt-service/services"
	"github.com/avillia/receipt-service/session"
	"github.com/avillia/receipt-service/utils"
)

// TokenVerifier checks a bearer token and returns who presented it
type TokenVerifier interface {
	Verify(token string) (*auth.Principal, error)
}

// AuthMiddleware provides authentication and authorization middleware
type AuthMiddleware struct {
	verifier TokenVerifier
	logger   *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(verifier TokenVerifier, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		logger:   logger,
	}
}

// RequireAuth is a middleware that requires a valid bearer token
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		token := extractBearerToken(r)
		if token == "" {
			m.logger.Debug("missing bearer token",
				zap.String("request_id", requestID))
			_ = utils.WriteChallenge(w, "Not authenticated")
			return
		}

		principal, err := m.verifier.Verify(token)
		if err != nil {
			fields := []zap.Field{
				zap.String("request_id", requestID),
				zap.String("code", string(services.GetErrorCode(err))),
				zap.Error(err),
			}
			// unverified, for tracing who presented the token
			if sub, peekErr := session.PeekSubject(token); peekErr == nil {
				fields = append(fields, zap.String("claimed_sub", sub))
			}
			m.logger.Warn("token verification failed", fields...)

			if services.IsExpiredCredentialError(err) {
				_ = utils.WriteChallenge(w, "Token has expired")
				return
			}
			_ = utils.WriteForbidden(w, "Could not validate credentials")
			return
		}

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("sub", principal.Subject),
			zap.Int("grants", principal.Grants.Len()))

		next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
	})
}

// RequirePermission is a middleware that checks the principal's grants
// against the request method and the first segment of the request path.
// It must run after RequireAuth.
func (m *AuthMiddleware) RequirePermission(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		principal := GetPrincipalFromContext(ctx)
		if principal == nil {
			m.logger.Error("principal not found in context",
				zap.String("request_id", requestID))
			_ = utils.WriteChallenge(w, "Not authenticated")
			return
		}

		resource := auth.RootResource(r.URL.Path)
		if !principal.Can(r.Method, resource) {
			required := auth.Requirement(r.Method, resource)
			m.logger.Warn("insufficient permissions",
				zap.String("request_id", requestID),
				zap.String("sub", principal.Subject),
				zap.String("required", required))
			_ = utils.WriteError(w, http.StatusForbidden,
				"Not enough permissions: "+required+" required",
				map[string]interface{}{"required": required})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractBearerToken extracts the Bearer token from the Authorization header.
// The scheme is matched case-insensitively; any other scheme yields "".
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}
