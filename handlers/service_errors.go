package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/avillia/receipt-service/services"
	"github.com/avillia/receipt-service/utils"
)

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	var domainErr *services.DomainError
	if !errors.As(err, &domainErr) {
		logger.Error("unhandled error type", zap.Error(err))
		if err := utils.WriteInternalServerError(w, "An unexpected error occurred"); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}
		return
	}

	message := publicMessage(domainErr.Message)
	details := domainErr.Details
	if len(details) == 0 {
		details = nil
	}

	var writeErr error
	switch {
	case services.IsExpiredCredentialError(err):
		writeErr = utils.WriteChallenge(w, message)

	case services.IsMalformedCredentialError(err):
		writeErr = utils.WriteForbidden(w, message)

	case services.IsConfigurationMissingError(err):
		// Only the current request fails; the next one re-reads the setting
		logger.Error("runtime configuration missing",
			zap.Any("key", domainErr.Details["key"]),
			zap.Error(err))
		writeErr = utils.WriteError(w, http.StatusInternalServerError, message, details)

	case services.IsNotFoundError(err):
		writeErr = utils.WriteError(w, http.StatusNotFound, message, details)

	case services.IsValidationError(err):
		writeErr = utils.WriteBadRequest(w, message, details)

	case services.IsUnauthorizedError(err):
		writeErr = utils.WriteUnauthorized(w, message)

	case services.IsForbiddenError(err):
		writeErr = utils.WriteError(w, http.StatusForbidden, message, details)

	case services.IsConflictError(err):
		writeErr = utils.WriteConflict(w, message, details)

	default:
		// Internal causes stay in the log
		logger.Error("internal server error",
			zap.String("code", string(domainErr.Code)),
			zap.Error(err))
		writeErr = utils.WriteInternalServerError(w, "An internal error occurred")
	}
	if writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}

	logger.Debug("handled service error",
		zap.String("type", string(domainErr.Type)),
		zap.String("code", string(domainErr.Code)),
		zap.String("message", domainErr.Message))
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
		if err := utils.WriteBadRequest(w, "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}

// publicMessage capitalizes a domain message for clients
func publicMessage(msg string) string {
	if msg == "" || msg[0] < 'a' || msg[0] > 'z' {
		return msg
	}
	return string(msg[0]-'a'+'A') + msg[1:]
}
