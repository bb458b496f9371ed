package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/avillia/receipt-service/internal/auth"
	"github.com/avillia/receipt-service/internal/runtimeconfig"
	"github.com/avillia/receipt-service/services"
)

// Issuer signs session tokens. It persists nothing.
type Issuer struct {
	key      []byte
	method   *jwt.SigningMethodHMAC
	settings runtimeconfig.Provider
	now      func() time.Time
	logger   *zap.Logger
}

// NewIssuer creates an Issuer that reads the token lifetime from settings
func NewIssuer(cfg Config, settings runtimeconfig.Provider, logger *zap.Logger) (*Issuer, error) {
	method, err := cfg.signingMethod()
	if err != nil {
		return nil, err
	}
	return &Issuer{
		key:      []byte(cfg.Secret),
		method:   method,
		settings: settings,
		now:      cfg.clock(),
		logger:   logger,
	}, nil
}

// Issue signs a token for subject, valid for ACCESS_TOKEN_EXPIRE_MINUTES as
// configured at the moment of the call.
func (i *Issuer) Issue(ctx context.Context, subject string, grants auth.PermissionSet) (string, error) {
	minutes, err := runtimeconfig.GetInt(ctx, i.settings, runtimeconfig.KeyAccessTokenExpireMinutes)
	if err != nil {
		if errors.Is(err, runtimeconfig.ErrNotFound) {
			i.logger.Error("token lifetime is not configured",
				zap.String("key", runtimeconfig.KeyAccessTokenExpireMinutes))
			return "", services.NewConfigurationMissingError(runtimeconfig.KeyAccessTokenExpireMinutes, err)
		}
		return "", services.WrapInternal("failed to read token lifetime", err)
	}

	return i.IssueFor(subject, grants, time.Duration(minutes)*time.Minute)
}

// IssueFor signs a token for subject that expires ttl from now.
// A ttl of zero or less yields a token that is already expired.
func (i *Issuer) IssueFor(subject string, grants auth.PermissionSet, ttl time.Duration) (string, error) {
	claims := NewClaims(subject, grants)
	claims.ExpiresAt = jwt.NewNumericDate(i.now().Add(ttl))

	signed, err := jwt.NewWithClaims(i.method, claims).SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	i.logger.Debug("issued session token",
		zap.String("subject", subject),
		zap.Int("grants", grants.Len()),
		zap.Time("expires_at", claims.ExpiresAt.Time),
	)
	return signed, nil
}
