package session

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avillia/receipt-service/internal/auth"
)

// Claims is the payload of a session token
type Claims struct {
	Access []string `json:"access"`
	jwt.RegisteredClaims
}

// NewClaims builds the payload for subject carrying grants
func NewClaims(subject string, grants auth.PermissionSet) *Claims {
	return &Claims{
		Access: grants.Strings(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: subject,
		},
	}
}

// Principal converts verified claims into the identity handed to callers.
// An absent access claim yields an empty grant set.
func (c *Claims) Principal() *auth.Principal {
	return &auth.Principal{
		Subject: c.Subject,
		Grants:  auth.PermissionSetFromStrings(c.Access),
	}
}

// PeekSubject reads the subject of a token without checking its signature.
// The result must only be used for logging.
func PeekSubject(tokenString string) (string, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())

	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}
