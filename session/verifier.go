package session

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avillia/receipt-service/internal/auth"
	"github.com/avillia/receipt-service/services"
)

// Verifier checks session tokens. It is stateless and safe for concurrent use.
type Verifier struct {
	key    []byte
	parser *jwt.Parser
}

// NewVerifier creates a Verifier accepting only the configured algorithm
func NewVerifier(cfg Config) (*Verifier, error) {
	method, err := cfg.signingMethod()
	if err != nil {
		return nil, err
	}

	return &Verifier{
		key: []byte(cfg.Secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{method.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(cfg.clock()),
		),
	}, nil
}

// Verify checks the signature, then the expiry, and returns the subject with
// the grants the token carries.
func (v *Verifier) Verify(tokenString string) (*auth.Principal, error) {
	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return v.key, nil
	})
	if err != nil {
		// The signature is checked before claims, so a forged expired token
		// never reaches this branch.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, services.ErrCredentialExpired.Wrap(err)
		}
		return nil, services.ErrCredentialMalformed.Wrap(err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, services.ErrCredentialMalformed
	}

	return claims.Principal(), nil
}
