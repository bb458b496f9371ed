package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrWeakKey is returned when no signing secret is configured
var ErrWeakKey = errors.New("signing secret must not be empty")

// Config holds the signing parameters shared by Issuer and Verifier
type Config struct {
	Secret    string
	Algorithm string
	// Clock returns the current time; time.Now when nil
	Clock func() time.Time
}

func (c Config) signingMethod() (*jwt.SigningMethodHMAC, error) {
	if c.Secret == "" {
		return nil, ErrWeakKey
	}

	alg := c.Algorithm
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", alg)
	}
	return method, nil
}

func (c Config) clock() func() time.Time {
	if c.Clock != nil {
		return c.Clock
	}
	return time.Now
}
