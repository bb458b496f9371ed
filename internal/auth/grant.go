package auth

import (
	"errors"
	"fmt"
	"strings"
)

// Wildcard matches any method or any resource
const Wildcard = "*"

// grantSeparator joins the method and resource of a serialized grant
const grantSeparator = "@"

// ErrInvalidGrant is returned when a grant string cannot be parsed
var ErrInvalidGrant = errors.New("invalid grant")

// Method is an HTTP method that may appear in a grant
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodPatch  Method = "PATCH"
	MethodDelete Method = "DELETE"
	MethodAny    Method = Wildcard
)

// Methods lists every method a grant can carry, wildcard included
var Methods = []Method{MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete, MethodAny}

// ParseMethod converts a string into a Method, case-insensitively
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("%w: unknown method %q", ErrInvalidGrant, s)
	}
	return m, nil
}

// IsValid reports whether the method is one of the known values
func (m Method) IsValid() bool {
	for _, known := range Methods {
		if m == known {
			return true
		}
	}
	return false
}

// Grant allows a method on a resource. Either side may be the wildcard.
type Grant struct {
	Method   Method `json:"method"`
	Resource string `json:"resource"`
}

// NewGrant builds a grant from a method and a resource
func NewGrant(method Method, resource string) Grant {
	return Grant{Method: method, Resource: resource}
}

// ParseGrant parses a serialized "METHOD@resource" grant
func ParseGrant(s string) (Grant, error) {
	method, resource, ok := strings.Cut(s, grantSeparator)
	if !ok {
		return Grant{}, fmt.Errorf("%w: missing %q in %q", ErrInvalidGrant, grantSeparator, s)
	}
	m, err := ParseMethod(method)
	if err != nil {
		return Grant{}, err
	}
	if resource == "" {
		return Grant{}, fmt.Errorf("%w: empty resource in %q", ErrInvalidGrant, s)
	}
	return Grant{Method: m, Resource: resource}, nil
}

// String returns the canonical "METHOD@resource" form
func (g Grant) String() string {
	return string(g.Method) + grantSeparator + g.Resource
}

// IsUnlimited reports whether the grant is "*@*"
func (g Grant) IsUnlimited() bool {
	return g.Method == MethodAny && g.Resource == Wildcard
}
