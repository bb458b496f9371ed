package utils

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// QueryInt reads an integer query parameter; absent yields def
func QueryInt(q url.Values, key string, def int) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, NewFieldError(key, fmt.Sprintf("%s must be an integer", key))
	}
	return v, nil
}

// QueryBool reads an optional boolean query parameter
func QueryBool(q url.Values, key string) (*bool, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, NewFieldError(key, fmt.Sprintf("%s must be true or false", key))
	}
	return &v, nil
}

// QueryDecimal reads an optional decimal query parameter
func QueryDecimal(q url.Values, key string) (*decimal.Decimal, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, NewFieldError(key, fmt.Sprintf("%s must be a number", key))
	}
	return &v, nil
}

// QueryTime reads an optional RFC 3339 timestamp; a bare date is accepted too
func QueryTime(q url.Values, key string) (*time.Time, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", time.DateOnly} {
		if v, err := time.Parse(layout, raw); err == nil {
			return &v, nil
		}
	}
	return nil, NewFieldError(key, fmt.Sprintf("%s must be an RFC 3339 timestamp or a date", key))
}
