package runtimeconfig

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned when a requested key is absent
var ErrNotFound = errors.New("runtime config key not found")

// Provider reads settings at call time
type Provider interface {
	// Get returns the value stored under key, or ErrNotFound
	Get(ctx context.Context, key string) (Value, error)
	// GetMany returns the values present among keys; absent keys are omitted
	GetMany(ctx context.Context, keys []string) (map[string]Value, error)
}

// Store is a Provider that can also be written
type Store interface {
	Provider
	Set(ctx context.Context, key string, value interface{}) error
}

// GetInt reads an integer setting
func GetInt(ctx context.Context, p Provider, key string) (int, error) {
	v, err := p.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	return v.Int()
}

// RequireStrings reads string settings and fails with ErrNotFound naming the
// first absent key, in the order given.
func RequireStrings(ctx context.Context, p Provider, keys []string) (map[string]string, error) {
	values, err := p.GetMany(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(keys))
	for _, key := range keys {
		v, ok := values[key]
		if !ok {
			return nil, &MissingKeyError{Key: key}
		}
		out[key] = v.String()
	}
	return out, nil
}

// MissingKeyError names an absent key. It matches ErrNotFound.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("%s: %s", ErrNotFound, e.Key)
}

func (e *MissingKeyError) Is(target error) bool {
	return target == ErrNotFound
}

// MissingKey extracts the absent key from an error, if any
func MissingKey(err error) (string, bool) {
	var missing *MissingKeyError
	if errors.As(err, &missing) {
		return missing.Key, true
	}
	return "", false
}

// StaticProvider is an in-memory Store
type StaticProvider struct {
	mu     sync.RWMutex
	values map[string]Value
}

// NewStaticProvider creates a provider holding the given values.
// It panics on an unsupported value type.
func NewStaticProvider(values map[string]interface{}) *StaticProvider {
	p := &StaticProvider{values: make(map[string]Value, len(values))}
	for key, raw := range values {
		v, err := NewValue(key, raw)
		if err != nil {
			panic(err)
		}
		p.values[key] = v
	}
	return p
}

// Get implements Provider
func (p *StaticProvider) Get(ctx context.Context, key string) (Value, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	v, ok := p.values[key]
	if !ok {
		return Value{}, &MissingKeyError{Key: key}
	}
	return v, nil
}

// GetMany implements Provider
func (p *StaticProvider) GetMany(ctx context.Context, keys []string) (map[string]Value, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]Value, len(keys))
	for _, key := range keys {
		if v, ok := p.values[key]; ok {
			out[key] = v
		}
	}
	return out, nil
}

// Set implements Store
func (p *StaticProvider) Set(ctx context.Context, key string, value interface{}) error {
	v, err := NewValue(key, value)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = v
	return nil
}

// Delete removes a key
func (p *StaticProvider) Delete(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.values, key)
}
