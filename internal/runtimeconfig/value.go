package runtimeconfig

import (
	"fmt"
	"strconv"
)

// ValueType is the declared type of a stored setting
type ValueType string

const (
	TypeString ValueType = "str"
	TypeInt    ValueType = "int"
	TypeBool   ValueType = "bool"
	TypeFloat  ValueType = "float"
)

// IsValid reports whether the type is one of the known values
func (t ValueType) IsValid() bool {
	switch t {
	case TypeString, TypeInt, TypeBool, TypeFloat:
		return true
	}
	return false
}

// Value is a single setting in its stored form
type Value struct {
	Key  string
	Raw  string
	Type ValueType
}

// NewValue converts a Go value into its stored form.
// Supported inputs are string, int, int64, bool and float64.
func NewValue(key string, v interface{}) (Value, error) {
	switch typed := v.(type) {
	case string:
		return Value{Key: key, Raw: typed, Type: TypeString}, nil
	case int:
		return Value{Key: key, Raw: strconv.Itoa(typed), Type: TypeInt}, nil
	case int64:
		return Value{Key: key, Raw: strconv.FormatInt(typed, 10), Type: TypeInt}, nil
	case bool:
		return Value{Key: key, Raw: strconv.FormatBool(typed), Type: TypeBool}, nil
	case float64:
		return Value{Key: key, Raw: strconv.FormatFloat(typed, 'f', -1, 64), Type: TypeFloat}, nil
	default:
		return Value{}, fmt.Errorf("unsupported config value type %T for %q", v, key)
	}
}

// String returns the raw value
func (v Value) String() string {
	return v.Raw
}

// Int parses the value as an integer
func (v Value) Int() (int, error) {
	n, err := strconv.Atoi(v.Raw)
	if err != nil {
		return 0, fmt.Errorf("config %q is not an int: %w", v.Key, err)
	}
	return n, nil
}

// Bool parses the value as a boolean
func (v Value) Bool() (bool, error) {
	b, err := strconv.ParseBool(v.Raw)
	if err != nil {
		return false, fmt.Errorf("config %q is not a bool: %w", v.Key, err)
	}
	return b, nil
}

// Float parses the value as a float
func (v Value) Float() (float64, error) {
	f, err := strconv.ParseFloat(v.Raw, 64)
	if err != nil {
		return 0, fmt.Errorf("config %q is not a float: %w", v.Key, err)
	}
	return f, nil
}

// Interface returns the value converted according to its declared type
func (v Value) Interface() (interface{}, error) {
	switch v.Type {
	case TypeInt:
		return v.Int()
	case TypeBool:
		return v.Bool()
	case TypeFloat:
		return v.Float()
	case TypeString:
		return v.Raw, nil
	default:
		return nil, fmt.Errorf("config %q has unknown type %q", v.Key, v.Type)
	}
}
