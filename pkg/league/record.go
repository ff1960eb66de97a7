package league

import (
	"errors"
	"fmt"
	"math"
)

// ErrMissingField is returned when a required record field is absent.
var ErrMissingField = errors.New("missing field")

// Record is one raw entry as decoded from the API: string keys to untyped
// JSON values. Numbers arrive as float64.
type Record map[string]any

// String returns a string field.
func (r Record) String(key string) (string, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", fmt.Errorf("%w %q", ErrMissingField, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q: expected string, got %T", key, v)
	}
	return s, nil
}

// Int returns an integral numeric field.
func (r Record) Int(key string) (int, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("%w %q", ErrMissingField, key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("field %q: %v is not an integer", key, n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("field %q: expected number, got %T", key, v)
	}
}

// Bool returns a boolean field. A missing field reads as false.
func (r Record) Bool(key string) (bool, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("field %q: expected bool, got %T", key, v)
	}
	return b, nil
}

// Map returns a nested object field. ok is false when the field is absent.
func (r Record) Map(key string) (Record, bool, error) {
	v, present := r[key]
	if !present || v == nil {
		return nil, false, nil
	}
	switch m := v.(type) {
	case map[string]any:
		return Record(m), true, nil
	case Record:
		return m, true, nil
	default:
		return nil, false, fmt.Errorf("field %q: expected object, got %T", key, v)
	}
}
