package util

import (
	"fmt"
	"time"
)

// ValidationError represents an invalid constructor argument.
type ValidationError struct {
	Field   string `json:"field"`   // Field that failed validation
	Value   any    `json:"value"`   // Value that was provided
	Message string `json:"message"` // Human-readable error message
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// Args are decoded constructor arguments of a declarative agent record.
type Args map[string]any

// String returns args[key] or def when absent.
func (a Args) String(key, def string) (string, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", &ValidationError{Field: key, Value: v, Message: "must be a string"}
	}
	return s, nil
}

// RequiredString returns args[key] and fails when it is absent or empty.
func (a Args) RequiredString(key string) (string, error) {
	s, err := a.String(key, "")
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", &ValidationError{Field: key, Message: "is required"}
	}
	return s, nil
}

// Int returns args[key] or def when absent. YAML and JSON numbers are accepted.
func (a Args) Int(key string, def int) (int, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, &ValidationError{Field: key, Value: v, Message: "must be an integer"}
		}
		return int(n), nil
	default:
		return 0, &ValidationError{Field: key, Value: v, Message: "must be an integer"}
	}
}

// Float returns args[key] or def when absent.
func (a Args) Float(key string, def float64) (float64, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, &ValidationError{Field: key, Value: v, Message: "must be a number"}
	}
}

// Bool returns args[key] or def when absent.
func (a Args) Bool(key string, def bool) (bool, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, &ValidationError{Field: key, Value: v, Message: "must be a boolean"}
	}
	return b, nil
}

// Duration returns args[key] parsed with time.ParseDuration, or def when
// absent. Plain numbers are read as seconds.
func (a Args) Duration(key string, def time.Duration) (time.Duration, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return def, nil
	}
	switch d := v.(type) {
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return 0, &ValidationError{Field: key, Value: v, Message: err.Error()}
		}
		return parsed, nil
	default:
		secs, err := a.Float(key, 0)
		if err != nil {
			return 0, &ValidationError{Field: key, Value: v, Message: "must be a duration"}
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
}
