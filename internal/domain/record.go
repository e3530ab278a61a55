package domain

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
)

// Record is a raw node or link record with arbitrary fields.
type Record map[string]any

// Get returns the value stored under key.
func (r Record) Get(key string) (any, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r[key]
	return v, ok
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	return maps.Clone(r)
}

// Truthy reports whether the value under key is present and not a zero
// value (nil, false, 0, NaN or the empty string).
func (r Record) Truthy(key string) bool {
	v, _ := r.Get(key)
	return truthy(v)
}

// Float returns the value under key as a number. Numeric strings are
// accepted.
func (r Record) Float(key string) (float64, bool) {
	v, _ := r.Get(key)
	return toFloat(v)
}

// String returns the value under key rendered as text, or "" when absent.
func (r Record) String(key string) string {
	v, ok := r.Get(key)
	if !ok || v == nil {
		return ""
	}
	return Identity(v)
}

// Identity converts an identity value to the string used to match links to
// nodes. Missing values map to the empty string.
func Identity(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	default:
		f, ok := toFloat(v)
		if !ok {
			return true
		}
		return f != 0 && f == f
	}
}

func toFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
