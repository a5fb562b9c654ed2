package internal

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Str returns the field as trimmed text; "" when absent or not scalar.
func (o Offer) Str(key string) string {
	return ValueString(o[key])
}

// First returns the first field that is non-empty as text, in key order.
func (o Offer) First(keys ...string) string {
	for _, k := range keys {
		if v := o.Str(k); v != "" {
			return v
		}
	}
	return ""
}

// Int returns the field as an integer when it holds one.
func (o Offer) Int(key string) (int, bool) {
	return ValueInt(o[key])
}

func ValueString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func ValueInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		if t != math.Trunc(t) {
			return 0, false
		}
		return int(t), true
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i), true
		}
		if f, err := t.Float64(); err == nil && f == math.Trunc(f) {
			return int(f), true
		}
		return 0, false
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		return i, err == nil
	default:
		return 0, false
	}
}
