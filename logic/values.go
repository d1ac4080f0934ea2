package logic

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Responses maps field ids to submitted values. Values arrive untyped from
// the transport layer: strings, numbers, string arrays or nil. The engine
// never mutates a response map it is handed.
type Responses map[string]interface{}

// toNumber normalises a raw response value to a decimal. The second return
// is false for anything that does not parse as a number, which callers must
// treat as a missing operand rather than as zero.
func toNumber(value interface{}) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return v, true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(trimmed)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case float64:
		return decimal.NewFromFloat(v), true
	case float32:
		return decimal.NewFromFloat32(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int32:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case uint:
		return decimal.NewFromInt(int64(v)), true
	default:
		return decimal.Zero, false
	}
}

// toComparable stringifies a value for equals/contains checks. Comparison is
// case-insensitive, so the result is already lower-cased.
func toComparable(value interface{}) string {
	return strings.ToLower(stringify(value))
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case decimal.Decimal:
		return v.String()
	default:
		return ""
	}
}

// isEmpty reports whether a response value counts as absent. Zero and false
// are present values; an empty array is not.
func isEmpty(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []interface{}:
		return len(v) == 0
	case []string:
		return len(v) == 0
	default:
		return false
	}
}

// asList detects checkbox-style array values.
func asList(value interface{}) ([]interface{}, bool) {
	switch v := value.(type) {
	case []interface{}:
		return v, true
	case []string:
		out := make([]interface{}, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

// containsValue implements the contains operator: membership for array
// values, substring match for scalars. Both sides compare case-insensitively.
func containsValue(actual, literal interface{}) bool {
	needle := toComparable(literal)
	if items, ok := asList(actual); ok {
		for _, item := range items {
			if toComparable(item) == needle {
				return true
			}
		}
		return false
	}
	if needle == "" {
		return false
	}
	return strings.Contains(toComparable(actual), needle)
}
