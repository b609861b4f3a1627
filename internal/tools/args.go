/**
 * @description
 * Argument coercion for operation handlers. Arguments arrive as decoded
 * JSON, so numbers are float64 and ids may come quoted; these helpers accept
 * the shapes an agent layer realistically sends.
 */

package tools

import (
	"strconv"

	"github.com/shopspring/decimal"
)

func int64Arg(args map[string]any, key string) (int64, bool) {
	switch v := args[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		if v != float64(int64(v)) {
			return 0, false
		}
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func boolArg(args map[string]any, key string) bool {
	switch v := args[key].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "yes"
	default:
		return false
	}
}

func intArg(args map[string]any, key string, fallback int) int {
	n, ok := int64Arg(args, key)
	if !ok {
		return fallback
	}
	return int(n)
}

func decimalArg(args map[string]any, key string) (decimal.Decimal, bool) {
	switch v := args[key].(type) {
	case float64:
		return decimal.NewFromFloat(v), true
	case int64:
		return decimal.NewFromInt(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case string:
		d, err := decimal.NewFromString(v)
		return d, err == nil
	case decimal.Decimal:
		return v, true
	default:
		return decimal.Decimal{}, false
	}
}
