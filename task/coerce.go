package task

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Coercion converts a raw bound value to the named type, returning
// (converted, ok). The engine tries an attribute's Types list in order and
// keeps the first successful coercion (spec §3: "first-success-wins").
type Coercion func(v any) (any, bool)

// builtinCoercions mirrors the common scalar coercions of the source
// runtime, registered under the names an AttributeDef.Types entry can name.
var builtinCoercions = map[string]Coercion{
	"string":  coerceString,
	"int":     coerceInt,
	"float64": coerceFloat64,
	"bool":    coerceBool,
	"time":    coerceTime,
	"strings": coerceStringSlice,
}

func coerceString(v any) (any, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case fmt.Stringer:
		return val.String(), true
	case int, int64, float64, bool:
		return fmt.Sprintf("%v", val), true
	default:
		return nil, false
	}
}

func coerceInt(v any) (any, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		if val == float64(int(val)) {
			return int(val), true
		}
		return nil, false
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return nil, false
		}
		return n, true
	default:
		return nil, false
	}
}

func coerceFloat64(v any) (any, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, false
		}
		return f, true
	default:
		return nil, false
	}
}

func coerceBool(v any) (any, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err != nil {
			return nil, false
		}
		return b, true
	default:
		return nil, false
	}
}

func coerceTime(v any) (any, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, true
	case string:
		t, err := time.Parse(time.RFC3339, val)
		if err != nil {
			return nil, false
		}
		return t, true
	default:
		return nil, false
	}
}

func coerceStringSlice(v any) (any, bool) {
	switch val := v.(type) {
	case []string:
		return val, true
	case []any:
		out := make([]string, 0, len(val))
		for _, e := range val {
			s, ok := coerceString(e)
			if !ok {
				return nil, false
			}
			out = append(out, s.(string))
		}
		return out, true
	case string:
		return strings.Split(val, ","), true
	default:
		return nil, false
	}
}
