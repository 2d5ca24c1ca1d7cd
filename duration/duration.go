// Package duration implements the timeout-expression parser described in
// spec §4.7: numbers (ms), numeric strings, and whitespace-separated
// <number><unit> tokens, including compound expressions like "1h 30m".
package duration

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/flowforge/durable/werrors"
)

// unitMultipliers maps every accepted unit spelling to its millisecond
// multiplier (spec §4.7).
var unitMultipliers = map[string]float64{
	"ms": 1,

	"s":       1000,
	"sec":     1000,
	"second":  1000,
	"seconds": 1000,

	"m":       60_000,
	"min":     60_000,
	"minute":  60_000,
	"minutes": 60_000,

	"h":     3_600_000,
	"hr":    3_600_000,
	"hour":  3_600_000,
	"hours": 3_600_000,

	"d":    86_400_000,
	"day":  86_400_000,
	"days": 86_400_000,

	"w":     604_800_000,
	"week":  604_800_000,
	"weeks": 604_800_000,
}

// Parse accepts a number of milliseconds, a numeric string, or a compound
// whitespace-separated "<number><unit>" expression (case-insensitive,
// fractional numbers allowed) and returns the equivalent time.Duration.
// Any input outside this conservative grammar fails fast with
// werrors.ErrUnknownDuration wrapping the offending input (spec §9 Design
// Notes: "Keep the parser conservative and deterministic").
func Parse(v any) (time.Duration, error) {
	switch val := v.(type) {
	case time.Duration:
		return val, nil
	case int:
		return time.Duration(val) * time.Millisecond, nil
	case int64:
		return time.Duration(val) * time.Millisecond, nil
	case float64:
		return time.Duration(val * float64(time.Millisecond)), nil
	case string:
		return parseString(val)
	default:
		return 0, fmt.Errorf("%w: %v (%T)", werrors.ErrUnknownDuration, v, v)
	}
}

func parseString(s string) (time.Duration, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty duration", werrors.ErrUnknownDuration)
	}
	if ms, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return time.Duration(ms * float64(time.Millisecond)), nil
	}

	tokens := strings.Fields(trimmed)
	var totalMs float64
	for _, tok := range tokens {
		ms, err := parseToken(tok)
		if err != nil {
			return 0, fmt.Errorf("%w: %q in %q", werrors.ErrUnknownDuration, tok, s)
		}
		totalMs += ms
	}
	return time.Duration(totalMs * float64(time.Millisecond)), nil
}

// parseToken parses a single "<number><unit>" token such as "1.5h".
func parseToken(tok string) (float64, error) {
	i := 0
	for i < len(tok) && (isDigit(tok[i]) || tok[i] == '.' || tok[i] == '-' || tok[i] == '+') {
		i++
	}
	if i == 0 {
		return 0, werrors.ErrUnknownDuration
	}
	numPart := tok[:i]
	unitPart := strings.ToLower(strings.TrimSpace(tok[i:]))
	if unitPart == "" {
		return 0, werrors.ErrUnknownDuration
	}
	num, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, werrors.ErrUnknownDuration
	}
	mult, ok := unitMultipliers[unitPart]
	if !ok {
		return 0, werrors.ErrUnknownDuration
	}
	return num * mult, nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
