package forecast

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	defaultConfidence = "0"
	defaultHorizon    = "30"
)

// Normalize fills every optional field with its default. It never fails; presence of the
// required keys is checked separately by Validate.
func Normalize(f Fields) Record {
	return Record{
		Pair:           textOr(f[KeyPair], Unknown),
		Direction:      ParseDirection(f[KeyDirection]),
		Confidence:     textOr(f[KeyConfidence], defaultConfidence),
		HorizonMinutes: textOr(f[KeyHorizonMinutes], defaultHorizon),
		Rationale:      textOr(f[KeyRationale], ""),
		Checks:         normalizeChecks(f[KeyChecks]),
	}
}

// ParseDirection maps anything other than the exact literals UP and DOWN to UNCERTAIN.
func ParseDirection(v any) Direction {
	s, _ := v.(string)
	switch Direction(strings.TrimSpace(s)) {
	case DirectionUp:
		return DirectionUp
	case DirectionDown:
		return DirectionDown
	default:
		return DirectionUncertain
	}
}

func normalizeChecks(v any) Checks {
	m, _ := v.(map[string]any)
	return Checks{
		MACDZeroBias:       textOr(m[CheckMACDZeroBias], Unknown),
		MACDSignalRelation: textOr(m[CheckMACDSignalRelation], Unknown),
		RSIState:           textOr(m[CheckRSIState], Unknown),
		PriceStructure:     textOr(m[CheckPriceStructure], Unknown),
		ScreenshotQuality:  textOr(m[CheckScreenshotQuality], Unknown),
	}
}

func textOr(v any, def string) string {
	s := formatValue(v)
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}
