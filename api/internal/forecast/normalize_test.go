package forecast

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeFull(t *testing.T) {
	f := Fields{
		"direction":       "UP",
		"confidence":      json.Number("72.5"),
		"horizon_minutes": json.Number("30"),
		"pair":            "EUR/USD",
		"rationale":       "MACD above zero",
		"checks": map[string]any{
			"macd_zero_bias":       "ABOVE",
			"macd_signal_relation": "MACD_ABOVE_SIGNAL",
			"rsi_state":            "RISING",
			"price_structure":      "HIGHER_LOWS",
			"screenshot_quality":   "GOOD",
		},
	}

	assert.Equal(t, Record{
		Pair:           "EUR/USD",
		Direction:      DirectionUp,
		Confidence:     "72.5",
		HorizonMinutes: "30",
		Rationale:      "MACD above zero",
		Checks: Checks{
			MACDZeroBias:       "ABOVE",
			MACDSignalRelation: "MACD_ABOVE_SIGNAL",
			RSIState:           "RISING",
			PriceStructure:     "HIGHER_LOWS",
			ScreenshotQuality:  "GOOD",
		},
	}, Normalize(f))
}

func TestNormalizeDefaults(t *testing.T) {
	r := Normalize(Fields{"direction": "DOWN", "confidence": json.Number("60"), "horizon_minutes": json.Number("30")})

	assert.Equal(t, Unknown, r.Pair)
	assert.Equal(t, "", r.Rationale)
	assert.Equal(t, Checks{
		MACDZeroBias:       Unknown,
		MACDSignalRelation: Unknown,
		RSIState:           Unknown,
		PriceStructure:     Unknown,
		ScreenshotQuality:  Unknown,
	}, r.Checks)
}

func TestNormalizeNilFields(t *testing.T) {
	r := Normalize(nil)
	assert.Equal(t, DirectionUncertain, r.Direction)
	assert.Equal(t, "0", r.Confidence)
	assert.Equal(t, "30", r.HorizonMinutes)
	assert.Equal(t, Unknown, r.Checks.RSIState)
}

func TestNormalizePartialChecks(t *testing.T) {
	r := Normalize(Fields{"checks": map[string]any{"rsi_state": "OVERSOLD", "price_structure": nil, "macd_zero_bias": ""}})
	assert.Equal(t, "OVERSOLD", r.Checks.RSIState)
	assert.Equal(t, Unknown, r.Checks.PriceStructure)
	assert.Equal(t, Unknown, r.Checks.MACDZeroBias)
}

func TestNormalizeChecksNotAnObject(t *testing.T) {
	r := Normalize(Fields{"checks": "all good"})
	assert.Equal(t, Unknown, r.Checks.ScreenshotQuality)
}

func TestParseDirection(t *testing.T) {
	tests := map[any]Direction{
		"UP":        DirectionUp,
		"DOWN":      DirectionDown,
		" UP ":      DirectionUp,
		"UNCERTAIN": DirectionUncertain,
		"SIDEWAYS":  DirectionUncertain,
		"up":        DirectionUncertain,
		"":          DirectionUncertain,
		42:          DirectionUncertain,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseDirection(in), "%v", in)
	}
	assert.Equal(t, DirectionUncertain, ParseDirection(nil))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "70", formatValue(float64(70)))
	assert.Equal(t, "70.25", formatValue(70.25))
	assert.Equal(t, "15", formatValue(15))
	assert.Equal(t, "true", formatValue(true))
	assert.Equal(t, `["a"]`, formatValue([]any{"a"}))
	assert.Equal(t, "", formatValue(nil))
}
