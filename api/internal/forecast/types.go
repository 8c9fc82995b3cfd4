// Package forecast turns the model's text answer into a chat-ready forecast.
package forecast

// Fields is the JSON object returned by the model, as decoded. Numbers are json.Number.
type Fields map[string]any

type Direction string

const (
	DirectionUp        Direction = "UP"
	DirectionDown      Direction = "DOWN"
	DirectionUncertain Direction = "UNCERTAIN"
)

const (
	KeyDirection      = "direction"
	KeyConfidence     = "confidence"
	KeyHorizonMinutes = "horizon_minutes"
	KeyPair           = "pair"
	KeyRationale      = "rationale"
	KeyChecks         = "checks"
)

// Names of the sub-checks inside "checks", in display order.
const (
	CheckMACDZeroBias       = "macd_zero_bias"
	CheckMACDSignalRelation = "macd_signal_relation"
	CheckRSIState           = "rsi_state"
	CheckPriceStructure     = "price_structure"
	CheckScreenshotQuality  = "screenshot_quality"
)

const Unknown = "UNKNOWN"

type Checks struct {
	MACDZeroBias       string `json:"macd_zero_bias"`
	MACDSignalRelation string `json:"macd_signal_relation"`
	RSIState           string `json:"rsi_state"`
	PriceStructure     string `json:"price_structure"`
	ScreenshotQuality  string `json:"screenshot_quality"`
}

// Record is a forecast with every optional field filled in.
type Record struct {
	Pair           string    `json:"pair"`
	Direction      Direction `json:"direction"`
	Confidence     string    `json:"confidence"`
	HorizonMinutes string    `json:"horizon_minutes"`
	Rationale      string    `json:"rationale"`
	Checks         Checks    `json:"checks"`
}
