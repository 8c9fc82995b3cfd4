package forecast

import (
	"fmt"
	"html"
	"strings"
)

var indicators = map[Direction]string{
	DirectionUp:        "⬆️ UP",
	DirectionDown:      "⬇️ DOWN",
	DirectionUncertain: "⚪ UNCERTAIN",
}

// Indicator returns the glyph and label shown for a direction.
func Indicator(d Direction) string {
	if s, ok := indicators[d]; ok {
		return s
	}
	return indicators[DirectionUncertain]
}

// Render formats a normalized record as a Telegram HTML message.
func Render(r Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Пара:</b> %s\n", esc(r.Pair))
	fmt.Fprintf(&b, "<b>Прогноз (%s мин):</b> %s\n", esc(r.HorizonMinutes), Indicator(r.Direction))
	fmt.Fprintf(&b, "<b>Уверенность:</b> %s%%\n", esc(r.Confidence))
	fmt.Fprintf(&b, "<b>Обоснование:</b> %s\n\n", esc(r.Rationale))
	b.WriteString("<b>Проверки:</b>\n")
	fmt.Fprintf(&b, "• MACD zero bias: %s\n", esc(r.Checks.MACDZeroBias))
	fmt.Fprintf(&b, "• MACD vs Signal: %s\n", esc(r.Checks.MACDSignalRelation))
	fmt.Fprintf(&b, "• RSI: %s\n", esc(r.Checks.RSIState))
	fmt.Fprintf(&b, "• Price structure: %s\n", esc(r.Checks.PriceStructure))
	fmt.Fprintf(&b, "• Screenshot: %s", esc(r.Checks.ScreenshotQuality))
	return b.String()
}

func esc(s string) string { return html.EscapeString(s) }
