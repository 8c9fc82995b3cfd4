package forecast_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"chart-bot/api/internal/forecast"
)

var _ = Describe("Render", func() {
	var fields forecast.Fields

	BeforeEach(func() {
		fields = forecast.Fields{
			"direction":       "UP",
			"confidence":      70,
			"horizon_minutes": 30,
		}
	})

	render := func() string {
		return forecast.Render(forecast.Normalize(fields))
	}

	It("renders the full layout", func() {
		fields["pair"] = "EUR/USD"
		fields["rationale"] = "MACD crossed above signal"
		fields["checks"] = map[string]any{
			"macd_zero_bias":       "ABOVE_ZERO",
			"macd_signal_relation": "ABOVE",
			"rsi_state":            "RISING",
			"price_structure":      "HIGHER_LOWS",
			"screenshot_quality":   "GOOD",
		}

		Expect(render()).To(Equal(
			"<b>Пара:</b> EUR/USD\n" +
				"<b>Прогноз (30 мин):</b> ⬆️ UP\n" +
				"<b>Уверенность:</b> 70%\n" +
				"<b>Обоснование:</b> MACD crossed above signal\n\n" +
				"<b>Проверки:</b>\n" +
				"• MACD zero bias: ABOVE_ZERO\n" +
				"• MACD vs Signal: ABOVE\n" +
				"• RSI: RISING\n" +
				"• Price structure: HIGHER_LOWS\n" +
				"• Screenshot: GOOD"))
	})

	It("shows UNKNOWN for every check when checks are missing", func() {
		out := render()

		for _, line := range []string{
			"• MACD zero bias: UNKNOWN",
			"• MACD vs Signal: UNKNOWN",
			"• RSI: UNKNOWN",
			"• Price structure: UNKNOWN",
			"• Screenshot: UNKNOWN",
		} {
			Expect(out).To(ContainSubstring(line))
		}
		Expect(out).To(ContainSubstring("<b>Пара:</b> UNKNOWN\n"))
		Expect(out).To(ContainSubstring("<b>Обоснование:</b> \n"))
	})

	DescribeTable("direction indicator",
		func(direction any, want string, forbidden ...string) {
			fields["direction"] = direction
			out := render()
			Expect(out).To(ContainSubstring(want))
			for _, f := range forbidden {
				Expect(out).NotTo(ContainSubstring(f))
			}
		},
		Entry("up", "UP", "⬆️ UP", "⬇️", "⚪"),
		Entry("down", "DOWN", "⬇️ DOWN", "⬆️", "⚪"),
		Entry("uncertain", "UNCERTAIN", "⚪ UNCERTAIN", "⬆️", "⬇️"),
		Entry("unrecognized literal", "SIDEWAYS", "⚪ UNCERTAIN", "⬆️", "⬇️"),
		Entry("not a string", 1, "⚪ UNCERTAIN", "⬆️", "⬇️"),
	)

	It("escapes HTML coming from the model", func() {
		fields["rationale"] = "RSI <30 & rising"
		fields["pair"] = "<script>"

		out := render()
		Expect(out).To(ContainSubstring("RSI &lt;30 &amp; rising"))
		Expect(out).NotTo(ContainSubstring("<script>"))
	})

	It("is deterministic", func() {
		Expect(render()).To(Equal(render()))
	})

	It("uses the horizon from the answer", func() {
		fields["horizon_minutes"] = 15
		Expect(render()).To(ContainSubstring("<b>Прогноз (15 мин):</b>"))
	})

	It("ends without a trailing newline", func() {
		Expect(strings.HasSuffix(render(), "\n")).To(BeFalse())
	})
})

var _ = Describe("Indicator", func() {
	It("falls back to the neutral indicator", func() {
		Expect(forecast.Indicator(forecast.Direction("SIDEWAYS"))).To(Equal("⚪ UNCERTAIN"))
	})
})
