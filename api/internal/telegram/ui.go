package telegram

const (
	HelpText = "<b>RSI+MACD Vision Bot</b>\n\n" +
		"Отправьте скриншот графика (M5) с RSI(14) и MACD(12,26,9), и бот вернет прогноз на 30 минут.\n\n" +
		"<b>Советы по скрину:</b>\n" +
		"- Видны последние 6–12 свечей\n" +
		"- RSI с уровнями 30/70\n" +
		"- MACD с нулевой линией, MACD и Signal видны\n" +
		"- Название пары по возможности\n"

	msgSendImage      = "Пожалуйста, пришлите изображение (скриншот графика)."
	msgHealthy        = "✅ OK"
	msgUnknownCommand = "Неизвестная команда"
)
