package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chart-bot/api/internal/apperr"
)

func TestWebhookParams(t *testing.T) {
	params, err := webhookParams("https://bot.example.com/webhook/0123456789abcdef", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "https://bot.example.com/webhook/0123456789abcdef", params["url"])
	assert.Equal(t, "true", params["drop_pending_updates"])
	assert.Equal(t, "s3cret", params["secret_token"])

	_, err = webhookParams("://nope", "s3cret")
	assert.True(t, apperr.IsKind(err, apperr.KindConfig))
}
