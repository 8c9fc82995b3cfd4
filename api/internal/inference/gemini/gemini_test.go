package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chart-bot/api/internal/apperr"
	"chart-bot/api/internal/imaging"
	"chart-bot/api/internal/inference"
)

func testRequest() inference.Request {
	img := imaging.Normalized{Bytes: []byte{0xFF, 0xD8}, Base64: "/9g="}
	return inference.BuildRequest("system prompt", inference.UserInstruction, img)
}

func TestConfigure(t *testing.T) {
	m := &genai.GenerativeModel{}
	configure(m, testRequest())

	require.NotNil(t, m.Temperature)
	assert.InDelta(t, 0.2, *m.Temperature, 1e-6)
	require.NotNil(t, m.MaxOutputTokens)
	assert.EqualValues(t, 500, *m.MaxOutputTokens)
	assert.Equal(t, "application/json", m.ResponseMIMEType)
	require.NotNil(t, m.SystemInstruction)
	assert.Equal(t, []genai.Part{genai.Text("system prompt")}, m.SystemInstruction.Parts)
}

func TestUserParts(t *testing.T) {
	parts := userParts(testRequest())
	require.Len(t, parts, 2)
	assert.Equal(t, genai.Text(inference.UserInstruction), parts[0])
	assert.Equal(t, genai.Blob{MIMEType: "image/jpeg", Data: []byte{0xFF, 0xD8}}, parts[1])
}

func TestFirstText(t *testing.T) {
	assert.Equal(t, "", firstText(nil))
	assert.Equal(t, "", firstText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: nil},
		{Content: &genai.Content{Parts: []genai.Part{genai.Blob{}, genai.Text(`{"direction":"DOWN"}`)}}},
	}}
	assert.Equal(t, `{"direction":"DOWN"}`, firstText(resp))
}

func TestCompleteWithoutKey(t *testing.T) {
	_, err := New(" ", "gemini-2.5-flash").Complete(context.Background(), testRequest())
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindConfig))
}
