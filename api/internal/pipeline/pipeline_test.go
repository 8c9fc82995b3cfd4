package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chart-bot/api/internal/apperr"
	"chart-bot/api/internal/forecast"
	"chart-bot/api/internal/imaging"
	"chart-bot/api/internal/inference"
)

type fakeEngine struct {
	answer string
	err    error
	calls  int
	last   inference.Request
}

func (f *fakeEngine) Name() string     { return "fake" }
func (f *fakeEngine) GetModel() string { return "fake-1" }
func (f *fakeEngine) Complete(_ context.Context, req inference.Request) (string, error) {
	f.calls++
	f.last = req
	return f.answer, f.err
}

func screenshot(t *testing.T) imaging.Payload {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for x := 0; x < 40; x++ {
		img.Set(x, 15, color.RGBA{G: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return imaging.Payload{Data: buf.Bytes(), MimeType: "image/png"}
}

func newPipeline(t *testing.T, eng inference.Engine) *Pipeline {
	t.Helper()
	p, err := New(Options{
		Engine:       eng,
		SystemPrompt: "strategy",
		Image:        imaging.DefaultOptions(),
		Logger:       zap.NewNop(),
	})
	require.NoError(t, err)
	return p
}

func TestNewRequiresEngine(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestRunRendersForecast(t *testing.T) {
	eng := &fakeEngine{answer: `{"direction":"UP","confidence":70,"horizon_minutes":30,"pair":"BTC/USDT"}`}
	res := newPipeline(t, eng).Run(context.Background(), screenshot(t))

	assert.Equal(t, OutcomeRendered, res.Outcome)
	assert.NoError(t, res.Err)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, forecast.OutcomeParsed, res.Extraction.Outcome)
	require.NotNil(t, res.Record)
	assert.Equal(t, forecast.DirectionUp, res.Record.Direction)
	assert.Contains(t, res.Reply, "<b>Пара:</b> BTC/USDT")
	assert.Contains(t, res.Reply, "⬆️ UP")
	assert.Contains(t, res.Reply, "70%")

	assert.Equal(t, 1, eng.calls)
	assert.Equal(t, "strategy", eng.last.System())
	parts := eng.last.UserParts()
	require.Len(t, parts, 2)
	assert.Equal(t, inference.UserInstruction, parts[0].Text)
	assert.True(t, strings.HasPrefix(parts[1].ImageURL, "data:image/jpeg;base64,"))
}

func TestRunRecoveredAnswer(t *testing.T) {
	eng := &fakeEngine{answer: "Sure! {\"direction\":\"UP\",\"confidence\":70,\"horizon_minutes\":30}"}
	res := newPipeline(t, eng).Run(context.Background(), screenshot(t))

	assert.Equal(t, OutcomeRendered, res.Outcome)
	assert.Equal(t, forecast.OutcomeRecovered, res.Extraction.Outcome)
	require.NotNil(t, res.Record)
	assert.Equal(t, "70", res.Record.Confidence)
	assert.Equal(t, "30", res.Record.HorizonMinutes)
}

func TestRunParseFailure(t *testing.T) {
	eng := &fakeEngine{answer: "I am unable to read this chart."}
	res := newPipeline(t, eng).Run(context.Background(), screenshot(t))

	assert.Equal(t, OutcomeParseFailure, res.Outcome)
	assert.Equal(t, MsgParseFailure, res.Reply)
	assert.True(t, apperr.IsKind(res.Err, apperr.KindParseFailure))
	assert.Nil(t, res.Record)
}

func TestRunIncomplete(t *testing.T) {
	eng := &fakeEngine{answer: `{"direction":"DOWN","pair":"<EUR/USD>"}`}
	res := newPipeline(t, eng).Run(context.Background(), screenshot(t))

	assert.Equal(t, OutcomeIncomplete, res.Outcome)
	assert.True(t, apperr.IsKind(res.Err, apperr.KindIncompleteForecast))
	assert.Equal(t, `Ответ неполный: {&#34;direction&#34;:&#34;DOWN&#34;,&#34;pair&#34;:&#34;&lt;EUR/USD&gt;&#34;}`, res.Reply)
	assert.Nil(t, res.Record)
}

func TestRunUnsupportedImageSkipsInference(t *testing.T) {
	eng := &fakeEngine{answer: `{}`}
	res := newPipeline(t, eng).Run(context.Background(), imaging.Payload{Data: []byte("not an image")})

	assert.Equal(t, OutcomeUnsupportedImage, res.Outcome)
	assert.True(t, apperr.IsKind(res.Err, apperr.KindUnsupportedImage))
	assert.True(t, strings.HasPrefix(res.Reply, "Ошибка обработки: "))
	assert.Equal(t, 0, eng.calls)
}

func TestRunTransportError(t *testing.T) {
	eng := &fakeEngine{err: errors.New("dial tcp: connection refused")}
	res := newPipeline(t, eng).Run(context.Background(), screenshot(t))

	assert.Equal(t, OutcomeTransportError, res.Outcome)
	assert.True(t, apperr.IsKind(res.Err, apperr.KindTransport))
	assert.Equal(t, "Ошибка обработки: dial tcp: connection refused", res.Reply)
}

func TestProcessingErrorEscapes(t *testing.T) {
	assert.Equal(t, "Ошибка обработки: a &lt; b", ProcessingError(errors.New("a < b")))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abc", 2))
}
