// Package pipeline runs one screenshot through normalization, inference, extraction and rendering.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chart-bot/api/internal/apperr"
	"chart-bot/api/internal/forecast"
	"chart-bot/api/internal/imaging"
	"chart-bot/api/internal/inference"
)

const (
	MsgParseFailure   = "Не удалось распарсить ответ модели. Попробуйте переснять скрин четче."
	msgIncomplete     = "Ответ неполный: %s"
	msgProcessingFail = "Ошибка обработки: %s"
)

type Outcome string

const (
	OutcomeRendered         Outcome = "rendered"
	OutcomeUnsupportedImage Outcome = "unsupported_image"
	OutcomeParseFailure     Outcome = "parse_failure"
	OutcomeIncomplete       Outcome = "incomplete"
	OutcomeTransportError   Outcome = "transport_error"
)

// Result always carries a reply, whatever happened.
type Result struct {
	ID         string
	Outcome    Outcome
	Reply      string
	Extraction forecast.Extraction
	Record     *forecast.Record
	Err        error
}

type Pipeline struct {
	engine       inference.Engine
	systemPrompt string
	userPrompt   string
	imageOpts    imaging.Options
	logger       *zap.Logger
}

type Options struct {
	Engine       inference.Engine
	SystemPrompt string
	// UserPrompt defaults to inference.UserInstruction.
	UserPrompt string
	Image      imaging.Options
	Logger     *zap.Logger
}

func New(opts Options) (*Pipeline, error) {
	if opts.Engine == nil {
		return nil, errors.New("pipeline: engine is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.UserPrompt == "" {
		opts.UserPrompt = inference.UserInstruction
	}
	return &Pipeline{
		engine:       opts.Engine,
		systemPrompt: opts.SystemPrompt,
		userPrompt:   opts.UserPrompt,
		imageOpts:    opts.Image,
		logger:       opts.Logger,
	}, nil
}

// Run never returns an error: every failure is turned into a user-facing reply.
func (p *Pipeline) Run(ctx context.Context, payload imaging.Payload) Result {
	res := Result{ID: uuid.NewString()}
	log := p.logger.With(
		zap.String("run_id", res.ID),
		zap.String("engine", p.engine.Name()),
		zap.String("model", p.engine.GetModel()),
	)
	started := time.Now()

	img, err := imaging.Normalize(payload, p.imageOpts)
	if err != nil {
		log.Warn("image rejected", zap.String("mime", payload.MimeType), zap.Int("bytes", len(payload.Data)), zap.Error(err))
		return p.fail(res, OutcomeUnsupportedImage, err)
	}
	log.Debug("image normalized",
		zap.Int("source_bytes", len(payload.Data)),
		zap.Int("jpeg_bytes", len(img.Bytes)),
		zap.Int("width", img.Width),
		zap.Int("height", img.Height),
	)

	req := inference.BuildRequest(p.systemPrompt, p.userPrompt, img)
	raw, err := p.engine.Complete(ctx, req)
	if err != nil {
		err = apperr.Wrap(apperr.KindTransport, "pipeline.run", "inference call failed", err)
		log.Error("inference failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		return p.fail(res, OutcomeTransportError, err)
	}
	log.Debug("inference answered", zap.Duration("elapsed", time.Since(started)), zap.String("raw", truncate(raw, 500)))

	res.Extraction = forecast.Extract(raw)
	switch res.Extraction.Outcome {
	case forecast.OutcomeFailed:
		log.Warn("model answer is not JSON", zap.String("raw", truncate(raw, 500)), zap.Error(res.Extraction.Err))
		res.Outcome = OutcomeParseFailure
		res.Err = res.Extraction.Err
		res.Reply = MsgParseFailure
		return res
	case forecast.OutcomeRecovered:
		log.Info("model answer recovered from surrounding text", zap.String("raw", truncate(raw, 500)))
	}

	if err := forecast.Validate(res.Extraction.Fields); err != nil {
		var inc *forecast.IncompleteError
		missing := []string(nil)
		if errors.As(err, &inc) {
			missing = inc.Missing
		}
		log.Warn("incomplete forecast", zap.Strings("missing", missing), zap.String("fields", res.Extraction.Fields.JSON()))
		res.Outcome = OutcomeIncomplete
		res.Err = err
		res.Reply = fmt.Sprintf(msgIncomplete, html.EscapeString(res.Extraction.Fields.JSON()))
		return res
	}

	rec := forecast.Normalize(res.Extraction.Fields)
	res.Record = &rec
	res.Outcome = OutcomeRendered
	res.Reply = forecast.Render(rec)
	log.Info("forecast rendered",
		zap.String("extraction", res.Extraction.Outcome.String()),
		zap.String("direction", string(rec.Direction)),
		zap.String("confidence", rec.Confidence),
		zap.String("pair", rec.Pair),
		zap.Duration("elapsed", time.Since(started)),
	)
	return res
}

func (p *Pipeline) fail(res Result, outcome Outcome, err error) Result {
	res.Outcome = outcome
	res.Err = err
	res.Reply = ProcessingError(err)
	return res
}

// ProcessingError is the generic reply for failures outside the model answer.
func ProcessingError(err error) string {
	return fmt.Sprintf(msgProcessingFail, html.EscapeString(apperr.Cause(err)))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n]) + "…"
	}
	return s
}
