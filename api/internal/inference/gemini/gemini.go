package gemini

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"chart-bot/api/internal/apperr"
	"chart-bot/api/internal/inference"
)

type Engine struct {
	APIKey string
	Model  string
	opts   []option.ClientOption
}

func New(apiKey, model string, opts ...option.ClientOption) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
		opts:   opts,
	}
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) Complete(ctx context.Context, in inference.Request) (string, error) {
	if e.APIKey == "" {
		return "", apperr.New(apperr.KindConfig, "gemini.complete", "GEMINI_API_KEY is empty")
	}
	opts := append([]option.ClientOption{option.WithAPIKey(e.APIKey)}, e.opts...)
	cl, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return "", apperr.Wrap(apperr.KindTransport, "gemini.complete", "client init failed", err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	configure(m, in)

	resp, err := m.GenerateContent(ctx, userParts(in)...)
	if err != nil {
		return "", apperr.Wrap(apperr.KindTransport, "gemini.complete", "generate content failed", err)
	}
	txt := firstText(resp)
	if txt == "" {
		return "", apperr.New(apperr.KindTransport, "gemini.complete", "empty response")
	}
	return strings.TrimSpace(txt), nil
}

func configure(m *genai.GenerativeModel, in inference.Request) {
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:     ptrFloat32(in.Temperature),
		MaxOutputTokens: ptrInt32(int32(in.MaxTokens)),
	}
	if in.JSONOnly {
		m.GenerationConfig.ResponseMIMEType = "application/json"
	}
	if sys := in.System(); sys != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(sys)}}
	}
}

func userParts(in inference.Request) []genai.Part {
	src := in.UserParts()
	parts := make([]genai.Part, 0, len(src))
	for _, p := range src {
		switch p.Type {
		case inference.PartImage:
			parts = append(parts, genai.Blob{MIMEType: p.MimeType, Data: p.Data})
		default:
			parts = append(parts, genai.Text(p.Text))
		}
	}
	return parts
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
func ptrInt32(v int32) *int32       { return &v }
