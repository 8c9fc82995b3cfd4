package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"chart-bot/api/internal/apperr"
	"chart-bot/api/internal/inference"
)

type Engine struct {
	APIKey string
	Model  string
	client *goopenai.Client
}

// New builds an engine. baseURL may be empty to use the public API.
func New(key, model, baseURL string) *Engine {
	cfg := goopenai.DefaultConfig(key)
	if u := strings.TrimSpace(baseURL); u != "" {
		cfg.BaseURL = strings.TrimRight(u, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	return &Engine{
		APIKey: key,
		Model:  model,
		client: goopenai.NewClientWithConfig(cfg),
	}
}

func (e *Engine) Name() string { return "gpt" }

func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) Complete(ctx context.Context, in inference.Request) (string, error) {
	if e.APIKey == "" {
		return "", apperr.New(apperr.KindConfig, "openai.complete", "OPENAI_API_KEY is empty")
	}

	req := goopenai.ChatCompletionRequest{
		Model:       e.Model,
		Messages:    toMessages(in),
		Temperature: in.Temperature,
		MaxTokens:   in.MaxTokens,
	}
	if in.JSONOnly {
		req.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", apperr.Wrap(apperr.KindTransport, "openai.complete", "chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperr.New(apperr.KindTransport, "openai.complete", "empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func toMessages(in inference.Request) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(in.Messages))
	for _, m := range in.Messages {
		switch m.Role {
		case inference.RoleSystem:
			var b strings.Builder
			for _, p := range m.Parts {
				b.WriteString(p.Text)
			}
			out = append(out, goopenai.ChatCompletionMessage{
				Role:    goopenai.ChatMessageRoleSystem,
				Content: b.String(),
			})
		default:
			parts := make([]goopenai.ChatMessagePart, 0, len(m.Parts))
			for _, p := range m.Parts {
				switch p.Type {
				case inference.PartImage:
					parts = append(parts, goopenai.ChatMessagePart{
						Type: goopenai.ChatMessagePartTypeImageURL,
						ImageURL: &goopenai.ChatMessageImageURL{
							URL:    p.ImageURL,
							Detail: goopenai.ImageURLDetailAuto,
						},
					})
				default:
					parts = append(parts, goopenai.ChatMessagePart{
						Type: goopenai.ChatMessagePartTypeText,
						Text: p.Text,
					})
				}
			}
			out = append(out, goopenai.ChatCompletionMessage{
				Role:         string(m.Role),
				MultiContent: parts,
			})
		}
	}
	return out
}

// String is used in logs.
func (e *Engine) String() string {
	return fmt.Sprintf("%s(%s)", e.Name(), e.Model)
}
