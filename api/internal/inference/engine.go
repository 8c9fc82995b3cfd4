// Package inference builds multimodal requests and sends them to a hosted model.
package inference

import (
	"context"
	"fmt"
	"strings"
)

type Engine interface {
	Name() string
	GetModel() string
	// Complete sends the request and returns the raw text of the first answer.
	Complete(ctx context.Context, req Request) (string, error)
}

type Engines struct {
	OpenAI Engine
	Gemini Engine
}

func (e *Engines) GetEngine(provider string) (Engine, error) {
	var eng Engine
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", "openai", "gpt":
		eng = e.OpenAI
	case "gemini":
		eng = e.Gemini
	default:
		return nil, fmt.Errorf("unknown inference provider %q; use 'openai' or 'gemini'", provider)
	}
	if eng == nil {
		return nil, fmt.Errorf("inference provider %q is not configured", provider)
	}
	return eng, nil
}
