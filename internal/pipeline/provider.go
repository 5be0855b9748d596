package pipeline

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/FrankSpooren/HolidaiButler/pkg/anthropic"
	"github.com/FrankSpooren/HolidaiButler/pkg/mistral"
)

// TextRequest is one completion request, provider-agnostic.
type TextRequest struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
	// Model overrides the provider's default model when set.
	Model string
	// CacheSystem marks the system prompt as cacheable for providers that
	// support prompt caching. Used for the long constant fact-check prompt.
	CacheSystem bool
}

// TextClient generates one completion from a system and user message.
// Both the Mistral and the Anthropic backends satisfy it.
type TextClient interface {
	Complete(ctx context.Context, req TextRequest) (string, error)
}

// mistralText adapts a mistral.Client to TextClient.
type mistralText struct {
	client mistral.Client
	model  string
}

// NewMistralText wraps a Mistral client as a TextClient with a default model.
func NewMistralText(client mistral.Client, model string) TextClient {
	return &mistralText{client: client, model: model}
}

func (m *mistralText) Complete(ctx context.Context, req TextRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = m.model
	}
	resp, err := m.client.ChatCompletion(ctx, mistral.ChatCompletionRequest{
		Model: model,
		Messages: []mistral.Message{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Temperature: &req.Temperature,
		MaxTokens:   &req.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", eris.New("pipeline: empty completion")
	}
	return text, nil
}

// anthropicText adapts an anthropic.Client to TextClient.
type anthropicText struct {
	client anthropic.Client
	model  string
}

// NewAnthropicText wraps an Anthropic client as a TextClient with a default model.
func NewAnthropicText(client anthropic.Client, model string) TextClient {
	return &anthropicText{client: client, model: model}
}

func (a *anthropicText) Complete(ctx context.Context, req TextRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = a.model
	}

	var system []anthropic.SystemBlock
	if req.CacheSystem {
		system = anthropic.BuildCachedSystemBlocks(req.System)
	} else {
		system = []anthropic.SystemBlock{{Text: req.System}}
	}

	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       model,
		MaxTokens:   int64(req.MaxTokens),
		System:      system,
		Messages:    []anthropic.Message{{Role: "user", Content: req.User}},
		Temperature: &req.Temperature,
	})
	if err != nil {
		return "", err
	}
	resp.Usage.LogCost(model, "completion")

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", eris.New("pipeline: empty completion")
	}
	return text, nil
}
