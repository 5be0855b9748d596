// Package anthropic wraps the official SDK behind the small message API the
// pipeline needs, with prompt caching and cost accounting.
package anthropic

import (
	"context"
	"errors"
	"net/http"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/FrankSpooren/HolidaiButler/internal/resilience"
)

// Client is the Anthropic surface the pipeline consumes.
type Client interface {
	CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)
}

// MessageRequest describes one messages-API call.
type MessageRequest struct {
	Model       string
	MaxTokens   int64
	System      []SystemBlock
	Messages    []Message
	Temperature *float64
}

// SystemBlock is one system-prompt block, optionally cache-marked.
type SystemBlock struct {
	Text         string
	CacheControl *CacheControl
}

// CacheControl marks a block as a cache breakpoint.
type CacheControl struct {
	TTL string // "5m" or "1h"
}

// Message is one turn of the conversation.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// MessageResponse is the slimmed-down reply.
type MessageResponse struct {
	ID         string
	Model      string
	Content    []ContentBlock
	StopReason string
	Usage      TokenUsage
}

// ContentBlock is one block of the reply body.
type ContentBlock struct {
	Type string
	Text string
}

// Text joins the response's text blocks.
func (r *MessageResponse) Text() string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	for _, block := range r.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

type sdkClient struct {
	api sdk.Client
}

// NewClient returns a Client backed by the official SDK.
func NewClient(apiKey string) Client {
	return &sdkClient{api: sdk.NewClient(option.WithAPIKey(apiKey))}
}

func (c *sdkClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}

	for _, block := range req.System {
		p := sdk.TextBlockParam{Text: block.Text}
		if block.CacheControl != nil {
			cc := sdk.NewCacheControlEphemeralParam()
			if block.CacheControl.TTL != "" {
				cc.SetExtraFields(map[string]any{"ttl": block.CacheControl.TTL})
			}
			p.CacheControl = cc
		}
		params.System = append(params.System, p)
	}

	for _, m := range req.Messages {
		text := sdk.NewTextBlock(m.Content)
		if m.Role == "assistant" {
			params.Messages = append(params.Messages, sdk.NewAssistantMessage(text))
		} else {
			params.Messages = append(params.Messages, sdk.NewUserMessage(text))
		}
	}

	msg, err := c.api.Messages.New(ctx, params)
	if err != nil {
		return nil, wrapAPIError(err)
	}

	resp := &MessageResponse{
		ID:         msg.ID,
		Model:      string(msg.Model),
		StopReason: string(msg.StopReason),
		Usage: TokenUsage{
			InputTokens:              msg.Usage.InputTokens,
			OutputTokens:             msg.Usage.OutputTokens,
			CacheCreationInputTokens: msg.Usage.CacheCreationInputTokens,
			CacheReadInputTokens:     msg.Usage.CacheReadInputTokens,
		},
	}
	for _, b := range msg.Content {
		resp.Content = append(resp.Content, ContentBlock{Type: b.Type, Text: b.Text})
	}
	return resp, nil
}

// wrapAPIError tags retryable failures for the retry loop.
func wrapAPIError(err error) error {
	wrapped := eris.Wrap(err, "anthropic: create message")

	var apierr *sdk.Error
	if !errors.As(err, &apierr) {
		return wrapped
	}
	switch {
	case apierr.StatusCode == http.StatusTooManyRequests:
		return resilience.NewRateLimitError(wrapped, 0)
	case apierr.StatusCode >= 500 || apierr.StatusCode == http.StatusRequestTimeout:
		return resilience.NewTransientError(wrapped, apierr.StatusCode)
	default:
		return wrapped
	}
}
