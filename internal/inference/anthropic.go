package inference

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicMaxTokens is used when the request leaves max_tokens unset;
// the Messages API requires a value.
const anthropicMaxTokens = 2048

// Anthropic calls the Anthropic Messages API.
type Anthropic struct {
	client anthropic.Client
}

func NewAnthropic(apiKey, baseURL string) *Anthropic {
	opts := []anthropicoption.RequestOption{anthropicoption.WithMaxRetries(0)}
	if apiKey != "" {
		opts = append(opts, anthropicoption.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, anthropicoption.WithBaseURL(baseURL))
	}
	return &Anthropic{client: anthropic.NewClient(opts...)}
}

func (a *Anthropic) Name() string { return "anthropic" }

func (a *Anthropic) Infer(ctx context.Context, req Request) (Result, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = anthropicMaxTokens
	}

	system, msgs := anthropicMessages(req.Messages)
	if len(msgs) == 0 {
		msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(DefaultPrompt)))
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		Messages:  msgs,
		MaxTokens: maxTokens,
	}
	if len(system) > 0 {
		params.System = system
	}
	params.Temperature = anthropic.Float(req.Temperature)

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return Result{}, err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return Result{}, fmt.Errorf("message %s has no text content", resp.ID)
	}
	return Result{Text: sb.String()}, nil
}

// anthropicMessages moves system messages into the separate System field.
func anthropicMessages(msgs []Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var system []anthropic.TextBlockParam
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case "assistant":
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return system, out
}
