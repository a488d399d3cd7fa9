// AngelaMos | 2026
// openai.go

package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/carterperez-dev/templates/license-gate/internal/config"
)

// OpenAI relays completions to a Chat Completions compatible endpoint.
type OpenAI struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAI(cfg config.OpenAIConfig) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAI{
		client:  openai.NewClient(opts...),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
}

func (o *OpenAI) Complete(ctx context.Context, req Request) (*Response, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: msgs,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("complete: %w", upstreamError(err))
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("complete: %w", &UpstreamError{
			Message: "no choices in response",
		})
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, fmt.Errorf("complete: %w", &UpstreamError{
			Message: "empty response",
		})
	}

	return &Response{Text: text, Model: resp.Model}, nil
}

func upstreamError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error()
		}
		return &UpstreamError{StatusCode: apiErr.StatusCode, Message: msg}
	}
	return &UpstreamError{Message: err.Error()}
}
