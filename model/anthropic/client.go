// Package anthropic adapts github.com/anthropics/anthropic-sdk-go into the
// model.Model capability: the core passes a rendered prompt string and
// receives text plus usage back, no message/tool schema.
package anthropic

import (
	"context"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/sunwell-ai/core/model"
)

// MessagesClient is the subset of the Anthropic SDK used by the adapter,
// satisfied by *sdk.MessageService or a test double.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
	NewStreaming(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) *ssestream.Stream[sdk.MessageStreamEventUnion]
}

// Options configures default model selection and sampling.
type Options struct {
	DefaultModel string
	MaxTokens    int
	Temperature  float64
}

// Client implements model.Model on top of Anthropic Claude Messages.
type Client struct {
	msg          MessagesClient
	defaultModel string
	maxTokens    int
	temperature  float64
}

// New builds an Anthropic-backed Model from a Messages client.
func New(msg MessagesClient, opts Options) (*Client, error) {
	if msg == nil {
		return nil, errors.New("anthropic: messages client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("anthropic: default model is required")
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Client{msg: msg, defaultModel: opts.DefaultModel, maxTokens: maxTokens, temperature: opts.Temperature}, nil
}

// NewFromAPIKey constructs a client using the default Anthropic HTTP client,
// reading ANTHROPIC_API_KEY from the environment.
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&ac.Messages, Options{DefaultModel: defaultModel})
}

func (c *Client) params(prompt string, opts model.Options) sdk.MessageNewParams {
	modelID := opts.Model
	if modelID == "" {
		modelID = c.defaultModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	temp := opts.Temperature
	if temp <= 0 {
		temp = c.temperature
	}
	params := sdk.MessageNewParams{
		Model:     sdk.Model(modelID),
		MaxTokens: int64(maxTokens),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	}
	if temp > 0 {
		params.Temperature = sdk.Float(temp)
	}
	return params
}

// Generate issues a non-streaming Messages.New request.
func (c *Client) Generate(ctx context.Context, prompt string, opts model.Options) (model.Result, error) {
	msg, err := c.msg.New(ctx, c.params(prompt, opts))
	if err != nil {
		return model.Result{}, fmt.Errorf("anthropic: messages.new: %w", err)
	}
	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return model.Result{
		Text: text,
		Usage: model.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
		StopReason: string(msg.StopReason),
	}, nil
}

// Stream invokes Messages.NewStreaming and adapts incremental text deltas.
func (c *Client) Stream(ctx context.Context, prompt string, opts model.Options) (<-chan model.TokenEvent, error) {
	stream := c.msg.NewStreaming(ctx, c.params(prompt, opts))
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("anthropic: messages.new stream: %w", err)
	}

	out := make(chan model.TokenEvent, 16)
	go func() {
		defer close(out)
		var usage model.Usage
		for stream.Next() {
			event := stream.Current()
			switch delta := event.AsAny().(type) {
			case sdk.ContentBlockDeltaEvent:
				if delta.Delta.Text != "" {
					select {
					case out <- model.TokenEvent{Text: delta.Delta.Text}:
					case <-ctx.Done():
						return
					}
				}
			case sdk.MessageDeltaEvent:
				usage.OutputTokens = int(delta.Usage.OutputTokens)
			}
		}
		select {
		case out <- model.TokenEvent{Done: true, Usage: usage}:
		case <-ctx.Done():
		}
	}()
	return out, nil
}
