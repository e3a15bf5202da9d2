// Package openai adapts github.com/openai/openai-go into the model.Model
// capability, mirroring the shape of the sibling anthropic adapter
// (model/anthropic).
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/sunwell-ai/core/model"
)

// ChatClient is the subset of the openai-go client used by the adapter.
type ChatClient interface {
	New(ctx context.Context, body oai.ChatCompletionNewParams, opts ...option.RequestOption) (*oai.ChatCompletion, error)
}

// Options configures the OpenAI adapter.
type Options struct {
	DefaultModel string
	MaxTokens    int
	Temperature  float64
}

// Client implements model.Model via the OpenAI Chat Completions API. It
// serves as Sunwell's secondary/fallback provider behind Anthropic; which
// concrete provider backs the Model capability is a workspace config
// choice (see config.Options.ModelProvider).
type Client struct {
	chat        ChatClient
	model       string
	maxTokens   int
	temperature float64
}

// New builds an OpenAI-backed Model from a chat completions client.
func New(chat ChatClient, opts Options) (*Client, error) {
	if chat == nil {
		return nil, errors.New("openai: chat client is required")
	}
	modelID := strings.TrimSpace(opts.DefaultModel)
	if modelID == "" {
		return nil, errors.New("openai: default model is required")
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Client{chat: chat, model: modelID, maxTokens: maxTokens, temperature: opts.Temperature}, nil
}

// NewFromAPIKey constructs a client using the default openai-go HTTP client,
// reading OPENAI_API_KEY from the environment when apiKey is empty.
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	c := oai.NewClient(opts...)
	return New(&c.Chat.Completions, Options{DefaultModel: defaultModel})
}

// Generate renders a single-turn chat completion from prompt.
func (c *Client) Generate(ctx context.Context, prompt string, opts model.Options) (model.Result, error) {
	modelID := opts.Model
	if modelID == "" {
		modelID = c.model
	}
	params := oai.ChatCompletionNewParams{
		Model: modelID,
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.UserMessage(prompt),
		},
	}
	if mt := opts.MaxTokens; mt > 0 {
		params.MaxCompletionTokens = oai.Int(int64(mt))
	} else if c.maxTokens > 0 {
		params.MaxCompletionTokens = oai.Int(int64(c.maxTokens))
	}
	if t := opts.Temperature; t > 0 {
		params.Temperature = oai.Float(t)
	} else if c.temperature > 0 {
		params.Temperature = oai.Float(c.temperature)
	}

	resp, err := c.chat.New(ctx, params)
	if err != nil {
		return model.Result{}, fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return model.Result{}, errors.New("openai: empty choices")
	}
	return model.Result{
		Text: resp.Choices[0].Message.Content,
		Usage: model.Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
		StopReason: string(resp.Choices[0].FinishReason),
	}, nil
}

// Stream is not implemented: Chat Completions streaming requires a
// different response shape than openai-go's non-streaming ChatClient.
// Callers needing streaming should configure Anthropic as the primary
// provider.
func (c *Client) Stream(context.Context, string, model.Options) (<-chan model.TokenEvent, error) {
	return nil, errors.New("openai: streaming not supported by this adapter, use the anthropic provider")
}
