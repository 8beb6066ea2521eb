// Package openai adapts the OpenAI Chat Completions API to the oracle
// interfaces. One adapter serves both the decision and the world role; only
// the system prompt differs.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/simforge/worldsim/oracle"
)

// Options configure the OpenAI oracle adapter.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Oracle wraps the OpenAI Chat Completions API behind the oracle interfaces.
type Oracle struct {
	client *openai.Client
	opts   Options
}

var (
	_ oracle.Decision = (*Oracle)(nil)
	_ oracle.World    = (*Oracle)(nil)
)

// NewOracle creates an adapter using the official client with ambient
// credentials (OPENAI_API_KEY).
func NewOracle(optFns ...func(o *Options)) *Oracle {
	client := openai.NewClient()
	return NewOracleFromClient(&client, optFns...)
}

// NewOracleFromClient creates an adapter from an existing client.
func NewOracleFromClient(client *openai.Client, optFns ...func(o *Options)) *Oracle {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Oracle{client: client, opts: opts}
}

// Decide implements oracle.Decision via a non-streaming completion.
func (o *Oracle) Decide(ctx context.Context, req oracle.DecisionRequest) (string, error) {
	user, err := oracle.RenderDecisionUser(req)
	if err != nil {
		return "", err
	}
	return o.complete(ctx, oracle.DecisionSystemPrompt, user)
}

// Resolve implements oracle.World via a non-streaming completion.
func (o *Oracle) Resolve(ctx context.Context, req oracle.ResolutionRequest) (string, error) {
	user, err := oracle.RenderResolutionUser(req)
	if err != nil {
		return "", err
	}
	return o.complete(ctx, oracle.ResolutionSystemPrompt, user)
}

func (o *Oracle) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.opts.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature:         openai.Float(o.opts.Temperature),
		MaxCompletionTokens: openai.Int(o.opts.MaxCompletionTokens),
	})
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Info returns metadata describing this adapter.
func (o *Oracle) Info() oracle.Info {
	return oracle.Info{Name: o.opts.Model, Provider: "openai"}
}
