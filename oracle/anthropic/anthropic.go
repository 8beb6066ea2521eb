// Package anthropic adapts the Anthropic Messages API to the oracle
// interfaces.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/simforge/worldsim/oracle"
)

// Options configure the Anthropic oracle adapter.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Oracle wraps the Anthropic Messages API behind the oracle interfaces.
type Oracle struct {
	client *anthropic.Client
	opts   Options
}

var (
	_ oracle.Decision = (*Oracle)(nil)
	_ oracle.World    = (*Oracle)(nil)
)

// NewOracle creates an adapter using the official client. Without an
// explicit APIKey the client falls back to ANTHROPIC_API_KEY.
func NewOracle(optFns ...func(o *Options)) *Oracle {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Oracle{client: &client, opts: opts}
}

// NewOracleFromClient creates an adapter from an existing client.
func NewOracleFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Oracle {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Oracle{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
}

// Decide implements oracle.Decision.
func (o *Oracle) Decide(ctx context.Context, req oracle.DecisionRequest) (string, error) {
	user, err := oracle.RenderDecisionUser(req)
	if err != nil {
		return "", err
	}
	return o.complete(ctx, oracle.DecisionSystemPrompt, user)
}

// Resolve implements oracle.World.
func (o *Oracle) Resolve(ctx context.Context, req oracle.ResolutionRequest) (string, error) {
	user, err := oracle.RenderResolutionUser(req)
	if err != nil {
		return "", err
	}
	return o.complete(ctx, oracle.ResolutionSystemPrompt, user)
}

func (o *Oracle) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := o.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       o.opts.Model,
		MaxTokens:   o.opts.MaxTokens,
		Temperature: anthropic.Float(o.opts.Temperature),
		System:      []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.AsText().Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no text content returned")
	}
	return b.String(), nil
}

// Info returns metadata describing this adapter.
func (o *Oracle) Info() oracle.Info {
	return oracle.Info{Name: string(o.opts.Model), Provider: "anthropic"}
}
