// Package anthropic adapts the Anthropic Messages API into a core.Invoker
// for plain text generation. Per-instance sampling knobs come from
// ModelInstance.Params; token usage converts to a microcent cost when the
// model's pricing is configured.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/genfan/core"
)

// Pricing holds per-1M-token rates in microcents for one model.
type Pricing struct {
	InputPerMillion  int64
	OutputPerMillion int64
}

// Options configure the Anthropic text invoker.
type Options struct {
	// Client overrides the default client (constructed from environment).
	Client *anthropic.Client

	// MaxTokens bounds the completion length.
	MaxTokens int64

	// Temperature controls sampling randomness.
	Temperature float64

	// PricingByModel maps model id to token pricing. Missing models report
	// an unknown (nil) cost.
	PricingByModel map[string]Pricing
}

// NewTextInvoker returns an invoker generating a text completion for the
// given prompt with an optional system instruction.
func NewTextInvoker(prompt, system string, optFns ...func(o *Options)) core.Invoker {
	opts := Options{
		MaxTokens:   4096,
		Temperature: 0.7,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Client == nil {
		client := anthropic.NewClient()
		opts.Client = &client
	}

	return func(ctx context.Context, inst core.ModelInstance) (core.InvocationResult, error) {
		params := anthropic.MessageNewParams{
			Model:       anthropic.Model(inst.ModelID),
			MaxTokens:   opts.MaxTokens,
			Temperature: anthropic.Float(opts.Temperature),
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		}
		if system != "" {
			params.System = []anthropic.TextBlockParam{{Text: system}}
		}

		resp, err := opts.Client.Messages.New(ctx, params)
		if err != nil {
			return core.InvocationResult{}, fmt.Errorf("anthropic api error: %w", err)
		}

		var sb strings.Builder
		for _, block := range resp.Content {
			if block.Type == "text" {
				sb.WriteString(block.AsText().Text)
			}
		}

		return core.InvocationResult{
			Data:           []byte(sb.String()),
			MIME:           "text/plain",
			CostMicrocents: tokenCost(opts.PricingByModel, inst.ModelID, resp.Usage.InputTokens, resp.Usage.OutputTokens),
		}, nil
	}
}

func tokenCost(pricing map[string]Pricing, modelID string, inputTokens, outputTokens int64) *int64 {
	p, ok := pricing[modelID]
	if !ok {
		return nil
	}
	cost := p.InputPerMillion*inputTokens/1_000_000 + p.OutputPerMillion*outputTokens/1_000_000
	return &cost
}
