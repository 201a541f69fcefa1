package llm

import "context"

type Provider interface {
	// Generate sends system and user messages and returns the model's reply
	Generate(ctx context.Context, systemMessages []string, userMessages []string, opts ...Option) (*Response, error)

	// Name identifies the provider in logs, e.g. "openai"
	Name() string
}

type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

type Option func(*Options)

type Options struct {
	Model       string
	MaxTokens   int64
	Temperature float64

	// SchemaName and ResponseSchema request structured JSON output when set
	SchemaName     string
	ResponseSchema map[string]any
}

// WithModel overrides the configured model for one call.
func WithModel(model string) Option {
	return func(o *Options) {
		if model != "" {
			o.Model = model
		}
	}
}

// WithResponseSchema asks the provider to reply with JSON matching schema.
func WithResponseSchema(name string, schema map[string]any) Option {
	return func(o *Options) {
		o.SchemaName = name
		o.ResponseSchema = schema
	}
}

type Response struct {
	Content      string
	Model        string
	FinishReason string
	Usage        Usage
}
