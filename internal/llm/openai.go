package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"

	"github.com/neuraforge/neuraforge-ai/internal/config"
)

// OpenAI client implementation, also used for Azure OpenAI deployments
type OpenAI struct {
	client *openai.Client
	cfg    *config.LLMConfig
}

func NewOpenAI(cfg *config.LLMConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key cannot be empty")
	}

	var client *openai.Client

	// Calls are one-shot; the SDK retries twice by default.
	common := []option.RequestOption{option.WithMaxRetries(0)}

	switch cfg.Provider {
	case "azure":
		client = openai.NewClient(append(common,
			azure.WithEndpoint(cfg.APIEndpoint, cfg.APIVersion),
			azure.WithAPIKey(cfg.APIKey),
		)...)
	default: // "openai"
		endpoint := cfg.APIEndpoint
		if !strings.HasSuffix(endpoint, "/") {
			endpoint += "/"
		}
		client = openai.NewClient(append(common,
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(endpoint),
		)...)
	}

	return &OpenAI{
		client: client,
		cfg:    cfg,
	}, nil
}

func (o *OpenAI) Name() string {
	if o.cfg.Provider == "" {
		return "openai"
	}
	return o.cfg.Provider
}

func (o *OpenAI) Generate(ctx context.Context, systemMessages []string, userMessages []string, opts ...Option) (*Response, error) {
	options := defaultOptions(o.cfg)
	for _, opt := range opts {
		opt(options)
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(systemMessages)+len(userMessages))
	for _, m := range systemMessages {
		messages = append(messages, openai.SystemMessage(m))
	}
	for _, m := range userMessages {
		messages = append(messages, openai.UserMessage(m))
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.F(options.Model),
		Messages:    openai.F(messages),
		Temperature: openai.F(options.Temperature),
		MaxTokens:   openai.F(options.MaxTokens),
	}
	if options.ResponseSchema != nil {
		params.ResponseFormat = openai.F[openai.ChatCompletionNewParamsResponseFormatUnion](
			openai.ResponseFormatJSONSchemaParam{
				Type: openai.F(openai.ResponseFormatJSONSchemaTypeJSONSchema),
				JSONSchema: openai.F(openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   openai.F(options.SchemaName),
					Schema: openai.F[interface{}](options.ResponseSchema),
					Strict: openai.Bool(true),
				}),
			},
		)
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%s chat completion: status %d: %w", o.Name(), apiErr.StatusCode, err)
		}
		return nil, fmt.Errorf("%s chat completion: %w", o.Name(), err)
	}

	response := &Response{
		Model: resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	if len(resp.Choices) > 0 {
		response.Content = resp.Choices[0].Message.Content
		response.FinishReason = string(resp.Choices[0].FinishReason)
	}

	return response, nil
}

func defaultOptions(cfg *config.LLMConfig) *Options {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &Options{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   maxTokens,
	}
}
