package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/neuraforge/neuraforge-ai/internal/config"
)

// Gemini client implementation on the Google GenAI SDK
type Gemini struct {
	client *genai.Client
	cfg    *config.LLMConfig
}

func NewGemini(ctx context.Context, cfg *config.LLMConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key cannot be empty")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.APIEndpoint != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.APIEndpoint}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Gemini{
		client: client,
		cfg:    cfg,
	}, nil
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Generate(ctx context.Context, systemMessages []string, userMessages []string, opts ...Option) (*Response, error) {
	options := defaultOptions(g.cfg)
	for _, opt := range opts {
		opt(options)
	}

	genCfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(options.Temperature)),
		MaxOutputTokens: int32(options.MaxTokens),
	}
	if len(systemMessages) > 0 {
		genCfg.SystemInstruction = genai.NewContentFromText(strings.Join(systemMessages, "\n\n"), "")
	}
	if options.ResponseSchema != nil {
		genCfg.ResponseMIMEType = "application/json"
		genCfg.ResponseSchema = toGenAISchema(options.ResponseSchema)
	}

	contents := make([]*genai.Content, 0, len(userMessages))
	for _, m := range userMessages {
		contents = append(contents, genai.NewContentFromText(m, genai.RoleUser))
	}

	resp, err := g.client.Models.GenerateContent(ctx, options.Model, contents, genCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	response := &Response{
		Content: resp.Text(),
		Model:   options.Model,
	}
	if resp.ModelVersion != "" {
		response.Model = resp.ModelVersion
	}
	if len(resp.Candidates) > 0 {
		response.FinishReason = string(resp.Candidates[0].FinishReason)
	}
	if u := resp.UsageMetadata; u != nil {
		response.Usage = Usage{
			PromptTokens:     int64(u.PromptTokenCount),
			CompletionTokens: int64(u.CandidatesTokenCount),
			TotalTokens:      int64(u.TotalTokenCount),
		}
	}

	return response, nil
}

// toGenAISchema converts the subset of JSON Schema produced by the schema
// package (objects of typed properties) into the GenAI schema type.
func toGenAISchema(doc map[string]any) *genai.Schema {
	s := &genai.Schema{}

	switch doc["type"] {
	case "object":
		s.Type = genai.TypeObject
	case "string":
		s.Type = genai.TypeString
	case "number":
		s.Type = genai.TypeNumber
	case "integer":
		s.Type = genai.TypeInteger
	case "boolean":
		s.Type = genai.TypeBoolean
	case "array":
		s.Type = genai.TypeArray
	}

	if d, ok := doc["description"].(string); ok {
		s.Description = d
	}

	if props, ok := doc["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, p := range props {
			if pm, ok := p.(map[string]any); ok {
				s.Properties[name] = toGenAISchema(pm)
			}
		}
	}

	switch req := doc["required"].(type) {
	case []string:
		s.Required = append([]string(nil), req...)
	case []any:
		for _, r := range req {
			if name, ok := r.(string); ok {
				s.Required = append(s.Required, name)
			}
		}
	}

	if items, ok := doc["items"].(map[string]any); ok {
		s.Items = toGenAISchema(items)
	}

	return s
}
