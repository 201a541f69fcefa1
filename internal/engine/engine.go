// Package engine is the boundary to the prompt execution engine: the hosted
// LLM that turns a rendered prompt into a payload shaped by an output schema.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/neuraforge/neuraforge-ai/internal/llm"
	"github.com/neuraforge/neuraforge-ai/internal/schema"
)

// ErrEngine matches every failure of the remote call itself.
var ErrEngine = errors.New("prompt engine call failed")

// Error wraps a transport, timeout or provider-side failure.
type Error struct {
	Template string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("prompt engine %s: %v", e.Template, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrEngine }

// Timeout reports whether the call was abandoned because a deadline passed.
func (e *Error) Timeout() bool { return errors.Is(e.Err, context.DeadlineExceeded) }

// Engine executes a rendered prompt and returns the raw payload. The payload is
// not trusted: it may be empty or malformed, and callers validate it against
// the output schema they passed.
type Engine interface {
	Invoke(ctx context.Context, template string, prompt string, output *schema.Schema) (json.RawMessage, error)
}

// SystemPrompt frames every request sent through LLMEngine.
var SystemPrompt = `You are NeuraForge AI, an analytics assistant for small and medium-sized businesses.
Always answer with a single JSON object that matches the requested schema. Do not wrap it in markdown.`

// LLMEngine executes prompts on an llm.Provider with structured JSON output.
type LLMEngine struct {
	provider llm.Provider
	timeout  time.Duration
	logger   *zap.Logger
}

// NewLLMEngine returns an engine backed by provider. A positive timeout bounds
// each call; the caller's context still applies.
func NewLLMEngine(provider llm.Provider, timeout time.Duration, logger *zap.Logger) *LLMEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMEngine{
		provider: provider,
		timeout:  timeout,
		logger:   logger.With(zap.String("provider", provider.Name())),
	}
}

func (e *LLMEngine) Invoke(ctx context.Context, template string, prompt string, output *schema.Schema) (json.RawMessage, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := e.provider.Generate(ctx,
		[]string{SystemPrompt},
		[]string{prompt},
		llm.WithResponseSchema(output.Name(), output.JSON()),
	)
	if err != nil {
		e.logger.Error("Prompt execution failed",
			zap.String("template", template),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, &Error{Template: template, Err: err}
	}

	e.logger.Debug("Prompt executed",
		zap.String("template", template),
		zap.String("model", resp.Model),
		zap.String("finishReason", resp.FinishReason),
		zap.Int64("tokensUsed", resp.Usage.TotalTokens),
		zap.Duration("duration", time.Since(start)),
	)

	return extractJSON(resp.Content), nil
}

// extractJSON trims whitespace and an optional markdown code fence around the
// model's reply. It never fails; judging the payload is the caller's job.
func extractJSON(content string) json.RawMessage {
	b := bytes.TrimSpace([]byte(content))
	if bytes.HasPrefix(b, []byte("```")) {
		b = b[3:]
		if nl := bytes.IndexByte(b, '\n'); nl >= 0 {
			// Drop the info string, e.g. "json".
			b = b[nl+1:]
		}
		b = bytes.TrimSuffix(bytes.TrimSpace(b), []byte("```"))
		b = bytes.TrimSpace(b)
	}
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}
