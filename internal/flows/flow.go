package flows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/neuraforge/neuraforge-ai/internal/engine"
	"github.com/neuraforge/neuraforge-ai/internal/metrics"
	"github.com/neuraforge/neuraforge-ai/internal/prompt"
	"github.com/neuraforge/neuraforge-ai/internal/schema"
)

// Flow ties an input schema, a prompt template and an output schema to an
// engine. A Flow holds no per-call state and is safe for concurrent use.
type Flow[In, Out any] struct {
	name     string
	template string
	input    *schema.Schema
	output   *schema.Schema
	engine   engine.Engine
	logger   *zap.Logger
}

// NewFlow returns a flow that renders template with inputs validated by input
// and expects the engine to answer with a payload matching output.
func NewFlow[In, Out any](name, template string, input, output *schema.Schema, eng engine.Engine, logger *zap.Logger) *Flow[In, Out] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Flow[In, Out]{
		name:     name,
		template: template,
		input:    input,
		output:   output,
		engine:   eng,
		logger:   logger.With(zap.String("flow", name)),
	}
}

func (f *Flow[In, Out]) Name() string { return f.name }

// Run validates raw, a map or an In value, renders the prompt, invokes the
// engine once and validates what it returned.
func (f *Flow[In, Out]) Run(ctx context.Context, raw any) (Out, error) {
	start := time.Now()
	out, err := f.run(ctx, raw)

	outcome := outcomeOf(err)
	metrics.ObserveFlow(f.name, outcome, time.Since(start))

	if err != nil {
		f.logger.Warn("Flow failed",
			zap.String("outcome", outcome),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return out, err
	}

	f.logger.Info("Flow completed", zap.Duration("duration", time.Since(start)))
	return out, nil
}

func (f *Flow[In, Out]) run(ctx context.Context, raw any) (Out, error) {
	var zero Out

	in, err := schema.Decode[In](f.input, raw)
	if err != nil {
		return zero, &InvalidInputError{Flow: f.name, Violations: violationsOf(err)}
	}

	rendered, err := prompt.Render(f.template, in)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", f.name, err)
	}
	f.logger.Debug("Prompt rendered", zap.String("template", f.template), zap.Int("promptBytes", len(rendered)))

	payload, err := f.engine.Invoke(ctx, f.template, rendered, f.output)
	if err != nil {
		return zero, err
	}

	if len(payload) == 0 {
		return zero, &EngineOutputInvalidError{Flow: f.name, Reason: "engine returned no payload"}
	}

	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return zero, &EngineOutputInvalidError{Flow: f.name, Reason: fmt.Sprintf("payload is not JSON: %v", err)}
	}

	out, err := schema.Decode[Out](f.output, doc)
	if err != nil {
		return zero, &EngineOutputInvalidError{
			Flow:       f.name,
			Reason:     "payload does not match output schema",
			Violations: violationsOf(err),
		}
	}
	return out, nil
}

func violationsOf(err error) []schema.Violation {
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		return verr.Violations
	}
	return []schema.Violation{{Field: "(root)", Reason: err.Error()}}
}

func outcomeOf(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	switch Code(err) {
	case CodeInvalidInput:
		return metrics.OutcomeInvalidInput
	case CodeEngineOutputInvalid:
		return metrics.OutcomeEngineOutputInvalid
	case CodeEngineError:
		return metrics.OutcomeEngineError
	default:
		return metrics.OutcomeInternalError
	}
}
