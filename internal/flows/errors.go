package flows

import (
	"errors"
	"fmt"

	"github.com/neuraforge/neuraforge-ai/internal/engine"
	"github.com/neuraforge/neuraforge-ai/internal/schema"
)

// Error codes exposed to callers.
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeEngineOutputInvalid = "ENGINE_OUTPUT_INVALID"
	CodeEngineError         = "ENGINE_ERROR"
	CodeInternal            = "INTERNAL_ERROR"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrEngineOutputInvalid = errors.New("engine output invalid")
)

// InvalidInputError is returned before any engine call when the input does not
// match the flow's input schema.
type InvalidInputError struct {
	Flow       string
	Violations []schema.Violation
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Flow, ErrInvalidInput, describe(e.Violations))
}

func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

// EngineOutputInvalidError is returned when the engine answered but its payload
// was empty, not JSON, or did not match the output schema.
type EngineOutputInvalidError struct {
	Flow       string
	Reason     string
	Violations []schema.Violation
}

func (e *EngineOutputInvalidError) Error() string {
	if len(e.Violations) > 0 {
		return fmt.Sprintf("%s: %s: %s: %s", e.Flow, ErrEngineOutputInvalid, e.Reason, describe(e.Violations))
	}
	return fmt.Sprintf("%s: %s: %s", e.Flow, ErrEngineOutputInvalid, e.Reason)
}

func (e *EngineOutputInvalidError) Is(target error) bool { return target == ErrEngineOutputInvalid }

// Code maps an error returned by a flow to its stable code.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrEngineOutputInvalid):
		return CodeEngineOutputInvalid
	case errors.Is(err, engine.ErrEngine):
		return CodeEngineError
	default:
		return CodeInternal
	}
}

func describe(violations []schema.Violation) string {
	if len(violations) == 0 {
		return "no details"
	}
	s := ""
	for i, v := range violations {
		if i > 0 {
			s += "; "
		}
		s += v.Field + ": " + v.Reason
	}
	return s
}
