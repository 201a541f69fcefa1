package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/neuraforge/neuraforge-ai/internal/llm"
	"github.com/neuraforge/neuraforge-ai/internal/schema"
)

type fakeProvider struct {
	content string
	err     error

	calls    int
	system   []string
	user     []string
	options  llm.Options
	deadline bool
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Generate(ctx context.Context, system, user []string, opts ...llm.Option) (*llm.Response, error) {
	f.calls++
	f.system, f.user = system, user
	for _, opt := range opts {
		opt(&f.options)
	}
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.content, Model: "fake-1"}, nil
}

var outputSchema = schema.MustNew("insightsOutput", schema.Field{Name: "insights"})

func TestInvokeReturnsPayload(t *testing.T) {
	p := &fakeProvider{content: `{"insights":"Review your weekend staffing."}`}
	e := NewLLMEngine(p, time.Minute, zaptest.NewLogger(t))

	payload, err := e.Invoke(context.Background(), "getBusinessInsightsPrompt", "rendered prompt", outputSchema)
	require.NoError(t, err)

	assert.JSONEq(t, `{"insights":"Review your weekend staffing."}`, string(payload))
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, []string{SystemPrompt}, p.system)
	assert.Equal(t, []string{"rendered prompt"}, p.user)
	assert.Equal(t, "insightsOutput", p.options.SchemaName)
	assert.Equal(t, outputSchema.JSON(), p.options.ResponseSchema)
	assert.True(t, p.deadline, "timeout should bound the provider call")
}

func TestInvokeWithoutTimeout(t *testing.T) {
	p := &fakeProvider{content: `{}`}
	e := NewLLMEngine(p, 0, nil)

	_, err := e.Invoke(context.Background(), "t", "p", outputSchema)
	require.NoError(t, err)
	assert.False(t, p.deadline)
}

func TestInvokeWrapsProviderErrors(t *testing.T) {
	cause := errors.New("connection refused")
	e := NewLLMEngine(&fakeProvider{err: cause}, time.Minute, zaptest.NewLogger(t))

	payload, err := e.Invoke(context.Background(), "generateDashboardPrompt", "p", outputSchema)
	assert.Nil(t, payload)
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrEngine))
	assert.True(t, errors.Is(err, cause))

	var engErr *Error
	require.True(t, errors.As(err, &engErr))
	assert.Equal(t, "generateDashboardPrompt", engErr.Template)
	assert.False(t, engErr.Timeout())
}

func TestErrorTimeout(t *testing.T) {
	err := &Error{Template: "t", Err: context.DeadlineExceeded}
	assert.True(t, err.Timeout())
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":"b"}`, `{"a":"b"}`},
		{"whitespace", "\n  {\"a\":\"b\"}  \n", `{"a":"b"}`},
		{"fenced", "```json\n{\"a\":\"b\"}\n```", `{"a":"b"}`},
		{"fenced without info", "```\n{\"a\":\"b\"}\n```", `{"a":"b"}`},
		{"prose is kept as is", "Sure! here you go", "Sure! here you go"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(extractJSON(tt.in)))
		})
	}

	assert.Nil(t, extractJSON("   "))
	assert.Nil(t, extractJSON("```json\n```"))
}
