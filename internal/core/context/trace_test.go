package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTraceContext(t *testing.T) {
	kept := NewTraceContext("trace-1", "span-1", "req-1")
	assert.Equal(t, &TraceContext{TraceID: "trace-1", SpanID: "span-1", RequestID: "req-1"}, kept)

	generated := NewTraceContext("", "", "")
	assert.Len(t, generated.TraceID, 36)
	assert.Len(t, generated.SpanID, 16)
	assert.Len(t, generated.RequestID, 36)
	assert.NotEqual(t, generated.TraceID, generated.RequestID)
}

func TestWithTrace(t *testing.T) {
	assert.Nil(t, GetTrace(context.Background()))

	trace := NewTraceContext("", "", "req-7")
	got := GetTrace(WithTrace(context.Background(), trace))
	require.NotNil(t, got)
	assert.Equal(t, "req-7", got.RequestID)
}
