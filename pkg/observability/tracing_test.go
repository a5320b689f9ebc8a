package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartSpanWithoutInitialize(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "pipeline.extract")
	require.NotNil(t, ctx)
	require.NotNil(t, span)

	span.SetAttribute("pipeline", "banks")
	span.SetAttribute("rows", 10)
	span.SetAttribute("duration_s", 0.25)
	span.SetAttribute("compressed", false)
	span.End()
}

func TestSpanFail(t *testing.T) {
	_, span := StartSpan(context.Background(), "pipeline.load_db")
	span.Fail(errors.New("connection refused"))
	span.End()

	assert.Len(t, span.attributes, 1)
	assert.Equal(t, "error", string(span.attributes[0].Key))
}

func TestInitializeDisabled(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "quarry", cfg.ServiceName)
	assert.Equal(t, 1.0, cfg.SamplingRate)

	require.NoError(t, Initialize(cfg))
	assert.Nil(t, tracer)
}

func TestShutdownWithoutInitialize(t *testing.T) {
	assert.NoError(t, Shutdown(context.Background()))
}
