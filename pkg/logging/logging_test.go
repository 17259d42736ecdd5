package logging

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"debug":   zerolog.DebugLevel,
		"WARNING": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), "level %q", in)
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Equal(t, Default(), FromContext(context.Background()))
	assert.Equal(t, Default(), FromContext(nil)) //nolint:staticcheck // nil context is handled
}

func TestWithRunID(t *testing.T) {
	tl := NewTestLogger(t)
	ctx := WithLogger(context.Background(), tl.Logger)
	ctx = WithRunID(ctx, "run-123")

	FromContext(ctx).Info().Msg("hello")
	assert.True(t, tl.Contains(`"run_id":"run-123"`))
}

func TestNewLoggerFromConfigFields(t *testing.T) {
	logger := NewLoggerFromConfig(&Config{
		Level:  "warn",
		Output: "discard",
		Format: "json",
		Fields: map[string]string{"app": "worldstat"},
	})
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
}
