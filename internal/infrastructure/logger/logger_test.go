package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"INFO", zapcore.InfoLevel},
		{"garbage", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestNew(t *testing.T) {
	t.Run("creates console logger", func(t *testing.T) {
		log, err := New(&Config{Level: "debug", Format: "console", Output: "stdout"})
		assert.NoError(t, err)
		assert.NotNil(t, log)
	})

	t.Run("creates json logger", func(t *testing.T) {
		log, err := New(&Config{Level: "info", Format: "json", Output: "stderr"})
		assert.NoError(t, err)
		assert.NotNil(t, log)
	})
}

func TestNewForEnvironment(t *testing.T) {
	for _, env := range []string{"development", "production", ""} {
		log, err := NewForEnvironment(env)
		assert.NoError(t, err)
		assert.NotNil(t, log)
	}
}

func TestContextRoundTrip(t *testing.T) {
	t.Run("FromContext falls back to no-op", func(t *testing.T) {
		log := FromContext(context.Background())
		assert.NotNil(t, log)
	})

	t.Run("WithContext stores and retrieves logger", func(t *testing.T) {
		base := zap.NewNop()
		ctx := WithContext(context.Background(), base)
		assert.Same(t, base, FromContext(ctx))
	})

	t.Run("request id round trip", func(t *testing.T) {
		ctx, enriched := WithRequestID(context.Background(), zap.NewNop(), "req-123")
		assert.NotNil(t, enriched)
		assert.Equal(t, "req-123", GetRequestID(ctx))
	})

	t.Run("organization id round trip", func(t *testing.T) {
		ctx, _ := WithOrganizationID(context.Background(), zap.NewNop(), "org-9")
		assert.Equal(t, "org-9", GetOrganizationID(ctx))
	})

	t.Run("missing values return empty strings", func(t *testing.T) {
		ctx := context.Background()
		assert.Empty(t, GetRequestID(ctx))
		assert.Empty(t, GetOrganizationID(ctx))
		assert.Empty(t, GetUserID(ctx))
	})
}

func TestWithTraceContext_NoSpan(t *testing.T) {
	base := zap.NewNop()
	log := WithTraceContext(context.Background(), base)
	// Without a recording span the logger passes through unchanged
	assert.Same(t, base, log)
}
