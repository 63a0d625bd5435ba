package logger

import (
	"context"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestWithFallsBackToGlobal(t *testing.T) {
	if With(context.Background()) != Get() {
		t.Error("expected global logger for a bare context")
	}
}

func TestWithRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	if With(ctx) == Get() {
		t.Error("expected a request-scoped logger")
	}
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name       string
		env, level string
		enabled    zapcore.Level
		disabled   zapcore.Level
	}{
		{"development_default", "development", "", zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"production_default", "production", "", zapcore.InfoLevel, zapcore.DebugLevel},
		{"level_override", "production", "warn", zapcore.WarnLevel, zapcore.InfoLevel},
		{"invalid_level_ignored", "production", "loud", zapcore.InfoLevel, zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core := build(tt.env, tt.level).Core()
			if !core.Enabled(tt.enabled) {
				t.Errorf("expected %s enabled", tt.enabled)
			}
			if core.Enabled(tt.disabled) {
				t.Errorf("expected %s disabled", tt.disabled)
			}
		})
	}

	t.Run("test_env_discards", func(t *testing.T) {
		if build("test", "debug").Core().Enabled(zapcore.ErrorLevel) {
			t.Error("expected nop logger for test env")
		}
	})
}
