package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_EnvironmentDefaults(t *testing.T) {
	local, err := NewLogger("local")
	if err != nil {
		t.Fatalf("NewLogger(local): %v", err)
	}
	if !local.Core().Enabled(zapcore.DebugLevel) {
		t.Error("local logger must default to debug")
	}

	prod, err := NewLogger("prod")
	if err != nil {
		t.Fatalf("NewLogger(prod): %v", err)
	}
	if prod.Core().Enabled(zapcore.DebugLevel) {
		t.Error("prod logger must default above debug")
	}
}

func TestNewLogger_LevelOverride(t *testing.T) {
	l, err := NewLogger("local", "warn")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info must be disabled under a warn override")
	}
	if !l.Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn must stay enabled under a warn override")
	}

	if _, err := NewLogger("local", "shouting"); err == nil {
		t.Error("expected error for an unknown level name")
	}
}

func TestFromContext_RoundTripAndFallback(t *testing.T) {
	l := zap.NewNop()
	ctx := ContextWithLogger(context.Background(), l)
	if FromContext(ctx) != l {
		t.Error("stored logger not returned")
	}

	if FromContext(context.Background()) == nil {
		t.Error("missing logger must fall back to a usable no-op logger")
	}
}
