package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(t *testing.T) (*ZapLogger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return NewZapLogger(zap.New(core)), logs
}

func TestZapLogger_Levels(t *testing.T) {
	log, logs := newObserved(t)
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", 2)
	log.Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", 4)

	entries := logs.AllUntimed()
	require.Len(t, entries, 4)

	want := []struct {
		level zapcore.Level
		msg   string
		key   string
	}{
		{zapcore.DebugLevel, "dbg", "a"},
		{zapcore.InfoLevel, "inf", "b"},
		{zapcore.WarnLevel, "wrn", "c"},
		{zapcore.ErrorLevel, "err", "d"},
	}
	for i, w := range want {
		assert.Equal(t, w.level, entries[i].Level)
		assert.Equal(t, w.msg, entries[i].Message)
		assert.Contains(t, entries[i].ContextMap(), w.key)
	}
}

func TestZapLogger_With(t *testing.T) {
	log, logs := newObserved(t)

	log.With("component", "querycache").Info(context.Background(), "hello", "k", "v")

	entries := logs.FilterMessage("hello").AllUntimed()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "querycache", fields["component"])
	assert.Equal(t, "v", fields["k"])
}

func TestNewProduction_BadLevel(t *testing.T) {
	_, err := NewProduction("loud")
	require.Error(t, err)

	l, err := NewProduction("warn")
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNop_DoesNotPanic(t *testing.T) {
	l := Nop().With("a", 1)
	ctx := context.TODO()
	l.Debug(ctx, "x")
	l.Info(ctx, "x")
	l.Warn(ctx, "x")
	l.Error(ctx, "x")
}
