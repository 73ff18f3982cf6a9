package log

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func replaceWithObserver(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	oldL, oldP := L(), _globalP.Load().(*ZapProperties)
	t.Cleanup(func() { ReplaceGlobals(oldL, oldP) })

	core, logs := observer.New(level)
	atom := zap.NewAtomicLevelAt(level)
	ReplaceGlobals(zap.New(core), &ZapProperties{Core: core, Level: atom})
	return logs
}

func TestInitTestLogger(t *testing.T) {
	lg, props, err := InitTestLogger(t, &Config{Level: "debug", Format: FormatJSON})
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, props.Level.Level())
	lg.Debug("test logger", FieldFormat("binary"), FieldFrameSize(12))

	_, _, err = InitTestLogger(t, &Config{Level: "loud"})
	assert.Error(t, err)
}

func TestTraceLevelMapsToDebug(t *testing.T) {
	_, props, err := InitTestLogger(t, &Config{Level: "TRACE"})
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, props.Level.Level())
}

func TestFileLog(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{Level: "info", File: FileLogConfig{RootPath: dir, Filename: "serde.log"}}
	lg, _, err := InitLogger(cfg)
	require.NoError(t, err)
	lg.Info("to file")
	require.NoError(t, lg.Sync())

	data, err := os.ReadFile(filepath.Join(dir, "serde.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")

	cfg.File.RootPath = filepath.Dir(dir)
	cfg.File.Filename = filepath.Base(dir)
	_, _, err = InitLogger(cfg)
	assert.Error(t, err)
}

func TestCtxLogger(t *testing.T) {
	logs := replaceWithObserver(t, zapcore.DebugLevel)

	ctx := WithModule(context.Background(), "codec")
	ctx = WithTraceID(ctx, "abc")
	Ctx(ctx).Info("hello")

	entries := logs.TakeAll()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "codec", fields[FieldNameModule])
	assert.Equal(t, "abc", fields["traceID"])

	tid, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: tid})
	Ctx(trace.ContextWithSpanContext(context.Background(), sc)).Info("traced")
	entries = logs.TakeAll()
	require.Len(t, entries, 1)
	assert.Equal(t, tid.String(), entries[0].ContextMap()["traceID"])

	//nolint:staticcheck
	Ctx(nil).Info("nil ctx")
	assert.Equal(t, 1, logs.Len())
}

func TestLevel(t *testing.T) {
	logs := replaceWithObserver(t, zapcore.DebugLevel)
	SetLevel(zapcore.WarnLevel)
	assert.Equal(t, zapcore.WarnLevel, GetLevel())
	assert.Equal(t, zapcore.WarnLevel, Level().Level())

	Ctx(context.Background()).Info("dropped")
	Ctx(context.Background()).Warn("kept")
	entries := logs.TakeAll()
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].Message)

	Ctx(WithDebugLevel(context.Background())).Debug("forced")
	assert.Equal(t, 1, logs.Len())
}

func TestRatedLogger(t *testing.T) {
	logs := replaceWithObserver(t, zapcore.DebugLevel)

	l := With(FieldComponent("framer")).WithRateGroup("test.rated", 1, 1)
	assert.True(t, l.RatedInfo(1, "first"))
	assert.False(t, l.RatedInfo(1, "second"))
	assert.False(t, l.RatedWarn(1, "third"))

	child := l.With(zap.Int("n", 1))
	assert.False(t, child.RatedDebug(1, "inherits group"))

	entries := logs.TakeAll()
	require.Len(t, entries, 1)
	assert.Equal(t, "framer", entries[0].ContextMap()[FieldNameComponent])

	SetRateLimiter(1, 1)
	t.Cleanup(func() { SetRateLimiter(0, 0) })
	assert.True(t, RatedWarn(1, "global"))
	assert.False(t, RatedWarn(1, "global"))
}

func TestBinder(t *testing.T) {
	logs := replaceWithObserver(t, zapcore.DebugLevel)

	var b Binder
	b.Logger().Info("global")
	b.SetLogger(With(FieldModule("bound")))
	b.Logger().Info("bound")

	entries := logs.TakeAll()
	require.Len(t, entries, 2)
	assert.Empty(t, entries[0].ContextMap())
	assert.Equal(t, "bound", entries[1].ContextMap()[FieldNameModule])
}

func TestWithDebugLevelUnderInfo(t *testing.T) {
	oldL, oldP := L(), _globalP.Load().(*ZapProperties)
	t.Cleanup(func() { ReplaceGlobals(oldL, oldP) })

	debugCore, logs := observer.New(zapcore.DebugLevel)
	atom := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	core, err := zapcore.NewIncreaseLevelCore(debugCore, atom)
	require.NoError(t, err)
	ReplaceGlobals(zap.New(core), &ZapProperties{Core: core, Level: atom, DebugCore: debugCore})

	Ctx(context.Background()).Debug("dropped")
	assert.Equal(t, 0, logs.Len())

	Ctx(WithDebugLevel(context.Background())).Debug("forced")
	entries := logs.TakeAll()
	require.Len(t, entries, 1)
	assert.Equal(t, "forced", entries[0].Message)
}

func TestInitLoggerWithRateLimit(t *testing.T) {
	t.Cleanup(func() { SetRateLimiter(0, 0) })

	_, props, err := InitTestLogger(t, &Config{Level: "info"})
	require.NoError(t, err)
	require.NotNil(t, props.DebugCore)

	_, _, err = InitLogger(&Config{Level: "info", RateCreditPerSecond: 1, RateMaxBalance: 1})
	require.NoError(t, err)
	assert.True(t, R().CheckCredit(1))
	assert.False(t, R().CheckCredit(1))

	SetRateLimiter(2, 0)
	assert.True(t, R().CheckCredit(2))

	SetRateLimiter(0, 0)
	assert.True(t, R().CheckCredit(100))
}
