// Copyright 2019 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/uber/jaeger-client-go/utils"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"gopkg.in/natefinch/lumberjack.v2"
)

var _globalL, _globalP, _globalS, _globalR atomic.Value

// rateLimiterHolder 固定 _globalR 中存储的动态类型。
type rateLimiterHolder struct {
	RateLimiter
}

var (
	_globalLevelLogger sync.Map
	_namedRateLimiters sync.Map
)

// RateLimiter 为限流日志使用的最小接口，jaeger 的 utils.RateLimiter 满足它。
type RateLimiter interface {
	CheckCredit(delta float64) bool
}

// nopRateLimiter 从不丢弃日志。
type nopRateLimiter struct{}

func (nopRateLimiter) CheckCredit(float64) bool { return true }

func init() {
	conf := &Config{Level: "info", Stdout: true}
	l, p, _ := InitLogger(conf, zap.OnFatal(zapcore.WriteThenPanic))
	ReplaceGlobals(l, p)
	_globalR.Store(rateLimiterHolder{nopRateLimiter{}})
}

// InitLogger 按配置创建 zap Logger，输出到标准输出和/或 lumberjack 轮转文件。
func InitLogger(cfg *Config, opts ...zap.Option) (*zap.Logger, *ZapProperties, error) {
	var outputs []zapcore.WriteSyncer
	if len(cfg.File.Filename) > 0 {
		lg, err := initFileLog(&cfg.File)
		if err != nil {
			return nil, nil, err
		}
		outputs = append(outputs, zapcore.AddSync(lg))
	}
	if cfg.Stdout || len(outputs) == 0 {
		stdOut, _, err := zap.Open("stdout")
		if err != nil {
			return nil, nil, err
		}
		outputs = append(outputs, stdOut)
	}
	lg, r, err := InitLoggerWithWriteSyncer(cfg, zap.CombineWriteSyncers(outputs...), opts...)
	if err != nil {
		return nil, nil, err
	}
	if cfg.RateCreditPerSecond > 0 {
		SetRateLimiter(cfg.RateCreditPerSecond, cfg.RateMaxBalance)
	}
	return lg, r, nil
}

// InitTestLogger 创建输出到 t.Log 的 Logger，zap 内部错误会使测试失败。
func InitTestLogger(t zaptest.TestingT, cfg *Config, opts ...zap.Option) (*zap.Logger, *ZapProperties, error) {
	writer := newTestingWriter(t)
	zapOptions := []zap.Option{
		zap.ErrorOutput(writer.WithMarkFailed(true)),
	}
	opts = append(zapOptions, opts...)
	return InitLoggerWithWriteSyncer(cfg, writer, opts...)
}

// InitLoggerWithWriteSyncer 创建写入 output 的 Logger。
func InitLoggerWithWriteSyncer(cfg *Config, output zapcore.WriteSyncer, opts ...zap.Option) (*zap.Logger, *ZapProperties, error) {
	level := zap.NewAtomicLevel()
	parsed := cfg.Level
	if parsed == "" || strings.EqualFold(parsed, "trace") {
		parsed = "debug"
	}
	if err := level.UnmarshalText([]byte(parsed)); err != nil {
		return nil, nil, errors.Wrapf(err, "invalid log level %q", cfg.Level)
	}
	debugCore := zapcore.NewCore(cfg.encoder(), output, zapcore.DebugLevel)
	core, err := zapcore.NewIncreaseLevelCore(debugCore, level)
	if err != nil {
		return nil, nil, err
	}
	opts = append(cfg.buildOptions(output), opts...)
	lg := zap.New(core, opts...)
	return lg, &ZapProperties{
		Core:      core,
		Syncer:    output,
		Level:     level,
		DebugCore: debugCore,
	}, nil
}

func initFileLog(cfg *FileLogConfig) (*lumberjack.Logger, error) {
	logPath := filepath.Join(cfg.RootPath, cfg.Filename)
	if st, err := os.Stat(logPath); err == nil && st.IsDir() {
		return nil, errors.Newf("can't use directory %s as log file name", logPath)
	}
	maxSize := cfg.MaxSize
	if maxSize == 0 {
		maxSize = defaultLogMaxSize
	}
	return &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    maxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxDays,
		LocalTime:  true,
	}, nil
}

// L 返回全局 Logger，可通过 ReplaceGlobals 替换，并发安全。
func L() *zap.Logger {
	return _globalL.Load().(*zap.Logger)
}

// S 返回全局 SugaredLogger。
func S() *zap.SugaredLogger {
	return _globalS.Load().(*zap.SugaredLogger)
}

// R 返回全局限流器，未启用限流时返回不丢弃任何日志的实现。
func R() RateLimiter {
	if h, ok := _globalR.Load().(rateLimiterHolder); ok && h.RateLimiter != nil {
		return h.RateLimiter
	}
	return nopRateLimiter{}
}

// SetRateLimiter 为 Rated* 系列日志设置全局限流参数，creditPerSecond <= 0 时关闭限流。
func SetRateLimiter(creditPerSecond, maxBalance float64) {
	if creditPerSecond <= 0 {
		_globalR.Store(rateLimiterHolder{nopRateLimiter{}})
		return
	}
	if maxBalance <= 0 {
		maxBalance = creditPerSecond
	}
	_globalR.Store(rateLimiterHolder{utils.NewRateLimiter(creditPerSecond, maxBalance)})
}

func ctxL() *zap.Logger {
	level := _globalP.Load().(*ZapProperties).Level.Level()
	l, ok := _globalLevelLogger.Load(level)
	if !ok {
		return L()
	}
	return l.(*zap.Logger)
}

// ReplaceGlobals 替换全局 Logger 与 SugaredLogger，并发安全。
func ReplaceGlobals(logger *zap.Logger, props *ZapProperties) {
	_globalL.Store(logger)
	_globalS.Store(logger.Sugar())
	_globalP.Store(props)
	replaceLeveledLoggers(logger, props)
}

// replaceLeveledLoggers 基于 Debug 级别的 core 重建各级别 Logger，
// 使 WithDebugLevel 在全局级别较高时仍能输出。
func replaceLeveledLoggers(logger *zap.Logger, props *ZapProperties) {
	debugL := logger
	if props != nil && props.DebugCore != nil {
		debugCore := props.DebugCore
		debugL = logger.WithOptions(zap.WrapCore(func(zapcore.Core) zapcore.Core { return debugCore }))
	}
	levels := []zapcore.Level{
		zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel,
		zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel,
	}
	for _, level := range levels {
		_globalLevelLogger.Store(level, debugL.WithOptions(zap.IncreaseLevel(level)))
	}
}

// Sync 刷新所有缓冲的日志。
func Sync() error {
	if err := L().Sync(); err != nil {
		return err
	}
	return S().Sync()
}

func Level() zap.AtomicLevel {
	return _globalP.Load().(*ZapProperties).Level
}
