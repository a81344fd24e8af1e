// Package gwlog is the gateway's structured logger. It keeps the
// teacher's level-based call shape (Debug/Info/Important/Warning/Error/
// Fatal/Success) but backs it with zap instead of a terminal-oriented
// readline/color writer, since a headless gateway process has no
// interactive console to refresh.
package gwlog

import (
	"os"
	"sync"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu          sync.RWMutex
	logger      *zap.Logger
	debugOutput = true
)

func init() {
	logger = mustBuild(false)
}

func mustBuild(debug bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// zap's own production config cannot fail to build under normal
		// conditions; fall back to a bare no-op logger rather than panic
		// from inside a logging package.
		return zap.NewNop()
	}
	return l
}

// DebugEnable toggles debug-level logging, mirroring the teacher's
// DebugEnable(bool) surface.
func DebugEnable(enable bool) {
	mu.Lock()
	defer mu.Unlock()
	debugOutput = enable
	logger = mustBuild(enable)
}

// Sync flushes any buffered log entries. Call before process exit.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = logger.Sync()
}

func current() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func Debug(format string, args ...interface{}) {
	if !debugOutput {
		return
	}
	current().Sugar().Debugf(format, args...)
}

func Info(format string, args ...interface{}) {
	current().Sugar().Infof(format, args...)
}

func Important(format string, args ...interface{}) {
	current().Sugar().Infof(format, args...)
}

func Warning(format string, args ...interface{}) {
	current().Sugar().Warnf(format, args...)
}

func Error(format string, args ...interface{}) {
	current().Sugar().Errorf(format, args...)
}

func Fatal(format string, args ...interface{}) {
	current().Sugar().Errorf(format, args...)
	Sync()
	os.Exit(1)
}

func Success(format string, args ...interface{}) {
	current().Sugar().Infof(format, args...)
}

// Banner prints a startup banner to stderr in color, outside the
// structured-logging path — grounded on the teacher's use of fatih/color
// for its startup banner (core/utils.go's Banner()).
func Banner(name, version string) {
	c := color.New(color.FgHiGreen, color.Bold)
	c.Fprintf(os.Stderr, "%s %s\n", name, version)
}
