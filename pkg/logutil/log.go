// Package logutil provides the engine's package-level structured logger,
// a thin wrapper around zap with an optional rotating file sink.
package logutil

import (
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var globalLogger atomic.Value // *zap.Logger

func init() {
	globalLogger.Store(defaultLogger())
}

func defaultLogger() *zap.Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), zapcore.AddSync(os.Stderr), zap.InfoLevel)
	return zap.New(core, zap.AddCaller())
}

// GetLogger returns the process-wide logger.
func GetLogger() *zap.Logger {
	return globalLogger.Load().(*zap.Logger)
}

// SetLogger replaces the process-wide logger, e.g. after loading config.
func SetLogger(l *zap.Logger) {
	globalLogger.Store(l)
}

// ConfigureFileSink wires a rotating file sink via lumberjack alongside
// stderr. Each call replaces the process-wide logger; a file sink wired
// by an earlier call is not closed.
func ConfigureFileSink(path string, level zapcore.Level, maxSizeMB, maxBackups, maxAgeDays int) {
	if path == "" {
		return
	}
	rotate := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), zapcore.AddSync(rotate), level)
	stderrCore := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), zapcore.AddSync(os.Stderr), level)
	SetLogger(zap.New(zapcore.NewTee(fileCore, stderrCore), zap.AddCaller()))
}

// Debug logs at debug level with an extra caller skip so the call site,
// not this helper, is attributed.
func Debug(msg string, fields ...zap.Field) {
	GetLogger().WithOptions(zap.AddCallerSkip(1)).Debug(msg, fields...)
}

// Info logs at info level.
func Info(msg string, fields ...zap.Field) {
	GetLogger().WithOptions(zap.AddCallerSkip(1)).Info(msg, fields...)
}

// Warn logs at warn level.
func Warn(msg string, fields ...zap.Field) {
	GetLogger().WithOptions(zap.AddCallerSkip(1)).Warn(msg, fields...)
}

// Error logs at error level.
func Error(msg string, fields ...zap.Field) {
	GetLogger().WithOptions(zap.AddCallerSkip(1)).Error(msg, fields...)
}
