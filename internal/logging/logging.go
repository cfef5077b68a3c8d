// Copyright (c) 2023-2025 xAI Go SDK Authors
//
// Licensed under the Apache License, Version 2.0.

// Package logging provides the structured-logging interface shared by every
// transport, codec, and session component of the SDK.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the sugared-logger-shaped interface every component depends on.
// Components never import zap directly; this keeps the logging backend
// swappable and makes components trivially testable with a stub.
type Logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Sync() error
}

// zapLogger adapts *zap.SugaredLogger to Logger.
type zapLogger struct {
	*zap.SugaredLogger
}

// Options configures the default Logger implementation.
type Options struct {
	// Level is the minimum enabled level ("debug", "info", "warn", "error").
	// Defaults to "info".
	Level string
	// FilePath, when non-empty, tees log output through a rotating file sink.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New builds the default zap-backed Logger. A zero Options value logs at info
// level to stderr only.
func New(opts Options) (Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, err
		}
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.Lock(zapcore.AddSync(os.Stderr)), level),
	}

	if opts.FilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    firstPositive(opts.MaxSizeMB, 100),
			MaxBackups: firstPositive(opts.MaxBackups, 3),
			MaxAge:     firstPositive(opts.MaxAgeDays, 28),
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(rotator), level))
	}

	core := zapcore.NewTee(cores...)
	logger := zap.New(core)
	return &zapLogger{SugaredLogger: logger.Sugar()}, nil
}

func firstPositive(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// NoOp returns a Logger that discards everything. It is the zero-value default
// for components constructed without an explicit logger.
func NoOp() Logger { return noOpLogger{} }

type noOpLogger struct{}

func (noOpLogger) Debugf(string, ...interface{}) {}
func (noOpLogger) Infof(string, ...interface{})  {}
func (noOpLogger) Warnf(string, ...interface{})  {}
func (noOpLogger) Errorf(string, ...interface{}) {}
func (noOpLogger) Sync() error                   { return nil }
