// Copyright (c) 2025 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/moirai-mpc/moirai.
//
// SPDX-License-Identifier: Apache-2.0
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a console logger for the given verbosity. Verbose mode
// shows every simulated protocol step at debug level, the default keeps the
// output at info.
func NewLogger(verbose bool) (*zap.SugaredLogger, error) {
	if verbose {
		return NewDevelopmentLogger()
	}
	return NewProductionLogger()
}

// NewDevelopmentLogger returns a new development logger.
func NewDevelopmentLogger() (*zap.SugaredLogger, error) {
	cfg := consoleConfig(zapcore.DebugLevel)
	cfg.Development = true
	cfg.EncoderConfig.CallerKey = "caller"
	cfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	return build(cfg)
}

// NewProductionLogger returns a new logger at info level.
func NewProductionLogger() (*zap.SugaredLogger, error) {
	return build(consoleConfig(zapcore.InfoLevel))
}

func consoleConfig(level zapcore.Level) zap.Config {
	return zap.Config{
		Level:       zap.NewAtomicLevelAt(level),
		Encoding:    "console",
		OutputPaths: []string{"stdout"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey: "message",

			LevelKey:    "level",
			EncodeLevel: zapcore.CapitalLevelEncoder,

			TimeKey:    "time",
			EncodeTime: zapcore.ISO8601TimeEncoder,
		},
	}
}

func build(cfg zap.Config) (*zap.SugaredLogger, error) {
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}
