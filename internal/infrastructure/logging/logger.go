package logging

import (
	"io"
	"os"

	"logoforge/internal/infrastructure/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger は、設定に従ってzapロガーを作成します
//
// 開発モードではカラー付きのコンソール出力とDebugレベル、
// それ以外ではJSON出力とInfoレベルになります。
// FilePath が設定されている場合は、lumberjackでローテーションされるファイルにもJSONで出力します。
func NewLogger(cfg config.LogConfig) *zap.Logger {
	return newLogger(cfg, os.Stdout)
}

func newLogger(cfg config.LogConfig, console io.Writer) *zap.Logger {
	level := zapcore.InfoLevel
	if cfg.Development {
		level = zapcore.DebugLevel
	}

	var consoleEncoder zapcore.Encoder
	if cfg.Development {
		consoleEncoder = zapcore.NewConsoleEncoder(consoleEncoderConfig())
	} else {
		consoleEncoder = zapcore.NewJSONEncoder(encoderConfig())
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.AddSync(console), level),
	}

	if cfg.FilePath != "" {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig()),
			zapcore.AddSync(newFileWriter(cfg)),
			level,
		))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

func newFileWriter(cfg config.LogConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    positiveOr(cfg.MaxSizeMB, 100),
		MaxBackups: positiveOr(cfg.MaxBackups, 5),
		MaxAge:     positiveOr(cfg.MaxAgeDays, 30),
		Compress:   true,
	}
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	cfg := encoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg
}

func positiveOr(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}
