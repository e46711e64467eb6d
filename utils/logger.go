package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger 简单日志封装，底层使用 zerolog
type Logger struct {
	zl zerolog.Logger
}

// NewLogger builds a logger writing to w. format is "console" or "json".
func NewLogger(w io.Writer, format, level string) *Logger {
	if w == nil {
		w = os.Stdout
	}
	if strings.EqualFold(format, "console") || format == "" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zl := zerolog.New(w).Level(lvl).With().Timestamp().Str("app", "token-creator").Logger()
	return &Logger{zl: zl}
}

// Debug 调试日志
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.zl.Debug().Msg(fmt.Sprintf(msg, args...))
}

// Info 信息日志
func (l *Logger) Info(msg string, args ...interface{}) {
	l.zl.Info().Msg(fmt.Sprintf(msg, args...))
}

// Warn 警告日志
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.zl.Warn().Msg(fmt.Sprintf(msg, args...))
}

// Error 错误日志
func (l *Logger) Error(msg string, args ...interface{}) {
	l.zl.Error().Msg(fmt.Sprintf(msg, args...))
}

// With returns a child logger carrying key=value.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{zl: l.zl.With().Str(key, value).Logger()}
}

// Zerolog exposes the underlying logger for gin middleware.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zl
}

var DefaultLogger = NewLogger(os.Stdout, "console", "info")

// SetDefault replaces DefaultLogger, used once at startup after config load.
func SetDefault(l *Logger) {
	if l != nil {
		DefaultLogger = l
	}
}

// Nop is a logger that discards everything; handy in tests.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}
