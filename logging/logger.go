// Package logging はdosesimのログ出力を提供します。
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// LevelTrace はDebugより詳細なレベルで、リクエストボディなども出力します。
const LevelTrace = slog.LevelDebug - 4

// ParseLevel はレベル名をslog.Levelに変換します。
// 対応する値は trace, debug, info, warn, error (大文字小文字を区別しない) で、
// 不明な値はinfoになります。
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsValidLevel はParseLevelが既定値に頼らず解釈できる名前かどうかを返します。
func IsValidLevel(s string) bool {
	switch strings.ToLower(s) {
	case "", "info", "trace", "debug", "warn", "warning", "error":
		return true
	}
	return false
}

// NewLogger はwに書き込むテキスト形式のslog.Loggerを生成します。
func NewLogger(level string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard は何も出力しないLoggerを返します。テストやオプション未指定時に使います。
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
