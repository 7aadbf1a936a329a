package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// 中文说明：
// 进程级 logger。启动时 main 设置一次输出与级别，之后各包直接用
// Infof/Warnf/Errorf，不在组件间传递 logger 实例。

var (
	level   slog.LevelVar
	current atomic.Pointer[slog.Logger]
)

func init() {
	level.Set(slog.LevelInfo)
	current.Store(build(os.Stdout))
}

func build(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: &level}))
}

// SetOutput swaps the log destination for the whole process.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	current.Store(build(w))
}

// SetLevel parses a textual level; anything unrecognized falls back to info.
func SetLevel(name string) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}
}

func Debugf(format string, v ...any) { current.Load().Debug(fmt.Sprintf(format, v...)) }

func Infof(format string, v ...any) { current.Load().Info(fmt.Sprintf(format, v...)) }

func Warnf(format string, v ...any) { current.Load().Warn(fmt.Sprintf(format, v...)) }

func Errorf(format string, v ...any) { current.Load().Error(fmt.Sprintf(format, v...)) }
