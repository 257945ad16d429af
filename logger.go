package wydecoder

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ideamans/go-l10n"
	"github.com/mattn/go-isatty"
)

// Sessions and their producer goroutines log concurrently with SetLogger
// and SetLogLevel, so both are stored atomically.
var (
	pkgLogger   atomic.Pointer[loggerBox]
	pkgLogLevel atomic.Int32
)

type loggerBox struct{ Logger }

type Logger interface {
	Printf(format string, v ...any)
}

func SetLogger(logger Logger) {
	pkgLogger.Store(&loggerBox{logger})
}

func currentLogger() Logger {
	return pkgLogger.Load().Logger
}

// LogLevel filters the messages this package sends to its [Logger].
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelQuiet
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "debug"
	case LogLevelInfo:
		return "info"
	case LogLevelWarn:
		return "warn"
	case LogLevelError:
		return "error"
	case LogLevelQuiet:
		return "quiet"
	default:
		return "unknown"
	}
}

// ParseLogLevel parses "debug", "info", "warn", "error" or "quiet".
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LogLevelDebug, nil
	case "info", "":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	case "quiet":
		return LogLevelQuiet, nil
	default:
		return LogLevelInfo, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, s)
	}
}

func SetLogLevel(level LogLevel) {
	pkgLogLevel.Store(int32(level))
}

func currentLogLevel() LogLevel {
	return LogLevel(pkgLogLevel.Load())
}

func logf(level LogLevel, prefix, format string, v ...any) {
	if level < currentLogLevel() {
		return
	}
	currentLogger().Printf(prefix+format, v...)
}

func logDebug(format string, v ...any) { logf(LogLevelDebug, "DEBUG: ", format, v...) }
func logInfo(format string, v ...any)  { logf(LogLevelInfo, "INFO: ", format, v...) }
func logWarn(format string, v ...any)  { logf(LogLevelWarn, "WARNING: ", format, v...) }
func logError(format string, v ...any) { logf(LogLevelError, "ERROR: ", format, v...) }

// Warnf logs a warning through the package logger. Source backends living
// in other packages use it so all messages share one destination.
func Warnf(format string, v ...any) { logWarn(format, v...) }

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGray   = "\033[90m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
)

// ConsoleLogger writes one line per message. Formats are looked up in the
// go-l10n lexicon before being applied, and lines are colored by their
// level prefix when writing to a terminal.
type ConsoleLogger struct {
	mutex sync.Mutex
	out   io.Writer
	color bool
}

func NewConsoleLogger(out io.Writer) *ConsoleLogger {
	color := false
	if f, ok := out.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &ConsoleLogger{out: out, color: color}
}

func (l *ConsoleLogger) Printf(format string, v ...any) {
	prefix, msg := splitLevelPrefix(format)
	line := prefix + l10n.F(msg, v...)
	if l.color {
		switch prefix {
		case "DEBUG: ":
			line = colorGray + line + colorReset
		case "WARNING: ":
			line = colorYellow + line + colorReset
		case "ERROR: ":
			line = colorRed + line + colorReset
		}
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()
	fmt.Fprintln(l.out, line)
}

func splitLevelPrefix(format string) (string, string) {
	for _, prefix := range []string{"DEBUG: ", "INFO: ", "WARNING: ", "ERROR: "} {
		if strings.HasPrefix(format, prefix) {
			return prefix, format[len(prefix):]
		}
	}
	return "", format
}

func init() {
	SetLogger(NewConsoleLogger(os.Stderr))
	SetLogLevel(LogLevelInfo)

	l10n.Register("ja", l10n.LexiconMap{
		"[%s] loading '%s'":                            "[%s] '%s' を読み込み中",
		"[%s] unable to open '%s': %v":                 "[%s] '%s' を開けません: %v",
		"[%s] unable to open '%s' for %s playback: %v": "[%s] '%s' を%s再生用に開けません: %v",
		"[%s] switching to %s playback at %v":          "[%s] %[3]v から%[2]s再生に切り替え",
		"[%s] seeking to %v":                           "[%s] %v へシーク中",
		"[%s] no conversion from %s %dx%d":             "[%s] %s %dx%d からの変換はできません",
	})
}
