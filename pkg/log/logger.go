package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/YuminosukeSato/irisforest/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// Output formats accepted by SetupLogger.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

var (
	defaultMu     sync.RWMutex
	defaultLogger Logger = newDefaultLogger(os.Stderr)
)

// newDefaultLogger は SetupLogger が呼ばれるまでのロガー。warn 以上だけを w に出す。
func newDefaultLogger(w io.Writer) Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelWarn})
	return NewSlogLogger(slog.New(WrapByErrFmtHandler(handler)))
}

// GetLogger returns the process-wide logger installed by SetupLogger.
func GetLogger() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetLogger replaces the process-wide logger.
func SetLogger(l Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

// SetupLogger function setup logger.
//
// format "json" installs a slog JSON handler (Cloud Logging key names)
// wrapped by ErrFmtHandler; format "console" installs a zerolog console
// writer. Library warnings are routed to the same sink.
func SetupLogger(loglevel, format string, w io.Writer) error {
	level, err := ToLogLevel(loglevel)
	if err != nil {
		return err
	}

	switch strings.ToLower(format) {
	case "", FormatJSON:
		ops := slog.HandlerOptions{
			Level: slog.Level(level),
			// Replace attributes to convert to CloudLogging format.
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				switch attr.Key {
				case slog.LevelKey:
					attr = slog.Attr{
						Key:   "severity",
						Value: attr.Value,
					}
				case slog.MessageKey:
					attr = slog.Attr{
						Key:   "message",
						Value: attr.Value,
					}
				}
				return attr
			},
		}
		handler := slog.NewJSONHandler(w, &ops)
		errFmtHandler := WrapByErrFmtHandler(handler)
		logger := slog.New(errFmtHandler)
		slog.SetDefault(logger)
		SetLogger(NewSlogLogger(logger))
		errors.SetZerologWarnFunc(nil)
		errors.SetWarningHandler(func(warning error) {
			logger.Warn(warning.Error(), ErrAttr(warning))
		})
	case FormatConsole:
		zl := zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).
			Level(toZerologLevel(level)).
			With().Timestamp().Logger()
		SetLogger(NewZerologLogger(zl))
		errors.SetZerologWarnFunc(func(warning error) {
			ev := zl.Warn()
			if m, ok := warning.(zerolog.LogObjectMarshaler); ok {
				ev = ev.EmbedObject(m)
			}
			ev.Msg(warning.Error())
		})
	default:
		return errors.NewValidationError("log-format", "must be json or console", format)
	}
	return nil
}

// ToLogLevel parses a level name.
func ToLogLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	case "warn":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, errors.NewValidationError("log-level", "must be debug, info, warn or error", level)
	}
}

// ErrAttr is a wrapper to pass err to slog.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}

// slogLogger adapts *slog.Logger to Logger.
type slogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger wraps a *slog.Logger.
func NewSlogLogger(l *slog.Logger) Logger {
	return &slogLogger{logger: l}
}

func (s *slogLogger) Debug(msg string, fields ...any) { s.logger.Debug(msg, errFirst(fields)...) }
func (s *slogLogger) Info(msg string, fields ...any)  { s.logger.Info(msg, errFirst(fields)...) }
func (s *slogLogger) Warn(msg string, fields ...any)  { s.logger.Warn(msg, errFirst(fields)...) }
func (s *slogLogger) Error(msg string, fields ...any) { s.logger.Error(msg, errFirst(fields)...) }

func (s *slogLogger) With(fields ...any) Logger {
	return &slogLogger{logger: s.logger.With(fields...)}
}

func (s *slogLogger) Enabled(ctx context.Context, level Level) bool {
	return s.logger.Enabled(ctx, slog.Level(level))
}

// errFirst turns a leading bare error into an "error" attribute.
func errFirst(fields []any) []any {
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			return append([]any{ErrAttr(err)}, fields[1:]...)
		}
	}
	return fields
}

// zerologLogger adapts zerolog.Logger to Logger.
type zerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger wraps a zerolog.Logger.
func NewZerologLogger(l zerolog.Logger) Logger {
	return &zerologLogger{logger: l}
}

func (z *zerologLogger) Debug(msg string, fields ...any) { z.emit(z.logger.Debug(), msg, fields) }
func (z *zerologLogger) Info(msg string, fields ...any)  { z.emit(z.logger.Info(), msg, fields) }
func (z *zerologLogger) Warn(msg string, fields ...any)  { z.emit(z.logger.Warn(), msg, fields) }
func (z *zerologLogger) Error(msg string, fields ...any) { z.emit(z.logger.Error(), msg, fields) }

func (z *zerologLogger) emit(ev *zerolog.Event, msg string, fields []any) {
	if ev == nil {
		return
	}
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			ev = ev.Err(err)
			fields = fields[1:]
		}
	}
	ev.Fields(fields).Msg(msg)
}

func (z *zerologLogger) With(fields ...any) Logger {
	return &zerologLogger{logger: z.logger.With().Fields(fields).Logger()}
}

func (z *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return toZerologLevel(level) >= z.logger.GetLevel()
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
