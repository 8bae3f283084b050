package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/biascorrect/pkg/errors"
)

// ZerologProvider is a LoggerProvider backed by rs/zerolog.
// All loggers created by one provider share its level, so SetLevel takes
// effect on loggers handed out earlier.
type ZerologProvider struct {
	base  zerolog.Logger
	level *atomic.Int32
}

// NewZerologProvider creates a provider writing JSON lines to stderr.
func NewZerologProvider(level slog.Level) *ZerologProvider {
	return NewZerologProviderTo(os.Stderr, level)
}

// NewZerologProviderTo creates a provider writing JSON lines to w.
func NewZerologProviderTo(w io.Writer, level slog.Level) *ZerologProvider {
	lv := &atomic.Int32{}
	lv.Store(int32(level))
	return &ZerologProvider{
		base:  zerolog.New(w).With().Timestamp().Logger(),
		level: lv,
	}
}

// NewNopLogger returns a Logger that discards every record.
func NewNopLogger() Logger {
	lv := &atomic.Int32{}
	lv.Store(int32(LevelError + 1))
	return &zerologLogger{zl: zerolog.Nop(), level: lv}
}

func (p *ZerologProvider) GetLogger() Logger {
	return &zerologLogger{zl: p.base, level: p.level}
}

func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	return &zerologLogger{
		zl:    p.base.With().Str(ComponentKey, name).Logger(),
		level: p.level,
	}
}

func (p *ZerologProvider) SetLevel(level Level) {
	p.level.Store(int32(level))
}

// RouteWarnings sends errors.Warn output through the provider as
// warn-level structured records.
func (p *ZerologProvider) RouteWarnings() {
	logger := p.GetLoggerWithName("warnings")
	errors.SetZerologWarnFunc(func(w error) {
		logger.Warn(w.Error(), "warning", w)
	})
}

type zerologLogger struct {
	zl    zerolog.Logger
	level *atomic.Int32
}

func (l *zerologLogger) Debug(msg string, fields ...any) {
	l.emit(LevelDebug, msg, fields)
}

func (l *zerologLogger) Info(msg string, fields ...any) {
	l.emit(LevelInfo, msg, fields)
}

func (l *zerologLogger) Warn(msg string, fields ...any) {
	l.emit(LevelWarn, msg, fields)
}

func (l *zerologLogger) Error(msg string, fields ...any) {
	l.emit(LevelError, msg, fields)
}

func (l *zerologLogger) With(fields ...any) Logger {
	ctx := l.zl.With()
	for i := 0; i+1 < len(fields); i += 2 {
		ctx = ctx.Interface(fmt.Sprint(fields[i]), fields[i+1])
	}
	return &zerologLogger{zl: ctx.Logger(), level: l.level}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return level >= Level(l.level.Load())
}

func (l *zerologLogger) emit(level Level, msg string, fields []any) {
	if !l.Enabled(context.Background(), level) {
		return
	}

	var e *zerolog.Event
	switch level {
	case LevelDebug:
		e = l.zl.Debug()
	case LevelInfo:
		e = l.zl.Info()
	case LevelWarn:
		e = l.zl.Warn()
	default:
		e = l.zl.Error()
	}

	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			e = e.Err(err)
			if st := extractStacktrace(err); st != "" {
				e = e.Str(StacktraceAttrKey, st)
			}
			fields = fields[1:]
		}
	}

	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case zerolog.LogObjectMarshaler:
			e = e.Object(key, v)
		case error:
			e = e.AnErr(key, v)
		default:
			e = e.Interface(key, v)
		}
	}
	e.Msg(msg)
}
