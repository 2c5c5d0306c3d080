package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options tweaks where Setup writes log lines.
type Options struct {
	// Output replaces stdout; interactive programs pass io.Discard.
	Output io.Writer
	// File, when set, receives a copy of every line through a rotating writer.
	File       string
	MaxSizeMB  int
	MaxBackups int
	Level      slog.Level
}

// Setup configures the standard library logger to emit structured JSON and returns
// the underlying slog.Logger. All log lines carry the service name and, when
// provided, the environment.
func Setup(service, env string, opts ...Options) *slog.Logger {
	var opt Options
	if len(opts) > 0 {
		opt = opts[0]
	}
	return slog.New(newHandler(outputFor(opt), opt.Level, service, env))
}

func outputFor(opt Options) io.Writer {
	base := opt.Output
	if base == nil {
		base = os.Stdout
	}
	path := strings.TrimSpace(opt.File)
	if path == "" {
		return base
	}
	size := opt.MaxSizeMB
	if size <= 0 {
		size = 50
	}
	backups := opt.MaxBackups
	if backups <= 0 {
		backups = 3
	}
	return io.MultiWriter(base, &lumberjack.Logger{
		Filename:   path,
		MaxSize:    size,
		MaxBackups: backups,
		Compress:   true,
	})
}

func newHandler(out io.Writer, level slog.Level, service, env string) slog.Handler {
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				return slog.Attr{Key: "timestamp", Value: attr.Value}
			case slog.LevelKey:
				return slog.String("severity", strings.ToUpper(attr.Value.String()))
			case slog.MessageKey:
				return slog.Attr{Key: "message", Value: attr.Value}
			}
			return redactAttr(attr)
		},
	})

	attrs := []slog.Attr{slog.String("service", strings.TrimSpace(service))}
	if env = strings.TrimSpace(env); env != "" {
		attrs = append(attrs, slog.String("env", env))
	}
	withAttrs := handler.WithAttrs(attrs)

	slog.SetDefault(slog.New(withAttrs))

	// Bridge the standard library logger so log.Printf callers land in the same stream.
	stdBridge := slog.NewLogLogger(withAttrs, slog.LevelInfo)
	log.SetOutput(stdBridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")

	return withAttrs
}
