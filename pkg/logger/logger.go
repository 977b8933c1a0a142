package logger

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config represents logger configuration
type Config struct {
	Level          string // debug, info, warn, error; empty means info
	Format         string // json or console; empty means console
	OutputPath     string // stdout, stderr, or a file rotated by lumberjack
	EnableSampling bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	Rotation       Rotation // file output only
}

// Rotation bounds the log files kept when OutputPath is a file.
type Rotation struct {
	MaxSizeMB  int // zero means 100
	MaxBackups int // zero means 3
	MaxAgeDays int // zero means 28
}

// redactedKeys name fields whose values must never be written.
var redactedKeys = map[string]struct{}{
	"password": {},
}

// NewWithConfig builds the service logger. Unknown levels or formats are rejected.
func NewWithConfig(cfg Config) (*zap.Logger, error) {
	level, err := parseLogLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encoder, err := newEncoder(cfg.Format, cfg.Environment)
	if err != nil {
		return nil, err
	}

	var core zapcore.Core = redactingCore{
		Core: zapcore.NewCore(encoder, writeSyncer(cfg.OutputPath, cfg.Rotation), level),
	}
	if cfg.EnableSampling {
		// first 100 entries per second, then every 10th
		core = zapcore.NewSamplerWithOptions(core, time.Second, 100, 10)
	}

	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(
			zap.String("service", cfg.ServiceName),
			zap.String("version", cfg.ServiceVersion),
			zap.String("environment", cfg.Environment),
		),
	), nil
}

func parseLogLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "":
		return zapcore.InfoLevel, nil
	case "warning":
		return zapcore.WarnLevel, nil
	}

	l, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return l, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return l, nil
}

func newEncoder(format, environment string) (zapcore.Encoder, error) {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	switch strings.ToLower(format) {
	case "json":
		return zapcore.NewJSONEncoder(encoderConfig), nil
	case "console", "":
		if environment != "production" {
			encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		return zapcore.NewConsoleEncoder(encoderConfig), nil
	default:
		return nil, fmt.Errorf("invalid log format %q: want json or console", format)
	}
}

func writeSyncer(outputPath string, r Rotation) zapcore.WriteSyncer {
	switch outputPath {
	case "stdout", "":
		return zapcore.Lock(os.Stdout)
	case "stderr":
		return zapcore.Lock(os.Stderr)
	}

	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   outputPath,
		MaxSize:    orDefault(r.MaxSizeMB, 100),
		MaxBackups: orDefault(r.MaxBackups, 3),
		MaxAge:     orDefault(r.MaxAgeDays, 28),
		Compress:   true,
	})
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// redactingCore masks credential fields before they reach the encoder.
type redactingCore struct {
	zapcore.Core
}

func (c redactingCore) With(fields []zapcore.Field) zapcore.Core {
	return redactingCore{Core: c.Core.With(redact(fields))}
}

func (c redactingCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return ce.AddCore(entry, c)
	}
	return ce
}

func (c redactingCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	return c.Core.Write(entry, redact(fields))
}

func redact(fields []zapcore.Field) []zapcore.Field {
	var out []zapcore.Field
	for i, f := range fields {
		if _, ok := redactedKeys[strings.ToLower(f.Key)]; !ok {
			continue
		}
		if out == nil {
			out = make([]zapcore.Field, len(fields))
			copy(out, fields)
		}
		out[i] = zap.String(f.Key, "[REDACTED]")
	}
	if out == nil {
		return fields
	}
	return out
}

// ContextKey is the type for context keys
type ContextKey string

// RequestIDKey is the context key for request ID
const RequestIDKey ContextKey = "request_id"

// ContextWithRequestID stores a request ID in the context.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithContext returns a logger carrying the request_id found in ctx, if any.
func WithContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if id := GetRequestID(ctx); id != "" {
		return logger.With(zap.String("request_id", id))
	}
	return logger
}

// GetRequestID extracts request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID := ctx.Value(RequestIDKey); requestID != nil {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return ""
}
