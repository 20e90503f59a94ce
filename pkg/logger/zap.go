package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger adapts go.uber.org/zap to the Logger interface for production
// deployments, grounded on arkeep-io-arkeep and jordigilh-kubernaut's use of
// zap as the structured logger of choice. SimpleLogger (simple.go) remains
// the dependency-free default for tests and local runs.
type ZapLogger struct {
	base   *zap.Logger
	fields []zap.Field
}

// NewZapLogger builds a production ZapLogger at the given level ("debug",
// "info", "warn", "error"; defaults to info on an unrecognized value).
func NewZapLogger(level string) (*ZapLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(toZapLevel(level))
	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &ZapLogger{base: base}, nil
}

func toZapLevel(level string) zapcore.Level {
	switch level {
	case "debug", "DEBUG":
		return zapcore.DebugLevel
	case "warn", "WARN", "WARNING":
		return zapcore.WarnLevel
	case "error", "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func toZapFields(fields []interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		out = append(out, zap.Any(key, fields[i+1]))
	}
	return out
}

func (l *ZapLogger) log(level zapcore.Level, msg string, fields ...interface{}) {
	all := append(append([]zap.Field(nil), l.fields...), toZapFields(fields)...)
	if ce := l.base.Check(level, msg); ce != nil {
		ce.Write(all...)
	}
}

func (l *ZapLogger) Debug(msg string, fields ...interface{}) { l.log(zapcore.DebugLevel, msg, fields...) }
func (l *ZapLogger) Info(msg string, fields ...interface{})  { l.log(zapcore.InfoLevel, msg, fields...) }
func (l *ZapLogger) Warn(msg string, fields ...interface{})  { l.log(zapcore.WarnLevel, msg, fields...) }
func (l *ZapLogger) Error(msg string, fields ...interface{}) { l.log(zapcore.ErrorLevel, msg, fields...) }

func (l *ZapLogger) SetLevel(level string) {
	// zap.IncreaseLevel can only raise the minimum level: a level below the
	// one given to NewZapLogger has no effect.
	core := l.base.Core()
	l.base = zap.New(core).WithOptions(zap.IncreaseLevel(toZapLevel(level)))
}

func (l *ZapLogger) WithField(key string, value interface{}) Logger {
	return &ZapLogger{base: l.base, fields: append(append([]zap.Field(nil), l.fields...), zap.Any(key, value))}
}

func (l *ZapLogger) WithFields(fields map[string]interface{}) Logger {
	next := append([]zap.Field(nil), l.fields...)
	for k, v := range fields {
		next = append(next, zap.Any(k, v))
	}
	return &ZapLogger{base: l.base, fields: next}
}

func (l *ZapLogger) With(fields ...Field) Logger {
	next := append([]zap.Field(nil), l.fields...)
	for _, f := range fields {
		next = append(next, zap.Any(f.Key, f.Value))
	}
	return &ZapLogger{base: l.base, fields: next}
}

// Sync flushes any buffered log entries; callers should defer it after
// construction.
func (l *ZapLogger) Sync() error {
	return l.base.Sync()
}
