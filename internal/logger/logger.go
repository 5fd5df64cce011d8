package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mnhsh/letterbox/internal/config"
)

// Logger is a thin key/value logger. The zero value discards everything.
type Logger struct {
	s *zap.SugaredLogger
}

func NewLogger(cfg *config.Config) (*Logger, error) {
	var zc zap.Config
	if cfg.Logger.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	level := zapcore.InfoLevel
	if cfg.Logger.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Logger.Level)); err != nil {
			return nil, err
		}
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	z, err := zc.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &Logger{s: z.Sugar()}, nil
}

// Nop returns a logger that drops every record.
func Nop() *Logger {
	return &Logger{s: zap.NewNop().Sugar()}
}

func (l *Logger) ok() bool { return l != nil && l.s != nil }

func (l *Logger) With(kv ...any) *Logger {
	if !l.ok() {
		return l
	}
	return &Logger{s: l.s.With(kv...)}
}

func (l *Logger) Debug(msg string, kv ...any) {
	if l.ok() {
		l.s.Debugw(msg, kv...)
	}
}

func (l *Logger) Info(msg string, kv ...any) {
	if l.ok() {
		l.s.Infow(msg, kv...)
	}
}

func (l *Logger) Warn(msg string, kv ...any) {
	if l.ok() {
		l.s.Warnw(msg, kv...)
	}
}

func (l *Logger) Error(msg string, kv ...any) {
	if l.ok() {
		l.s.Errorw(msg, kv...)
	}
}

func (l *Logger) Infof(format string, args ...any) {
	if l.ok() {
		l.s.Infof(format, args...)
	}
}

func (l *Logger) Errorf(format string, args ...any) {
	if l.ok() {
		l.s.Errorf(format, args...)
	}
}

func (l *Logger) Sync() error {
	if !l.ok() {
		return nil
	}
	return l.s.Sync()
}
