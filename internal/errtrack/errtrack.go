// Package errtrack reports unexpected failures to Sentry. Every function is a
// no-op until Init succeeds with a DSN.
package errtrack

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/pkg/errors"

	"github.com/mnhsh/letterbox/internal/config"
	"github.com/mnhsh/letterbox/internal/logger"
)

var enabled atomic.Bool

func Init(cfg config.Sentry, component string, log *logger.Logger) error {
	if cfg.DSN == "" {
		log.Info("sentry DSN not provided, error tracking disabled")
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		AttachStacktrace: true,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			if event.Tags == nil {
				event.Tags = make(map[string]string)
			}
			event.Tags["service"] = "letterbox"
			event.Tags["component"] = component
			return event
		},
	})
	if err != nil {
		return errors.Wrap(err, "errtrack: init sentry")
	}

	enabled.Store(true)
	log.Info("sentry error tracking enabled", "environment", cfg.Environment)
	return nil
}

func IsEnabled() bool {
	return enabled.Load()
}

// CaptureError sends err with extra context attached.
func CaptureError(err error, extra map[string]interface{}) {
	if !IsEnabled() || err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		if len(extra) > 0 {
			scope.SetContext("details", extra)
		}
		scope.SetLevel(sentry.LevelError)
		sentry.CaptureException(err)
	})
}

// Middleware reports panics in next and re-panics so net/http still logs
// them.
func Middleware(next http.Handler) http.Handler {
	if !IsEnabled() {
		return next
	}
	return sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle(next)
}

func Flush(timeout time.Duration) bool {
	if !IsEnabled() {
		return true
	}
	return sentry.Flush(timeout)
}
