package sentryx

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// Init wires Sentry error reporting. An empty DSN leaves reporting disabled,
// which is the normal state in local development.
func Init(dsn, environment, release string) error {
	if dsn == "" {
		return nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		TracesSampleRate: 0.2,
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	return nil
}

func Flush() {
	sentry.Flush(2 * time.Second)
}

// CaptureError reports err with extra context attached to the event scope.
// Safe to call when Init was skipped.
func CaptureError(err error, extras map[string]interface{}) {
	if err == nil {
		return
	}
	if hub := sentry.CurrentHub(); hub != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			for k, v := range extras {
				scope.SetExtra(k, v)
			}
			hub.CaptureException(err)
		})
	}
}
