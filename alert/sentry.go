package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryConfig configures the Sentry dispatcher.
type SentryConfig struct {
	// DSN is the Sentry project DSN. Required.
	DSN string

	// Environment tags events (e.g. "prod", "staging").
	Environment string

	// FlushTimeout bounds Close's final flush.
	// Default: 2 seconds
	FlushTimeout time.Duration
}

// SentryDispatcher delivers alerts as Sentry events.
type SentryDispatcher struct {
	client *sentry.Client
	config SentryConfig
}

// NewSentryDispatcher creates a dispatcher with its own Sentry client.
func NewSentryDispatcher(config SentryConfig) (*SentryDispatcher, error) {
	if config.DSN == "" {
		return nil, fmt.Errorf("alert: sentry DSN is required")
	}
	if config.FlushTimeout <= 0 {
		config.FlushTimeout = 2 * time.Second
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         config.DSN,
		Environment: config.Environment,
	})
	if err != nil {
		return nil, fmt.Errorf("alert: sentry client: %w", err)
	}

	return &SentryDispatcher{client: client, config: config}, nil
}

// Dispatch sends the alert as a Sentry message event.
func (d *SentryDispatcher) Dispatch(ctx context.Context, a Alert) error {
	event := sentry.NewEvent()
	event.Message = a.Message
	event.Level = sentryLevel(a.Severity)
	event.Tags = map[string]string{"alert_type": a.Type}
	for k, v := range a.Metadata {
		event.Extra[k] = v
	}

	hub := sentry.NewHub(d.client, sentry.NewScope())
	if id := hub.CaptureEvent(event); id == nil {
		return fmt.Errorf("alert: sentry dropped event of type %s", a.Type)
	}
	return nil
}

// Close flushes buffered events.
func (d *SentryDispatcher) Close() {
	d.client.Flush(d.config.FlushTimeout)
}

func sentryLevel(s Severity) sentry.Level {
	switch s {
	case SeverityInfo:
		return sentry.LevelInfo
	case SeverityWarning:
		return sentry.LevelWarning
	case SeverityCritical:
		return sentry.LevelError
	default:
		return sentry.LevelWarning
	}
}
