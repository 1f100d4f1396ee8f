package alert

import (
	"context"

	"go.uber.org/zap"
)

// LogDispatcher writes alerts to the structured log. Useful in development
// and as a fallback destination when no external channel is configured.
type LogDispatcher struct {
	logger *zap.Logger
}

// NewLogDispatcher creates a dispatcher that logs alerts.
func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogDispatcher{logger: logger}
}

// Dispatch logs the alert at a level matching its severity.
func (d *LogDispatcher) Dispatch(_ context.Context, a Alert) error {
	fields := []zap.Field{
		zap.String("type", a.Type),
		zap.String("severity", string(a.Severity)),
		zap.Any("metadata", a.Metadata),
	}

	switch a.Severity {
	case SeverityCritical:
		d.logger.Error(a.Message, fields...)
	case SeverityWarning:
		d.logger.Warn(a.Message, fields...)
	default:
		d.logger.Info(a.Message, fields...)
	}
	return nil
}
