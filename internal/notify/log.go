package notify

import (
	"context"
	"log/slog"
)

// LogSender writes notifications to the process log. Always registered so
// alerts are visible even with no external channel configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender on the given logger.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With(slog.String("component", "notify_log"))}
}

// Send logs the notification at info level.
func (l *LogSender) Send(ctx context.Context, title, message string) error {
	l.logger.InfoContext(ctx, title, slog.String("detail", message))
	return nil
}

// Name returns the sender identifier.
func (l *LogSender) Name() string {
	return "log"
}
