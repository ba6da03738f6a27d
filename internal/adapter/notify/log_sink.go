package notify

import (
	"context"
	"log/slog"
)

// LogSink writes notices to the log instead of delivering them. Used when no
// mail server is configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Send(ctx context.Context, recipient, subject, body string) error {
	s.logger.InfoContext(ctx, "notification",
		slog.String("recipient", recipient),
		slog.String("subject", subject),
		slog.String("body", body),
	)
	return nil
}
