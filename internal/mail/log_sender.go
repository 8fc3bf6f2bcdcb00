package mail

import (
	"context"
	"log/slog"
)

// LogSender writes messages to the log instead of delivering them. Used in
// development so activation links can be copied from the worker output.
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	subject, body, err := Render(msg)
	if err != nil {
		return err
	}
	s.log.InfoContext(ctx, "mail delivered to log",
		"to", msg.To,
		"template", msg.Template,
		"subject", subject,
		"body", body,
	)
	return nil
}
