package auth

import "context"

// Mail is an outbound message
type Mail struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers mail. The default implementation only logs, which is
// enough for development; production wires a real sender.
type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

type loggerMailer struct {
	logger Logger
}

// NewLoggerMailer returns a Mailer that logs messages instead of sending
// them.
func NewLoggerMailer(logger Logger) Mailer {
	if logger == nil {
		logger = defLogger{}
	}
	return &loggerMailer{logger: logger}
}

func (m *loggerMailer) Send(_ context.Context, mail Mail) error {
	m.logger.Info("mail to=%s subject=%q body=%q", mail.To, mail.Subject, mail.Body)
	return nil
}
