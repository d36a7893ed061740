package notify

import "github.com/azamatb/parcelhub/internal/log"

// Sender delivers a reminder to a recipient. Swap in an SMTP/SMS
// implementation for production.
type Sender interface {
	Send(to, subject, body string) error
}

// LogSender logs instead of sending, for development and tests.
type LogSender struct{}

func (LogSender) Send(to, subject, body string) error {
	log.S().Infow("notification", "to", to, "subject", subject, "body", body)
	return nil
}
