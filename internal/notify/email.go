package notify

import (
	"fmt"
	"log/slog"

	mail "github.com/go-mail/mail"

	"appregwatch/internal/common/security"
	"appregwatch/internal/config"
)

// EmailSink sends HTML mail through an authenticated SMTP session with
// mandatory STARTTLS.
type EmailSink struct {
	from     string
	fromName string
	to       string
	logger   *slog.Logger

	send func(m *mail.Message) error
}

// NewEmailSink builds the sink from the SMTP settings in cfg.
func NewEmailSink(cfg *config.Config, logger *slog.Logger) *EmailSink {
	d := mail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	return &EmailSink{
		from:     cfg.FromEmail,
		fromName: cfg.FromName,
		to:       cfg.ToEmail,
		logger:   logger,
		send:     func(m *mail.Message) error { return d.DialAndSend(m) },
	}
}

// Send delivers one HTML message to the fixed recipient, CC'ing cc.
func (s *EmailSink) Send(subject, htmlBody string, cc []string) error {
	return s.sendTo(s.to, subject, htmlBody, cc)
}

// SendTo delivers one HTML message to an explicit recipient, used for
// administrator warnings.
func (s *EmailSink) SendTo(to, subject, htmlBody string) error {
	return s.sendTo(to, subject, htmlBody, nil)
}

func (s *EmailSink) sendTo(to, subject, htmlBody string, cc []string) error {
	m := mail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.from, s.fromName))
	m.SetHeader("To", to)
	if len(cc) > 0 {
		m.SetHeader("Cc", cc...)
	}
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	s.logger.Debug("Sending email", "to", security.MaskEmail(to), "cc", len(cc), "subject", subject)
	if err := s.send(m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}
