package smtp

import (
	"errors"
	"fmt"
	"net/smtp"
	"net/textproto"

	"github.com/gatekeeper-api/internal/config"
	"github.com/gatekeeper-api/internal/domain"
)

// Mailer sends emails.
type Mailer interface {
	SendEmail(to, subject, htmlBody string) error
}

type mailer struct {
	host     string
	port     string
	from     string
	username string
	password string
}

func NewMailer(cfg *config.Config) Mailer {
	return &mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
	}
}

// SendEmail delivers an HTML message. A rejected recipient address surfaces as
// domain.ErrRecipientRefused; any other transport failure wraps the generic
// domain.ErrDeliveryFailed so callers can compensate either way.
func (m *mailer) SendEmail(to, subject, htmlBody string) error {
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=utf-8\r\n\r\n%s",
		m.from, to, subject, htmlBody,
	)
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	if err := smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg)); err != nil {
		var tpErr *textproto.Error
		if errors.As(err, &tpErr) && isRecipientRefusedCode(tpErr.Code) {
			return fmt.Errorf("%w: %s", domain.ErrRecipientRefused, tpErr.Msg)
		}
		return fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err)
	}
	return nil
}

// 550/551/553 are the SMTP codes a server returns for an unroutable or
// rejected mailbox at the RCPT stage.
func isRecipientRefusedCode(code int) bool {
	return code == 550 || code == 551 || code == 553
}
