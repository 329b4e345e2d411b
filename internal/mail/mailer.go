package mail

import (
	"fmt"
	"net/smtp"

	"whisply/internal/config"
)

// Sender delivers outbound mail. The SMTP implementation is used in
// production; tests substitute a fake.
type Sender interface {
	Send(to string, subject string, htmlBody string) error
}

// SMTPMailer sends mail through a plain SMTP relay.
type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
}

func NewSMTPMailer(cfg *config.SMTPConfig) *SMTPMailer {
	var auth smtp.Auth
	if cfg.User != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host)
	}
	return &SMTPMailer{
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		auth: auth,
		from: cfg.From,
	}
}

func (m *SMTPMailer) Send(to string, subject string, htmlBody string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n"+
		"MIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s\r\n",
		m.from, to, subject, htmlBody)

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// PasswordResetBody renders the reset mail sent by the forgot-password
// flow. The link is valid for one hour.
func PasswordResetBody(resetURL string) string {
	return fmt.Sprintf(`<p>Click <a href="%s">here</a> to reset your password. Link valid for 1 hour.</p>`, resetURL)
}
