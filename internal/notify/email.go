package notify

import (
	"context"

	"gopkg.in/gomail.v2"

	"github.com/smartride/safety-alerts/internal/config"
)

// GomailSender delivers alert e-mails over SMTP. A fresh dial per send keeps
// the sender stateless; alert volume does not justify a pooled connection.
type GomailSender struct {
	cfg config.SMTPConfig
}

func NewGomailSender(cfg config.SMTPConfig) *GomailSender {
	return &GomailSender{cfg: cfg}
}

func (s *GomailSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	var d *gomail.Dialer
	if s.cfg.Username == "" {
		d = &gomail.Dialer{Host: s.cfg.Host, Port: s.cfg.Port}
	} else {
		d = gomail.NewPlainDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	}

	// gomail's dialer is not context-aware; race the send against the
	// deadline so a stuck SMTP server cannot hold up the fan-out.
	done := make(chan error, 1)
	go func() {
		done <- d.DialAndSend(m)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
