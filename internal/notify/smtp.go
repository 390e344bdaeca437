package notify

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/arzan03/shopfront/internal/config"
	"github.com/arzan03/shopfront/internal/logger"
	"gopkg.in/gomail.v2"
)

// Gateway sends one templated email. It reports whether the message went out and never returns an error.
type Gateway interface {
	Send(ctx context.Context, email string, kind Kind, data Data) bool
}

type SMTPGateway struct {
	cfg    config.SMTPConfig
	log    logger.Logger
	dialer *gomail.Dialer
}

func NewSMTPGateway(cfg config.SMTPConfig, log logger.Logger) *SMTPGateway {
	g := &SMTPGateway{cfg: cfg, log: log}
	if !g.configured() {
		log.Warnf("SMTP is not configured, emails will be skipped")
		return g
	}

	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	switch strings.ToLower(cfg.Encryption) {
	case "ssl":
		dialer.SSL = true
		dialer.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	case "tls", "starttls":
		dialer.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	}
	g.dialer = dialer
	return g
}

func (g *SMTPGateway) configured() bool {
	return g.cfg.Host != "" && g.cfg.Port != 0 && g.cfg.SenderEmail != ""
}

func (g *SMTPGateway) Send(ctx context.Context, email string, kind Kind, data Data) bool {
	if g.dialer == nil {
		g.log.Infof("Email skipped (not configured): %s to %s", kind, email)
		return false
	}

	subject, body, err := Render(kind, data)
	if err != nil {
		g.log.Errorf("Failed to render %s email: %v", kind, err)
		return false
	}

	m := gomail.NewMessage()
	m.SetHeader("From", g.cfg.SenderEmail)
	m.SetHeader("To", email)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	done := make(chan error, 1)
	go func() {
		done <- g.dialer.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		g.log.Warnf("Email %s to %s cancelled or timed out: %v", kind, email, ctx.Err())
		return false
	case err := <-done:
		if err != nil {
			g.log.Errorf("Failed to send %s email to %s: %v", kind, email, err)
			return false
		}
	}

	g.log.Infof("Email %s sent successfully to %s", kind, email)
	return true
}
