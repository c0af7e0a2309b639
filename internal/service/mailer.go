package service

import (
	"fmt"
	"net/smtp"

	"mytestbuddies_backend/internal/config"
	"mytestbuddies_backend/pkg/logger"

	"go.uber.org/zap"
)

type Mailer interface {
	Send(to, subject, body string) error
}

type SMTPMailer struct {
	Cfg *config.SMTPConfig
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.Cfg.Host, m.Cfg.Port)
	auth := smtp.PlainAuth("", m.Cfg.Username, m.Cfg.Password, m.Cfg.Host)

	msg := []byte("From: " + m.Cfg.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" +
		body + "\r\n")

	return smtp.SendMail(addr, auth, m.Cfg.From, []string{to}, msg)
}

// LogMailer is the dev fallback when SMTP isn't configured.
type LogMailer struct{}

func (m *LogMailer) Send(to, subject, body string) error {
	logger.Log.Info("mail (not sent, SMTP unconfigured)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}

func NewMailer(cfg *config.Config) Mailer {
	if cfg.SMTP.Host == "" {
		return &LogMailer{}
	}
	return &SMTPMailer{Cfg: &cfg.SMTP}
}
