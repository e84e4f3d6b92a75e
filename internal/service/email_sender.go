package service

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/accountd/internal/config"
	appErr "github.com/xxxsen/accountd/internal/pkg/errors"
)

type EmailSender interface {
	Send(to, subject, body string) error
}

// NewEmailSender returns an SMTP sender, or a sender that only writes the
// message to the log when no mail host is configured.
func NewEmailSender(cfg config.MailConfig) EmailSender {
	if strings.TrimSpace(cfg.Host) == "" {
		return logSender{}
	}
	return &smtpSender{cfg: cfg}
}

type smtpSender struct {
	cfg config.MailConfig
}

func (s *smtpSender) Send(to, subject, body string) error {
	from := strings.TrimSpace(s.cfg.From)
	if s.cfg.Host == "" || s.cfg.Port == 0 || from == "" {
		return appErr.ErrInvalid
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	msg := []byte("From: " + from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" + body)
	return smtp.SendMail(addr, auth, from, []string{to}, msg)
}

type logSender struct{}

func (logSender) Send(to, subject, body string) error {
	logutil.GetLogger(context.Background()).Warn("mail delivery not configured, message logged instead",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}
