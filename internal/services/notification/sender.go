package notification

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"

	"freshcart/internal/config"

	"github.com/knadh/smtppool"
)

// Sender delivers one HTML email.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// SMTPSender sends through a pooled SMTP connection.
type SMTPSender struct {
	pool *smtppool.Pool
	from string
}

func NewSMTPSender(cfg config.SMTPConfig) (*SMTPSender, error) {
	var auth smtp.Auth
	if cfg.Username != "" || cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	pool, err := smtppool.New(smtppool.Opt{
		Host:            cfg.Host,
		Port:            cfg.Port,
		MaxConns:        cfg.Connections,
		IdleTimeout:     cfg.SendTimeout,
		PoolWaitTimeout: cfg.SendTimeout,
		TLSConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
			ServerName:         cfg.Host,
		},
		Auth: auth,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp pool: %w", err)
	}
	return &SMTPSender{pool: pool, from: cfg.From}, nil
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.pool.Send(smtppool.Email{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		HTML:    []byte(html),
	})
}

func (s *SMTPSender) Close() {
	s.pool.Close()
}
