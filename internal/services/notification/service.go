// Package notification renders and sends account emails. Delivery failures
// are logged and counted; they never fail the request that caused them.
package notification

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"freshcart/internal/metrics"

	"go.uber.org/zap"
)

// Data fills a template. Unused fields are ignored.
type Data struct {
	Name    string
	StoreID string
	Link    string
	Code    string
	OTP     string
	At      string
}

type Service interface {
	Notify(ctx context.Context, kind Kind, to string, data Data)
}

type service struct {
	sender  Sender
	timeout time.Duration
	logger  *zap.Logger
}

// NewService creates a new notification service. timeout bounds each send.
func NewService(sender Sender, timeout time.Duration, logger *zap.Logger) Service {
	return &service{sender: sender, timeout: timeout, logger: logger}
}

func (s *service) Notify(ctx context.Context, kind Kind, to string, data Data) {
	if err := s.send(ctx, kind, to, data); err != nil {
		metrics.EmailFailuresTotal.WithLabelValues(string(kind)).Inc()
		s.logger.Error("failed to send email",
			zap.String("kind", string(kind)),
			zap.String("to", to),
			zap.Error(err))
	}
}

func (s *service) send(ctx context.Context, kind Kind, to string, data Data) error {
	if to == "" {
		return errors.New("no recipient")
	}
	tmpl, ok := templates[kind]
	if !ok {
		return fmt.Errorf("unknown email kind %q", kind)
	}

	var body bytes.Buffer
	if err := tmpl.body.Execute(&body, data); err != nil {
		return fmt.Errorf("render %s: %w", kind, err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.sender.Send(ctx, to, tmpl.subject, body.String())
}
