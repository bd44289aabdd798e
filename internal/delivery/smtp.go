// Package delivery sends assembled replies out through SMTP.
package delivery

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/TekupDK/tekup-sub017/internal/pipeline"
	"github.com/TekupDK/tekup-sub017/platform/logger"
)

// SMTPDeliverer sends pipeline replies over a direct SMTP connection via
// go-mail. It implements pipeline.Deliverer.
type SMTPDeliverer struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
	log       *logger.Logger
}

func NewSMTPDeliverer(host string, port int, username, password, fromEmail, fromName string, log *logger.Logger) *SMTPDeliverer {
	return &SMTPDeliverer{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
		log:       log,
	}
}

// Deliver sends one reply. Thread-bound replies reuse the original subject so
// mail clients keep the conversation together; the other modes open a fresh
// email to the customer address routed by policy.
func (s *SMTPDeliverer) Deliver(ctx context.Context, delivery pipeline.Delivery) error {
	to := delivery.To
	if to == "" {
		return fmt.Errorf("delivery for thread %s has no recipient", delivery.ThreadID)
	}

	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(delivery.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, delivery.Body)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		s.log.MailError("send reply", err)
		return fmt.Errorf("smtp send: %w", err)
	}

	s.log.Info("reply delivered", "thread_id", delivery.ThreadID, "mode", string(delivery.Mode), "to", to)
	return nil
}
