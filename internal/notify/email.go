package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/wneessen/go-mail"
)

// EmailSender delivers transactional mail. Delivery failures are reported
// to the caller; this package never retries.
type EmailSender interface {
	SendWelcome(ctx context.Context, recipient string, name string) error
}

type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTPSender(host string, port int, username string, password string, from string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (s *SMTPSender) SendWelcome(ctx context.Context, recipient string, name string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(recipient); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject("Welcome")
	msg.SetBodyString(mail.TypeTextHTML, welcomeBody(name))

	opts := []mail.Option{mail.WithPort(s.port)}
	if s.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.username),
			mail.WithPassword(s.password),
		)
	} else {
		// Local dev relay (mailpit and friends): no auth, no TLS.
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	client, err := mail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("create mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send welcome email: %w", err)
	}
	return nil
}

func welcomeBody(name string) string {
	return fmt.Sprintf(
		"<html><body><h1>Welcome, %s!</h1><p>Your account has been created. Sign in and start adding todos.</p></body></html>",
		html.EscapeString(name),
	)
}
