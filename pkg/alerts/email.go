package alerts

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// Dialer sends composed messages. *gomail.Dialer satisfies it.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailNotifier sends notifications as HTML mail over SMTP.
type EmailNotifier struct {
	from   string
	dialer Dialer
}

// NewEmailNotifier creates an SMTP notifier.
func NewEmailNotifier(host string, port int, username, password, from string) *EmailNotifier {
	return NewEmailNotifierWithDialer(from, gomail.NewDialer(host, port, username, password))
}

// NewEmailNotifierWithDialer creates a notifier over an existing dialer.
func NewEmailNotifierWithDialer(from string, d Dialer) *EmailNotifier {
	return &EmailNotifier{from: from, dialer: d}
}

func (e *EmailNotifier) Name() string { return "email" }

func (e *EmailNotifier) Send(ctx context.Context, n Notification) error {
	if n.Recipient == "" {
		return fmt.Errorf("email notification for %q has no recipient", n.Scope)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := RenderHTML(n)
	if err != nil {
		return err
	}

	subject := n.Subject
	if subject == "" {
		subject = DefaultSubject
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", n.Recipient)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := e.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send email to %s: %w", n.Recipient, err)
	}
	return nil
}
