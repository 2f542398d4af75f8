// Package mailer sends HTML mail over SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"
)

type (
	// Server describes one SMTP endpoint and its credentials.
	Server struct {
		Host     string
		Port     int
		Username string
		Password string
		// TLS requires STARTTLS; otherwise it is used opportunistically.
		TLS     bool
		Timeout time.Duration
	}

	// Message is an HTML mail with a derived plain text alternative.
	Message struct {
		From    string
		To      []string
		Subject string
		HTML    string
	}

	// Sender delivers messages through a server.
	Sender interface {
		Send(ctx context.Context, server Server, msgs ...Message) error
	}

	// SMTP is the go-mail backed Sender.
	SMTP struct{}
)

var tags = regexp.MustCompile(`<[^>]*>`)

func (SMTP) Send(ctx context.Context, server Server, msgs ...Message) error {
	if server.Host == "" {
		return errors.New("mailer: smtp host is required")
	}
	built := make([]*gomail.Msg, 0, len(msgs))
	for _, m := range msgs {
		msg, err := build(m)
		if err != nil {
			return err
		}
		built = append(built, msg)
	}

	opts := []gomail.Option{
		gomail.WithPort(server.Port),
		gomail.WithTimeout(timeout(server.Timeout)),
	}
	if server.TLS {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}
	if server.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(server.Username),
			gomail.WithPassword(server.Password),
		)
	}
	client, err := gomail.NewClient(server.Host, opts...)
	if err != nil {
		return fmt.Errorf("mailer: create client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, built...); err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	return nil
}

func build(m Message) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(m.From); err != nil {
		return nil, fmt.Errorf("mailer: invalid sender %q: %w", m.From, err)
	}
	if len(m.To) == 0 {
		return nil, errors.New("mailer: no recipients")
	}
	if err := msg.To(m.To...); err != nil {
		return nil, fmt.Errorf("mailer: invalid recipients: %w", err)
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, PlainText(m.HTML))
	msg.AddAlternativeString(gomail.TypeTextHTML, m.HTML)
	return msg, nil
}

// PlainText strips tags from an HTML fragment.
func PlainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(tags.ReplaceAllString(s, "")))
}

func timeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}

var _ Sender = SMTP{}
