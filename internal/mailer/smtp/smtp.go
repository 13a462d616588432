// Package smtp sends email over plain SMTP with optional auth.
package smtp

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/oakmart/storefront/internal/mailer"
)

// Mailer sends email through an SMTP relay.
type Mailer struct {
	addr string
	auth smtp.Auth
	from string
}

// New creates an SMTP mailer. Auth is skipped when username is empty.
func New(host string, port int, username, password, from string) *Mailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	return &Mailer{
		addr: fmt.Sprintf("%s:%d", host, port),
		auth: auth,
		from: from,
	}
}

// Name returns the name of this mailer.
func (m *Mailer) Name() string {
	return "smtp"
}

// Send delivers the message through the configured relay.
func (m *Mailer) Send(ctx context.Context, msg *mailer.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{msg.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}

	return nil
}
