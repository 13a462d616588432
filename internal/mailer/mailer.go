// Package mailer defines the outbound email interface used for
// transactional mail such as welcome and password reset messages.
package mailer

import "context"

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer defines the interface for sending email through a specific transport.
type Mailer interface {
	Name() string
	Send(ctx context.Context, msg *Message) error
}
