package mock

import (
	"context"
	"log/slog"
	"time"

	"github.com/oakmart/storefront/internal/mailer"
)

// MockMailer is a mailer implementation that logs messages and always succeeds.
// It simulates a 10ms delay to mimic real sending latency.
type MockMailer struct {
	logger *slog.Logger
}

// NewMockMailer creates a new mock mailer.
func NewMockMailer(logger *slog.Logger) *MockMailer {
	return &MockMailer{logger: logger}
}

// Name returns the name of this mailer.
func (m *MockMailer) Name() string {
	return "mock"
}

// Send logs the message details and simulates a 10ms sending delay.
func (m *MockMailer) Send(ctx context.Context, msg *mailer.Message) error {
	// Simulate sending delay.
	time.Sleep(10 * time.Millisecond)

	m.logger.InfoContext(ctx, "mock mailer: message sent",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
	)

	return nil
}
