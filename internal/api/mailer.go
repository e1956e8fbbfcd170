package api

import (
	"context"

	"github.com/houseflow/houseflow/internal/logging"
)

// Mailer delivers a login verification code to a user's email address.
// It is an out-of-scope external collaborator — this package only needs
// the interface, plus a stand-in good enough to run the server
// standalone.
type Mailer interface {
	Send(ctx context.Context, email, code string) error
}

// LogMailer satisfies Mailer by logging the code instead of delivering it.
// It exists so the reference binary runs end to end without a real mail
// transport configured; production deployments supply their own Mailer.
type LogMailer struct {
	logger *logging.Logger
}

// NewLogMailer returns a Mailer that logs verification codes.
func NewLogMailer(logger *logging.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs email and code at info level and never fails.
func (m *LogMailer) Send(_ context.Context, email, code string) error {
	m.logger.Info("verification code issued", "email", email, "code", code)
	return nil
}
