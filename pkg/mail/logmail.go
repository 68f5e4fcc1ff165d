package mail

import (
	"context"

	"github.com/google/uuid"

	"agentdesk/pkg/logger"
)

// LogTransport is the development transport: it logs instead of sending.
// Used automatically when no SMTP host is configured.
type LogTransport struct{}

func (LogTransport) Send(_ context.Context, to, subject, text string) (Receipt, error) {
	id := uuid.NewString()
	logger.Info("mail_logged_not_sent", "to", to, "subject", subject, "bytes", len(text), "message_id", id)
	return Receipt{Status: "sent", Provider: "log", ProviderMessageID: id}, nil
}
