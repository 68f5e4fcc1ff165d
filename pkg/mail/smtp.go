package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/google/uuid"
)

// SMTPTransport sends through a plain SMTP relay with optional AUTH.
type SMTPTransport struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

func (t *SMTPTransport) addr() string {
	port := t.Port
	if port == 0 {
		port = 587
	}
	return fmt.Sprintf("%s:%d", t.Host, port)
}

func (t *SMTPTransport) Send(ctx context.Context, to, subject, text string) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{Status: "failed", Provider: "smtp", Error: err.Error()}, err
	}
	msgID := uuid.NewString()
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", t.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Message-ID: <%s@agentdesk>\r\n", msgID)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(text)

	var auth smtp.Auth
	if t.Username != "" {
		auth = smtp.PlainAuth("", t.Username, t.Password, t.Host)
	}
	if err := smtp.SendMail(t.addr(), auth, t.From, []string{to}, []byte(b.String())); err != nil {
		return Receipt{Status: "failed", Provider: "smtp", Error: err.Error()}, err
	}
	return Receipt{Status: "sent", Provider: "smtp", ProviderMessageID: msgID}, nil
}
