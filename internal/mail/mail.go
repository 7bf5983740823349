package mail

import (
	"context"

	"go.uber.org/zap"
)

type Address struct {
	Email string
	Name  string
}

type Attachment struct {
	Name    string
	Content []byte
}

type Message struct {
	To          Address
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Mailer delivers transactional email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New returns a Brevo-backed mailer, or a Nop mailer when apiKey is empty.
func New(baseURL, apiKey string, sender Address, log *zap.Logger) Mailer {
	if apiKey == "" {
		return Nop{Log: log}
	}
	return NewBrevoClient(baseURL, apiKey, sender)
}

// Nop drops every message. It stands in when no provider is configured.
type Nop struct {
	Log *zap.Logger
}

func (n Nop) Send(_ context.Context, msg Message) error {
	if n.Log != nil {
		n.Log.Info("mail delivery disabled, message dropped",
			zap.String("to", msg.To.Email),
			zap.String("subject", msg.Subject),
		)
	}
	return nil
}
