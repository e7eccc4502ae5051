package email

import (
	"context"
	"time"
)

// Attachment is one file attached to an outbound message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// SendRequest contains the data needed to send one email to one recipient.
type SendRequest struct {
	From        string
	To          string
	Subject     string
	HTML        string // HTML body; empty for plain-text sends
	Text        string // plain-text body, or the fallback body when HTML is set
	Attachments []Attachment
}

// SendResult contains the response from the email provider.
type SendResult struct {
	MessageID string    // provider's message id for tracking
	SentAt    time.Time // when the send was accepted
}

// Sender is the interface for sending a single email via an external
// provider. Any transport implementing it is substitutable: the SES client,
// the Resend client, or a test double.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}
