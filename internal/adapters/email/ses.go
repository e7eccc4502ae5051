package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"
)

// SESSender sends emails via Amazon SES v2 using raw MIME messages, so
// attachments and alternative bodies ride in a single SendEmail call.
type SESSender struct {
	client *sesv2.Client
}

// NewSESSender creates an SES sender with static credentials.
// PRE: region, accessKey and secretKey come from resolved configuration
// POST: Returns a ready-to-use sender
func NewSESSender(region, accessKey, secretKey string) *SESSender {
	cfg := aws.Config{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
	}
	return &SESSender{client: sesv2.NewFromConfig(cfg)}
}

// Send delivers a single email through SES.
// PRE: req has a sender, one recipient, and a subject
// POST: Returns the SES message id, or an error carrying the provider's text
func (s *SESSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	raw, err := BuildRawMessage(req)
	if err != nil {
		return SendResult{}, fmt.Errorf("build mime message: %w", err)
	}

	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		Content: &types.EmailContent{
			Raw: &types.RawMessage{Data: raw},
		},
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			slog.Error("ses_send_failed", "to", req.To, "code", apiErr.ErrorCode(), "error", apiErr.ErrorMessage())
			return SendResult{}, fmt.Errorf("AWS Error: %s", apiErr.ErrorMessage())
		}
		slog.Error("ses_send_failed", "to", req.To, "error", err)
		return SendResult{}, fmt.Errorf("ses send failed: %w", err)
	}

	slog.Info("ses_sent", "message_id", aws.ToString(out.MessageId), "to", req.To, "subject", req.Subject)
	return SendResult{
		MessageID: aws.ToString(out.MessageId),
		SentAt:    time.Now(),
	}, nil
}
