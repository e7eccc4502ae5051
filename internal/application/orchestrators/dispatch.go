// Package orchestrators coordinates the business flows of the service.
package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"github.com/asaneep/send-mail-ses/internal/adapters/email"
	"github.com/asaneep/send-mail-ses/internal/domain/job"
	"github.com/asaneep/send-mail-ses/internal/domain/message"
	"github.com/asaneep/send-mail-ses/internal/domain/recipient"
)

// successMessage is the per-recipient detail text recorded on success.
const successMessage = "Email sent successfully"

// DispatchInput contains the data for one dispatch run.
type DispatchInput struct {
	Sender      string
	Subject     string
	Message     string // template body; HTML when Format is html
	Format      string // message.FormatText or message.FormatHTML
	Recipients  []recipient.Resolved
	Attachments []email.Attachment
}

// DispatchDeps contains the dependencies for ExecuteDispatch.
type DispatchDeps struct {
	Transport           email.Sender
	BatchSize           int
	DelayBetweenBatches time.Duration
	Sleep               func(time.Duration) // injectable for tests
}

// ExecuteDispatch sends the message to every recipient in fixed-size
// batches, pausing between batches. Each recipient gets a personalized
// copy. The run never aborts early: a failed send is recorded and the
// remaining recipients are still attempted.
// PRE: input.Recipients is non-empty, deps.BatchSize >= 1
// POST: Returns one result per recipient, in input order, plus the
// aggregate job status
func ExecuteDispatch(ctx context.Context, input DispatchInput, deps DispatchDeps) ([]job.RecipientResult, string) {
	sleep := deps.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	total := len(input.Recipients)
	results := make([]job.RecipientResult, 0, total)
	successes, failures := 0, 0

	for start := 0; start < total; start += deps.BatchSize {
		end := min(start+deps.BatchSize, total)
		slog.Info("dispatch_batch_start", "from", start, "to", end, "total", total)

		for _, rcpt := range input.Recipients[start:end] {
			res := sendOne(ctx, input, deps.Transport, rcpt)
			if res.Status == job.StatusSuccess {
				successes++
			} else {
				failures++
			}
			results = append(results, res)
		}

		if end < total && deps.DelayBetweenBatches > 0 {
			sleep(deps.DelayBetweenBatches)
		}
	}

	status := job.StatusFromCounts(successes, failures)
	slog.Info("dispatch_done", "status", status, "successes", successes, "failures", failures)
	return results, status
}

// sendOne personalizes and sends the message to a single recipient.
func sendOne(ctx context.Context, input DispatchInput, transport email.Sender, rcpt recipient.Resolved) job.RecipientResult {
	body := message.Personalize(input.Message, rcpt.Email, rcpt.Fields)

	req := email.SendRequest{
		From:        input.Sender,
		To:          rcpt.Email,
		Subject:     input.Subject,
		Attachments: input.Attachments,
	}
	if input.Format == message.FormatHTML {
		req.HTML = body
		req.Text = message.PlainTextFallback(body)
	} else {
		req.Text = body
	}

	sent, err := transport.Send(ctx, req)
	if err != nil {
		slog.Error("dispatch_send_failed", "to", rcpt.Email, "error", err)
		return job.RecipientResult{
			Email:   rcpt.Email,
			Status:  job.StatusError,
			Message: err.Error(),
		}
	}

	return job.RecipientResult{
		Email:     rcpt.Email,
		Status:    job.StatusSuccess,
		Message:   successMessage,
		MessageID: sent.MessageID,
	}
}
