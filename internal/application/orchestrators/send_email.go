package orchestrators

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/asaneep/send-mail-ses/internal/adapters/email"
	jobstore "github.com/asaneep/send-mail-ses/internal/adapters/storage/job"
	"github.com/asaneep/send-mail-ses/internal/domain/job"
	"github.com/asaneep/send-mail-ses/internal/domain/message"
	"github.com/asaneep/send-mail-ses/internal/domain/recipient"
)

// SendEmailInput contains the compose form data for one send.
type SendEmailInput struct {
	Sender        string
	Subject       string
	Message       string
	Format        string    // text, html or markdown
	Recipients    string    // free-text addresses; ignored when RecipientFile is set
	RecipientFile io.Reader // uploaded delimited file, nil when absent
	Attachments   []email.Attachment
}

// SendEmailDeps contains the dependencies for ExecuteSendEmail.
type SendEmailDeps struct {
	Jobs                jobstore.Store
	Transport           email.Sender
	BatchSize           int
	DelayBetweenBatches time.Duration
	Now                 func() time.Time    // injectable for tests
	Sleep               func(time.Duration) // injectable for tests
}

// SendEmailResult is the outcome of a completed send.
type SendEmailResult struct {
	JobID     int64
	Status    string
	Details   []job.RecipientResult
	Successes int
	Failures  int
}

// Message returns the user-facing completion summary.
func (r SendEmailResult) Message() string {
	return fmt.Sprintf("Email sending completed. %d sent successfully, %d failed.", r.Successes, r.Failures)
}

// ExecuteSendEmail validates the input, resolves recipients, records a
// pending job, dispatches in batches and stores the final outcome.
// PRE: deps.Transport is configured for the active provider
// POST: A job row exists with terminal status and per-recipient details
func ExecuteSendEmail(ctx context.Context, input SendEmailInput, deps SendEmailDeps) (SendEmailResult, error) {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	j := job.SendJob{
		CreatedAt: now(),
		Sender:    input.Sender,
		Subject:   input.Subject,
		Message:   input.Message,
		Status:    job.StatusPending,
	}
	if err := j.Validate(); err != nil {
		return SendEmailResult{}, err
	}

	body := input.Message
	format := input.Format
	if format == message.FormatMarkdown {
		rendered, err := message.RenderMarkdown(input.Message)
		if err != nil {
			return SendEmailResult{}, err
		}
		body = rendered
		format = message.FormatHTML
	}

	recipients, summary, err := resolveRecipients(input)
	if err != nil {
		return SendEmailResult{}, err
	}
	if dups := recipient.CountDuplicates(recipients); dups > 0 {
		slog.Info("duplicate_recipients", "count", dups)
	}
	j.Recipients = summary

	id, err := deps.Jobs.Create(ctx, j)
	if err != nil {
		return SendEmailResult{}, fmt.Errorf("record job: %w", err)
	}

	details, status := ExecuteDispatch(ctx, DispatchInput{
		Sender:      input.Sender,
		Subject:     input.Subject,
		Message:     body,
		Format:      format,
		Recipients:  recipients,
		Attachments: input.Attachments,
	}, DispatchDeps{
		Transport:           deps.Transport,
		BatchSize:           deps.BatchSize,
		DelayBetweenBatches: deps.DelayBetweenBatches,
		Sleep:               deps.Sleep,
	})

	if err := deps.Jobs.UpdateResult(ctx, id, status, details); err != nil {
		// The emails went out; surface the result even if history is stale.
		slog.Error("job_update_failed", "job_id", id, "error", err)
	}

	successes, failures := 0, 0
	for _, d := range details {
		if d.Status == job.StatusSuccess {
			successes++
		} else {
			failures++
		}
	}
	return SendEmailResult{
		JobID:     id,
		Status:    status,
		Details:   details,
		Successes: successes,
		Failures:  failures,
	}, nil
}

// resolveRecipients picks the file or the free-text source and builds the
// stored summary: a count for uploads, an address preview for typed input.
func resolveRecipients(input SendEmailInput) ([]recipient.Resolved, string, error) {
	if input.RecipientFile != nil {
		recipients, err := recipient.ResolveCSV(input.RecipientFile)
		if err != nil {
			return nil, "", err
		}
		return recipients, job.SummarizeCount(len(recipients)), nil
	}

	recipients, err := recipient.ResolveText(input.Recipients)
	if err != nil {
		return nil, "", err
	}
	addresses := make([]string, 0, len(recipients))
	for _, r := range recipients {
		addresses = append(addresses, r.Email)
	}
	return recipients, job.SummarizeAddresses(addresses), nil
}
