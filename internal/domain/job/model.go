package job

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Status constants for the send-job lifecycle.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusError   = "error"
)

// ResendSuffix is appended to the subject of a resent job.
const ResendSuffix = " (Resent)"

// previewLimit is how many addresses a free-text recipient summary shows.
const previewLimit = 5

// Domain errors
var (
	ErrNotFound       = errors.New("email not found")
	ErrMissingSender  = errors.New("sender email is required")
	ErrMissingSubject = errors.New("subject is required")
	ErrMissingMessage = errors.New("message is required")
)

// RecipientResult records the outcome of one attempted recipient.
type RecipientResult struct {
	Email     string `json:"email"`
	Status    string `json:"status"`
	Message   string `json:"message"`
	MessageID string `json:"messageId,omitempty"` // provider id, present only on success
}

// SendJob is one dispatch invocation tracked end-to-end.
type SendJob struct {
	ID         int64
	CreatedAt  time.Time
	Sender     string
	Subject    string
	Recipients string // summary: address preview for typed input, count for uploads
	Message    string // the original, non-personalized template
	Status     string
	Details    []RecipientResult
}

// Validate checks the required fields of a job before it is created.
// PRE: SendJob fields are populated from request input
// POST: Returns nil if valid, a domain error otherwise
func (j *SendJob) Validate() error {
	if strings.TrimSpace(j.Sender) == "" {
		return ErrMissingSender
	}
	if strings.TrimSpace(j.Subject) == "" {
		return ErrMissingSubject
	}
	if j.Message == "" {
		return ErrMissingMessage
	}
	return nil
}

// IsPending returns true if the job has not completed dispatch yet.
func (j *SendJob) IsPending() bool {
	return j.Status == StatusPending
}

// StatusFromCounts derives the terminal job status from per-recipient counts.
// PRE: successes+failures equals the number of attempted recipients
// POST: success when nothing failed, error when nothing succeeded, else partial
func StatusFromCounts(successes, failures int) string {
	if failures == 0 {
		return StatusSuccess
	}
	if successes == 0 {
		return StatusError
	}
	return StatusPartial
}

// SummarizeAddresses builds the stored recipient summary for typed input:
// up to five addresses, comma-joined, with an ellipsis marker when truncated.
func SummarizeAddresses(addresses []string) string {
	if len(addresses) <= previewLimit {
		return strings.Join(addresses, ", ")
	}
	return strings.Join(addresses[:previewLimit], ", ") + "..."
}

// SummarizeCount builds the stored recipient summary for uploaded-file input.
// Only the count survives; per-row personalization is not reconstructable.
func SummarizeCount(n int) string {
	return strconv.Itoa(n)
}
