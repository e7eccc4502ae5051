package orchestrators

import (
	"context"
	"fmt"
	"time"

	jobstore "github.com/asaneep/send-mail-ses/internal/adapters/storage/job"
	"github.com/asaneep/send-mail-ses/internal/domain/job"
)

// ResendMessage is the user-facing acknowledgement for a queued resend.
const ResendMessage = "Email has been queued for resending"

// Enqueuer accepts jobs for background dispatch.
type Enqueuer interface {
	Enqueue(jobID int64) DispatchTask
}

// ResendEmailInput identifies the job to resend.
type ResendEmailInput struct {
	JobID int64
}

// ResendEmailDeps contains the dependencies for ExecuteResendEmail.
type ResendEmailDeps struct {
	Jobs  jobstore.Store
	Queue Enqueuer
	Now   func() time.Time // injectable for tests
}

// ResendEmailResult identifies the new pending job and its queue task.
type ResendEmailResult struct {
	JobID  int64
	TaskID string
}

// ExecuteResendEmail clones a historical job into a new pending one and
// hands it to the dispatch queue. The clone keeps the original sender,
// recipients and message verbatim; only the subject gains a resent marker.
// PRE: input.JobID refers to an existing job
// POST: A new pending job exists and a dispatch task is queued for it;
// job.ErrNotFound when the original does not exist
func ExecuteResendEmail(ctx context.Context, input ResendEmailInput, deps ResendEmailDeps) (ResendEmailResult, error) {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	original, err := deps.Jobs.GetByID(ctx, input.JobID)
	if err != nil {
		return ResendEmailResult{}, err
	}

	clone := job.SendJob{
		CreatedAt:  now(),
		Sender:     original.Sender,
		Subject:    original.Subject + job.ResendSuffix,
		Recipients: original.Recipients,
		Message:    original.Message,
		Status:     job.StatusPending,
	}
	id, err := deps.Jobs.Create(ctx, clone)
	if err != nil {
		return ResendEmailResult{}, fmt.Errorf("record resend job: %w", err)
	}

	task := deps.Queue.Enqueue(id)
	return ResendEmailResult{JobID: id, TaskID: task.ID}, nil
}
