package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/asaneep/send-mail-ses/internal/adapters/email"
	jobstore "github.com/asaneep/send-mail-ses/internal/adapters/storage/job"
	"github.com/asaneep/send-mail-ses/internal/config"
	"github.com/asaneep/send-mail-ses/internal/domain/job"
	"github.com/asaneep/send-mail-ses/internal/domain/message"
	"github.com/asaneep/send-mail-ses/internal/domain/recipient"
)

// queueCapacity bounds how many resends can wait for the worker.
const queueCapacity = 64

// DispatchTask is one queued dispatch request.
type DispatchTask struct {
	ID    string // task id, for tracing
	JobID int64
}

// DispatchQueueDeps contains the dependencies for the queue worker.
type DispatchQueueDeps struct {
	Jobs          jobstore.Store
	ResolveConfig func() (config.Config, error)
	NewSender     func(config.Config) (email.Sender, error)
	Sleep         func(time.Duration) // injectable for tests
}

// DispatchQueue runs queued job dispatches on a single background worker,
// so resends do not block the request that triggered them.
type DispatchQueue struct {
	deps  DispatchQueueDeps
	tasks chan DispatchTask
}

// NewDispatchQueue creates a queue. Run must be started for tasks to be
// processed.
func NewDispatchQueue(deps DispatchQueueDeps) *DispatchQueue {
	return &DispatchQueue{
		deps:  deps,
		tasks: make(chan DispatchTask, queueCapacity),
	}
}

// Enqueue adds a job to the dispatch queue.
// PRE: jobID refers to a pending job row
// POST: Returns the task; blocks only if the queue is full
func (q *DispatchQueue) Enqueue(jobID int64) DispatchTask {
	task := DispatchTask{ID: uuid.NewString(), JobID: jobID}
	q.tasks <- task
	slog.Info("dispatch_task_queued", "task_id", task.ID, "job_id", jobID)
	return task
}

// Run processes tasks until ctx is cancelled. A task that has already
// started is never cancelled mid-dispatch: the worker drains it on a
// detached context so its job still reaches a terminal status.
func (q *DispatchQueue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-q.tasks:
			q.process(context.WithoutCancel(ctx), task)
		}
	}
}

// process dispatches one queued job and records the outcome on its row.
// A job whose recipients cannot be reconstructed is marked failed rather
// than left pending.
func (q *DispatchQueue) process(ctx context.Context, task DispatchTask) {
	j, err := q.deps.Jobs.GetByID(ctx, task.JobID)
	if err != nil {
		slog.Error("dispatch_task_load_failed", "task_id", task.ID, "job_id", task.JobID, "error", err)
		return
	}
	if !j.IsPending() {
		slog.Warn("dispatch_task_not_pending", "task_id", task.ID, "job_id", task.JobID, "status", j.Status)
		return
	}

	recipients, err := recipient.ResolveText(j.Recipients)
	if err != nil {
		// Count-summarized jobs from file uploads cannot be resent; the
		// addresses were never stored.
		slog.Error("dispatch_task_unresolvable", "task_id", task.ID, "job_id", task.JobID, "error", err)
		q.finish(ctx, task, job.StatusError, nil)
		return
	}

	cfg, err := q.deps.ResolveConfig()
	if err != nil {
		slog.Error("dispatch_task_config_failed", "task_id", task.ID, "error", err)
		q.finish(ctx, task, job.StatusError, nil)
		return
	}
	transport, err := q.deps.NewSender(cfg)
	if err != nil {
		slog.Error("dispatch_task_sender_failed", "task_id", task.ID, "error", err)
		q.finish(ctx, task, job.StatusError, nil)
		return
	}

	format := message.FormatText
	if message.LooksHTML(j.Message) {
		format = message.FormatHTML
	}

	details, status := ExecuteDispatch(ctx, DispatchInput{
		Sender:     j.Sender,
		Subject:    j.Subject,
		Message:    j.Message,
		Format:     format,
		Recipients: recipients,
	}, DispatchDeps{
		Transport:           transport,
		BatchSize:           cfg.BatchSize,
		DelayBetweenBatches: cfg.Delay(),
		Sleep:               q.deps.Sleep,
	})
	q.finish(ctx, task, status, details)
}

func (q *DispatchQueue) finish(ctx context.Context, task DispatchTask, status string, details []job.RecipientResult) {
	if err := q.deps.Jobs.UpdateResult(ctx, task.JobID, status, details); err != nil {
		slog.Error("dispatch_task_update_failed", "task_id", task.ID, "job_id", task.JobID, "error", err)
		return
	}
	slog.Info("dispatch_task_done", "task_id", task.ID, "job_id", task.JobID, "status", status)
}
