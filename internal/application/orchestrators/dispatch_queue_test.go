package orchestrators

import (
	"context"
	"testing"
	"time"

	"github.com/asaneep/send-mail-ses/internal/adapters/email"
	"github.com/asaneep/send-mail-ses/internal/config"
	"github.com/asaneep/send-mail-ses/internal/domain/job"
)

// ctxAwareStore fails writes once the supplied context is cancelled,
// the way a real database driver would.
type ctxAwareStore struct {
	*mockJobStore
}

func (s *ctxAwareStore) UpdateResult(ctx context.Context, id int64, status string, details []job.RecipientResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.mockJobStore.UpdateResult(ctx, id, status, details)
}

func queueTestDeps(store *mockJobStore, sender *mockSender) DispatchQueueDeps {
	return DispatchQueueDeps{
		Jobs: store,
		ResolveConfig: func() (config.Config, error) {
			return config.Config{Provider: config.ProviderNoop, BatchSize: 10}, nil
		},
		NewSender: func(config.Config) (email.Sender, error) { return sender, nil },
		Sleep:     func(time.Duration) {},
	}
}

// TestDispatchQueueProcess verifies a queued job is dispatched to its
// stored recipients and finished with a terminal status.
func TestDispatchQueueProcess(t *testing.T) {
	store := newMockJobStore()
	sender := &mockSender{}
	id, _ := store.Create(context.Background(), job.SendJob{
		CreatedAt:  time.Now(),
		Sender:     "from@example.com",
		Subject:    "Launch (Resent)",
		Recipients: "a@example.com, b@example.com",
		Message:    "Body",
		Status:     job.StatusPending,
	})

	q := NewDispatchQueue(queueTestDeps(store, sender))
	q.process(context.Background(), DispatchTask{ID: "t1", JobID: id})

	if len(sender.requests) != 2 {
		t.Fatalf("expected 2 sends, got %d", len(sender.requests))
	}
	updated := store.jobs[id]
	if updated.Status != job.StatusSuccess {
		t.Errorf("status = %q, want success", updated.Status)
	}
	if len(updated.Details) != 2 {
		t.Errorf("details = %+v", updated.Details)
	}
}

// TestDispatchQueueHTMLDetection verifies stored HTML bodies are resent
// as HTML with a plain-text fallback.
func TestDispatchQueueHTMLDetection(t *testing.T) {
	store := newMockJobStore()
	sender := &mockSender{}
	id, _ := store.Create(context.Background(), job.SendJob{
		CreatedAt:  time.Now(),
		Sender:     "from@example.com",
		Subject:    "s",
		Recipients: "a@example.com",
		Message:    "<html><body><p>Hi</p></body></html>",
		Status:     job.StatusPending,
	})

	q := NewDispatchQueue(queueTestDeps(store, sender))
	q.process(context.Background(), DispatchTask{ID: "t1", JobID: id})

	if sender.requests[0].HTML == "" {
		t.Error("expected HTML body on resend of an HTML message")
	}
	if sender.requests[0].Text == "" {
		t.Error("expected plain-text fallback")
	}
}

// TestDispatchQueueUnresolvableRecipients verifies a count-summarized job
// is marked failed instead of staying pending.
func TestDispatchQueueUnresolvableRecipients(t *testing.T) {
	store := newMockJobStore()
	sender := &mockSender{}
	id, _ := store.Create(context.Background(), job.SendJob{
		CreatedAt:  time.Now(),
		Sender:     "from@example.com",
		Subject:    "s",
		Recipients: "42", // file uploads only store the count
		Message:    "Body",
		Status:     job.StatusPending,
	})

	q := NewDispatchQueue(queueTestDeps(store, sender))
	q.process(context.Background(), DispatchTask{ID: "t1", JobID: id})

	if len(sender.requests) != 0 {
		t.Errorf("expected no sends, got %d", len(sender.requests))
	}
	if store.jobs[id].Status != job.StatusError {
		t.Errorf("status = %q, want error", store.jobs[id].Status)
	}
}

// TestDispatchQueueSkipsCompletedJob verifies a task whose job already
// reached a terminal status is not dispatched again.
func TestDispatchQueueSkipsCompletedJob(t *testing.T) {
	store := newMockJobStore()
	sender := &mockSender{}
	id, _ := store.Create(context.Background(), job.SendJob{
		CreatedAt:  time.Now(),
		Sender:     "from@example.com",
		Subject:    "s",
		Recipients: "a@example.com",
		Message:    "Body",
		Status:     job.StatusSuccess,
	})

	q := NewDispatchQueue(queueTestDeps(store, sender))
	q.process(context.Background(), DispatchTask{ID: "t1", JobID: id})

	if len(sender.requests) != 0 {
		t.Errorf("expected no sends for a finished job, got %d", len(sender.requests))
	}
	if store.status(id) != job.StatusSuccess {
		t.Errorf("status = %q, want untouched success", store.status(id))
	}
}

// TestDispatchQueueShutdownDrainsTask verifies a shutdown signal during
// dispatch does not stop the running task from reaching a terminal
// status.
func TestDispatchQueueShutdownDrainsTask(t *testing.T) {
	store := newMockJobStore()
	sender := &mockSender{}
	id, _ := store.Create(context.Background(), job.SendJob{
		CreatedAt:  time.Now(),
		Sender:     "from@example.com",
		Subject:    "s",
		Recipients: "a@example.com, b@example.com",
		Message:    "Body",
		Status:     job.StatusPending,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sender.onSend = cancel

	deps := queueTestDeps(store, sender)
	deps.Jobs = &ctxAwareStore{mockJobStore: store}
	q := NewDispatchQueue(deps)

	done := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(done)
	}()
	q.Enqueue(id)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after draining the task")
	}

	if len(sender.requests) != 2 {
		t.Errorf("dispatch stopped early: %d sends", len(sender.requests))
	}
	if store.status(id) != job.StatusSuccess {
		t.Errorf("status = %q, want terminal success", store.status(id))
	}
}

// TestDispatchQueueRun verifies the worker drains enqueued tasks until
// cancelled.
func TestDispatchQueueRun(t *testing.T) {
	store := newMockJobStore()
	sender := &mockSender{}
	id, _ := store.Create(context.Background(), job.SendJob{
		CreatedAt:  time.Now(),
		Sender:     "from@example.com",
		Subject:    "s",
		Recipients: "a@example.com",
		Message:    "Body",
		Status:     job.StatusPending,
	})

	q := NewDispatchQueue(queueTestDeps(store, sender))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(done)
	}()

	task := q.Enqueue(id)
	if task.ID == "" {
		t.Error("expected a task id")
	}

	deadline := time.After(2 * time.Second)
	for store.jobLen() == 0 || store.status(id) == job.StatusPending {
		select {
		case <-deadline:
			t.Fatal("worker did not process the task in time")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}
