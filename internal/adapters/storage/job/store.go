// Package job persists email send jobs and their per-recipient results.
package job

import (
	"context"

	"github.com/asaneep/send-mail-ses/internal/application/listutil"
	domain "github.com/asaneep/send-mail-ses/internal/domain/job"
)

// Store persists send jobs.
type Store interface {
	// Create inserts a new job and returns its id.
	Create(ctx context.Context, j domain.SendJob) (int64, error)
	// UpdateResult records the outcome of a dispatched job.
	UpdateResult(ctx context.Context, id int64, status string, details []domain.RecipientResult) error
	// GetByID loads a single job including its details.
	GetByID(ctx context.Context, id int64) (domain.SendJob, error)
	// List returns one page of jobs, newest first, without details.
	List(ctx context.Context, page int) ([]domain.SendJob, listutil.PageInfo, error)
}
