package job

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/asaneep/send-mail-ses/internal/adapters/storage"
	"github.com/asaneep/send-mail-ses/internal/application/listutil"
	domain "github.com/asaneep/send-mail-ses/internal/domain/job"
)

// dateLayout is the canonical timestamp format stored in the database.
const dateLayout = "2006-01-02T15:04:05Z07:00"

// SQLiteStore implements Store backed by SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a store on top of an initialized database.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Create inserts a new job.
// PRE: j has passed Validate
// POST: Returns the autoincrement id of the inserted row
func (s *SQLiteStore) Create(ctx context.Context, j domain.SendJob) (int64, error) {
	details, err := marshalDetails(j.Details)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO email_history (date, sender, subject, recipients, message, status, details)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		j.CreatedAt.Format(dateLayout), j.Sender, j.Subject, j.Recipients, j.Message, j.Status, details)
	if err != nil {
		return 0, fmt.Errorf("insert job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert job id: %w", err)
	}
	return id, nil
}

// UpdateResult records the outcome of a dispatched job.
// PRE: id refers to an existing job
// POST: status and details are replaced; ErrNotFound if the id is unknown
func (s *SQLiteStore) UpdateResult(ctx context.Context, id int64, status string, details []domain.RecipientResult) error {
	encoded, err := marshalDetails(details)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE email_history SET status = ?, details = ? WHERE id = ?`,
		status, encoded, id)
	if err != nil {
		return fmt.Errorf("update job %d: %w", id, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job %d: %w", id, err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID loads a single job with its details.
// POST: Returns ErrNotFound when no row matches
func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (domain.SendJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, date, sender, subject, recipients, message, status, details
		 FROM email_history WHERE id = ?`, id)

	var j domain.SendJob
	var date, details string
	err := row.Scan(&j.ID, &date, &j.Sender, &j.Subject, &j.Recipients, &j.Message, &j.Status, &details)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SendJob{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.SendJob{}, fmt.Errorf("load job %d: %w", id, err)
	}
	if j.CreatedAt, err = time.Parse(dateLayout, date); err != nil {
		return domain.SendJob{}, fmt.Errorf("parse job %d date: %w", id, err)
	}
	if details != "" {
		if err := json.Unmarshal([]byte(details), &j.Details); err != nil {
			return domain.SendJob{}, fmt.Errorf("decode job %d details: %w", id, err)
		}
	}
	return j, nil
}

// List returns one page of jobs, newest first. Details are omitted
// because the listing view does not show them.
func (s *SQLiteStore) List(ctx context.Context, page int) ([]domain.SendJob, listutil.PageInfo, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM email_history`).Scan(&total); err != nil {
		return nil, listutil.PageInfo{}, fmt.Errorf("count jobs: %w", err)
	}
	info := listutil.NewPageInfo(page, listutil.PerPage, total)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, date, sender, subject, recipients, message, status
		 FROM email_history ORDER BY date DESC, id DESC LIMIT ? OFFSET ?`,
		info.PerPage, info.Offset())
	if err != nil {
		return nil, listutil.PageInfo{}, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []domain.SendJob{}
	for rows.Next() {
		var j domain.SendJob
		var date string
		if err := rows.Scan(&j.ID, &date, &j.Sender, &j.Subject, &j.Recipients, &j.Message, &j.Status); err != nil {
			return nil, listutil.PageInfo{}, fmt.Errorf("scan job: %w", err)
		}
		if j.CreatedAt, err = time.Parse(dateLayout, date); err != nil {
			return nil, listutil.PageInfo{}, fmt.Errorf("parse job %d date: %w", j.ID, err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, listutil.PageInfo{}, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, info, nil
}

// marshalDetails encodes recipient results as JSON text, never null.
func marshalDetails(details []domain.RecipientResult) (string, error) {
	if details == nil {
		return "[]", nil
	}
	encoded, err := json.Marshal(details)
	if err != nil {
		return "", fmt.Errorf("encode details: %w", err)
	}
	return string(encoded), nil
}
