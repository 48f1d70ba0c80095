package domain

import (
	"context"
	"time"
)

// JobStore persists generation jobs and applies their terminal transition.
type JobStore interface {
	Create(ctx context.Context, job *Job) error
	// Finalize writes the terminal outcome. It is a no-op when the stored job
	// is already terminal and returns ErrNotFound for unknown ids.
	Finalize(ctx context.Context, jobID string, outcome Outcome) error
	Get(ctx context.Context, jobID string) (*Job, error)
	// CountCreatedToday counts the user's jobs created since the start of the
	// current day on the store's clock.
	CountCreatedToday(ctx context.Context, userID string) (int, error)
	// RecordTask stores the provider task id in the job's parameter bag.
	RecordTask(ctx context.Context, jobID, taskID string) error
	List(ctx context.Context, userID string, filter JobFilter) ([]Job, int, error)
	// Recent returns the user's newest jobs.
	Recent(ctx context.Context, userID string, limit int) ([]Job, error)
	// Delete hides one of the user's jobs. It returns ErrNotFound when the
	// job does not exist, belongs to someone else or is already deleted.
	Delete(ctx context.Context, userID, jobID string) error
	// DeleteMany hides the listed jobs owned by the user and reports how
	// many were hidden. Other ids are ignored.
	DeleteMany(ctx context.Context, userID string, jobIDs []string) (int, error)
	// ListProcessing returns jobs still in processing that were created
	// before the cutoff, oldest first. Deleted jobs are included.
	ListProcessing(ctx context.Context, createdBefore time.Time, limit int) ([]Job, error)
}

// TemplateRepository looks up prompt templates.
type TemplateRepository interface {
	GetByID(ctx context.Context, id int64) (*Template, error)
	IncrementUsage(ctx context.Context, id int64) error
}

// StyleRepository looks up art styles.
type StyleRepository interface {
	GetByID(ctx context.Context, id int64) (*Style, error)
}

// OperationLogRepository records user operations.
type OperationLogRepository interface {
	Record(ctx context.Context, entry OperationLog) error
}
