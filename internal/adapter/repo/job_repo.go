package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"textvision/internal/domain"
	"textvision/internal/infra"
	"textvision/internal/sqlinline"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// JobRepositoryPG implements domain.JobStore on the generated_contents table.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// Create inserts a new job record in processing state.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	params, err := json.Marshal(job.Params)
	if err != nil {
		return storeErr("marshal params", err)
	}
	row := r.sql.QueryRow(ctx, sqlinline.QInsertGeneratedContent,
		job.ID,
		job.UserID,
		string(job.Modality),
		job.Prompt,
		job.Size,
		job.AspectRatio,
		job.Style,
		job.TemplateID,
		job.ReferenceImage,
		params,
		string(domain.JobStatusProcessing),
	)
	if err := row.Scan(&job.CreatedAt, &job.UpdatedAt); err != nil {
		return storeErr("create job", err)
	}
	job.Status = domain.JobStatusProcessing
	return nil
}

// Finalize applies the terminal outcome once. A job that already left
// processing is left untouched.
func (r *JobRepositoryPG) Finalize(ctx context.Context, jobID string, outcome domain.Outcome) error {
	if !outcome.Status.Terminal() {
		return fmt.Errorf("finalize with non-terminal status %q: %w", outcome.Status, domain.ErrValidation)
	}

	var (
		url, thumb   *string
		urls, thumbs []byte
		errMsg       *string
		err          error
	)
	if outcome.Assets != nil {
		u, t := outcome.Assets.Primary()
		url, thumb = &u, &t
		if multi, ok := outcome.Assets.(domain.MultiAsset); ok {
			if urls, err = json.Marshal(multi.URLs); err != nil {
				return storeErr("marshal urls", err)
			}
			if thumbs, err = json.Marshal(multi.Thumbnails); err != nil {
				return storeErr("marshal thumbnails", err)
			}
		}
	}
	if outcome.Status == domain.JobStatusFailed {
		msg := outcome.Error
		errMsg = &msg
	}

	tag, err := r.sql.Exec(ctx, sqlinline.QFinalizeGeneratedContent,
		jobID,
		string(outcome.Status),
		url,
		thumb,
		urls,
		thumbs,
		errMsg,
	)
	if err != nil {
		return storeErr("finalize job", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.sql.QueryRow(ctx, sqlinline.QGeneratedContentExists, jobID).Scan(&exists); err != nil {
		return storeErr("check job", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return nil
}

// Get fetches a job by its identifier.
func (r *JobRepositoryPG) Get(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := scanJob(r.sql.QueryRow(ctx, sqlinline.QSelectGeneratedContent, jobID))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, storeErr("get job", err)
	}
	return job, nil
}

// CountCreatedToday counts the user's jobs since midnight on the database clock.
func (r *JobRepositoryPG) CountCreatedToday(ctx context.Context, userID string) (int, error) {
	var count int
	if err := r.sql.QueryRow(ctx, sqlinline.QCountGeneratedContentToday, userID).Scan(&count); err != nil {
		return 0, storeErr("count jobs", err)
	}
	return count, nil
}

// RecordTask merges the provider task id into the job's parameters.
func (r *JobRepositoryPG) RecordTask(ctx context.Context, jobID, taskID string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QRecordGenerationTask, jobID, taskID)
	if err != nil {
		return storeErr("record task", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns one page of the user's jobs, newest first, and the total count.
func (r *JobRepositoryPG) List(ctx context.Context, userID string, filter domain.JobFilter) ([]domain.Job, int, error) {
	page, size := normalizePage(filter.Page, filter.Size)
	modality, status := string(filter.Modality), string(filter.Status)

	var total int
	if err := r.sql.QueryRow(ctx, sqlinline.QCountGeneratedContents, userID, modality, status).Scan(&total); err != nil {
		return nil, 0, storeErr("count jobs", err)
	}

	rows, err := r.sql.Query(ctx, sqlinline.QListGeneratedContents, userID, modality, status, size, (page-1)*size)
	if err != nil {
		return nil, 0, storeErr("list jobs", err)
	}
	jobs, err := collectJobs(rows, size)
	if err != nil {
		return nil, 0, storeErr("list jobs", err)
	}
	return jobs, total, nil
}

// Recent returns up to limit of the user's newest jobs.
func (r *JobRepositoryPG) Recent(ctx context.Context, userID string, limit int) ([]domain.Job, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QRecentGeneratedContents, userID, limit)
	if err != nil {
		return nil, storeErr("recent jobs", err)
	}
	jobs, err := collectJobs(rows, limit)
	if err != nil {
		return nil, storeErr("recent jobs", err)
	}
	return jobs, nil
}

// Delete soft-deletes one job owned by userID.
func (r *JobRepositoryPG) Delete(ctx context.Context, userID, jobID string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QSoftDeleteGeneratedContent, jobID, userID)
	if err != nil {
		return storeErr("delete job", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteMany soft-deletes the listed jobs owned by userID.
func (r *JobRepositoryPG) DeleteMany(ctx context.Context, userID string, jobIDs []string) (int, error) {
	if len(jobIDs) == 0 {
		return 0, nil
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QSoftDeleteGeneratedContents, userID, jobIDs)
	if err != nil {
		return 0, storeErr("delete jobs", err)
	}
	return int(tag.RowsAffected()), nil
}

// ListProcessing returns processing jobs created before the cutoff, oldest first.
func (r *JobRepositoryPG) ListProcessing(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Job, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QSelectProcessingGeneratedContents, createdBefore, limit)
	if err != nil {
		return nil, storeErr("list processing jobs", err)
	}
	jobs, err := collectJobs(rows, limit)
	if err != nil {
		return nil, storeErr("list processing jobs", err)
	}
	return jobs, nil
}

func collectJobs(rows pgx.Rows, capacity int) ([]domain.Job, error) {
	defer rows.Close()
	if capacity < 0 {
		capacity = 0
	}
	jobs := make([]domain.Job, 0, capacity)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job                  domain.Job
		modality, status     string
		params, urls, thumbs []byte
	)
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&modality,
		&job.Prompt,
		&job.Size,
		&job.AspectRatio,
		&job.Style,
		&job.TemplateID,
		&job.ReferenceImage,
		&params,
		&job.URL,
		&job.Thumbnail,
		&urls,
		&thumbs,
		&status,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	job.Modality = domain.Modality(modality)
	job.Status = domain.JobStatus(status)

	if len(params) > 0 {
		if err := json.Unmarshal(params, &job.Params); err != nil {
			return nil, fmt.Errorf("decode params: %w", err)
		}
	}
	if len(urls) > 0 {
		if err := json.Unmarshal(urls, &job.URLs); err != nil {
			return nil, fmt.Errorf("decode urls: %w", err)
		}
	}
	if len(thumbs) > 0 {
		if err := json.Unmarshal(thumbs, &job.Thumbnails); err != nil {
			return nil, fmt.Errorf("decode thumbnails: %w", err)
		}
	}
	return &job, nil
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrInternalStore, err)
}

var _ domain.JobStore = (*JobRepositoryPG)(nil)
