package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"textvision/internal/domain"
	"textvision/internal/infra"
	"textvision/internal/infra/metrics"
)

const (
	DefaultPollInterval = 10 * time.Second
	DefaultMaxPolls     = 60

	// DrainTimeout bounds how long a canceled dispatch needs to write its
	// terminal state.
	DrainTimeout = finalizeTimeout + 5*time.Second

	DefaultRecentLimit = 10
	MaxRecentLimit     = 50
	MaxBatchDelete     = 100

	finalizeTimeout = 10 * time.Second
	resumeBatch     = 200

	opGenerate    = "generate_content"
	opDelete      = "delete_content"
	opBatchDelete = "batch_delete_content"
)

// AssetWriter stores inline provider output and returns its public URL.
type AssetWriter interface {
	SaveAsset(ctx context.Context, jobID string, data []byte) (string, error)
}

// Spawner hands a job's dispatch to a background worker. TryGo only starts
// the task when no other worker owns key.
type Spawner interface {
	Go(key string, task func(ctx context.Context))
	TryGo(ctx context.Context, key string, task func(ctx context.Context)) (bool, error)
}

// ClientInfo describes the caller for the operation log.
type ClientInfo struct {
	IP        string
	Country   string
	UserAgent string
}

type clientInfoKey struct{}

// WithClientInfo attaches caller details to ctx for Submit.
func WithClientInfo(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, info)
}

// ClientInfoFrom returns the caller details attached by WithClientInfo.
func ClientInfoFrom(ctx context.Context) ClientInfo {
	info, _ := ctx.Value(clientInfoKey{}).(ClientInfo)
	return info
}

// Options configures an Orchestrator. Zero durations and counts fall back to
// 10s x 60 polls and a limit of 100 jobs a day.
type Options struct {
	Jobs         domain.JobStore
	Templates    domain.TemplateRepository
	Styles       domain.StyleRepository
	OperationLog domain.OperationLogRepository
	Provider     Provider
	Assets       AssetWriter
	Spawner      Spawner
	Logger       infra.Logger
	DailyLimit   int
	PollInterval time.Duration
	MaxPolls     int
	NewID        func() string
}

// Orchestrator drives a job from submission to its single terminal write.
type Orchestrator struct {
	jobs         domain.JobStore
	templates    domain.TemplateRepository
	oplog        domain.OperationLogRepository
	provider     Provider
	assets       AssetWriter
	spawner      Spawner
	quota        *QuotaGuard
	resolver     *PromptResolver
	validate     *validator.Validate
	logger       infra.Logger
	pollInterval time.Duration
	maxPolls     int
	newID        func() string
}

func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Jobs == nil || opts.Templates == nil || opts.Styles == nil {
		return nil, errors.New("generation: job, template and style stores are required")
	}
	if opts.Provider == nil {
		return nil, errors.New("generation: provider is required")
	}
	if opts.Spawner == nil {
		return nil, errors.New("generation: spawner is required")
	}
	o := &Orchestrator{
		jobs:         opts.Jobs,
		templates:    opts.Templates,
		oplog:        opts.OperationLog,
		provider:     opts.Provider,
		assets:       opts.Assets,
		spawner:      opts.Spawner,
		quota:        NewQuotaGuard(opts.Jobs, opts.DailyLimit),
		resolver:     NewPromptResolver(opts.Templates, opts.Styles),
		validate:     newValidator(),
		logger:       opts.Logger,
		pollInterval: opts.PollInterval,
		maxPolls:     opts.MaxPolls,
		newID:        opts.NewID,
	}
	if o.pollInterval <= 0 {
		o.pollInterval = DefaultPollInterval
	}
	if o.maxPolls <= 0 {
		o.maxPolls = DefaultMaxPolls
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	return o, nil
}

// Submit admits, resolves and persists a job, then hands it to the
// dispatcher. It returns as soon as the processing record exists.
func (o *Orchestrator) Submit(ctx context.Context, userID string, req SubmitRequest) (*domain.Job, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrUnauthorized
	}
	if err := o.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	modality := domain.Modality(req.Type)

	decision, err := o.quota.CheckAndAdmit(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		metrics.QuotaDenied()
		return nil, fmt.Errorf("%w: %d of %d used today", domain.ErrQuotaExceeded, decision.Used, decision.Limit)
	}

	res, err := o.resolver.Resolve(ctx, PromptInput{
		Prompt:     req.Prompt,
		Style:      req.Style,
		StyleID:    req.StyleID,
		TemplateID: req.TemplateID,
	})
	if err != nil {
		return nil, err
	}

	job := domain.Job{
		ID:             o.newID(),
		UserID:         userID,
		Modality:       modality,
		Prompt:         res.Prompt,
		Size:           strings.TrimSpace(req.Size),
		AspectRatio:    aspectRatioFor(modality, req),
		Style:          res.StyleLabel,
		TemplateID:     req.TemplateID,
		ReferenceImage: req.ReferenceImage,
		Params:         paramsFor(modality, req),
		Status:         domain.JobStatusProcessing,
	}
	if err := o.jobs.Create(ctx, &job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	log := o.logger.With().Str("job_id", job.ID).Str("user_id", userID).Str("modality", string(modality)).Logger()

	if res.Template != nil {
		if err := o.templates.IncrementUsage(ctx, res.Template.ID); err != nil {
			log.Warn().Err(err).Int64("template_id", res.Template.ID).Msg("increment template usage")
		}
	}
	o.recordOperation(ctx, job, log)

	metrics.JobSubmitted(string(modality))
	snapshot := job
	o.spawner.Go(job.ID, func(ctx context.Context) {
		o.Dispatch(ctx, snapshot)
	})
	log.Info().Msg("generation job accepted")
	return &job, nil
}

// GetJob returns the caller's job. Jobs owned by someone else are reported
// as not found.
func (o *Orchestrator) GetJob(ctx context.Context, userID, jobID string) (*domain.Job, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, domain.ErrNotFound
	}
	job, err := o.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

// List pages through the caller's jobs.
func (o *Orchestrator) List(ctx context.Context, userID string, filter domain.JobFilter) ([]domain.Job, int, error) {
	if filter.Modality != "" && !filter.Modality.Valid() {
		return nil, 0, fmt.Errorf("%w: type must be image or video", domain.ErrValidation)
	}
	switch filter.Status {
	case "", domain.JobStatusProcessing, domain.JobStatusCompleted, domain.JobStatusFailed:
	default:
		return nil, 0, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, filter.Status)
	}
	return o.jobs.List(ctx, userID, filter)
}

// Quota reports the caller's usage for today.
func (o *Orchestrator) Quota(ctx context.Context, userID string) (AdmitDecision, error) {
	return o.quota.CheckAndAdmit(ctx, userID)
}

// Recent returns the caller's newest jobs. A non-positive limit means
// DefaultRecentLimit; larger limits are capped at MaxRecentLimit.
func (o *Orchestrator) Recent(ctx context.Context, userID string, limit int) ([]domain.Job, error) {
	switch {
	case limit <= 0:
		limit = DefaultRecentLimit
	case limit > MaxRecentLimit:
		limit = MaxRecentLimit
	}
	return o.jobs.Recent(ctx, userID, limit)
}

// Delete hides one of the caller's jobs. Unknown and foreign ids are
// reported as not found. A job still processing keeps running and is
// finalized as usual.
func (o *Orchestrator) Delete(ctx context.Context, userID, jobID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.ErrUnauthorized
	}
	if _, err := uuid.Parse(jobID); err != nil {
		return domain.ErrNotFound
	}
	if err := o.jobs.Delete(ctx, userID, jobID); err != nil {
		return err
	}
	o.record(ctx, domain.OperationLog{
		UserID:    userID,
		Operation: opDelete,
		TargetID:  jobID,
	}, o.logger.With().Str("job_id", jobID).Logger())
	return nil
}

// BatchDelete hides every listed job the caller owns and returns how many
// were hidden. Ids that are malformed, unknown or foreign are skipped.
func (o *Orchestrator) BatchDelete(ctx context.Context, userID string, jobIDs []string) (int, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, domain.ErrUnauthorized
	}
	if len(jobIDs) > MaxBatchDelete {
		return 0, fmt.Errorf("%w: at most %d ids per batch", domain.ErrValidation, MaxBatchDelete)
	}
	ids := make([]string, 0, len(jobIDs))
	seen := make(map[string]struct{}, len(jobIDs))
	for _, id := range jobIDs {
		parsed, err := uuid.Parse(strings.TrimSpace(id))
		if err != nil {
			continue
		}
		key := parsed.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		ids = append(ids, key)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := o.jobs.DeleteMany(ctx, userID, ids)
	if err != nil {
		return 0, err
	}
	o.record(ctx, domain.OperationLog{
		UserID:    userID,
		Operation: opBatchDelete,
		Detail: map[string]any{
			"ids":       ids,
			"requested": len(jobIDs),
			"deleted":   n,
		},
	}, o.logger.With().Str("user_id", userID).Logger())
	return n, nil
}

// Resume reclaims jobs a previous process left in processing. Jobs with a
// recorded provider task resume polling; jobs without one are failed as
// interrupted. A job whose lease is held elsewhere is left to its holder.
// It returns the number of jobs claimed by this process.
func (o *Orchestrator) Resume(ctx context.Context, createdBefore time.Time) (int, error) {
	jobs, err := o.jobs.ListProcessing(ctx, createdBefore, resumeBatch)
	if err != nil {
		return 0, fmt.Errorf("list processing jobs: %w", err)
	}
	claimed := 0
	for _, job := range jobs {
		snapshot := job
		ok, err := o.spawner.TryGo(ctx, job.ID, func(ctx context.Context) {
			o.resume(ctx, snapshot)
		})
		switch {
		case err != nil:
			o.logger.Warn().Err(err).Str("job_id", job.ID).Msg("claim interrupted job")
			continue
		case !ok:
			o.logger.Debug().Str("job_id", job.ID).Msg("interrupted job owned by another worker")
			continue
		}
		claimed++
	}
	return claimed, nil
}

// Dispatch runs the provider path for job and writes its terminal state.
// It never returns without attempting Finalize, including on panic or
// cancellation.
func (o *Orchestrator) Dispatch(ctx context.Context, job domain.Job) {
	log := o.logger.With().Str("job_id", job.ID).Str("modality", string(job.Modality)).Logger()
	outcome := o.run(ctx, log, func() (domain.AssetSet, error) {
		switch job.Modality {
		case domain.ModalityImage:
			return o.dispatchImage(ctx, job)
		case domain.ModalityVideo:
			return o.dispatchVideo(ctx, job, log)
		default:
			return nil, fmt.Errorf("%w: unsupported modality %q", domain.ErrValidation, job.Modality)
		}
	})
	o.finalize(ctx, job, outcome, log)
}

func (o *Orchestrator) resume(ctx context.Context, job domain.Job) {
	log := o.logger.With().Str("job_id", job.ID).Str("modality", string(job.Modality)).Bool("resumed", true).Logger()
	outcome := o.run(ctx, log, func() (domain.AssetSet, error) {
		if job.Params.TaskID == "" {
			return nil, fmt.Errorf("%w: provider never accepted the job", domain.ErrDispatchInterrupted)
		}
		return o.poll(ctx, job.Params.TaskID, log.With().Str("task_id", job.Params.TaskID).Logger())
	})
	o.finalize(ctx, job, outcome, log)
}

// run executes step and converts its result, a panic or a canceled context
// into a terminal outcome.
func (o *Orchestrator) run(ctx context.Context, log infra.Logger, step func() (domain.AssetSet, error)) (outcome domain.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("dispatch panicked")
			outcome = domain.Failed(fmt.Sprintf("internal error: %v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return domain.Failed(fmt.Errorf("%w: %v", domain.ErrDispatchCanceled, err).Error())
	}
	assets, err := step()
	if err != nil {
		return domain.Failed(err.Error())
	}
	return domain.Completed(assets)
}

func (o *Orchestrator) finalize(ctx context.Context, job domain.Job, outcome domain.Outcome, log infra.Logger) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()
	if err := o.jobs.Finalize(fctx, job.ID, outcome); err != nil {
		log.Error().Err(err).Str("status", string(outcome.Status)).Msg("finalize job")
		return
	}
	metrics.JobFinalized(string(job.Modality), string(outcome.Status))
	if outcome.Status == domain.JobStatusFailed {
		log.Warn().Str("error", outcome.Error).Msg("generation job failed")
		return
	}
	log.Info().Int("assets", outcome.Assets.Len()).Msg("generation job completed")
}

func (o *Orchestrator) dispatchImage(ctx context.Context, job domain.Job) (domain.AssetSet, error) {
	p := job.Params
	start := time.Now()
	res, err := o.provider.GenerateImage(ctx, ImageRequest{
		Prompt:         job.Prompt,
		Size:           PixelSize(job.Size),
		Style:          p.Style,
		Quality:        p.Quality,
		ResponseFormat: p.ResponseFormat,
		Seed:           p.Seed,
		GuidanceScale:  p.GuidanceScale,
		Watermark:      p.Watermark,
	})
	metrics.ObserveProviderCall("generate_image", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	url := res.URL
	if strings.TrimSpace(url) == "" && len(res.Data) > 0 {
		if o.assets == nil {
			return nil, fmt.Errorf("inline image returned but no asset store configured: %w", domain.ErrProviderFailure)
		}
		if url, err = o.assets.SaveAsset(ctx, job.ID, res.Data); err != nil {
			return nil, fmt.Errorf("store inline image: %w", err)
		}
	}
	return Normalize(url, "")
}

func (o *Orchestrator) dispatchVideo(ctx context.Context, job domain.Job, log infra.Logger) (domain.AssetSet, error) {
	p := job.Params
	start := time.Now()
	taskID, err := o.provider.GenerateVideo(ctx, VideoRequest{
		Prompt:          job.Prompt,
		Model:           p.Model,
		Resolution:      p.Resolution,
		Duration:        p.Duration,
		Ratio:           p.Ratio,
		FPS:             p.FPS,
		CameraFixed:     p.CameraFixed,
		CfgScale:        p.CfgScale,
		Count:           p.Count,
		Seed:            p.Seed,
		FirstFrameImage: p.FirstFrameImage,
		LastFrameImage:  p.LastFrameImage,
		HD:              p.HD,
		Watermark:       p.Watermark,
	})
	metrics.ObserveProviderCall("generate_video", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(taskID) == "" {
		return nil, fmt.Errorf("provider returned no task id: %w", domain.ErrProviderFailure)
	}

	log = log.With().Str("task_id", taskID).Logger()
	if err := o.jobs.RecordTask(ctx, job.ID, taskID); err != nil {
		log.Warn().Err(err).Msg("record provider task id")
	}
	return o.poll(ctx, taskID, log)
}

// poll sleeps before every query and gives up after maxPolls queries.
func (o *Orchestrator) poll(ctx context.Context, taskID string, log infra.Logger) (domain.AssetSet, error) {
	timer := time.NewTimer(o.pollInterval)
	defer timer.Stop()

	for attempt := 1; attempt <= o.maxPolls; attempt++ {
		if attempt > 1 {
			timer.Reset(o.pollInterval)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", domain.ErrDispatchCanceled, ctx.Err())
		case <-timer.C:
		}

		start := time.Now()
		res, err := o.provider.QueryTask(ctx, taskID)
		metrics.ObserveProviderCall("query_task", time.Since(start), err)
		if err != nil {
			return nil, err
		}

		switch res.Status {
		case TaskSucceeded:
			metrics.ObservePolls(attempt)
			return Normalize(res.VideoURL, res.Thumbnail)
		case TaskFailed:
			metrics.ObservePolls(attempt)
			msg := strings.TrimSpace(res.Error)
			if msg == "" {
				msg = "video generation failed"
			}
			return nil, fmt.Errorf("%s: %w", msg, domain.ErrProviderFailure)
		}
		log.Debug().Int("attempt", attempt).Msg("video task still running")
	}

	metrics.ObservePolls(o.maxPolls)
	return nil, fmt.Errorf("task %s unfinished after %d polls: %w", taskID, o.maxPolls, domain.ErrProviderTimeout)
}

func (o *Orchestrator) recordOperation(ctx context.Context, job domain.Job, log infra.Logger) {
	o.record(ctx, domain.OperationLog{
		UserID:    job.UserID,
		Operation: opGenerate,
		TargetID:  job.ID,
		Detail: map[string]any{
			"type":   string(job.Modality),
			"prompt": job.Prompt,
			"style":  job.Style,
		},
	}, log)
}

// record fills in the caller details from ctx and writes entry. Failures
// are logged only.
func (o *Orchestrator) record(ctx context.Context, entry domain.OperationLog, log infra.Logger) {
	if o.oplog == nil {
		return
	}
	info := ClientInfoFrom(ctx)
	entry.IP, entry.Country, entry.UserAgent = info.IP, info.Country, info.UserAgent
	if err := o.oplog.Record(ctx, entry); err != nil {
		log.Warn().Err(err).Str("operation", entry.Operation).Msg("record operation log")
	}
}

func aspectRatioFor(modality domain.Modality, req SubmitRequest) string {
	if modality == domain.ModalityVideo && strings.TrimSpace(req.Ratio) != "" {
		return strings.TrimSpace(req.Ratio)
	}
	return AspectRatio(req.Size)
}

func paramsFor(modality domain.Modality, req SubmitRequest) domain.Params {
	p := domain.Params{Watermark: req.Watermark}
	switch modality {
	case domain.ModalityImage:
		// Only the caller's raw style is sent; a resolved style is already
		// part of the prompt.
		p.Style = strings.TrimSpace(req.Style)
		p.Quality = req.Quality
		if p.Quality == "" {
			p.Quality = "standard"
		}
		p.ResponseFormat = req.ResponseFormat
		p.Seed = req.Seed
		p.GuidanceScale = req.GuidanceScale
	case domain.ModalityVideo:
		p.Model = req.Model
		p.Resolution = req.Resolution
		p.Duration = req.Duration
		p.Ratio = req.Ratio
		p.FPS = req.FPS
		p.CameraFixed = req.CameraFixed
		p.CfgScale = req.CfgScale
		p.Count = req.Count
		p.Seed = req.Seed
		p.FirstFrameImage = req.FirstFrameImage
		p.LastFrameImage = req.LastFrameImage
		p.HD = req.HD
	}
	return p
}
