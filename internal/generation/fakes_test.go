package generation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"textvision/internal/domain"
	"textvision/internal/infra"
)

type finalizeCall struct {
	jobID   string
	outcome domain.Outcome
}

// memoryJobStore mirrors the processing guard of the SQL store.
type memoryJobStore struct {
	mu         sync.Mutex
	jobs       map[string]*domain.Job
	todayCount int
	countErr   error
	createErr  error
	finalizes  []finalizeCall
	tasks      map[string]string
	deleted    map[string]bool
}

func newMemoryJobStore() *memoryJobStore {
	return &memoryJobStore{jobs: map[string]*domain.Job{}, tasks: map[string]string{}, deleted: map[string]bool{}}
}

// put seeds a job as if an earlier process had created it.
func (s *memoryJobStore) put(job domain.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = &job
}

func (s *memoryJobStore) Create(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	job.Status = domain.JobStatusProcessing
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *memoryJobStore) Finalize(_ context.Context, jobID string, outcome domain.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalizes = append(s.finalizes, finalizeCall{jobID: jobID, outcome: outcome})
	job, ok := s.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if job.Status.Terminal() {
		return nil
	}
	job.Status = outcome.Status
	job.ErrorMessage = outcome.Error
	if outcome.Assets != nil {
		job.URL, job.Thumbnail = outcome.Assets.Primary()
		if multi, ok := outcome.Assets.(domain.MultiAsset); ok {
			job.URLs = multi.URLs
			job.Thumbnails = multi.Thumbnails
		}
	}
	job.UpdatedAt = time.Now()
	return nil
}

func (s *memoryJobStore) Get(_ context.Context, jobID string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || s.deleted[jobID] {
		return nil, domain.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (s *memoryJobStore) CountCreatedToday(context.Context, string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.todayCount, s.countErr
}

func (s *memoryJobStore) RecordTask(_ context.Context, jobID, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[jobID] = taskID
	return nil
}

func (s *memoryJobStore) List(_ context.Context, userID string, _ domain.JobFilter) ([]domain.Job, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Job
	for _, job := range s.jobs {
		if job.UserID == userID && !s.deleted[job.ID] {
			out = append(out, *job)
		}
	}
	return out, len(out), nil
}

func (s *memoryJobStore) Recent(_ context.Context, userID string, limit int) ([]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Job
	for _, job := range s.jobs {
		if job.UserID == userID && !s.deleted[job.ID] {
			out = append(out, *job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryJobStore) Delete(_ context.Context, userID, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.UserID != userID || s.deleted[jobID] {
		return domain.ErrNotFound
	}
	s.deleted[jobID] = true
	return nil
}

func (s *memoryJobStore) DeleteMany(_ context.Context, userID string, jobIDs []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range jobIDs {
		job, ok := s.jobs[id]
		if !ok || job.UserID != userID || s.deleted[id] {
			continue
		}
		s.deleted[id] = true
		n++
	}
	return n, nil
}

func (s *memoryJobStore) ListProcessing(_ context.Context, createdBefore time.Time, limit int) ([]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Job
	for _, job := range s.jobs {
		if job.Status == domain.JobStatusProcessing && job.CreatedAt.Before(createdBefore) {
			out = append(out, *job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryJobStore) job(id string) domain.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.jobs[id]
}

func (s *memoryJobStore) finalizeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.finalizes)
}

type fakeTemplates struct {
	mu        sync.Mutex
	templates map[int64]*domain.Template
	err       error
	increment map[int64]int
}

func (f *fakeTemplates) GetByID(_ context.Context, id int64) (*domain.Template, error) {
	if f.err != nil {
		return nil, f.err
	}
	tpl, ok := f.templates[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return tpl, nil
}

func (f *fakeTemplates) IncrementUsage(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.increment == nil {
		f.increment = map[int64]int{}
	}
	f.increment[id]++
	return nil
}

type fakeStyles struct {
	styles map[int64]*domain.Style
}

func (f *fakeStyles) GetByID(_ context.Context, id int64) (*domain.Style, error) {
	style, ok := f.styles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return style, nil
}

type fakeOpLog struct {
	mu      sync.Mutex
	entries []domain.OperationLog
}

func (f *fakeOpLog) Record(_ context.Context, entry domain.OperationLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

// scriptedProvider replays task observations in order; the last one repeats.
type scriptedProvider struct {
	mu          sync.Mutex
	image       *ImageResult
	imageErr    error
	imageReqs   []ImageRequest
	taskID      string
	videoErr    error
	videoReqs   []VideoRequest
	onVideo     func()
	script      []TaskResult
	queryErr    error
	queries     int
	panicOnCall bool
}

func (p *scriptedProvider) GenerateImage(_ context.Context, req ImageRequest) (*ImageResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.panicOnCall {
		panic("provider exploded")
	}
	p.imageReqs = append(p.imageReqs, req)
	return p.image, p.imageErr
}

func (p *scriptedProvider) GenerateVideo(_ context.Context, req VideoRequest) (string, error) {
	p.mu.Lock()
	p.videoReqs = append(p.videoReqs, req)
	hook := p.onVideo
	p.mu.Unlock()
	if hook != nil {
		hook()
	}
	return p.taskID, p.videoErr
}

func (p *scriptedProvider) QueryTask(_ context.Context, taskID string) (*TaskResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if taskID != p.taskID {
		return nil, fmt.Errorf("unexpected task id %q", taskID)
	}
	p.queries++
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	idx := p.queries - 1
	if idx >= len(p.script) {
		idx = len(p.script) - 1
	}
	res := p.script[idx]
	return &res, nil
}

func (p *scriptedProvider) queryCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queries
}

func running(n int) []TaskResult {
	out := make([]TaskResult, n)
	for i := range out {
		out[i] = TaskResult{Status: TaskRunning}
	}
	return out
}

// recordingSpawner keeps tasks so tests decide when they run. Keys in held
// are refused by TryGo.
type recordingSpawner struct {
	mu     sync.Mutex
	keys   []string
	tasks  []func(ctx context.Context)
	held   map[string]bool
	tryErr error
}

func (s *recordingSpawner) Go(key string, task func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	s.tasks = append(s.tasks, task)
}

func (s *recordingSpawner) TryGo(_ context.Context, key string, task func(ctx context.Context)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tryErr != nil {
		return false, s.tryErr
	}
	if s.held[key] {
		return false, nil
	}
	s.keys = append(s.keys, key)
	s.tasks = append(s.tasks, task)
	return true, nil
}

func (s *recordingSpawner) runAll(ctx context.Context) {
	s.mu.Lock()
	tasks := append([]func(context.Context){}, s.tasks...)
	s.mu.Unlock()
	for _, task := range tasks {
		task(ctx)
	}
}

type fakeAssetWriter struct {
	saved map[string][]byte
}

func (w *fakeAssetWriter) SaveAsset(_ context.Context, jobID string, data []byte) (string, error) {
	if w.saved == nil {
		w.saved = map[string][]byte{}
	}
	w.saved[jobID] = data
	return "https://assets.local/contents/" + jobID + "/0.png", nil
}

type harness struct {
	store     *memoryJobStore
	templates *fakeTemplates
	styles    *fakeStyles
	oplog     *fakeOpLog
	provider  *scriptedProvider
	spawner   *recordingSpawner
	assets    *fakeAssetWriter
	orch      *Orchestrator
}

func newHarness(mutate ...func(*Options)) *harness {
	h := &harness{
		store:     newMemoryJobStore(),
		templates: &fakeTemplates{templates: map[int64]*domain.Template{}},
		styles:    &fakeStyles{styles: map[int64]*domain.Style{}},
		oplog:     &fakeOpLog{},
		provider:  &scriptedProvider{taskID: "T1"},
		spawner:   &recordingSpawner{},
		assets:    &fakeAssetWriter{},
	}
	ids := 0
	opts := Options{
		Jobs:         h.store,
		Templates:    h.templates,
		Styles:       h.styles,
		OperationLog: h.oplog,
		Provider:     h.provider,
		Assets:       h.assets,
		Spawner:      h.spawner,
		Logger:       infra.NopLogger(),
		PollInterval: time.Microsecond,
		MaxPolls:     DefaultMaxPolls,
		NewID: func() string {
			ids++
			return fmt.Sprintf("00000000-0000-4000-8000-%012d", ids)
		},
	}
	for _, m := range mutate {
		m(&opts)
	}
	orch, err := NewOrchestrator(opts)
	if err != nil {
		panic(err)
	}
	h.orch = orch
	return h
}

func ptr[T any](v T) *T { return &v }
