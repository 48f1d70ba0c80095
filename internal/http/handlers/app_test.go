package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"textvision/internal/domain"
	"textvision/internal/generation"
	"textvision/internal/infra"
	"textvision/internal/middleware"
)

type fakeContents struct {
	submitted []generation.SubmitRequest
	client    generation.ClientInfo
	job       *domain.Job
	jobs      []domain.Job
	filter    domain.JobFilter
	quota     generation.AdmitDecision
	limit     int
	deleted   []string
	deletes   int
	err       error
}

func (f *fakeContents) Submit(ctx context.Context, _ string, req generation.SubmitRequest) (*domain.Job, error) {
	f.submitted = append(f.submitted, req)
	f.client = generation.ClientInfoFrom(ctx)
	if f.err != nil {
		return nil, f.err
	}
	return f.job, nil
}

func (f *fakeContents) GetJob(_ context.Context, _, _ string) (*domain.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.job, nil
}

func (f *fakeContents) List(_ context.Context, _ string, filter domain.JobFilter) ([]domain.Job, int, error) {
	f.filter = filter
	return f.jobs, len(f.jobs), f.err
}

func (f *fakeContents) Quota(context.Context, string) (generation.AdmitDecision, error) {
	return f.quota, f.err
}

func (f *fakeContents) Recent(_ context.Context, _ string, limit int) ([]domain.Job, error) {
	f.limit = limit
	return f.jobs, f.err
}

func (f *fakeContents) Delete(ctx context.Context, _, jobID string) error {
	f.client = generation.ClientInfoFrom(ctx)
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, jobID)
	return nil
}

func (f *fakeContents) BatchDelete(_ context.Context, _ string, jobIDs []string) (int, error) {
	f.deleted = append(f.deleted, jobIDs...)
	return f.deletes, f.err
}

func newTestApp(svc *fakeContents) *App {
	return NewApp(svc, infra.NopLogger())
}

func authed(r *http.Request, userID, locale string) *http.Request {
	ctx := middleware.ContextWithUserID(r.Context(), userID)
	if locale != "" {
		ctx = context.WithValue(ctx, middleware.LocaleKey, locale)
	}
	return r.WithContext(ctx)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGenerateContentAccepted(t *testing.T) {
	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	svc := &fakeContents{job: &domain.Job{
		ID:        "00000000-0000-4000-8000-000000000001",
		Modality:  domain.ModalityImage,
		Prompt:    "a red fox",
		Style:     "default style",
		Status:    domain.JobStatusProcessing,
		CreatedAt: created,
		UpdatedAt: created,
	}}
	app := newTestApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/v1/contents/generate", strings.NewReader(`{"type":"image","prompt":"a red fox","seed":7}`))
	req.RemoteAddr = "203.0.113.7:4000"
	req.Header.Set("User-Agent", "wxmini/1.0")
	rec := httptest.NewRecorder()
	app.GenerateContent(rec, authed(req, "user-1", ""))

	require.Equal(t, http.StatusAccepted, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "processing", body["status"])
	assert.Equal(t, "image", body["type"])
	require.Len(t, svc.submitted, 1)
	require.NotNil(t, svc.submitted[0].Seed)
	assert.Equal(t, 7, *svc.submitted[0].Seed)
	assert.Equal(t, "203.0.113.7", svc.client.IP)
	assert.Equal(t, "wxmini/1.0", svc.client.UserAgent)
}

func TestGenerateContentRequiresUser(t *testing.T) {
	app := newTestApp(&fakeContents{})
	req := httptest.NewRequest(http.MethodPost, "/v1/contents/generate", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	app.GenerateContent(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGenerateContentMalformedBody(t *testing.T) {
	svc := &fakeContents{}
	app := newTestApp(svc)
	req := httptest.NewRequest(http.MethodPost, "/v1/contents/generate", strings.NewReader(`{"type":`))
	rec := httptest.NewRecorder()
	app.GenerateContent(rec, authed(req, "user-1", ""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.submitted)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		locale  string
		status  int
		code    int
		message string
	}{
		{name: "validation", err: fmt.Errorf("%w: prompt must satisfy required", domain.ErrValidation), status: http.StatusBadRequest, code: 400, message: "invalid request: prompt must satisfy required"},
		{name: "quota", err: fmt.Errorf("%w: 100 of 100 used today", domain.ErrQuotaExceeded), status: http.StatusForbidden, code: 7010, message: msgQuotaExceeded},
		{name: "quota zh", err: domain.ErrQuotaExceeded, locale: "zh", status: http.StatusForbidden, code: 7010, message: "今日生成次数已达上限，请明天再试"},
		{name: "template missing", err: fmt.Errorf("template 9: %w", domain.ErrTemplateNotFound), status: http.StatusNotFound, code: 6001, message: msgTemplateNotFound},
		{name: "template disabled", err: domain.ErrTemplateDisabled, locale: "zh", status: http.StatusForbidden, code: 6002, message: "模板已禁用"},
		{name: "content missing", err: domain.ErrNotFound, status: http.StatusNotFound, code: 7009, message: msgContentNotFound},
		{name: "internal", err: errors.New("boom"), status: http.StatusInternalServerError, code: 500, message: msgInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(&fakeContents{err: tt.err})
			req := httptest.NewRequest(http.MethodPost, "/v1/contents/generate", strings.NewReader(`{"type":"image","prompt":"p"}`))
			rec := httptest.NewRecorder()
			app.GenerateContent(rec, authed(req, "user-1", tt.locale))

			assert.Equal(t, tt.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.message, body.Message)
		})
	}
}

func TestGetContentUsesRouteParam(t *testing.T) {
	svc := &fakeContents{job: &domain.Job{
		ID:         "00000000-0000-4000-8000-000000000002",
		Modality:   domain.ModalityVideo,
		Status:     domain.JobStatusCompleted,
		URL:        "https://x/1.mp4",
		Thumbnail:  "https://x/1.mp4",
		URLs:       []string{"https://x/1.mp4", "https://x/2.mp4"},
		Thumbnails: []string{"https://x/1.mp4", "https://x/2.mp4"},
	}}
	app := newTestApp(svc)
	r := chi.NewRouter()
	r.Get("/v1/contents/{id}", app.GetContent)

	req := httptest.NewRequest(http.MethodGet, "/v1/contents/00000000-0000-4000-8000-000000000002", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authed(req, "user-1", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	var body contentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "completed", body.Status)
	assert.Len(t, body.URLs, 2)
	assert.Equal(t, body.URLs, body.Thumbnails)
}

func TestListContentsParsesFilter(t *testing.T) {
	svc := &fakeContents{jobs: []domain.Job{{ID: "a", Status: domain.JobStatusFailed}}}
	app := newTestApp(svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/contents?type=video&status=failed&page=2&size=5", nil)
	rec := httptest.NewRecorder()
	app.ListContents(rec, authed(req, "user-1", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.JobFilter{Modality: domain.ModalityVideo, Status: domain.JobStatusFailed, Page: 2, Size: 5}, svc.filter)
	var body listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Total)
	assert.Len(t, body.Items, 1)
}

func TestListContentsRejectsBadPage(t *testing.T) {
	app := newTestApp(&fakeContents{})
	req := httptest.NewRequest(http.MethodGet, "/v1/contents?page=zero", nil)
	rec := httptest.NewRecorder()
	app.ListContents(rec, authed(req, "user-1", ""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetQuota(t *testing.T) {
	app := newTestApp(&fakeContents{quota: generation.AdmitDecision{Allowed: true, Used: 3, Limit: 100, Remaining: 97}})
	req := httptest.NewRequest(http.MethodGet, "/v1/contents/quota", nil)
	rec := httptest.NewRecorder()
	app.GetQuota(rec, authed(req, "user-1", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"used":3,"limit":100,"remaining":97}`, rec.Body.String())
}

func TestRecentContents(t *testing.T) {
	svc := &fakeContents{jobs: []domain.Job{{ID: "b"}, {ID: "a"}}}
	app := newTestApp(svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/contents/recent?limit=2", nil)
	rec := httptest.NewRecorder()
	app.RecentContents(rec, authed(req, "user-1", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, svc.limit)
	var items []contentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].ID)
}

func TestRecentContentsDefaultLimit(t *testing.T) {
	svc := &fakeContents{}
	app := newTestApp(svc)

	rec := httptest.NewRecorder()
	app.RecentContents(rec, authed(httptest.NewRequest(http.MethodGet, "/v1/contents/recent", nil), "user-1", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, generation.DefaultRecentLimit, svc.limit)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestDeleteContent(t *testing.T) {
	svc := &fakeContents{}
	app := newTestApp(svc)
	r := chi.NewRouter()
	r.Delete("/v1/contents/{id}", app.DeleteContent)

	req := httptest.NewRequest(http.MethodDelete, "/v1/contents/00000000-0000-4000-8000-000000000002", nil)
	req.RemoteAddr = "198.51.100.4:5000"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authed(req, "user-1", ""))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"00000000-0000-4000-8000-000000000002"}, svc.deleted)
	assert.Equal(t, "198.51.100.4", svc.client.IP)
}

func TestDeleteForeignContentIsNotFound(t *testing.T) {
	app := newTestApp(&fakeContents{err: domain.ErrNotFound})
	r := chi.NewRouter()
	r.Delete("/v1/contents/{id}", app.DeleteContent)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodDelete, "/v1/contents/someone-elses", nil), "user-1", ""))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 7009, decodeError(t, rec).Code)
}

func TestBatchDeleteContents(t *testing.T) {
	svc := &fakeContents{deletes: 1}
	app := newTestApp(svc)

	req := httptest.NewRequest(http.MethodDelete, "/v1/contents/batch", strings.NewReader(`{"ids":["a","b","c"]}`))
	rec := httptest.NewRecorder()
	app.BatchDeleteContents(rec, authed(req, "user-1", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deletedCount":1,"totalRequested":3}`, rec.Body.String())
	assert.Equal(t, []string{"a", "b", "c"}, svc.deleted)
}

func TestBatchDeleteContentsMalformedBody(t *testing.T) {
	svc := &fakeContents{}
	app := newTestApp(svc)

	req := httptest.NewRequest(http.MethodDelete, "/v1/contents/batch", strings.NewReader(`{"ids":`))
	rec := httptest.NewRecorder()
	app.BatchDeleteContents(rec, authed(req, "user-1", ""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.deleted)
}

func TestReady(t *testing.T) {
	app := newTestApp(&fakeContents{})
	app.Checks["database"] = func(context.Context) error { return nil }
	app.Checks["redis"] = func(context.Context) error { return errors.New("dial tcp: refused") }

	rec := httptest.NewRecorder()
	app.Ready(rec, httptest.NewRequest(http.MethodGet, "/v1/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","checks":{"database":"up","redis":"down"}}`, rec.Body.String())
}
