package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"textvision/internal/domain"
	"textvision/internal/generation"
	"textvision/internal/middleware"
)

const maxRequestBody = 64 << 10

type contentResponse struct {
	ID          string        `json:"id"`
	Type        string        `json:"type"`
	Prompt      string        `json:"prompt"`
	Size        string        `json:"size,omitempty"`
	AspectRatio string        `json:"aspectRatio,omitempty"`
	Style       string        `json:"style,omitempty"`
	TemplateID  *int64        `json:"templateId,omitempty"`
	Status      string        `json:"status"`
	URL         string        `json:"url,omitempty"`
	Thumbnail   string        `json:"thumbnail,omitempty"`
	URLs        []string      `json:"urls,omitempty"`
	Thumbnails  []string      `json:"thumbnails,omitempty"`
	Params      domain.Params `json:"params"`
	Error       string        `json:"errorMessage,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

type batchDeleteRequest struct {
	IDs []string `json:"ids"`
}

type batchDeleteResponse struct {
	DeletedCount   int `json:"deletedCount"`
	TotalRequested int `json:"totalRequested"`
}

type listResponse struct {
	Items []contentResponse `json:"items"`
	Total int               `json:"total"`
	Page  int               `json:"page"`
	Size  int               `json:"size"`
}

func toContentResponse(job *domain.Job) contentResponse {
	return contentResponse{
		ID:          job.ID,
		Type:        string(job.Modality),
		Prompt:      job.Prompt,
		Size:        job.Size,
		AspectRatio: job.AspectRatio,
		Style:       job.Style,
		TemplateID:  job.TemplateID,
		Status:      string(job.Status),
		URL:         job.URL,
		Thumbnail:   job.Thumbnail,
		URLs:        job.URLs,
		Thumbnails:  job.Thumbnails,
		Params:      job.Params,
		Error:       job.ErrorMessage,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
	}
}

// GenerateContent accepts a generation request and answers 202 with the
// processing job. The result is fetched later through GetContent.
func (a *App) GenerateContent(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.fail(w, r, domain.ErrUnauthorized)
		return
	}
	var req generation.SubmitRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		a.fail(w, r, fmt.Errorf("%w: malformed json body", domain.ErrValidation))
		return
	}

	job, err := a.Contents.Submit(a.clientContext(r), userID, req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, toContentResponse(job))
}

func (a *App) GetContent(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.fail(w, r, domain.ErrUnauthorized)
		return
	}
	job, err := a.Contents.GetJob(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toContentResponse(job))
}

// ListContents pages through the caller's jobs, newest first.
func (a *App) ListContents(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.fail(w, r, domain.ErrUnauthorized)
		return
	}
	q := r.URL.Query()
	page, err := intParam(q.Get("page"), 1)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	size, err := intParam(q.Get("size"), 10)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	filter := domain.JobFilter{
		Modality: domain.Modality(q.Get("type")),
		Status:   domain.JobStatus(q.Get("status")),
		Page:     page,
		Size:     size,
	}
	jobs, total, err := a.Contents.List(r.Context(), userID, filter)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	resp := listResponse{Items: make([]contentResponse, 0, len(jobs)), Total: total, Page: page, Size: size}
	for i := range jobs {
		resp.Items = append(resp.Items, toContentResponse(&jobs[i]))
	}
	a.json(w, http.StatusOK, resp)
}

// RecentContents returns the caller's latest jobs without paging.
func (a *App) RecentContents(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.fail(w, r, domain.ErrUnauthorized)
		return
	}
	limit, err := intParam(r.URL.Query().Get("limit"), generation.DefaultRecentLimit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	jobs, err := a.Contents.Recent(r.Context(), userID, limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items := make([]contentResponse, 0, len(jobs))
	for i := range jobs {
		items = append(items, toContentResponse(&jobs[i]))
	}
	a.json(w, http.StatusOK, items)
}

func (a *App) DeleteContent(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.fail(w, r, domain.ErrUnauthorized)
		return
	}
	if err := a.Contents.Delete(a.clientContext(r), userID, chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BatchDeleteContents removes the listed jobs the caller owns. Ids that are
// unknown or foreign are skipped and only reflected in the count.
func (a *App) BatchDeleteContents(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.fail(w, r, domain.ErrUnauthorized)
		return
	}
	var req batchDeleteRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		a.fail(w, r, fmt.Errorf("%w: malformed json body", domain.ErrValidation))
		return
	}
	n, err := a.Contents.BatchDelete(a.clientContext(r), userID, req.IDs)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, batchDeleteResponse{DeletedCount: n, TotalRequested: len(req.IDs)})
}

func (a *App) GetQuota(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.fail(w, r, domain.ErrUnauthorized)
		return
	}
	d, err := a.Contents.Quota(r.Context(), userID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, d)
}

// clientContext carries the caller's network details into the operation log.
func (a *App) clientContext(r *http.Request) context.Context {
	return generation.WithClientInfo(r.Context(), generation.ClientInfo{
		IP:        middleware.ClientIP(r),
		Country:   middleware.CountryFromContext(r.Context()),
		UserAgent: r.UserAgent(),
	})
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: invalid number %q", domain.ErrValidation, raw)
	}
	return n, nil
}
