package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"textvision/internal/domain"
	"textvision/internal/generation"
	"textvision/internal/infra"
	"textvision/internal/middleware"
)

// ContentService is the generation surface the handlers expose.
type ContentService interface {
	Submit(ctx context.Context, userID string, req generation.SubmitRequest) (*domain.Job, error)
	GetJob(ctx context.Context, userID, jobID string) (*domain.Job, error)
	List(ctx context.Context, userID string, filter domain.JobFilter) ([]domain.Job, int, error)
	Quota(ctx context.Context, userID string) (generation.AdmitDecision, error)
	Recent(ctx context.Context, userID string, limit int) ([]domain.Job, error)
	Delete(ctx context.Context, userID, jobID string) error
	BatchDelete(ctx context.Context, userID string, jobIDs []string) (int, error)
}

// Checker reports whether a dependency is reachable.
type Checker func(ctx context.Context) error

type App struct {
	Contents ContentService
	Logger   infra.Logger
	Checks   map[string]Checker
}

func NewApp(contents ContentService, logger infra.Logger) *App {
	return &App{Contents: contents, Logger: logger, Checks: map[string]Checker{}}
}

type errorBody struct {
	Error     string `json:"error"`
	Code      int    `json:"code,omitempty"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// fail maps err onto a status, a numeric business code and a localized message.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	locale := middleware.LocaleFromContext(r.Context())
	body := errorBody{RequestID: chimw.GetReqID(r.Context())}
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, domain.ErrValidation):
		status, body.Error, body.Code = http.StatusBadRequest, "bad_request", 400
		body.Message = localize(locale, msgInvalidRequest)
		if detail := validationDetail(err); detail != "" {
			body.Message += ": " + detail
		}
	case errors.Is(err, domain.ErrUnauthorized):
		status, body.Error, body.Code = http.StatusUnauthorized, "unauthorized", 401
		body.Message = localize(locale, msgUnauthorized)
	case errors.Is(err, domain.ErrQuotaExceeded):
		status, body.Error, body.Code = http.StatusForbidden, "quota_exceeded", 7010
		body.Message = localize(locale, msgQuotaExceeded)
	case errors.Is(err, domain.ErrTemplateNotFound):
		status, body.Error, body.Code = http.StatusNotFound, "template_not_found", 6001
		body.Message = localize(locale, msgTemplateNotFound)
	case errors.Is(err, domain.ErrTemplateDisabled):
		status, body.Error, body.Code = http.StatusForbidden, "template_disabled", 6002
		body.Message = localize(locale, msgTemplateDisabled)
	case errors.Is(err, domain.ErrNotFound):
		status, body.Error, body.Code = http.StatusNotFound, "not_found", 7009
		body.Message = localize(locale, msgContentNotFound)
	default:
		body.Error, body.Code = "internal", 500
		body.Message = localize(locale, msgInternal)
		a.Logger.Error().Err(err).Str("request_id", body.RequestID).Str("path", r.URL.Path).Msg("request failed")
	}
	a.json(w, status, body)
}

func validationDetail(err error) string {
	msg := err.Error()
	prefix := domain.ErrValidation.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return ""
}
