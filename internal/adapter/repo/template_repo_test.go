package repo

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"textvision/internal/domain"
	"textvision/internal/sqlinline"
)

func TestTemplateRepositoryGetByID(t *testing.T) {
	now := time.Now()
	exec := &stubExecutor{rows: []pgx.Row{stubRow{values: []any{
		int64(3), "Poster", "retro poster", "image", false, 12, now, now,
	}}}}
	repo := NewTemplateRepository(exec)

	tpl, err := repo.GetByID(context.Background(), 3)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if tpl.Active {
		t.Fatalf("expected inactive template")
	}
	if tpl.Modality != domain.ModalityImage || tpl.UsageCount != 12 {
		t.Fatalf("unexpected template: %+v", tpl)
	}
}

func TestTemplateRepositoryGetByIDNotFound(t *testing.T) {
	repo := NewTemplateRepository(&stubExecutor{})
	if _, err := repo.GetByID(context.Background(), 99); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTemplateRepositoryIncrementUsage(t *testing.T) {
	exec := &stubExecutor{}
	repo := NewTemplateRepository(exec)
	if err := repo.IncrementUsage(context.Background(), 3); err != nil {
		t.Fatalf("IncrementUsage error: %v", err)
	}
	if exec.execs[0].query != sqlinline.QIncrementTemplateUsage || exec.execs[0].args[0] != int64(3) {
		t.Fatalf("unexpected exec: %+v", exec.execs[0])
	}
}

func TestStyleRepositoryGetByID(t *testing.T) {
	exec := &stubExecutor{rows: []pgx.Row{stubRow{values: []any{int64(5), "Ink", "chinese ink wash", true}}}}
	repo := NewStyleRepository(exec)

	style, err := repo.GetByID(context.Background(), 5)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if style.Name != "Ink" || style.Description != "chinese ink wash" {
		t.Fatalf("unexpected style: %+v", style)
	}
}

func TestStyleRepositoryGetByIDStoreError(t *testing.T) {
	exec := &stubExecutor{rows: []pgx.Row{stubRow{err: errors.New("timeout")}}}
	repo := NewStyleRepository(exec)
	if _, err := repo.GetByID(context.Background(), 5); !errors.Is(err, domain.ErrInternalStore) {
		t.Fatalf("expected ErrInternalStore, got %v", err)
	}
}

func TestOperationLogRepositoryRecord(t *testing.T) {
	exec := &stubExecutor{}
	repo := NewOperationLogRepository(exec)

	err := repo.Record(context.Background(), domain.OperationLog{
		UserID:    "user-1",
		Operation: "generate_content",
		TargetID:  "job-1",
		Detail:    map[string]any{"type": "image"},
		IP:        "203.0.113.7",
		Country:   "ID",
	})
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}
	args := exec.execs[0].args
	if args[1] != "generate_content" || args[2] != "job-1" {
		t.Fatalf("unexpected args: %v", args)
	}
	var detail map[string]string
	if err := json.Unmarshal(args[3].([]byte), &detail); err != nil || detail["type"] != "image" {
		t.Fatalf("detail = %s (%v)", args[3], err)
	}
}
