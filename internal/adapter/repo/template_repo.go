package repo

import (
	"context"

	"textvision/internal/domain"
	"textvision/internal/infra"
	"textvision/internal/sqlinline"
)

// TemplateRepositoryPG implements domain.TemplateRepository.
type TemplateRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewTemplateRepository(sql infra.SQLExecutor) *TemplateRepositoryPG {
	return &TemplateRepositoryPG{sql: sql}
}

// GetByID returns domain.ErrNotFound when no template has the id.
func (r *TemplateRepositoryPG) GetByID(ctx context.Context, id int64) (*domain.Template, error) {
	var (
		tpl      domain.Template
		modality string
	)
	err := r.sql.QueryRow(ctx, sqlinline.QSelectTemplate, id).Scan(
		&tpl.ID,
		&tpl.Title,
		&tpl.Prompt,
		&modality,
		&tpl.Active,
		&tpl.UsageCount,
		&tpl.CreatedAt,
		&tpl.UpdatedAt,
	)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, storeErr("get template", err)
	}
	tpl.Modality = domain.Modality(modality)
	return &tpl, nil
}

func (r *TemplateRepositoryPG) IncrementUsage(ctx context.Context, id int64) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QIncrementTemplateUsage, id); err != nil {
		return storeErr("increment template usage", err)
	}
	return nil
}

// StyleRepositoryPG implements domain.StyleRepository.
type StyleRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewStyleRepository(sql infra.SQLExecutor) *StyleRepositoryPG {
	return &StyleRepositoryPG{sql: sql}
}

func (r *StyleRepositoryPG) GetByID(ctx context.Context, id int64) (*domain.Style, error) {
	var style domain.Style
	err := r.sql.QueryRow(ctx, sqlinline.QSelectStyle, id).Scan(
		&style.ID,
		&style.Name,
		&style.Description,
		&style.Active,
	)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, storeErr("get style", err)
	}
	return &style, nil
}

var (
	_ domain.TemplateRepository = (*TemplateRepositoryPG)(nil)
	_ domain.StyleRepository    = (*StyleRepositoryPG)(nil)
)
