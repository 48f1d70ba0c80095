package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"textvision/internal/domain"
)

// DefaultStyleLabel is stored when no style is requested or the requested
// style no longer exists.
const DefaultStyleLabel = "default style"

// PromptInput is the part of a request the resolver looks at.
type PromptInput struct {
	Prompt     string
	Style      string
	StyleID    *int64
	TemplateID *int64
}

// Resolution is the resolver's output.
type Resolution struct {
	Prompt     string
	StyleLabel string
	Template   *domain.Template
}

// PromptResolver applies template checks and style augmentation.
type PromptResolver struct {
	templates domain.TemplateRepository
	styles    domain.StyleRepository
}

func NewPromptResolver(templates domain.TemplateRepository, styles domain.StyleRepository) *PromptResolver {
	return &PromptResolver{templates: templates, styles: styles}
}

func (r *PromptResolver) Resolve(ctx context.Context, in PromptInput) (Resolution, error) {
	res := Resolution{Prompt: in.Prompt, StyleLabel: DefaultStyleLabel}

	if in.TemplateID != nil {
		tpl, err := r.templates.GetByID(ctx, *in.TemplateID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return Resolution{}, fmt.Errorf("template %d: %w", *in.TemplateID, domain.ErrTemplateNotFound)
		case err != nil:
			return Resolution{}, fmt.Errorf("load template %d: %w", *in.TemplateID, err)
		case !tpl.Active:
			return Resolution{}, fmt.Errorf("template %d: %w", *in.TemplateID, domain.ErrTemplateDisabled)
		}
		res.Template = tpl
	}

	if in.StyleID != nil {
		style, err := r.styles.GetByID(ctx, *in.StyleID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return res, nil
		case err != nil:
			return Resolution{}, fmt.Errorf("load style %d: %w", *in.StyleID, err)
		}
		res.StyleLabel = style.Name
		if desc := strings.TrimSpace(style.Description); desc != "" {
			res.Prompt = desc + ", " + in.Prompt
		}
		return res, nil
	}

	if label := strings.TrimSpace(in.Style); label != "" {
		res.StyleLabel = label
	}
	return res, nil
}
