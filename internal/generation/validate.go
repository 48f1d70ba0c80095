package generation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"textvision/internal/domain"
)

// SubmitRequest is a generation request as accepted from clients.
type SubmitRequest struct {
	Type            string   `json:"type" validate:"required,oneof=image video"`
	Prompt          string   `json:"prompt" validate:"required,notblank,max=1000"`
	Size            string   `json:"size" validate:"omitempty,max=32"`
	Style           string   `json:"style" validate:"omitempty,max=64"`
	StyleID         *int64   `json:"styleId" validate:"omitempty,gt=0"`
	TemplateID      *int64   `json:"templateId" validate:"omitempty,gt=0"`
	ReferenceImage  string   `json:"referenceImage" validate:"omitempty,url,max=1024"`
	Quality         string   `json:"quality" validate:"omitempty,max=32"`
	ResponseFormat  string   `json:"responseFormat" validate:"omitempty,oneof=url b64_json"`
	Seed            *int     `json:"seed" validate:"omitempty,min=-1,max=2147483647"`
	GuidanceScale   *float64 `json:"guidanceScale" validate:"omitempty,min=1,max=10"`
	Model           string   `json:"model" validate:"omitempty,max=128"`
	Resolution      string   `json:"resolution" validate:"omitempty,oneof=480p 720p 1080p"`
	Duration        *int     `json:"duration" validate:"omitempty,min=5,max=10"`
	Ratio           string   `json:"ratio" validate:"omitempty,max=16"`
	FPS             *int     `json:"fps" validate:"omitempty,min=1,max=60"`
	CameraFixed     *bool    `json:"cameraFixed"`
	CfgScale        *float64 `json:"cfgScale" validate:"omitempty,min=1,max=20"`
	Count           *int     `json:"count" validate:"omitempty,min=1,max=4"`
	FirstFrameImage string   `json:"firstFrameImage" validate:"omitempty,url,max=1024"`
	LastFrameImage  string   `json:"lastFrameImage" validate:"omitempty,url,max=1024"`
	HD              *bool    `json:"hd"`
	Watermark       *bool    `json:"watermark"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// validationError flattens validator output into a domain.ErrValidation.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(parts, "; "))
}
