package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrValidation          = errors.New("validation failed")
	ErrQuotaExceeded       = errors.New("daily generation limit exceeded")
	ErrTemplateNotFound    = errors.New("template not found")
	ErrTemplateDisabled    = errors.New("template disabled")
	ErrProviderFailure     = errors.New("provider failure")
	ErrProviderTimeout     = errors.New("provider task timed out")
	ErrInternalStore       = errors.New("internal store error")
	ErrDispatchCanceled    = errors.New("dispatch canceled")
	ErrDispatchInterrupted = errors.New("dispatch interrupted")
)
