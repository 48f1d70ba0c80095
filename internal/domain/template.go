package domain

import "time"

// Template is a reusable prompt preset. Only active templates may be used
// for new jobs.
type Template struct {
	ID         int64
	Title      string
	Prompt     string
	Modality   Modality
	Active     bool
	UsageCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Style is an art style whose description is prepended to prompts.
type Style struct {
	ID          int64
	Name        string
	Description string
	Active      bool
}

// OperationLog is a single user operation record.
type OperationLog struct {
	UserID    string
	Operation string
	TargetID  string
	Detail    map[string]any
	IP        string
	Country   string
	UserAgent string
	CreatedAt time.Time
}
