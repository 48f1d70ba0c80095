package domain

import "time"

// Modality selects the provider call path used for a job.
type Modality string

const (
	ModalityImage Modality = "image"
	ModalityVideo Modality = "video"
)

// Valid reports whether m is a supported modality.
func (m Modality) Valid() bool {
	return m == ModalityImage || m == ModalityVideo
}

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further writes are permitted for the status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Params is the modality-specific parameter bag persisted with a job.
type Params struct {
	Style           string   `json:"style,omitempty"`
	Quality         string   `json:"quality,omitempty"`
	ResponseFormat  string   `json:"responseFormat,omitempty"`
	Seed            *int     `json:"seed,omitempty"`
	GuidanceScale   *float64 `json:"guidanceScale,omitempty"`
	Model           string   `json:"model,omitempty"`
	Resolution      string   `json:"resolution,omitempty"`
	Duration        *int     `json:"duration,omitempty"`
	Ratio           string   `json:"ratio,omitempty"`
	FPS             *int     `json:"fps,omitempty"`
	CameraFixed     *bool    `json:"cameraFixed,omitempty"`
	CfgScale        *float64 `json:"cfgScale,omitempty"`
	Count           *int     `json:"count,omitempty"`
	FirstFrameImage string   `json:"firstFrameImage,omitempty"`
	LastFrameImage  string   `json:"lastFrameImage,omitempty"`
	HD              *bool    `json:"hd,omitempty"`
	Watermark       *bool    `json:"watermark,omitempty"`
	TaskID          string   `json:"taskId,omitempty"`
}

// Job is the persisted record of a single generation request.
type Job struct {
	ID             string
	UserID         string
	Modality       Modality
	Prompt         string
	Size           string
	AspectRatio    string
	Style          string
	TemplateID     *int64
	ReferenceImage string
	Params         Params
	URL            string
	Thumbnail      string
	URLs           []string
	Thumbnails     []string
	Status         JobStatus
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Outcome is the terminal write applied to a job by Finalize.
type Outcome struct {
	Status JobStatus
	Assets AssetSet
	Error  string
}

// Completed builds a successful outcome for the given assets.
func Completed(assets AssetSet) Outcome {
	return Outcome{Status: JobStatusCompleted, Assets: assets}
}

// Failed builds a failed outcome carrying the error message.
func Failed(msg string) Outcome {
	return Outcome{Status: JobStatusFailed, Error: msg}
}

// JobFilter narrows a user's job listing.
type JobFilter struct {
	Modality Modality
	Status   JobStatus
	Page     int
	Size     int
}
