package generation

import "context"

// TaskStatus is the provider-side state of an asynchronous task.
type TaskStatus string

const (
	TaskRunning   TaskStatus = "running"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
)

// ImageRequest carries the inputs of a synchronous image generation.
type ImageRequest struct {
	Prompt         string
	Size           string
	Style          string
	Quality        string
	ResponseFormat string
	Seed           *int
	GuidanceScale  *float64
	Watermark      *bool
}

// ImageResult holds either a hosted URL or inline image bytes.
type ImageResult struct {
	URL  string
	Data []byte
}

// VideoRequest carries the inputs of an asynchronous video task.
type VideoRequest struct {
	Prompt          string
	Model           string
	Resolution      string
	Duration        *int
	Ratio           string
	FPS             *int
	CameraFixed     *bool
	CfgScale        *float64
	Count           *int
	Seed            *int
	FirstFrameImage string
	LastFrameImage  string
	HD              *bool
	Watermark       *bool
}

// TaskResult is one observation of a video task. VideoURL and Thumbnail may
// hold several values joined by commas or semicolons.
type TaskResult struct {
	Status    TaskStatus
	VideoURL  string
	Thumbnail string
	Error     string
}

// Provider is the external generation service.
type Provider interface {
	GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error)
	GenerateVideo(ctx context.Context, req VideoRequest) (taskID string, err error)
	QueryTask(ctx context.Context, taskID string) (*TaskResult, error)
}
