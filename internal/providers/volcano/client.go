package volcano

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"textvision/internal/domain"
	"textvision/internal/generation"
	"textvision/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("volcano: api key is required")

const (
	defaultBaseURL    = "https://ark.cn-beijing.volces.com/api/v3"
	defaultImageModel = "doubao-seedream-3-0-t2i-250415"
	defaultVideoModel = "doubao-seedance-1-0-pro-250528"
	defaultDuration   = 5
	defaultFPS        = 24
)

// Options configures the Volcano Engine Ark client.
type Options struct {
	APIKey         string
	BaseURL        string
	ImageModel     string
	VideoModel     string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client calls the Ark image generation and content generation task APIs.
type Client struct {
	apiKey     string
	baseURL    string
	imageModel string
	videoModel string
	httpClient *http.Client
	logger     *infra.Logger
}

var _ generation.Provider = (*Client)(nil)

type imageRequest struct {
	Model          string   `json:"model"`
	Prompt         string   `json:"prompt"`
	Size           string   `json:"size,omitempty"`
	Quality        string   `json:"quality,omitempty"`
	N              int      `json:"n"`
	ResponseFormat string   `json:"response_format,omitempty"`
	Seed           *int     `json:"seed,omitempty"`
	GuidanceScale  *float64 `json:"guidance_scale,omitempty"`
	Watermark      *bool    `json:"watermark,omitempty"`
}

type imageResponse struct {
	Data []struct {
		URL           string `json:"url"`
		B64JSON       string `json:"b64_json"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
	Error *apiError `json:"error,omitempty"`
}

type taskRequest struct {
	Model   string        `json:"model"`
	Content []taskContent `json:"content"`
}

type taskContent struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageRef `json:"image_url,omitempty"`
	Role     string    `json:"role,omitempty"`
}

type imageRef struct {
	URL string `json:"url"`
}

type taskCreated struct {
	ID    string    `json:"id"`
	Error *apiError `json:"error,omitempty"`
}

type taskResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Content struct {
		VideoURL     string `json:"video_url"`
		LastFrameURL string `json:"last_frame_url"`
	} `json:"content"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

// NewClient constructs a client with defaults for the public Ark endpoint.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	imageModel := strings.TrimSpace(opts.ImageModel)
	if imageModel == "" {
		imageModel = defaultImageModel
	}
	videoModel := strings.TrimSpace(opts.VideoModel)
	if videoModel == "" {
		videoModel = defaultVideoModel
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		imageModel: imageModel,
		videoModel: videoModel,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// GenerateImage performs a synchronous text-to-image call and returns the
// first image, either hosted or inline.
func (c *Client) GenerateImage(ctx context.Context, req generation.ImageRequest) (*generation.ImageResult, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("volcano: prompt is required")
	}
	if style := strings.TrimSpace(req.Style); style != "" {
		prompt = prompt + ", " + style + " style"
	}
	quality := strings.TrimSpace(req.Quality)
	if quality == "" {
		quality = "standard"
	}
	payload := imageRequest{
		Model:          c.imageModel,
		Prompt:         prompt,
		Size:           req.Size,
		Quality:        quality,
		N:              1,
		ResponseFormat: req.ResponseFormat,
		Seed:           req.Seed,
		GuidanceScale:  req.GuidanceScale,
		Watermark:      req.Watermark,
	}

	var decoded imageResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/images/generations", payload, &decoded); err != nil {
		return nil, err
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return nil, providerError(decoded.Error)
	}
	for _, item := range decoded.Data {
		if u := strings.TrimSpace(item.URL); u != "" {
			c.logger.Debug().Str("model", c.imageModel).Str("url", u).Msg("volcano: generated image")
			return &generation.ImageResult{URL: u}, nil
		}
		if item.B64JSON != "" {
			data, err := base64.StdEncoding.DecodeString(item.B64JSON)
			if err != nil {
				return nil, fmt.Errorf("volcano: decode inline image: %w: %w", domain.ErrProviderFailure, err)
			}
			return &generation.ImageResult{Data: data}, nil
		}
	}
	return nil, fmt.Errorf("volcano: empty image response: %w", domain.ErrProviderFailure)
}

// GenerateVideo creates an asynchronous video task and returns its id.
func (c *Client) GenerateVideo(ctx context.Context, req generation.VideoRequest) (string, error) {
	if !c.HasCredentials() {
		return "", ErrMissingAPIKey
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", errors.New("volcano: prompt is required")
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.videoModel
	}
	payload := taskRequest{
		Model:   model,
		Content: []taskContent{{Type: "text", Text: videoPromptText(prompt, req)}},
	}
	if u := strings.TrimSpace(req.FirstFrameImage); u != "" {
		payload.Content = append(payload.Content, taskContent{Type: "image_url", ImageURL: &imageRef{URL: u}, Role: "first_frame"})
	}
	if u := strings.TrimSpace(req.LastFrameImage); u != "" {
		payload.Content = append(payload.Content, taskContent{Type: "image_url", ImageURL: &imageRef{URL: u}, Role: "last_frame"})
	}

	var created taskCreated
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/contents/generations/tasks", payload, &created); err != nil {
		return "", err
	}
	if created.Error != nil && created.Error.Message != "" {
		return "", providerError(created.Error)
	}
	if strings.TrimSpace(created.ID) == "" {
		return "", fmt.Errorf("volcano: task id missing: %w", domain.ErrProviderFailure)
	}
	c.logger.Info().Str("model", model).Str("task_id", created.ID).Msg("volcano: video task created")
	return created.ID, nil
}

// QueryTask reads the current state of a video task.
func (c *Client) QueryTask(ctx context.Context, taskID string) (*generation.TaskResult, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, errors.New("volcano: task id is required")
	}
	var decoded taskResponse
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/contents/generations/tasks/"+url.PathEscape(taskID), nil, &decoded); err != nil {
		return nil, err
	}

	res := &generation.TaskResult{}
	switch strings.ToLower(decoded.Status) {
	case "succeeded":
		res.Status = generation.TaskSucceeded
		res.VideoURL = decoded.Content.VideoURL
		res.Thumbnail = decoded.Content.LastFrameURL
	case "failed", "cancelled", "expired":
		res.Status = generation.TaskFailed
		res.Error = "video task " + strings.ToLower(decoded.Status)
		if decoded.Error != nil && decoded.Error.Message != "" {
			res.Error = fmt.Sprintf("%s (%s)", decoded.Error.Message, decoded.Error.Code)
		}
	default:
		res.Status = generation.TaskRunning
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("volcano: encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("volcano: build request: %w", err)
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("volcano: http request: %w: %w", domain.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("volcano: read response: %w: %w", domain.ErrProviderFailure, err)
	}
	if resp.StatusCode >= 300 {
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Error.Message != "" {
			return providerError(&detail.Error)
		}
		return fmt.Errorf("volcano: status %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(raw)), domain.ErrProviderFailure)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("volcano: decode response: %w: %w", domain.ErrProviderFailure, err)
	}
	return nil
}

func providerError(e *apiError) error {
	return fmt.Errorf("volcano: %s (%s): %w", e.Message, e.Code, domain.ErrProviderFailure)
}

// videoPromptText appends Seedance command flags to the prompt.
func videoPromptText(prompt string, req generation.VideoRequest) string {
	var b strings.Builder
	b.WriteString(prompt)
	if r := strings.TrimSpace(req.Resolution); r != "" {
		b.WriteString(" --rs " + r)
	}
	if r := strings.TrimSpace(req.Ratio); r != "" {
		b.WriteString(" --rt " + r)
	}
	dur := defaultDuration
	if req.Duration != nil {
		dur = *req.Duration
	}
	b.WriteString(" --dur " + strconv.Itoa(dur))
	fps := defaultFPS
	if req.FPS != nil {
		fps = *req.FPS
	}
	b.WriteString(" --fps " + strconv.Itoa(fps))
	if req.CameraFixed != nil {
		b.WriteString(" --cf " + strconv.FormatBool(*req.CameraFixed))
	}
	if req.Seed != nil {
		b.WriteString(" --seed " + strconv.Itoa(*req.Seed))
	}
	if req.Watermark != nil {
		b.WriteString(" --wm " + strconv.FormatBool(*req.Watermark))
	}
	quality := "standard"
	if req.HD != nil && *req.HD {
		quality = "hd"
	}
	b.WriteString(" --quality " + quality)
	return b.String()
}
