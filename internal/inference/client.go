// Package inference is a client for the facial emotion detection service.
//
// The service accepts a base64 encoded image, optionally as a data URL, and
// answers with the dominant emotion label and its confidence.
package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cinemood/cinemood-server/internal/breaker"
	"github.com/cinemood/cinemood-server/internal/emotion"
	"github.com/cinemood/cinemood-server/internal/metrics"
)

const (
	defaultTimeout       = 15 * time.Second
	defaultMaxImageBytes = 5 << 20

	// MinConfidence is the confidence below which a detection is treated
	// as neutral.
	MinConfidence = 0.4

	maxResponseBytes = 64 << 10
)

// Sentinel errors for detection.
var (
	ErrDisabled      = errors.New("inference: no detection endpoint configured")
	ErrEmptyImage    = errors.New("inference: image is empty")
	ErrInvalidImage  = errors.New("inference: image is not valid base64")
	ErrImageTooLarge = errors.New("inference: image exceeds size limit")
	ErrRejected      = errors.New("inference: request rejected")
	ErrServer        = errors.New("inference: server error")
	ErrBadResponse   = errors.New("inference: malformed response")
)

// Config configures a Client.
type Config struct {
	URL           string // Full detect-emotion endpoint
	Timeout       time.Duration
	MaxImageBytes int // Limit on the decoded image size
}

// Detection is a classified frame.
type Detection struct {
	Emotion    emotion.Emotion `json:"emotion"`
	Label      string          `json:"label"` // Raw label from the classifier
	Confidence float64         `json:"confidence"`
}

// Client posts frames to the detection service.
type Client struct {
	http    *http.Client
	cfg     Config
	breaker *breaker.Breaker[*Detection]
	logger  *slog.Logger
}

// New creates a client. An empty URL gives a client whose Detect always
// returns ErrDisabled.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = defaultMaxImageBytes
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		http: &http.Client{Timeout: cfg.Timeout},
		cfg:  cfg,
		breaker: breaker.New[*Detection](breaker.Config{
			Name:         "inference",
			IsSuccessful: func(err error) bool { return err == nil || errors.Is(err, ErrRejected) },
		}, logger),
		logger: logger,
	}
}

// Enabled reports whether a detection endpoint is configured.
func (c *Client) Enabled() bool {
	return c.cfg.URL != ""
}

// Detect classifies the face in image.
func (c *Client) Detect(ctx context.Context, image string) (*Detection, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	if err := ValidateImage(image, c.cfg.MaxImageBytes); err != nil {
		return nil, err
	}

	start := time.Now()
	d, err := c.breaker.Execute(func() (*Detection, error) {
		return c.post(ctx, image)
	})
	metrics.RecordUpstream("inference", "detect", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("detect emotion: %w", err)
	}

	c.logger.Debug("emotion detected",
		"label", d.Label,
		"emotion", d.Emotion,
		"confidence", d.Confidence,
	)
	return d, nil
}

func (c *Client) post(ctx context.Context, image string) (*Detection, error) {
	payload, err := json.Marshal(map[string]string{"image": image})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500:
		return nil, ErrServer
	default:
		return nil, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return parseDetection(body)
}

func parseDetection(body []byte) (*Detection, error) {
	var raw struct {
		Emotion    string   `json:"emotion"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if raw.Emotion == "" {
		return nil, fmt.Errorf("%w: missing emotion", ErrBadResponse)
	}

	confidence := 1.0
	if raw.Confidence != nil {
		confidence = *raw.Confidence
	}

	e, _ := emotion.FromDetectorLabel(raw.Emotion)
	if confidence < MinConfidence {
		e = emotion.Neutral
	}

	return &Detection{
		Emotion:    e,
		Label:      raw.Emotion,
		Confidence: confidence,
	}, nil
}

// ValidateImage checks that image is base64, optionally wrapped in a data
// URL, and that the decoded payload is no larger than maxBytes.
func ValidateImage(image string, maxBytes int) error {
	data := strings.TrimSpace(image)
	if strings.HasPrefix(data, "data:") {
		_, after, ok := strings.Cut(data, ",")
		if !ok {
			return ErrInvalidImage
		}
		data = after
	}
	if data == "" {
		return ErrEmptyImage
	}
	if maxBytes > 0 && base64.StdEncoding.DecodedLen(len(data)) > maxBytes+2 {
		return ErrImageTooLarge
	}

	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if maxBytes > 0 && len(decoded) > maxBytes {
		return ErrImageTooLarge
	}
	return nil
}
