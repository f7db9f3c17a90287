package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/kartr/kartr/internal/config"
	"github.com/kartr/kartr/internal/health"
	"github.com/kartr/kartr/internal/retry"
	"github.com/kartr/kartr/internal/store"
)

var (
	ErrNotConfigured      = errors.New("image backend URL is not configured")
	ErrBackendUnavailable = errors.New("image backend is unavailable")
	ErrNoImage            = errors.New("no image returned from backend")
)

const (
	generatePath    = "/generate_image"
	promotionalPath = "/create_promotional_image"
	breakerName     = "imagegen"
	tripAfter       = 5
)

// Result is what the backend returned for a single request. OutputPath is
// set when the image was written to disk.
type Result struct {
	ImageBase64 string `json:"image_base64,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	OutputPath  string `json:"output_path,omitempty"`
}

type backendResponse struct {
	ImageBase64 string `json:"image_base64"`
	ImageURL    string `json:"image_url"`
	Error       string `json:"error"`
}

type ImageStore interface {
	AddGeneratedImage(ctx context.Context, img *store.GeneratedImage) error
}

// Client talks to the notebook-hosted image backend. Every request goes
// through a circuit breaker shared by both endpoints.
type Client struct {
	baseURL string
	dataDir string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[*backendResponse]
	images  ImageStore
	health  health.Reporter
	retries uint64
	now     func() time.Time
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithRetries(n uint64) Option {
	return func(c *Client) { c.retries = n }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func NewClient(cfg config.ImageGenConfig, images ImageStore, reporter health.Reporter, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		dataDir: cfg.DataDir,
		http:    &http.Client{Timeout: cfg.Timeout},
		images:  images,
		health:  reporter,
		retries: 2,
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	c.cb = gobreaker.NewCircuitBreaker[*backendResponse](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= tripAfter
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logrus.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("Image backend circuit changed state")
		},
	})
	return c
}

func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// Generate asks the backend for an image matching prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (*Result, error) {
	resp, err := c.post(ctx, generatePath, map[string]string{"prompt": prompt})
	if err != nil {
		return nil, err
	}
	switch {
	case resp.ImageBase64 != "":
		return &Result{ImageBase64: resp.ImageBase64}, nil
	case resp.ImageURL != "":
		return &Result{ImageURL: resp.ImageURL}, nil
	}
	return nil, ErrNoImage
}

// Promotional composes a face and a brand image into an advert. The returned
// image is saved under the data directory and recorded for userID.
func (c *Client) Promotional(ctx context.Context, userID int64, face, brand []byte, prompt, brandName string) (*Result, error) {
	prompt = EnhancePrompt(prompt, brandName)
	resp, err := c.post(ctx, promotionalPath, map[string]string{
		"face_image_base64":  base64.StdEncoding.EncodeToString(face),
		"brand_image_base64": base64.StdEncoding.EncodeToString(brand),
		"prompt":             prompt,
		"brand_name":         brandName,
	})
	if err != nil {
		return nil, err
	}
	if resp.ImageBase64 == "" {
		if resp.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrNoImage, resp.Error)
		}
		return nil, ErrNoImage
	}

	out := &Result{ImageBase64: resp.ImageBase64}
	path, err := c.save(resp.ImageBase64)
	if err != nil {
		logrus.WithError(err).Warn("Failed to save promotional image")
	} else {
		out.OutputPath = path
	}
	if c.images != nil {
		rec := &store.GeneratedImage{UserID: userID, Prompt: prompt, BrandName: brandName, OutputPath: out.OutputPath}
		if err := c.images.AddGeneratedImage(ctx, rec); err != nil {
			logrus.WithError(err).Warn("Failed to record generated image")
		}
	}
	return out, nil
}

// EnhancePrompt makes sure the brand is mentioned in the prompt.
func EnhancePrompt(prompt, brandName string) string {
	if brandName == "" || strings.Contains(strings.ToLower(prompt), strings.ToLower(brandName)) {
		return prompt
	}
	return fmt.Sprintf("%s This image is brought to you by %s.", prompt, brandName)
}

func (c *Client) save(b64 string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("error decoding image: %w", err)
	}
	if err := os.MkdirAll(c.dataDir, 0750); err != nil {
		return "", err
	}
	ts := strings.Replace(c.now().Format("20060102_150405.000000"), ".", "_", 1)
	path := filepath.Join(c.dataDir, "output_"+ts+".png")
	if err := os.WriteFile(path, data, 0640); err != nil {
		return "", err
	}
	return path, nil
}

// post sends one JSON request through the breaker, retrying transport and
// server errors. An open circuit is not retried.
func (c *Client) post(ctx context.Context, path string, payload any) (*backendResponse, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	var resp *backendResponse
	err = backoff.Retry(func() error {
		r, err := c.cb.Execute(func() (*backendResponse, error) {
			return c.do(ctx, path, body)
		})
		switch {
		case err == nil:
			resp = r
			return nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return backoff.Permanent(ErrBackendUnavailable)
		case ctx.Err() != nil:
			return backoff.Permanent(ctx.Err())
		}
		var serr *statusError
		if errors.As(err, &serr) && serr.code < 500 {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(retry.Exponential(500*time.Millisecond, c.retries), ctx))

	health.Report(c.health, health.ImageGen, err)
	return resp, err
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("image backend error: %d %s", e.code, e.body)
}

func (c *Client) do(ctx context.Context, path string, body []byte) (*backendResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		return nil, &statusError{code: res.StatusCode, body: strings.TrimSpace(string(raw))}
	}
	var out backendResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("error decoding image backend response: %w", err)
	}
	return &out, nil
}
