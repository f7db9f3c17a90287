package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"google.golang.org/genai"

	"github.com/kartr/kartr/internal/config"
	"github.com/kartr/kartr/internal/health"
	"github.com/kartr/kartr/internal/retry"
)

var (
	ErrNotConfigured = errors.New("Gemini API key is not configured")
	ErrEmptyResponse = errors.New("empty response from Gemini")
)

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GenAIGenerator calls the Gemini API through the genai SDK.
type GenAIGenerator struct {
	client  *genai.Client
	model   string
	health  health.Reporter
	retries uint64
}

// NewGenAIGenerator creates a generator for the configured model. baseURL is
// only set when talking to something other than the public endpoint.
func NewGenAIGenerator(ctx context.Context, cfg config.GeminiConfig, reporter health.Reporter, baseURL string) (*GenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = config.DefaultGeminiModel
	}
	return &GenAIGenerator{client: client, model: model, health: reporter, retries: 2}, nil
}

func (g *GenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var text string
	err := backoff.Retry(func() error {
		resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
		if err != nil {
			if retryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		text = strings.TrimSpace(resp.Text())
		if text == "" {
			return backoff.Permanent(ErrEmptyResponse)
		}
		return nil
	}, backoff.WithContext(retry.Exponential(time.Second, g.retries), ctx))

	health.Report(g.health, health.Gemini, err)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return text, nil
}

func retryable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code >= 500 || apiErr.Code == http.StatusTooManyRequests
	}
	return false
}
