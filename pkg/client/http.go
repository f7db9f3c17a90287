package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kartr/kartr/api/types"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrJobPending  = errors.New("job is still pending")
)

// Client talks to the Kartr HTTP API. Login stores the session token, which
// is then sent as a bearer token on every request. Without a token the API
// key, if any, is sent instead.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	options    *Options
	token      string
}

// NewClient creates a new Client instance.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	options, err := NewOptions(opts...)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		MaxConnsPerHost:     options.MaxConnsPerHost,
		MaxIdleConns:        options.MaxIdleConns,
		MaxIdleConnsPerHost: options.MaxIdleConnsPerHost,
		IdleConnTimeout:     options.IdleConnTimeout,
	}
	if options.ignoreTLSCert {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: options.Timeout, Transport: transport},
		options:    options,
		token:      options.Token,
	}, nil
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("error: received status code %d: %s", e.Status, e.Message)
}

// Token returns the session token of the last successful login.
func (c *Client) Token() string {
	return c.token
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, req types.RegisterRequest) (*types.User, error) {
	var u types.User
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login opens a session and keeps its token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*types.SessionResponse, error) {
	var sess types.SessionResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", types.LoginRequest{Email: email, Password: password}, &sess); err != nil {
		return nil, err
	}
	c.token = sess.Token
	return &sess, nil
}

// SubmitJob queues a job and returns a handle to poll its result.
func (c *Client) SubmitJob(ctx context.Context, job types.Job) (*JobResult, error) {
	var jobResp types.JobResponse
	if err := c.do(ctx, http.MethodPost, "/jobs", job, &jobResp); err != nil {
		return nil, err
	}
	return &JobResult{UUID: jobResp.UID, client: c, maxRetries: 60, delay: 1 * time.Second}, nil
}

// GetJobResult returns the current state of a job. A pending job comes back
// with Status types.JobPending and no error.
func (c *Client) GetJobResult(ctx context.Context, jobUUID string) (*types.JobResult, error) {
	var res types.JobResult
	err := c.do(ctx, http.MethodGet, "/jobs/"+jobUUID, nil, &res)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobUUID)
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// WaitForResult polls until the job leaves the pending state. A failed job
// returns its result together with the job error.
func (c *Client) WaitForResult(ctx context.Context, jobUUID string, maxRetries int, delay time.Duration) (*types.JobResult, error) {
	jr := &JobResult{UUID: jobUUID, client: c, maxRetries: maxRetries, delay: delay}
	return jr.Get(ctx)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("error marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", c.options.UserAgent)
	switch {
	case c.token != "":
		req.Header.Set("Authorization", "Bearer "+c.token)
	case c.options.APIKey != "":
		req.Header.Set("X-API-Key", c.options.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending %s request: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var e types.APIError
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			apiErr.Message = e.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("error unmarshaling response: %w", err)
	}
	return nil
}
