package health

import (
	"sync"
	"time"
)

// Well-known upstream names.
const (
	YouTube       = "youtube"
	Gemini        = "gemini"
	ImageGen      = "imagegen"
	Mail          = "mail"
	Bluesky       = "bluesky"
	Instagram     = "instagram"
	YouTubeUpload = "youtube_upload"
)

// UpstreamStatus holds the health information for a single upstream service.
type UpstreamStatus struct {
	Name        string    `json:"name"`
	IsHealthy   bool      `json:"healthy"`
	LastChecked time.Time `json:"last_checked"`
	LastError   string    `json:"last_error,omitempty"`
	ErrorCount  int       `json:"error_count"`
}

// Reporter is what upstream clients use to report call outcomes.
type Reporter interface {
	UpdateStatus(name string, isHealthy bool, err error)
}

// Tracker keeps the last known status of every upstream.
type Tracker struct {
	statuses map[string]UpstreamStatus
	mu       sync.RWMutex
}

func NewTracker() *Tracker {
	return &Tracker{
		statuses: make(map[string]UpstreamStatus),
	}
}

// UpdateStatus records the outcome of a call to an upstream.
func (t *Tracker) UpdateStatus(name string, isHealthy bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	status, exists := t.statuses[name]
	if !exists {
		status = UpstreamStatus{Name: name}
	}

	status.IsHealthy = isHealthy
	status.LastChecked = time.Now()

	if err != nil {
		status.LastError = err.Error()
		if !isHealthy {
			status.ErrorCount++
		}
	} else {
		status.LastError = ""
		status.ErrorCount = 0
	}
	t.statuses[name] = status
}

func (t *Tracker) GetStatus(name string) (UpstreamStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	status, exists := t.statuses[name]
	return status, exists
}

// GetAllStatuses returns a copy of all tracked statuses.
func (t *Tracker) GetAllStatuses() map[string]UpstreamStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	statusesCopy := make(map[string]UpstreamStatus, len(t.statuses))
	for k, v := range t.statuses {
		statusesCopy[k] = v
	}
	return statusesCopy
}

// Report is a nil-safe helper for clients holding an optional Reporter.
func Report(r Reporter, name string, err error) {
	if r == nil {
		return
	}
	r.UpdateStatus(name, err == nil, err)
}
