package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"

	"github.com/kartr/kartr/internal/config"
	"github.com/kartr/kartr/internal/health"
)

var errContainerPending = errors.New("media container is still processing")

// Instagram publishes through the Graph API content publishing flow: create a
// media container, wait for it to finish processing, then publish it.
type Instagram struct {
	apiURL       string
	userID       string
	token        string
	mediaBaseURL string
	http         *http.Client
	health       health.Reporter
	pollInterval time.Duration
	pollTimeout  time.Duration
}

func NewInstagram(cfg config.SocialConfig, reporter health.Reporter) *Instagram {
	api := cfg.InstagramAPIURL
	if api == "" {
		api = config.DefaultInstagramAPI
	}
	return &Instagram{
		apiURL:       strings.TrimRight(api, "/"),
		userID:       cfg.InstagramUserID,
		token:        cfg.InstagramAccessToken,
		mediaBaseURL: cfg.MediaBaseURL,
		http:         &http.Client{Timeout: 60 * time.Second},
		health:       reporter,
		pollInterval: 3 * time.Second,
		pollTimeout:  5 * time.Minute,
	}
}

func (i *Instagram) Configured() bool {
	return i.userID != "" && i.token != ""
}

// SetPolling changes how often and how long a video container is polled.
func (i *Instagram) SetPolling(interval, timeout time.Duration) {
	i.pollInterval, i.pollTimeout = interval, timeout
}

func (i *Instagram) Post(ctx context.Context, req PostRequest) (*PostResult, error) {
	if !i.Configured() {
		return nil, ErrNotConfigured
	}
	mediaURL, err := i.mediaURL(req)
	if err != nil {
		return nil, err
	}

	res, err := i.publish(ctx, req, mediaURL)
	health.Report(i.health, health.Instagram, err)
	return res, err
}

func (i *Instagram) mediaURL(req PostRequest) (string, error) {
	if req.MediaURL != "" {
		return req.MediaURL, nil
	}
	if i.mediaBaseURL == "" || req.MediaPath == "" {
		return "", ErrMediaURLRequired
	}
	return i.mediaBaseURL + "/" + url.PathEscape(filepath.Base(req.MediaPath)), nil
}

func (i *Instagram) publish(ctx context.Context, req PostRequest, mediaURL string) (*PostResult, error) {
	form := url.Values{"caption": {req.Caption}}
	switch req.ContentType {
	case ContentImage, "":
		form.Set("image_url", mediaURL)
	case ContentVideo:
		form.Set("media_type", "REELS")
		form.Set("video_url", mediaURL)
	default:
		return nil, fmt.Errorf("instagram %s: %w", req.ContentType, ErrUnsupportedContent)
	}

	var container struct {
		ID string `json:"id"`
	}
	if err := i.call(ctx, http.MethodPost, "/"+i.userID+"/media", form, &container); err != nil {
		return nil, fmt.Errorf("instagram create container: %w", err)
	}
	if req.ContentType == ContentVideo {
		if err := i.waitForContainer(ctx, container.ID); err != nil {
			return nil, err
		}
	}

	var published struct {
		ID string `json:"id"`
	}
	if err := i.call(ctx, http.MethodPost, "/"+i.userID+"/media_publish", url.Values{"creation_id": {container.ID}}, &published); err != nil {
		return nil, fmt.Errorf("instagram publish: %w", err)
	}
	logrus.WithField("media_id", published.ID).Info("Posted to Instagram")
	return &PostResult{Platform: PlatformInstagram, ID: published.ID}, nil
}

func (i *Instagram) waitForContainer(ctx context.Context, id string) error {
	b := backoff.NewConstantBackOff(i.pollInterval)
	deadline := time.Now().Add(i.pollTimeout)
	return backoff.Retry(func() error {
		var st struct {
			StatusCode string `json:"status_code"`
		}
		if err := i.call(ctx, http.MethodGet, "/"+id, url.Values{"fields": {"status_code"}}, &st); err != nil {
			return backoff.Permanent(err)
		}
		switch st.StatusCode {
		case "FINISHED", "PUBLISHED":
			return nil
		case "ERROR", "EXPIRED":
			return backoff.Permanent(fmt.Errorf("instagram container %s: %s", id, st.StatusCode))
		}
		if time.Now().After(deadline) {
			return backoff.Permanent(fmt.Errorf("instagram container %s: %w", id, errContainerPending))
		}
		return errContainerPending
	}, backoff.WithContext(b, ctx))
}

func (i *Instagram) call(ctx context.Context, method, path string, params url.Values, out any) error {
	params.Set("access_token", i.token)
	u := i.apiURL + path
	var req *http.Request
	var err error
	if method == http.MethodGet {
		req, err = http.NewRequestWithContext(ctx, method, u+"?"+params.Encode(), nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, u, strings.NewReader(params.Encode()))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return err
	}
	res, err := i.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if err := checkResponse(PlatformInstagram, res); err != nil {
		return err
	}
	return json.NewDecoder(res.Body).Decode(out)
}
