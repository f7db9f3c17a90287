package social_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kartr/kartr/internal/config"
	. "github.com/kartr/kartr/internal/social"
)

var _ = Describe("Instagram", func() {
	var (
		srv       *httptest.Server
		created   url.Values
		published url.Values
		polls     atomic.Int32
		cfg       config.SocialConfig
	)

	BeforeEach(func() {
		created, published = nil, nil
		polls.Store(0)
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseForm()
			Expect(r.Form.Get("access_token")).To(Equal("ig-token"))
			switch r.URL.Path {
			case "/1784/media":
				created = r.PostForm
				_, _ = io.WriteString(w, `{"id":"container-1"}`)
			case "/container-1":
				if polls.Add(1) < 3 {
					_, _ = io.WriteString(w, `{"status_code":"IN_PROGRESS"}`)
					return
				}
				_, _ = io.WriteString(w, `{"status_code":"FINISHED"}`)
			case "/1784/media_publish":
				published = r.PostForm
				_, _ = io.WriteString(w, `{"id":"media-9"}`)
			default:
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, `{"error":{"message":"Unsupported request"}}`)
			}
		}))
		cfg = config.SocialConfig{InstagramUserID: "1784", InstagramAccessToken: "ig-token", InstagramAPIURL: srv.URL, MediaBaseURL: "https://cdn.kartr.test/media"}
	})

	AfterEach(func() {
		srv.Close()
	})

	newInstagram := func() *Instagram {
		ig := NewInstagram(cfg, nil)
		ig.SetPolling(time.Millisecond, time.Second)
		return ig
	}

	It("publishes an image from the media base URL", func() {
		res, err := newInstagram().Post(context.Background(), PostRequest{ContentType: ContentImage, MediaPath: "/data/summer sale.png", Caption: "Summer!"})
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal(&PostResult{Platform: PlatformInstagram, ID: "media-9"}))
		Expect(created.Get("image_url")).To(Equal("https://cdn.kartr.test/media/summer%20sale.png"))
		Expect(created.Get("caption")).To(Equal("Summer!"))
		Expect(published.Get("creation_id")).To(Equal("container-1"))
		Expect(polls.Load()).To(BeZero())
	})

	It("waits for a video container to finish processing", func() {
		res, err := newInstagram().Post(context.Background(), PostRequest{ContentType: ContentVideo, MediaURL: "https://cdn.kartr.test/reel.mp4"})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.ID).To(Equal("media-9"))
		Expect(created.Get("media_type")).To(Equal("REELS"))
		Expect(created.Get("video_url")).To(Equal("https://cdn.kartr.test/reel.mp4"))
		Expect(polls.Load()).To(Equal(int32(3)))
	})

	It("needs a public URL for local media", func() {
		cfg.MediaBaseURL = ""
		_, err := newInstagram().Post(context.Background(), PostRequest{ContentType: ContentImage, MediaPath: "/data/a.png"})
		Expect(err).To(MatchError(ErrMediaURLRequired))
	})

	It("needs credentials", func() {
		_, err := NewInstagram(config.SocialConfig{}, nil).Post(context.Background(), PostRequest{})
		Expect(err).To(MatchError(ErrNotConfigured))
	})
})
