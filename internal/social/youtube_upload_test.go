package social_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"google.golang.org/api/option"

	"github.com/kartr/kartr/internal/config"
	. "github.com/kartr/kartr/internal/social"
)

var _ = Describe("YouTubeUploader", func() {
	var (
		srv        *httptest.Server
		thumbnails int
		dir        string
	)

	BeforeEach(func() {
		thumbnails = 0
		dir = GinkgoT().TempDir()
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			switch {
			case strings.Contains(r.URL.Path, "thumbnails"):
				thumbnails++
				_, _ = io.WriteString(w, `{"items":[]}`)
			case strings.HasSuffix(r.URL.Path, "/videos"):
				// The client may send part as one joined value or as repeated values.
				var parts []string
				for _, p := range r.URL.Query()["part"] {
					parts = append(parts, strings.Split(p, ",")...)
				}
				Expect(parts).To(ConsistOf("snippet", "status"))
				_, _ = io.WriteString(w, `{"id":"abc123def45"}`)
			default:
				http.NotFound(w, r)
			}
		}))
	})

	AfterEach(func() {
		srv.Close()
	})

	newUploader := func() *YouTubeUploader {
		u, err := NewYouTubeUploaderWithOptions(context.Background(), nil, option.WithEndpoint(srv.URL+"/"), option.WithoutAuthentication())
		Expect(err).NotTo(HaveOccurred())
		return u
	}

	It("uploads the video and its thumbnail", func() {
		video := filepath.Join(dir, "clip.mp4")
		thumb := filepath.Join(dir, "thumb.png")
		Expect(os.WriteFile(video, []byte("not really a video"), 0644)).To(Succeed())
		Expect(os.WriteFile(thumb, []byte("not really a png"), 0644)).To(Succeed())

		res, err := newUploader().Post(context.Background(), PostRequest{ContentType: ContentVideo, MediaPath: video, ThumbnailPath: thumb, Title: "Launch", Caption: "Watch this"})
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal(&PostResult{Platform: PlatformYouTube, ID: "abc123def45", URL: "https://www.youtube.com/watch?v=abc123def45"}))
		Expect(thumbnails).To(Equal(1))
	})

	It("rejects images", func() {
		_, err := newUploader().Post(context.Background(), PostRequest{ContentType: ContentImage, MediaPath: "a.png"})
		Expect(err).To(MatchError(ErrUnsupportedContent))
	})

	It("is not configured without client secrets", func() {
		_, err := NewYouTubeUploader(context.Background(), config.SocialConfig{}, nil)
		Expect(err).To(MatchError(ErrNotConfigured))
	})
})
