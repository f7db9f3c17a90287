package social_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kartr/kartr/internal/config"
	"github.com/kartr/kartr/internal/health"
	. "github.com/kartr/kartr/internal/social"
)

func writePNG(dir string, w, h int) string {
	var buf bytes.Buffer
	Expect(png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)))).To(Succeed())
	path := filepath.Join(dir, "post.png")
	Expect(os.WriteFile(path, buf.Bytes(), 0644)).To(Succeed())
	return path
}

var _ = Describe("Bluesky", func() {
	var (
		srv     *httptest.Server
		record  map[string]any
		blobCT  string
		authHdr []string
		tracker *health.Tracker
	)

	BeforeEach(func() {
		record, blobCT, authHdr = nil, "", nil
		tracker = health.NewTracker()
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHdr = append(authHdr, r.Header.Get("Authorization"))
			switch r.URL.Path {
			case "/xrpc/com.atproto.server.createSession":
				var login map[string]string
				_ = json.NewDecoder(r.Body).Decode(&login)
				if login["password"] != "app-pass" {
					w.WriteHeader(http.StatusUnauthorized)
					_, _ = io.WriteString(w, `{"error":"AuthenticationRequired"}`)
					return
				}
				_, _ = io.WriteString(w, `{"accessJwt":"jwt-1","did":"did:plc:kartr"}`)
			case "/xrpc/com.atproto.repo.uploadBlob":
				blobCT = r.Header.Get("Content-Type")
				_, _ = io.WriteString(w, `{"blob":{"$type":"blob","ref":{"$link":"bafy"},"mimeType":"image/png","size":10}}`)
			case "/xrpc/com.atproto.repo.createRecord":
				_ = json.NewDecoder(r.Body).Decode(&record)
				_, _ = io.WriteString(w, `{"uri":"at://did:plc:kartr/app.bsky.feed.post/3k","cid":"bafyrei"}`)
			default:
				http.NotFound(w, r)
			}
		}))
	})

	AfterEach(func() {
		srv.Close()
	})

	newBluesky := func(password string) *Bluesky {
		return NewBluesky(config.SocialConfig{BlueskyHandle: "kartr.bsky.social", BlueskyAppPassword: password, BlueskyPDS: srv.URL}, tracker)
	}

	It("needs credentials", func() {
		_, err := NewBluesky(config.SocialConfig{}, nil).Post(context.Background(), PostRequest{})
		Expect(err).To(MatchError(ErrNotConfigured))
	})

	It("uploads the image and creates an embedded post", func() {
		path := writePNG(GinkgoT().TempDir(), 40, 20)
		res, err := newBluesky("app-pass").Post(context.Background(), PostRequest{ContentType: ContentImage, MediaPath: path, Caption: "New drop!"})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Platform).To(Equal(PlatformBluesky))
		Expect(res.ID).To(Equal("at://did:plc:kartr/app.bsky.feed.post/3k"))

		Expect(blobCT).To(Equal("image/png"))
		Expect(authHdr).To(Equal([]string{"", "Bearer jwt-1", "Bearer jwt-1"}))
		Expect(record).To(HaveKeyWithValue("repo", "did:plc:kartr"))
		Expect(record).To(HaveKeyWithValue("collection", "app.bsky.feed.post"))

		post := record["record"].(map[string]any)
		Expect(post).To(HaveKeyWithValue("text", "New drop!"))
		embed := post["embed"].(map[string]any)
		Expect(embed).To(HaveKeyWithValue("$type", "app.bsky.embed.images"))
		img := embed["images"].([]any)[0].(map[string]any)
		Expect(img).To(HaveKeyWithValue("alt", "New drop!"))
		Expect(img["aspectRatio"]).To(Equal(map[string]any{"width": 40.0, "height": 20.0}))
		Expect(img["image"]).To(HaveKeyWithValue("mimeType", "image/png"))

		status, _ := tracker.GetStatus(health.Bluesky)
		Expect(status.IsHealthy).To(BeTrue())
	})

	It("reports a failed login", func() {
		path := writePNG(GinkgoT().TempDir(), 4, 4)
		_, err := newBluesky("wrong").Post(context.Background(), PostRequest{MediaPath: path})
		var apiErr *APIError
		Expect(errors.As(err, &apiErr)).To(BeTrue())
		Expect(apiErr.Status).To(Equal(http.StatusUnauthorized))
		status, _ := tracker.GetStatus(health.Bluesky)
		Expect(status.IsHealthy).To(BeFalse())
	})

	It("rejects videos", func() {
		_, err := newBluesky("app-pass").Post(context.Background(), PostRequest{ContentType: ContentVideo, MediaPath: "clip.mp4"})
		Expect(err).To(MatchError(ErrUnsupportedContent))
	})
})
