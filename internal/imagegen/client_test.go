package imagegen_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kartr/kartr/internal/config"
	"github.com/kartr/kartr/internal/health"
	. "github.com/kartr/kartr/internal/imagegen"
	"github.com/kartr/kartr/internal/store"
)

type recordingStore struct {
	images []store.GeneratedImage
}

func (r *recordingStore) AddGeneratedImage(_ context.Context, img *store.GeneratedImage) error {
	r.images = append(r.images, *img)
	return nil
}

var _ = Describe("Client", func() {
	var (
		srv      *httptest.Server
		handler  http.HandlerFunc
		hits     atomic.Int32
		lastBody map[string]string
		images   *recordingStore
		tracker  *health.Tracker
		dataDir  string
		clock    = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 890000000, time.UTC) }
	)

	BeforeEach(func() {
		hits.Store(0)
		lastBody = nil
		images = &recordingStore{}
		tracker = health.NewTracker()
		dataDir = GinkgoT().TempDir()
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			_ = json.NewDecoder(r.Body).Decode(&lastBody)
			handler(w, r)
		}))
	})

	AfterEach(func() {
		srv.Close()
	})

	newClient := func() *Client {
		cfg := config.ImageGenConfig{URL: srv.URL + "/", Timeout: 5 * time.Second, DataDir: dataDir}
		return NewClient(cfg, images, tracker, WithRetries(0), WithClock(clock))
	}

	It("returns ErrNotConfigured without a backend URL", func() {
		c := NewClient(config.ImageGenConfig{}, nil, nil)
		_, err := c.Generate(context.Background(), "a cat")
		Expect(err).To(MatchError(ErrNotConfigured))
		Expect(hits.Load()).To(BeZero())
	})

	It("accepts a base64 image", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/generate_image"))
			_, _ = w.Write([]byte(`{"image_base64":"aGVsbG8="}`))
		}
		res, err := newClient().Generate(context.Background(), "a cat")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.ImageBase64).To(Equal("aGVsbG8="))
		Expect(lastBody).To(HaveKeyWithValue("prompt", "a cat"))
		status, _ := tracker.GetStatus(health.ImageGen)
		Expect(status.IsHealthy).To(BeTrue())
	})

	It("accepts an image URL", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"image_url":"https://img.example/cat.png"}`))
		}
		res, err := newClient().Generate(context.Background(), "a cat")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.ImageURL).To(Equal("https://img.example/cat.png"))
	})

	It("fails when no image comes back", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}
		_, err := newClient().Generate(context.Background(), "a cat")
		Expect(err).To(MatchError(ErrNoImage))
	})

	It("reports backend errors with the status code", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("bad prompt"))
		}
		_, err := newClient().Generate(context.Background(), "a cat")
		Expect(err).To(MatchError(ContainSubstring("400 bad prompt")))
		status, _ := tracker.GetStatus(health.ImageGen)
		Expect(status.IsHealthy).To(BeFalse())
	})

	It("opens the circuit after five consecutive failures", func() {
		c := newClient()
		for i := 0; i < 5; i++ {
			_, err := c.Generate(context.Background(), "a cat")
			Expect(err).To(HaveOccurred())
			Expect(err).NotTo(MatchError(ErrBackendUnavailable))
		}
		_, err := c.Generate(context.Background(), "a cat")
		Expect(err).To(MatchError(ErrBackendUnavailable))
		Expect(hits.Load()).To(Equal(int32(5)))
	})

	It("makes a single attempt with retries disabled", func() {
		_, err := newClient().Generate(context.Background(), "a cat")
		Expect(err).To(MatchError(ContainSubstring("500")))
		Expect(hits.Load()).To(Equal(int32(1)))
	})

	It("retries server errors", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			if hits.Load() == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(`{"image_base64":"aGVsbG8="}`))
		}
		cfg := config.ImageGenConfig{URL: srv.URL, Timeout: 5 * time.Second, DataDir: dataDir}
		c := NewClient(cfg, images, tracker, WithRetries(2))
		_, err := c.Generate(context.Background(), "a cat")
		Expect(err).NotTo(HaveOccurred())
		Expect(hits.Load()).To(Equal(int32(2)))
	})

	Describe("Promotional", func() {
		It("sends both images, saves the output and records it", func() {
			png := []byte("\x89PNG fake")
			handler = func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/create_promotional_image"))
				_ = json.NewEncoder(w).Encode(map[string]string{"image_base64": base64.StdEncoding.EncodeToString(png)})
			}
			res, err := newClient().Promotional(context.Background(), 7, []byte("face"), []byte("brand"), "A runner at dawn", "Nike")
			Expect(err).NotTo(HaveOccurred())

			Expect(lastBody).To(HaveKeyWithValue("face_image_base64", base64.StdEncoding.EncodeToString([]byte("face"))))
			Expect(lastBody).To(HaveKeyWithValue("brand_image_base64", base64.StdEncoding.EncodeToString([]byte("brand"))))
			Expect(lastBody).To(HaveKeyWithValue("prompt", "A runner at dawn This image is brought to you by Nike."))

			Expect(res.OutputPath).To(HaveSuffix("output_20250304_050607_890000.png"))
			Expect(os.ReadFile(res.OutputPath)).To(Equal(png))
			Expect(images.images).To(HaveLen(1))
			Expect(images.images[0].UserID).To(Equal(int64(7)))
			Expect(images.images[0].BrandName).To(Equal("Nike"))
		})

		It("surfaces the backend error message", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"error":"GPU out of memory"}`))
			}
			_, err := newClient().Promotional(context.Background(), 1, nil, nil, "p", "Brand")
			Expect(err).To(MatchError(ErrNoImage))
			Expect(err).To(MatchError(ContainSubstring("GPU out of memory")))
			Expect(images.images).To(BeEmpty())
		})
	})

	DescribeTable("EnhancePrompt",
		func(prompt, brand, expected string) {
			Expect(EnhancePrompt(prompt, brand)).To(Equal(expected))
		},
		Entry("appends a missing brand", "Sunset beach", "Coke", "Sunset beach This image is brought to you by Coke."),
		Entry("keeps a prompt naming the brand", "Drink COKE on the beach", "Coke", "Drink COKE on the beach"),
		Entry("ignores an empty brand", "Sunset beach", "", "Sunset beach"),
	)
})
