package gemini_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kartr/kartr/internal/config"
	. "github.com/kartr/kartr/internal/gemini"
	"github.com/kartr/kartr/internal/health"
)

var _ = Describe("GenAIGenerator", func() {
	var (
		srv     *httptest.Server
		hits    atomic.Int32
		failing int32
		tracker *health.Tracker
	)

	BeforeEach(func() {
		hits.Store(0)
		failing = 0
		tracker = health.NewTracker()
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if !strings.Contains(r.URL.Path, ":generateContent") {
				http.NotFound(w, r)
				return
			}
			if hits.Add(1) <= failing {
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprint(w, `{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`)
				return
			}
			fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"  hello from gemini  "}]}}]}`)
		}))
	})

	AfterEach(func() {
		srv.Close()
	})

	newGenerator := func() *GenAIGenerator {
		g, err := NewGenAIGenerator(context.Background(), config.GeminiConfig{APIKey: "test-key"}, tracker, srv.URL)
		Expect(err).NotTo(HaveOccurred())
		return g
	}

	It("requires an API key", func() {
		_, err := NewGenAIGenerator(context.Background(), config.GeminiConfig{}, nil, "")
		Expect(err).To(MatchError(ErrNotConfigured))
	})

	It("returns the trimmed response text", func() {
		text, err := newGenerator().Generate(context.Background(), "hi")
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("hello from gemini"))
		status, ok := tracker.GetStatus(health.Gemini)
		Expect(ok).To(BeTrue())
		Expect(status.IsHealthy).To(BeTrue())
	})

	It("retries unavailable responses", func() {
		failing = 1
		text, err := newGenerator().Generate(context.Background(), "hi")
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("hello from gemini"))
		Expect(hits.Load()).To(BeNumerically(">=", 2))
	})
})
