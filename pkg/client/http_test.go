package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kartr/kartr/api/types"
	. "github.com/kartr/kartr/pkg/client"
)

var _ = Describe("Client", func() {
	var (
		mockServer *httptest.Server
		client     *Client
		polls      atomic.Int32
		lastAuth   atomic.Value
		ctx        context.Context
	)

	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	BeforeEach(func() {
		ctx = context.Background()
		polls.Store(0)
		mockServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lastAuth.Store(r.Header.Get("Authorization") + "|" + r.Header.Get("X-API-Key"))
			switch {
			case r.Method == http.MethodPost && r.URL.Path == "/auth/register":
				var req types.RegisterRequest
				_ = json.NewDecoder(r.Body).Decode(&req)
				writeJSON(w, http.StatusCreated, types.User{ID: 1, Username: req.Username, UserType: req.UserType})
			case r.Method == http.MethodPost && r.URL.Path == "/auth/login":
				var req types.LoginRequest
				_ = json.NewDecoder(r.Body).Decode(&req)
				if req.Password != "secret1" {
					writeJSON(w, http.StatusUnauthorized, types.APIError{Error: "invalid email or password"})
					return
				}
				writeJSON(w, http.StatusOK, types.SessionResponse{Token: "session-token", User: types.User{ID: 1}})
			case r.Method == http.MethodPost && r.URL.Path == "/jobs":
				writeJSON(w, http.StatusAccepted, types.JobResponse{UID: "mock-job-id"})
			case r.URL.Path == "/jobs/mock-job-id":
				if polls.Add(1) < 3 {
					writeJSON(w, http.StatusOK, types.JobResult{UUID: "mock-job-id", Status: types.JobPending})
					return
				}
				writeJSON(w, http.StatusOK, types.JobResult{UUID: "mock-job-id", Status: types.JobCompleted, Data: json.RawMessage(`{"ok":true}`)})
			case r.URL.Path == "/jobs/failed-job":
				writeJSON(w, http.StatusOK, types.JobResult{UUID: "failed-job", Status: types.JobFailed, Error: "quota exceeded"})
			default:
				writeJSON(w, http.StatusNotFound, types.APIError{Error: "Job not found"})
			}
		}))

		var err error
		client, err = NewClient(mockServer.URL, APIKey("machine-key"), Timeout(5*time.Second))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		mockServer.Close()
	})

	Describe("Register and Login", func() {
		It("registers without opening a session", func() {
			u, err := client.Register(ctx, types.RegisterRequest{Username: "alice", UserType: types.Influencer})
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Username).To(Equal("alice"))
			Expect(client.Token()).To(BeEmpty())
		})

		It("stores the token and sends it afterwards", func() {
			sess, err := client.Login(ctx, "alice@example.com", "secret1")
			Expect(err).NotTo(HaveOccurred())
			Expect(sess.Token).To(Equal("session-token"))
			Expect(client.Token()).To(Equal("session-token"))

			_, err = client.SubmitJob(ctx, types.Job{Type: "telemetry"})
			Expect(err).NotTo(HaveOccurred())
			Expect(lastAuth.Load()).To(Equal("Bearer session-token|"))
		})

		It("returns the server error message", func() {
			_, err := client.Login(ctx, "alice@example.com", "wrong")
			var apiErr *APIError
			Expect(errors.As(err, &apiErr)).To(BeTrue())
			Expect(apiErr.Status).To(Equal(http.StatusUnauthorized))
			Expect(apiErr.Message).To(Equal("invalid email or password"))
		})
	})

	Describe("options", func() {
		It("reuses a session token", func() {
			c, err := NewClient(mockServer.URL, SessionToken("session-token"), UserAgent("kartr-cli"))
			Expect(err).NotTo(HaveOccurred())
			_, err = c.SubmitJob(ctx, types.Job{Type: "telemetry"})
			Expect(err).NotTo(HaveOccurred())
			Expect(lastAuth.Load()).To(Equal("Bearer session-token|"))
		})

		It("rejects invalid values", func() {
			_, err := NewClient(mockServer.URL, Timeout(0))
			Expect(err).To(HaveOccurred())
			_, err = NewClient(mockServer.URL, UserAgent(""))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("SubmitJob", func() {
		It("should submit a job with the API key", func() {
			jobResult, err := client.SubmitJob(ctx, types.Job{Type: "telemetry"})
			Expect(err).NotTo(HaveOccurred())
			Expect(jobResult.UUID).To(Equal("mock-job-id"))
			Expect(lastAuth.Load()).To(Equal("|machine-key"))
		})
	})

	Describe("GetJobResult", func() {
		It("reports pending jobs without an error", func() {
			res, err := client.GetJobResult(ctx, "mock-job-id")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(types.JobPending))
		})

		It("maps 404 to ErrJobNotFound", func() {
			_, err := client.GetJobResult(ctx, "missing")
			Expect(err).To(MatchError(ErrJobNotFound))
		})
	})

	Describe("WaitForResult", func() {
		It("polls until the job completes", func() {
			res, err := client.WaitForResult(ctx, "mock-job-id", 5, 10*time.Millisecond)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(types.JobCompleted))
			Expect(string(res.Data)).To(MatchJSON(`{"ok":true}`))
			Expect(polls.Load()).To(Equal(int32(3)))
		})

		It("gives up after the retries", func() {
			_, err := client.WaitForResult(ctx, "mock-job-id", 2, 10*time.Millisecond)
			Expect(err).To(MatchError(ErrJobPending))
		})

		It("returns the job error of failed jobs", func() {
			res, err := client.WaitForResult(ctx, "failed-job", 5, 10*time.Millisecond)
			Expect(err).To(MatchError("quota exceeded"))
			Expect(res.Error).To(Equal("quota exceeded"))
		})
	})
})
