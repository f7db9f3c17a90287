package scheduler_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kartr/kartr/api/types"
	"github.com/kartr/kartr/internal/config"
	. "github.com/kartr/kartr/internal/scheduler"
	"github.com/kartr/kartr/internal/social"
	"github.com/kartr/kartr/internal/store"
)

type fakePublisher struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func (f *fakePublisher) Post(_ context.Context, platform string, req social.PostRequest) (*social.PostResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, platform+":"+filepath.Base(req.MediaPath))
	if err := f.fail[platform]; err != nil {
		return nil, err
	}
	return &social.PostResult{Platform: platform, ID: "id-" + platform}, nil
}

func (f *fakePublisher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

var _ = Describe("Scheduler", func() {
	var (
		ctx       context.Context
		st        *store.Store
		dataDir   string
		publisher *fakePublisher
		sched     *Scheduler
		now       time.Time
		userID    int64
	)

	BeforeEach(func() {
		ctx = context.Background()
		dataDir = GinkgoT().TempDir()
		var err error
		st, err = store.Open(filepath.Join(dataDir, "kartr.db"))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(st.Close)

		now = time.Date(2025, 6, 1, 20, 30, 0, 0, time.UTC)
		st.SetClock(func() time.Time { return now })
		u := &store.User{Username: "creator", Email: "creator@example.com", PasswordHash: "x", UserType: "influencer"}
		Expect(st.CreateUser(ctx, u)).To(Succeed())
		userID = u.ID

		for _, name := range []string{"promo.png", "clip.mp4"} {
			Expect(os.WriteFile(filepath.Join(dataDir, name), []byte("media"), 0644)).To(Succeed())
		}

		publisher = &fakePublisher{fail: map[string]error{}}
		sched = New(config.SchedulerConfig{Interval: 10 * time.Millisecond, DefaultPostTime: "21:00", DataDir: dataDir}, st, publisher, nil)
		sched.SetClock(func() time.Time { return now })
	})

	request := func(platform, contentType, path, at string) types.SchedulePostRequest {
		return types.SchedulePostRequest{Platform: platform, ContentType: contentType, MediaPath: path, Caption: "hello", ScheduledTime: at}
	}

	DescribeTable("NextOccurrence",
		func(hhmm string, expected time.Time) {
			due, err := NextOccurrence(hhmm, time.Date(2025, 6, 1, 20, 30, 0, 0, time.UTC))
			Expect(err).NotTo(HaveOccurred())
			Expect(due).To(Equal(expected))
		},
		Entry("later today", "21:00", time.Date(2025, 6, 1, 21, 0, 0, 0, time.UTC)),
		Entry("exactly now", "20:30", time.Date(2025, 6, 1, 20, 30, 0, 0, time.UTC)),
		Entry("already passed", "08:15", time.Date(2025, 6, 2, 8, 15, 0, 0, time.UTC)),
	)

	It("rejects malformed times", func() {
		_, err := NextOccurrence("9pm", now)
		Expect(err).To(MatchError(ErrInvalidTime))
		_, err = sched.Schedule(ctx, userID, request("bluesky", "image", "promo.png", "25:00"))
		Expect(err).To(MatchError(ErrInvalidTime))
	})

	It("validates platform, content type and media", func() {
		_, err := sched.Schedule(ctx, userID, request("tiktok", "image", "promo.png", ""))
		Expect(err).To(MatchError(ErrInvalidPlatform))
		_, err = sched.Schedule(ctx, userID, request("bluesky", "story", "promo.png", ""))
		Expect(err).To(MatchError(ErrInvalidContentType))
		_, err = sched.Schedule(ctx, userID, request("bluesky", "image", "clip.mp4", ""))
		Expect(err).To(MatchError(ErrInvalidContentType))
		_, err = sched.Schedule(ctx, userID, request("bluesky", "image", "missing.png", ""))
		Expect(err).To(MatchError(ErrMediaNotFound))
		_, err = sched.Schedule(ctx, userID, request("bluesky", "image", "../../etc/passwd", ""))
		Expect(err).To(MatchError(ErrMediaNotFound))
	})

	It("uses the default post time", func() {
		p, err := sched.Schedule(ctx, userID, request("Bluesky", "image", "promo.png", ""))
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Platform).To(Equal("bluesky"))
		Expect(p.ScheduledTime).To(Equal("21:00"))
		Expect(p.DueAt).To(Equal(time.Date(2025, 6, 1, 21, 0, 0, 0, time.UTC)))
		Expect(p.MediaPath).To(Equal(filepath.Join(dataDir, "promo.png")))
		Expect(p.Status).To(Equal(store.PostPending))
	})

	It("publishes only due posts and records the outcome", func() {
		due, err := sched.Schedule(ctx, userID, request("bluesky", "image", "promo.png", "20:30"))
		Expect(err).NotTo(HaveOccurred())
		failing, err := sched.Schedule(ctx, userID, request("youtube", "video", "clip.mp4", "20:30"))
		Expect(err).NotTo(HaveOccurred())
		later, err := sched.Schedule(ctx, userID, request("instagram", "image", "promo.png", "22:00"))
		Expect(err).NotTo(HaveOccurred())
		publisher.fail["youtube"] = errors.New("quota exceeded")

		Expect(sched.Tick(ctx)).To(Equal(2))
		Expect(publisher.Calls()).To(ConsistOf("bluesky:promo.png", "youtube:clip.mp4"))

		got, err := st.PostByID(ctx, due.PostID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Status).To(Equal(store.PostCompleted))
		Expect(got.Result).To(Equal("id-bluesky"))

		got, err = st.PostByID(ctx, failing.PostID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Status).To(Equal(store.PostFailed))
		Expect(got.Result).To(Equal("quota exceeded"))

		got, err = st.PostByID(ctx, later.PostID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Status).To(Equal(store.PostPending))

		By("not publishing a claimed post twice")
		Expect(sched.Tick(ctx)).To(BeZero())
		Expect(publisher.Calls()).To(HaveLen(2))
	})

	It("purges expired OTPs on every tick", func() {
		Expect(st.PutOTP(ctx, "creator@example.com", "hash", now.Add(-time.Minute))).To(Succeed())
		sched.Tick(ctx)
		_, err := st.TakeOTP(ctx, "creator@example.com", now.Add(-time.Hour))
		Expect(err).To(MatchError(store.ErrNotFound))
	})

	It("runs until the context is cancelled", func() {
		_, err := sched.Schedule(ctx, userID, request("bluesky", "image", "promo.png", "20:30"))
		Expect(err).NotTo(HaveOccurred())

		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			sched.Run(runCtx)
		}()
		Eventually(publisher.Calls).Should(HaveLen(1))
		cancel()
		Eventually(done).Should(BeClosed())
	})
})
