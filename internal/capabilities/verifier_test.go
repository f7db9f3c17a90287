package capabilities_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/kartr/kartr/internal/capabilities"
	"github.com/kartr/kartr/internal/health"
)

var _ = Describe("CapabilityVerifier", func() {
	var (
		tracker  *health.Tracker
		verifier *CapabilityVerifier
		ctx      context.Context
		calls    int
	)

	ok := VerifierFunc(func(context.Context) error {
		calls++
		return nil
	})
	broken := VerifierFunc(func(context.Context) error {
		calls++
		return errors.New("database is locked")
	})

	BeforeEach(func() {
		ctx = context.Background()
		calls = 0
		tracker = health.NewTracker()
		verifier = NewCapabilityVerifier(tracker)
	})

	It("records healthy checks", func() {
		verifier.RegisterVerifier("database", ok)
		verifier.RegisterVerifier(health.YouTube, ok)
		verifier.VerifyCapabilities(ctx, []string{"database", health.YouTube})

		statuses := tracker.GetAllStatuses()
		Expect(statuses).To(HaveLen(2))
		Expect(statuses["database"].IsHealthy).To(BeTrue())
		Expect(statuses[health.YouTube].IsHealthy).To(BeTrue())
		Expect(calls).To(Equal(2))
	})

	It("records the error of a failing check", func() {
		verifier.RegisterVerifier("database", broken)
		verifier.RegisterVerifier(health.YouTube, ok)
		verifier.VerifyCapabilities(ctx, []string{"database", health.YouTube})

		statuses := tracker.GetAllStatuses()
		Expect(statuses["database"].IsHealthy).To(BeFalse())
		Expect(statuses["database"].LastError).To(Equal("database is locked"))
		Expect(statuses[health.YouTube].IsHealthy).To(BeTrue())
	})

	It("assumes names without a check are healthy", func() {
		verifier.VerifyCapabilities(ctx, []string{"telemetry"})
		Expect(tracker.GetAllStatuses()["telemetry"].IsHealthy).To(BeTrue())
		Expect(tracker.GetAllStatuses()["telemetry"].LastError).To(BeEmpty())
	})

	It("only runs the checks that are asked for", func() {
		verifier.RegisterVerifier("database", broken)
		verifier.VerifyCapabilities(ctx, []string{})
		Expect(tracker.GetAllStatuses()).To(BeEmpty())
		Expect(calls).To(BeZero())
	})
})
