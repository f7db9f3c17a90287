package jobs_test

import (
	"context"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kartr/kartr/api/types"
	. "github.com/kartr/kartr/internal/jobs"
	"github.com/kartr/kartr/internal/jobs/stats"
)

var _ = Describe("Telemetry Job", func() {
	var (
		telemetryJob   TelemetryJob
		statsCollector *stats.StatsCollector
	)

	BeforeEach(func() {
		statsCollector = stats.StartCollector(128, nil)
		telemetryJob = NewTelemetryJob(statsCollector)
	})

	It("returns the collected stats", func() {
		statsCollector.Add("user:1", stats.VideoAnalyses, 5)
		statsCollector.Add("user:1", stats.VideoAnalysisErrors, 2)
		statsCollector.Add("api", stats.ImagesGenerated, 3)
		Eventually(func() uint { return statsCollector.Get("api", stats.ImagesGenerated) }).Should(Equal(uint(3)))

		result, err := telemetryJob.ExecuteJob(context.Background(), types.Job{Type: TelemetryJobType})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Error).To(BeEmpty())

		var telemetry map[string]any
		Expect(json.Unmarshal(result.Data, &telemetry)).To(Succeed())
		Expect(telemetry).To(HaveKey("boot_time"))
		Expect(telemetry).To(HaveKey("current_time"))
		Expect(telemetry).To(HaveKey("application_version"))

		byUser := telemetry["stats"].(map[string]any)
		Expect(byUser["user:1"]).To(HaveKeyWithValue("video_analyses", 5.0))
		Expect(byUser["user:1"]).To(HaveKeyWithValue("video_analysis_errors", 2.0))
		Expect(byUser["api"]).To(HaveKeyWithValue("images_generated", 3.0))
	})

	It("reports a missing collector in the result", func() {
		result, err := NewTelemetryJob(nil).ExecuteJob(context.Background(), types.Job{Type: TelemetryJobType})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Error).To(ContainSubstring("No StatsCollector configured"))
	})
})
