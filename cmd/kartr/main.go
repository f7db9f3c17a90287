package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/kartr/kartr/internal/api"
	"github.com/kartr/kartr/internal/capabilities"
	"github.com/kartr/kartr/internal/config"
	"github.com/kartr/kartr/internal/health"
	"github.com/kartr/kartr/internal/jobs/stats"
	"github.com/kartr/kartr/internal/store"
	"github.com/kartr/kartr/internal/versioning"
)

func main() {
	cfg := config.ReadConfig()
	logrus.WithFields(logrus.Fields{"version": versioning.ApplicationVersion, "commit": versioning.Commit}).Info("Starting kartr")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.DataDir(), 0o755); err != nil {
		logrus.Fatalf("Failed to create data directory: %v", err)
	}
	st, err := store.Open(cfg.DatabasePath())
	if err != nil {
		logrus.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	tracker := health.NewTracker()
	jsCfg := cfg.GetJobServerConfig()
	collector := stats.StartCollector(jsCfg.StatsBufSize, reg)

	deps, err := buildServices(ctx, cfg, st, tracker, collector)
	if err != nil {
		logrus.Fatalf("Failed to set up services: %v", err)
	}
	deps.Registry = reg
	deps.Capabilities = capabilities.DetectCapabilities(cfg)
	verifyUpstreams(ctx, tracker, st, deps)

	go deps.Jobs.Run(ctx)
	go deps.Scheduler.Run(ctx)

	if err := api.NewServer(deps).Start(ctx, cfg.ListenAddress()); err != nil {
		logrus.Fatalf("Server stopped: %v", err)
	}
	logrus.Info("Shut down")
}

// probeVideo is a public video used to check the YouTube key at startup.
const probeVideo = "dQw4w9WgXcQ"

func verifyUpstreams(ctx context.Context, tracker *health.Tracker, st *store.Store, deps api.Deps) {
	v := capabilities.NewCapabilityVerifier(tracker)
	names := []string{"database"}
	v.RegisterVerifier("database", capabilities.VerifierFunc(st.Ping))
	if deps.YouTube != nil {
		names = append(names, health.YouTube)
		v.RegisterVerifier(health.YouTube, capabilities.VerifierFunc(func(ctx context.Context) error {
			_, err := deps.YouTube.VideoStats(ctx, probeVideo)
			return err
		}))
	}
	v.VerifyCapabilities(ctx, names)

	for name, status := range tracker.GetAllStatuses() {
		if !status.IsHealthy {
			logrus.WithFields(logrus.Fields{"upstream": name, "error": status.LastError}).Warn("Upstream check failed")
		}
	}
	logrus.WithField("capabilities", deps.Capabilities.Names()).Info("Capabilities detected")
}
