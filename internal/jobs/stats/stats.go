package stats

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/kartr/kartr/internal/versioning"
)

// These are the types of statistics that we can add. The value is the JSON key that will be used for serialization.
type StatType string

const (
	VideoAnalyses       StatType = "video_analyses"
	VideoAnalysisErrors StatType = "video_analysis_errors"
	ChannelAnalyses     StatType = "channel_analyses"
	ChannelErrors       StatType = "channel_analysis_errors"
	TranscriptAnalyses  StatType = "transcript_analyses"
	TranscriptErrors    StatType = "transcript_errors"
	ImagesGenerated     StatType = "images_generated"
	ImageErrors         StatType = "image_errors"
	PostsPublished      StatType = "posts_published"
	PostErrors          StatType = "post_errors"
	InvalidJobs         StatType = "invalid_jobs"
)

// AddStat is the message sent to the collector goroutine.
type AddStat struct {
	Type   StatType
	Source string
	Num    uint
}

// Stats is the structure we use to store the statistics
type Stats struct {
	BootTimeUnix       int64                        `json:"boot_time"`
	LastOperationUnix  int64                        `json:"last_operation_time"`
	CurrentTimeUnix    int64                        `json:"current_time"`
	Stats              map[string]map[StatType]uint `json:"stats"`
	ApplicationVersion string                       `json:"application_version"`
	sync.Mutex
}

// StatsCollector is the object used to collect statistics
type StatsCollector struct {
	Stats   *Stats
	Chan    chan AddStat
	counter *prometheus.CounterVec
}

// StartCollector starts a goroutine that listens to a channel for AddStat
// messages and updates the stats accordingly. Every stat is mirrored to the
// kartr_events_total counter of reg; a nil reg keeps the counter unregistered.
func StartCollector(bufSize uint, reg prometheus.Registerer) *StatsCollector {
	logrus.Info("Starting stats collector")

	s := Stats{
		BootTimeUnix:       time.Now().Unix(),
		Stats:              make(map[string]map[StatType]uint),
		ApplicationVersion: versioning.ApplicationVersion,
	}
	counter := promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Name: "kartr_events_total",
		Help: "Count of analysis, image and posting events by type.",
	}, []string{"type"})

	ch := make(chan AddStat, bufSize)

	go func(s *Stats, ch chan AddStat) {
		for stat := range ch {
			s.Lock()
			s.LastOperationUnix = time.Now().Unix()
			if _, ok := s.Stats[stat.Source]; !ok {
				s.Stats[stat.Source] = make(map[StatType]uint)
			}
			s.Stats[stat.Source][stat.Type] += stat.Num
			s.Unlock()
			counter.WithLabelValues(string(stat.Type)).Add(float64(stat.Num))
			logrus.Debugf("Added %d to stat %s for %s", stat.Num, stat.Type, stat.Source)
		}
	}(&s, ch)

	return &StatsCollector{Stats: &s, Chan: ch, counter: counter}
}

// Json returns the current statistics as a JSON byte array
func (s *StatsCollector) Json() ([]byte, error) {
	s.Stats.Lock()
	defer s.Stats.Unlock()
	s.Stats.CurrentTimeUnix = time.Now().Unix()
	return json.Marshal(s.Stats)
}

// Add is a convenience method to add a number to a statistic. A nil
// collector ignores the call.
func (s *StatsCollector) Add(source string, typ StatType, num uint) {
	if s == nil {
		return
	}
	s.Chan <- AddStat{Source: source, Type: typ, Num: num}
}

// Get returns the current value of a statistic.
func (s *StatsCollector) Get(source string, typ StatType) uint {
	s.Stats.Lock()
	defer s.Stats.Unlock()
	return s.Stats.Stats[source][typ]
}
