package superpoint

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/montanaflynn/stats"
	"go.uber.org/atomic"

	"github.com/johnhalbert/vr-project-backup-sub006/logging"
)

// recentFrames is how many per-frame latencies are kept for percentiles.
const recentFrames = 256

// FrameTimes are the stage durations of one frame.
type FrameTimes struct {
	Preprocess  time.Duration
	Inference   time.Duration
	Postprocess time.Duration
}

// Total returns the sum of the stages.
func (ft FrameTimes) Total() time.Duration {
	return ft.Preprocess + ft.Inference + ft.Postprocess
}

// Metrics accumulates stage timings of one extractor. Readers may call Snapshot concurrently
// with Record.
type Metrics struct {
	clock clock.Clock

	frames      atomic.Int64
	keypoints   atomic.Int64
	preprocess  atomic.Duration
	inference   atomic.Duration
	postprocess atomic.Duration

	mu     sync.Mutex
	recent []float64
	next   int
}

// NewMetrics returns empty metrics timed by clk. A nil clk uses the wall clock.
func NewMetrics(clk clock.Clock) *Metrics {
	if clk == nil {
		clk = clock.New()
	}
	return &Metrics{clock: clk, recent: make([]float64, 0, recentFrames)}
}

// Now returns the current time of the metrics clock.
func (m *Metrics) Now() time.Time {
	return m.clock.Now()
}

// Since returns the time elapsed since t on the metrics clock.
func (m *Metrics) Since(t time.Time) time.Duration {
	return m.clock.Since(t)
}

// Record adds one frame and returns the number of frames recorded so far.
func (m *Metrics) Record(ft FrameTimes, numKeypoints int) int64 {
	m.preprocess.Add(ft.Preprocess)
	m.inference.Add(ft.Inference)
	m.postprocess.Add(ft.Postprocess)
	m.keypoints.Add(int64(numKeypoints))

	ms := float64(ft.Total()) / float64(time.Millisecond)
	m.mu.Lock()
	if len(m.recent) < recentFrames {
		m.recent = append(m.recent, ms)
	} else {
		m.recent[m.next] = ms
	}
	m.next = (m.next + 1) % recentFrames
	m.mu.Unlock()

	return m.frames.Inc()
}

// Snapshot is a point in time copy of accumulated metrics.
type Snapshot struct {
	Frames      int64
	Keypoints   int64
	Preprocess  time.Duration
	Inference   time.Duration
	Postprocess time.Duration
	// P50 and P95 are total frame latencies in milliseconds over recent frames.
	P50 float64
	P95 float64
}

// Snapshot returns the accumulated totals.
func (m *Metrics) Snapshot() Snapshot {
	return Aggregate(m)
}

func (m *Metrics) recentCopy() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]float64, len(m.recent))
	copy(out, m.recent)
	return out
}

// Aggregate sums the metrics of several extractors. Percentiles are computed over the union of
// their recent frames.
func Aggregate(all ...*Metrics) Snapshot {
	var snap Snapshot
	var recent stats.Float64Data
	for _, m := range all {
		if m == nil {
			continue
		}
		snap.Frames += m.frames.Load()
		snap.Keypoints += m.keypoints.Load()
		snap.Preprocess += m.preprocess.Load()
		snap.Inference += m.inference.Load()
		snap.Postprocess += m.postprocess.Load()
		recent = append(recent, m.recentCopy()...)
	}
	if len(recent) > 0 {
		snap.P50, _ = stats.Percentile(recent, 50)
		snap.P95, _ = stats.Percentile(recent, 95)
	}
	return snap
}

// Average returns the mean stage durations per frame.
func (s Snapshot) Average() FrameTimes {
	if s.Frames == 0 {
		return FrameTimes{}
	}
	n := time.Duration(s.Frames)
	return FrameTimes{
		Preprocess:  s.Preprocess / n,
		Inference:   s.Inference / n,
		Postprocess: s.Postprocess / n,
	}
}

// Log writes the snapshot as one structured line.
func (s Snapshot) Log(logger logging.Logger, msg string) {
	avg := s.Average()
	logger.Infow(msg,
		"frames", s.Frames,
		"avg_preprocess", avg.Preprocess,
		"avg_inference", avg.Inference,
		"avg_postprocess", avg.Postprocess,
		"avg_total", avg.Total(),
		"p50_ms", s.P50,
		"p95_ms", s.P95,
	)
}
