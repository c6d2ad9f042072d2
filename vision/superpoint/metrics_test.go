package superpoint

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"github.com/johnhalbert/vr-project-backup-sub006/logging"
)

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics(clock.NewMock())
	test.That(t, m.Snapshot(), test.ShouldResemble, Snapshot{})
	test.That(t, m.Snapshot().Average(), test.ShouldResemble, FrameTimes{})

	for i := 1; i <= 4; i++ {
		frame := m.Record(FrameTimes{
			Preprocess:  time.Millisecond,
			Inference:   time.Duration(i) * 10 * time.Millisecond,
			Postprocess: 2 * time.Millisecond,
		}, 100*i)
		test.That(t, frame, test.ShouldEqual, int64(i))
	}
	snap := m.Snapshot()
	test.That(t, snap.Frames, test.ShouldEqual, int64(4))
	test.That(t, snap.Keypoints, test.ShouldEqual, int64(1000))
	test.That(t, snap.Inference, test.ShouldEqual, 100*time.Millisecond)
	avg := snap.Average()
	test.That(t, avg.Preprocess, test.ShouldEqual, time.Millisecond)
	test.That(t, avg.Inference, test.ShouldEqual, 25*time.Millisecond)
	test.That(t, avg.Postprocess, test.ShouldEqual, 2*time.Millisecond)
	test.That(t, avg.Total(), test.ShouldEqual, 28*time.Millisecond)
	// totals are 13, 23, 33 and 43 ms
	test.That(t, snap.P95, test.ShouldBeBetweenOrEqual, 33., 43.)
	test.That(t, snap.P50, test.ShouldBeBetweenOrEqual, 23., 33.)
	test.That(t, snap.P50, test.ShouldBeLessThanOrEqualTo, snap.P95)
}

func TestMetricsClock(t *testing.T) {
	mock := clock.NewMock()
	m := NewMetrics(mock)
	start := m.Now()
	mock.Add(7 * time.Millisecond)
	test.That(t, m.Since(start), test.ShouldEqual, 7*time.Millisecond)

	test.That(t, NewMetrics(nil).Now().IsZero(), test.ShouldBeFalse)
}

func TestMetricsRecentWindow(t *testing.T) {
	m := NewMetrics(nil)
	for i := 0; i < recentFrames+10; i++ {
		m.Record(FrameTimes{Inference: time.Millisecond}, 0)
	}
	test.That(t, len(m.recentCopy()), test.ShouldEqual, recentFrames)
	test.That(t, m.Snapshot().Frames, test.ShouldEqual, int64(recentFrames+10))
}

func TestMetricsConcurrent(t *testing.T) {
	m := NewMetrics(nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Record(FrameTimes{Preprocess: time.Microsecond}, 1)
				m.Snapshot()
			}
		}()
	}
	wg.Wait()
	snap := m.Snapshot()
	test.That(t, snap.Frames, test.ShouldEqual, int64(800))
	test.That(t, snap.Preprocess, test.ShouldEqual, 800*time.Microsecond)
}

func TestAggregate(t *testing.T) {
	a, b := NewMetrics(nil), NewMetrics(nil)
	a.Record(FrameTimes{Inference: 10 * time.Millisecond}, 5)
	b.Record(FrameTimes{Inference: 30 * time.Millisecond}, 7)
	b.Record(FrameTimes{Inference: 20 * time.Millisecond}, 3)

	all := Aggregate(a, b, nil)
	test.That(t, all.Frames, test.ShouldEqual, int64(3))
	test.That(t, all.Keypoints, test.ShouldEqual, int64(15))
	test.That(t, all.Inference, test.ShouldEqual, 60*time.Millisecond)
	test.That(t, all.Average().Inference, test.ShouldEqual, 20*time.Millisecond)
	test.That(t, all.P95, test.ShouldBeBetweenOrEqual, 20., 30.)

	// instances do not share totals
	test.That(t, a.Snapshot().Frames, test.ShouldEqual, int64(1))
}

func TestSnapshotLog(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	m := NewMetrics(nil)
	m.Record(FrameTimes{Preprocess: 2 * time.Millisecond, Inference: 4 * time.Millisecond}, 1)
	m.Snapshot().Log(logger, "summary")
	entries := logs.FilterMessage("summary").All()
	test.That(t, len(entries), test.ShouldEqual, 1)
	fields := entries[0].ContextMap()
	test.That(t, fields["frames"], test.ShouldEqual, int64(1))
	test.That(t, fields["avg_total"], test.ShouldEqual, 6*time.Millisecond)
}
