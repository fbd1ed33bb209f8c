package quality

import (
	"testing"

	"github.com/seisview/seisview/pkg/tilewire"
)

func poorSample() *MetricsUpdate {
	return &MetricsUpdate{
		FPS:             Float(10),
		AvgFrameTimeMs:  Float(100),
		DroppedFrames:   Float(20),
		UploadLatencyMs: Float(500),
	}
}

func goodSample() *MetricsUpdate {
	return &MetricsUpdate{
		FPS:             Float(60),
		AvgFrameTimeMs:  Float(10),
		DroppedFrames:   Float(0),
		UploadLatencyMs: Float(20),
	}
}

func newTestController(sender Sender) *Controller {
	return NewController(Config{SteadyTicks: 60, SteadyCap: 10}, sender)
}

func TestController_DegradesToMaxOnPoorMetrics(t *testing.T) {
	var sent []*PreferenceMessage
	c := newTestController(SenderFunc(func(m *PreferenceMessage) error {
		sent = append(sent, m)
		return nil
	}))

	c.UpdateMetrics(poorSample())
	for range 3 {
		c.Tick()
	}

	snap := c.Snapshot()
	if snap.Level != LevelMax {
		t.Fatalf("level = %v, want max", snap.Level)
	}
	if want := degradationTable[LevelMax]; !snap.Settings.Equal(want) {
		t.Errorf("settings = %+v, want %+v", snap.Settings, want)
	}
	if len(sent) != 1 {
		t.Fatalf("sent %d preference messages, want 1", len(sent))
	}
	if sent[0].Type != "quality" || sent[0].DataType != "mulaw" || sent[0].Downsample != 4 {
		t.Errorf("message = %+v", sent[0])
	}
}

func TestController_TransientGoodSampleDoesNotUpgrade(t *testing.T) {
	c := newTestController(nil)
	c.UpdateMetrics(poorSample())
	c.Tick()
	if c.Snapshot().Level != LevelMax {
		t.Fatal("setup: controller did not degrade")
	}

	c.UpdateMetrics(goodSample())
	c.Tick()
	if snap := c.Snapshot(); snap.Level != LevelMax {
		t.Errorf("one good tick upgraded the level to %v", snap.Level)
	}
}

func TestController_UpgradeAfterSteadyTicks(t *testing.T) {
	c := NewController(Config{SteadyTicks: 5}, nil)
	c.UpdateMetrics(poorSample())
	c.Tick()
	if c.Snapshot().Level != LevelMax {
		t.Fatal("setup: controller did not degrade")
	}

	c.UpdateMetrics(goodSample())
	for i := range 4 {
		c.Tick()
		if snap := c.Snapshot(); snap.Level != LevelMax {
			t.Fatalf("upgraded after %d ticks, want 5", i+1)
		}
	}
	c.Tick()
	snap := c.Snapshot()
	if snap.Level != LevelFull {
		t.Errorf("level = %v after steady run, want full", snap.Level)
	}
	if snap.SteadyTicks != 0 {
		t.Errorf("steady counter = %d, want 0 after upgrade", snap.SteadyTicks)
	}
	if !snap.Settings.Equal(DefaultBaseline()) {
		t.Errorf("settings = %+v, want baseline", snap.Settings)
	}
}

func TestController_SteadyCounterSaturates(t *testing.T) {
	c := NewController(Config{SteadyTicks: 60, SteadyCap: 10}, nil)
	c.UpdateMetrics(goodSample())
	for range 30 {
		c.Tick()
	}
	snap := c.Snapshot()
	if snap.Level != LevelFull {
		t.Fatalf("level = %v, want full", snap.Level)
	}
	if snap.SteadyTicks != 10 {
		t.Errorf("steady counter = %d, want saturated at 10", snap.SteadyTicks)
	}
}

func TestController_PartialMetricsMerge(t *testing.T) {
	c := newTestController(nil)
	c.UpdateMetrics(poorSample())
	c.UpdateMetrics(&MetricsUpdate{FPS: Float(60)})

	m := c.Snapshot().Metrics
	if m.FPS != 60 {
		t.Errorf("fps = %v, want overwritten 60", m.FPS)
	}
	if m.UploadLatencyMs != 500 {
		t.Errorf("latency = %v, want untouched 500", m.UploadLatencyMs)
	}
}

func TestController_ForceQuality(t *testing.T) {
	var notified []Settings
	c := newTestController(nil)
	c.OnChange(func(s Settings) { notified = append(notified, s) })

	c.UpdateMetrics(poorSample())
	c.Tick()

	forced := Settings{DataType: tilewire.U16, Downsample: 1, Reason: "manual"}
	c.ForceQuality(forced)

	snap := c.Snapshot()
	if snap.Level != LevelFull {
		t.Errorf("level = %v, want full", snap.Level)
	}
	if !snap.Settings.Equal(forced) {
		t.Errorf("settings = %+v, want forced", snap.Settings)
	}
	if len(notified) != 2 { // degrade, then force
		t.Errorf("observers notified %d times, want 2", len(notified))
	}

	// The forced settings become the new baseline.
	c.ResetToBaseline()
	if snap := c.Snapshot(); !snap.Settings.Equal(forced) {
		t.Errorf("baseline after force = %+v, want forced", snap.Settings)
	}
}

func TestController_ResetToBaseline(t *testing.T) {
	c := newTestController(nil)
	c.UpdateMetrics(poorSample())
	c.Tick()

	c.ResetToBaseline()
	snap := c.Snapshot()
	if snap.Level != LevelFull || snap.SteadyTicks != 0 {
		t.Errorf("snapshot after reset: %+v", snap)
	}
	if !snap.Settings.Equal(DefaultBaseline()) {
		t.Errorf("settings = %+v, want baseline", snap.Settings)
	}
}

func TestController_SetBaselineAppliesAtFullQuality(t *testing.T) {
	c := newTestController(nil)
	next := Settings{DataType: tilewire.U16, Downsample: 1}
	c.SetBaseline(next)
	if snap := c.Snapshot(); !snap.Settings.Equal(next) {
		t.Errorf("settings = %+v, want new baseline applied at level 0", snap.Settings)
	}

	// While degraded, a baseline change must not touch current settings.
	c.UpdateMetrics(poorSample())
	c.Tick()
	c.SetBaseline(DefaultBaseline())
	if snap := c.Snapshot(); !snap.Settings.Equal(degradationTable[LevelMax]) {
		t.Errorf("settings = %+v, want degraded preset", snap.Settings)
	}
}

func TestController_DisabledHolds(t *testing.T) {
	c := newTestController(nil)
	c.SetEnabled(false)
	c.UpdateMetrics(poorSample())
	c.Tick()
	if snap := c.Snapshot(); snap.Level != LevelFull {
		t.Errorf("disabled controller moved to %v", snap.Level)
	}
	if snap := c.Snapshot(); snap.Enabled {
		t.Error("snapshot reports enabled")
	}
}

func TestController_NoDuplicateEmission(t *testing.T) {
	var sent int
	c := newTestController(SenderFunc(func(*PreferenceMessage) error {
		sent++
		return nil
	}))
	c.UpdateMetrics(poorSample())
	for range 10 {
		c.Tick()
	}
	if sent != 1 {
		t.Errorf("sent %d messages for one level change, want 1", sent)
	}
}

func TestTargetLevel(t *testing.T) {
	tests := []struct {
		score float64
		want  Level
	}{
		{0, LevelFull},
		{0.79, LevelFull},
		{0.8, LevelMild},
		{1.49, LevelMild},
		{1.5, LevelModerate},
		{2.49, LevelModerate},
		{2.5, LevelMax},
		{3, LevelMax},
	}
	for _, tt := range tests {
		if got := targetLevel(tt.score); got != tt.want {
			t.Errorf("targetLevel(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}
