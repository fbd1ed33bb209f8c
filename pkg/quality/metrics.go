package quality

// Metrics is a snapshot of client-side performance signals. Fields the
// embedder does not measure stay at their previous value.
type Metrics struct {
	FPS             float64
	AvgFrameTimeMs  float64
	DroppedFrames   float64 // dropped frames since the previous sample
	UploadLatencyMs float64
	BandwidthUtil   float64 // 0..1
	MemoryPressure  float64 // 0..1
}

// MetricsUpdate is a partial metrics sample. Non-nil fields overwrite the
// controller's current value; nil fields leave it untouched. Samples are
// merged field-wise, never diffed.
type MetricsUpdate struct {
	FPS             *float64
	AvgFrameTimeMs  *float64
	DroppedFrames   *float64
	UploadLatencyMs *float64
	BandwidthUtil   *float64
	MemoryPressure  *float64
}

// apply merges the update into m.
func (u *MetricsUpdate) apply(m *Metrics) {
	if u == nil {
		return
	}
	if u.FPS != nil {
		m.FPS = *u.FPS
	}
	if u.AvgFrameTimeMs != nil {
		m.AvgFrameTimeMs = *u.AvgFrameTimeMs
	}
	if u.DroppedFrames != nil {
		m.DroppedFrames = *u.DroppedFrames
	}
	if u.UploadLatencyMs != nil {
		m.UploadLatencyMs = *u.UploadLatencyMs
	}
	if u.BandwidthUtil != nil {
		m.BandwidthUtil = *u.BandwidthUtil
	}
	if u.MemoryPressure != nil {
		m.MemoryPressure = *u.MemoryPressure
	}
}

// Float returns a pointer to v, for building MetricsUpdate literals.
func Float(v float64) *float64 { return &v }
