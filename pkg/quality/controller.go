package quality

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Band holds the three ascending trouble thresholds for one signal. A
// signal on the healthy side of Good contributes 0 to the performance
// score, past Good 1, past Fair 2, and at or past Poor 3.
type Band struct {
	Good float64 `yaml:"good"`
	Fair float64 `yaml:"fair"`
	Poor float64 `yaml:"poor"`
}

// Thresholds configures the scoring bands per signal. FPS is scored in the
// low-is-bad direction; the other signals high-is-bad.
type Thresholds struct {
	FPS             Band `yaml:"fps"`
	FrameTimeMs     Band `yaml:"frame_time_ms"`
	DroppedFrames   Band `yaml:"dropped_frames"`
	UploadLatencyMs Band `yaml:"upload_latency_ms"`
}

// DefaultThresholds returns the reference scoring bands.
func DefaultThresholds() Thresholds {
	return Thresholds{
		FPS:             Band{Good: 30, Fair: 20, Poor: 12},
		FrameTimeMs:     Band{Good: 33, Fair: 50, Poor: 80},
		DroppedFrames:   Band{Good: 1, Fair: 5, Poor: 10},
		UploadLatencyMs: Band{Good: 100, Fair: 200, Poor: 400},
	}
}

func (b Band) zero() bool { return b.Good == 0 && b.Fair == 0 && b.Poor == 0 }

// Config configures a Controller. Zero fields take reference defaults.
type Config struct {
	// Baseline is the full-quality preference used at level 0.
	Baseline Settings `yaml:"-"`

	// TickInterval is the Run loop period.
	TickInterval time.Duration `yaml:"tick_interval"`

	// SteadyTicks is how many consecutive better-scoring ticks must pass
	// before the level improves.
	SteadyTicks int `yaml:"steady_ticks"`

	// SteadyCap bounds steady-state counter growth while the target equals
	// the current level.
	SteadyCap int `yaml:"steady_cap"`

	Thresholds Thresholds `yaml:"thresholds"`
}

const (
	defaultTickInterval = time.Second
	defaultSteadyTicks  = 60
	defaultSteadyCap    = 10
)

// Controller runs the quality control loop. Metrics updates and ticks are
// independent: the embedder overwrites metric fields as it measures them,
// and the tick schedule evaluates whatever is current.
type Controller struct {
	tickInterval time.Duration
	steadyTicks  int
	steadyCap    int
	thresholds   Thresholds
	sender       Sender

	mu        sync.Mutex
	metrics   Metrics
	level     Level
	baseline  Settings
	current   Settings
	steady    int
	enabled   bool
	observers []func(Settings)
}

// NewController creates a controller at level 0 with monitoring enabled.
// sender may be nil if no upstream channel exists yet.
func NewController(cfg Config, sender Sender) *Controller {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}
	if cfg.SteadyTicks <= 0 {
		cfg.SteadyTicks = defaultSteadyTicks
	}
	if cfg.SteadyCap <= 0 {
		cfg.SteadyCap = defaultSteadyCap
	}
	if cfg.Thresholds.FPS.zero() {
		cfg.Thresholds.FPS = DefaultThresholds().FPS
	}
	if cfg.Thresholds.FrameTimeMs.zero() {
		cfg.Thresholds.FrameTimeMs = DefaultThresholds().FrameTimeMs
	}
	if cfg.Thresholds.DroppedFrames.zero() {
		cfg.Thresholds.DroppedFrames = DefaultThresholds().DroppedFrames
	}
	if cfg.Thresholds.UploadLatencyMs.zero() {
		cfg.Thresholds.UploadLatencyMs = DefaultThresholds().UploadLatencyMs
	}
	baseline := cfg.Baseline
	if baseline.Downsample < 1 {
		baseline = DefaultBaseline()
	}
	return &Controller{
		tickInterval: cfg.TickInterval,
		steadyTicks:  cfg.SteadyTicks,
		steadyCap:    cfg.SteadyCap,
		thresholds:   cfg.Thresholds,
		sender:       sender,
		baseline:     baseline,
		current:      baseline,
		enabled:      true,
	}
}

// OnChange registers an observer invoked with every applied settings
// change. Observers run on the goroutine that triggered the change.
func (c *Controller) OnChange(fn func(Settings)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// UpdateMetrics merges a partial sample into the controller state.
func (c *Controller) UpdateMetrics(u *MetricsUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u.apply(&c.metrics)
}

// SetEnabled toggles monitoring. While disabled, ticks are no-ops and the
// level holds.
func (c *Controller) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

// Run ticks the controller on its configured interval until ctx is done.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick()
		}
	}
}

// Tick evaluates the current metrics once and applies any level
// transition. Exported so embedders and tests can drive the loop
// deterministically.
func (c *Controller) Tick() {
	c.mu.Lock()
	if !c.enabled {
		c.mu.Unlock()
		return
	}

	target := targetLevel(c.score())
	var applied *Settings
	switch {
	case target > c.level:
		// Degrade fast: no hysteresis on the way down.
		c.level = target
		c.steady = 0
		applied = c.applyLevelLocked()
	case target < c.level:
		c.steady++
		if c.steady >= c.steadyTicks {
			c.level = target
			c.steady = 0
			applied = c.applyLevelLocked()
		}
	default:
		// Stability accumulator: saturates, never triggers a change.
		if c.steady < c.steadyCap {
			c.steady++
		}
	}
	observers := c.observers
	c.mu.Unlock()

	if applied != nil {
		c.emit(*applied, observers)
	}
}

// ForceQuality overrides both the current settings and the baseline,
// returning to level 0 immediately and bypassing hysteresis.
func (c *Controller) ForceQuality(s Settings) {
	c.mu.Lock()
	c.baseline = s
	c.level = LevelFull
	c.steady = 0
	changed := !c.current.Equal(s)
	c.current = s
	observers := c.observers
	c.mu.Unlock()

	if changed {
		c.emit(s, observers)
	}
}

// ResetToBaseline clears all degradation state and returns to the
// baseline settings.
func (c *Controller) ResetToBaseline() {
	c.mu.Lock()
	c.level = LevelFull
	c.steady = 0
	changed := !c.current.Equal(c.baseline)
	c.current = c.baseline
	applied := c.current
	observers := c.observers
	c.mu.Unlock()

	if changed {
		c.emit(applied, observers)
	}
}

// SetBaseline replaces the level-0 settings. If the controller is at level
// 0 the new baseline is applied immediately.
func (c *Controller) SetBaseline(s Settings) {
	c.mu.Lock()
	c.baseline = s
	var applied *Settings
	if c.level == LevelFull && !c.current.Equal(s) {
		c.current = s
		applied = &s
	}
	observers := c.observers
	c.mu.Unlock()

	if applied != nil {
		c.emit(*applied, observers)
	}
}

// Snapshot is the observable controller state.
type Snapshot struct {
	Metrics     Metrics
	Level       Level
	Settings    Settings
	SteadyTicks int
	Enabled     bool
}

// Snapshot returns the current state. Safe for concurrent use.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Metrics:     c.metrics,
		Level:       c.level,
		Settings:    c.current,
		SteadyTicks: c.steady,
		Enabled:     c.enabled,
	}
}

// applyLevelLocked composes the settings for the current level and records
// them if they differ. Returns the new settings when a change was applied.
// Caller holds c.mu.
func (c *Controller) applyLevelLocked() *Settings {
	next := c.baseline
	if c.level != LevelFull {
		next = degradationTable[c.level]
	}
	if c.current.Equal(next) {
		return nil
	}
	c.current = next
	return &next
}

// emit pushes an applied change upstream and to observers. Runs without
// the lock held.
func (c *Controller) emit(s Settings, observers []func(Settings)) {
	if c.sender != nil {
		if err := c.sender.SendPreference(NewPreferenceMessage(s)); err != nil {
			slog.Warn("quality: send preference failed", "err", err)
		}
	}
	for _, fn := range observers {
		fn(s)
	}
}

// score averages the per-signal scores into [0,3].
func (c *Controller) score() float64 {
	sum := scoreLowBad(c.metrics.FPS, c.thresholds.FPS) +
		scoreHighBad(c.metrics.AvgFrameTimeMs, c.thresholds.FrameTimeMs) +
		scoreHighBad(c.metrics.DroppedFrames, c.thresholds.DroppedFrames) +
		scoreHighBad(c.metrics.UploadLatencyMs, c.thresholds.UploadLatencyMs)
	return float64(sum) / 4
}

// targetLevel maps a mean score to the level it calls for.
func targetLevel(score float64) Level {
	switch {
	case score >= 2.5:
		return LevelMax
	case score >= 1.5:
		return LevelModerate
	case score >= 0.8:
		return LevelMild
	default:
		return LevelFull
	}
}

// scoreHighBad scores a signal where larger values mean worse performance.
func scoreHighBad(v float64, b Band) int {
	switch {
	case v < b.Good:
		return 0
	case v < b.Fair:
		return 1
	case v < b.Poor:
		return 2
	default:
		return 3
	}
}

// scoreLowBad scores a signal where smaller values mean worse performance.
func scoreLowBad(v float64, b Band) int {
	switch {
	case v > b.Good:
		return 0
	case v > b.Fair:
		return 1
	case v > b.Poor:
		return 2
	default:
		return 3
	}
}
