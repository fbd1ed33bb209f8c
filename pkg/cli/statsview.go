package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/seisview/seisview/pkg/stats"
)

// Theme defines the color scheme for terminal output.
type Theme struct {
	Primary lipgloss.Color // accent color
	Dim     lipgloss.Color // dimmed text
	Alert   lipgloss.Color // degraded-state highlights
}

// DefaultTheme is the default theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00b7ff"),
	Dim:     lipgloss.Color("#6e7681"),
	Alert:   lipgloss.Color("#ff5f56"),
}

// StatsView renders pipeline snapshots for the live ingest display.
type StatsView struct {
	title lipgloss.Style
	label lipgloss.Style
	dim   lipgloss.Style
	alert lipgloss.Style
}

// NewStatsView creates a view with the given theme.
func NewStatsView(t Theme) *StatsView {
	return &StatsView{
		title: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		label: lipgloss.NewStyle().Foreground(t.Primary),
		dim:   lipgloss.NewStyle().Foreground(t.Dim),
		alert: lipgloss.NewStyle().Bold(true).Foreground(t.Alert),
	}
}

// Render formats one snapshot as a multi-line block.
func (v *StatsView) Render(s *stats.Snapshot) string {
	var b strings.Builder

	b.WriteString(v.title.Render("parser"))
	b.WriteByte('\n')
	fmt.Fprintf(&b, "  %s %d  %s %d  %s %s\n",
		v.label.Render("frames"), s.Parser.TotalFrames,
		v.label.Render("dropped"), s.Parser.DroppedFrames,
		v.label.Render("ok"), FormatRate(s.Parser.SuccessRate))
	if s.Parser.LastError != nil {
		fmt.Fprintf(&b, "  %s %s\n", v.dim.Render("last error"), s.Parser.LastError.Kind)
	}

	b.WriteString(v.title.Render("scheduler"))
	b.WriteByte('\n')
	fmt.Fprintf(&b, "  %s %d/%d  %s %d  %s %d  %s %s\n",
		v.label.Render("done"), s.Scheduler.CompletedTasks, s.Scheduler.TotalTasks,
		v.label.Render("dropped"), s.Scheduler.DroppedTasks,
		v.label.Render("queue"), s.Scheduler.QueueLength,
		v.label.Render("avg"), FormatMillis(s.Scheduler.AverageTimeMs))
	fmt.Fprintf(&b, "  %s %d active, %d in flight\n",
		v.dim.Render("workers"), s.Scheduler.ActiveWorkers, s.Scheduler.InFlight)

	b.WriteString(v.title.Render("quality"))
	b.WriteByte('\n')
	level := v.label.Render(s.Controller.Level.String())
	if s.Controller.Level > 0 {
		level = v.alert.Render(s.Controller.Level.String())
	}
	fmt.Fprintf(&b, "  %s %s  %s %s/%dx  %s %.1f\n",
		v.label.Render("level"), level,
		v.label.Render("pref"), s.Controller.Settings.DataType, s.Controller.Settings.Downsample,
		v.label.Render("fps"), s.Controller.Metrics.FPS)

	return b.String()
}
