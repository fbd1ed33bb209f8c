// Package cli provides common utilities for the seisview command-line
// tools: YAML configuration loading, human-readable formatting helpers,
// and the lipgloss-based live stats display used by the ingest command.
//
// Configuration lives in ~/.seisview/config.yaml and carries the server
// URL plus the tuning knobs of every pipeline component (frame validation
// limits, scheduler sizing, quality thresholds).
package cli
