// Package quality adapts the requested stream quality to observed client
// performance.
//
// The Controller is a state machine over four ordinal degradation levels,
// 0 (full quality, the caller's baseline) through 3 (maximum degradation).
// On every tick it scores the current performance metrics, maps the score
// to a target level, and applies transitions asymmetrically: degradation is
// immediate, improvement waits for a sustained run of better-scoring ticks.
// The hysteresis keeps the level from oscillating on transient spikes.
//
// Level changes are pushed upstream through an injected Sender as a
// PreferenceMessage and fanned out to registered observers; the embedding
// application forwards the message to the server as a control message.
package quality
