package quality

import "time"

// EpochMillis is a timestamp in milliseconds since the Unix epoch, the
// representation control messages use on the wire.
type EpochMillis int64

// Now returns the current time as EpochMillis.
func Now() EpochMillis {
	return EpochMillis(time.Now().UnixMilli())
}

// Time converts ms to a time.Time.
func (ms EpochMillis) Time() time.Time {
	return time.Unix(0, int64(ms)*int64(time.Millisecond))
}

// PreferenceMessage is the quality preference control message sent
// upstream when the preferred settings change.
type PreferenceMessage struct {
	Type       string      `json:"type"` // always "quality"
	DataType   string      `json:"dtype"`
	Downsample int         `json:"downsample"`
	Timestamp  EpochMillis `json:"timestamp"`
}

// NewPreferenceMessage builds the control message for s, stamped now.
func NewPreferenceMessage(s Settings) *PreferenceMessage {
	return &PreferenceMessage{
		Type:       "quality",
		DataType:   s.DataType.String(),
		Downsample: s.Downsample,
		Timestamp:  Now(),
	}
}

// Sender carries preference messages upstream. The stream session
// implements it over its control channel.
type Sender interface {
	SendPreference(msg *PreferenceMessage) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(msg *PreferenceMessage) error

func (f SenderFunc) SendPreference(msg *PreferenceMessage) error { return f(msg) }
