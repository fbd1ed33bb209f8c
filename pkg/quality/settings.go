package quality

import (
	"fmt"

	"github.com/seisview/seisview/pkg/tilewire"
)

// Level is an ordinal degradation level. 0 is full quality; higher levels
// trade fidelity for throughput.
type Level int

const (
	LevelFull Level = iota
	LevelMild
	LevelModerate
	LevelMax
)

func (l Level) String() string {
	switch l {
	case LevelFull:
		return "full"
	case LevelMild:
		return "mild"
	case LevelModerate:
		return "moderate"
	case LevelMax:
		return "max"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Settings is the quality preference sent to the server. Immutable value; a
// changed preference is a new Settings, never a mutation.
type Settings struct {
	DataType   tilewire.DataType
	Downsample int // integer downsample factor, >= 1
	Reason     string
}

// Equal compares the wire-relevant fields. Reason is advisory and ignored.
func (s Settings) Equal(other Settings) bool {
	return s.DataType == other.DataType && s.Downsample == other.Downsample
}

// DefaultBaseline is the full-quality preference used when the caller does
// not supply one.
func DefaultBaseline() Settings {
	return Settings{DataType: tilewire.F32, Downsample: 1, Reason: "baseline"}
}

// degradationTable maps levels 1..3 to fixed presets. Level 0 always
// resolves to the configured baseline instead.
var degradationTable = map[Level]Settings{
	LevelMild:     {DataType: tilewire.U8, Downsample: 1, Reason: "mild degradation"},
	LevelModerate: {DataType: tilewire.U8, Downsample: 2, Reason: "moderate degradation"},
	LevelMax:      {DataType: tilewire.MuLawU8, Downsample: 4, Reason: "maximum degradation"},
}
