package stream

import (
	"encoding/json"
	"fmt"
)

// ControlMessage is one server-to-client control message. The set of
// variants is closed; unknown discriminants are rejected, not logged away.
type ControlMessage interface {
	controlType() string
}

// VolumeInfo announces the geometry of the volume being streamed.
type VolumeInfo struct {
	Type       string `json:"type"` // "volume"
	Inlines    int    `json:"inlines"`
	Crosslines int    `json:"crosslines"`
	Samples    int    `json:"samples"`
	DataType   string `json:"dtype"`
}

func (*VolumeInfo) controlType() string { return "volume" }

// QualityAck confirms the server adopted a quality preference.
type QualityAck struct {
	Type       string `json:"type"` // "quality_ack"
	DataType   string `json:"dtype"`
	Downsample int    `json:"downsample"`
}

func (*QualityAck) controlType() string { return "quality_ack" }

// ServerError reports a server-side problem with the stream.
type ServerError struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

func (*ServerError) controlType() string { return "error" }

// ParseControl decodes one JSON control message into its typed variant.
func ParseControl(data []byte) (ControlMessage, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("stream: malformed control message: %w", err)
	}

	var msg ControlMessage
	switch probe.Type {
	case "volume":
		msg = &VolumeInfo{}
	case "quality_ack":
		msg = &QualityAck{}
	case "error":
		msg = &ServerError{}
	default:
		return nil, fmt.Errorf("stream: unknown control message type %q", probe.Type)
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("stream: decode %s message: %w", probe.Type, err)
	}
	return msg, nil
}
