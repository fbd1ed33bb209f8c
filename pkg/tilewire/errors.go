package tilewire

import "fmt"

// ErrorKind classifies why a frame was rejected.
type ErrorKind uint8

const (
	// BufferTooShort: fewer bytes than the fixed header size.
	BufferTooShort ErrorKind = iota
	// InvalidMessageType: first byte is not the tile message tag.
	InvalidMessageType
	// InvalidPlaneType: plane byte is not a defined plane.
	InvalidPlaneType
	// InvalidTileDimensions: tile size, pixel count, coordinate, or slice
	// index is out of the configured limits.
	InvalidTileDimensions
	// InvalidDataType: dtype byte is not a defined sample type.
	InvalidDataType
	// InvalidCompressionType: compression byte is not a defined algorithm.
	InvalidCompressionType
	// InvalidPayloadSize: declared payload exceeds the configured limit, or
	// a compressed payload exceeds its declared uncompressed size.
	InvalidPayloadSize
	// UncompressedSizeMismatch: declared uncompressed size disagrees with
	// the tile geometry, or with the payload size when uncompressed.
	UncompressedSizeMismatch
	// PayloadSizeMismatch: buffer length is not header size + declared
	// payload size.
	PayloadSizeMismatch
	// CorruptedHeader: an unexpected fault while parsing.
	CorruptedHeader
)

func (k ErrorKind) String() string {
	switch k {
	case BufferTooShort:
		return "buffer too short"
	case InvalidMessageType:
		return "invalid message type"
	case InvalidPlaneType:
		return "invalid plane type"
	case InvalidTileDimensions:
		return "invalid tile dimensions"
	case InvalidDataType:
		return "invalid data type"
	case InvalidCompressionType:
		return "invalid compression type"
	case InvalidPayloadSize:
		return "invalid payload size"
	case UncompressedSizeMismatch:
		return "uncompressed size mismatch"
	case PayloadSizeMismatch:
		return "payload size mismatch"
	case CorruptedHeader:
		return "corrupted header"
	}
	return fmt.Sprintf("error kind(%d)", uint8(k))
}

// ParseError is the rejection reason for one frame. Callers branch on Kind
// via errors.As.
type ParseError struct {
	Kind   ErrorKind
	Detail string
}

func (e *ParseError) Error() string {
	if e.Detail == "" {
		return "tilewire: " + e.Kind.String()
	}
	return "tilewire: " + e.Kind.String() + ": " + e.Detail
}

func parseErrorf(kind ErrorKind, format string, args ...any) *ParseError {
	return &ParseError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}
