package tilewire

import (
	"encoding/binary"
	"fmt"
	"slices"
)

// MsgTypeTile is the message tag byte that opens every binary tile frame.
const MsgTypeTile = 0x01

// HeaderSize is the fixed size of a tile frame header in bytes.
const HeaderSize = 28

// Plane identifies one of the three orthogonal slicing orientations
// through the volume.
type Plane uint8

const (
	PlaneInline Plane = iota
	PlaneCrossline
	PlaneTimeDepth
)

// Valid reports whether p is a defined plane value.
func (p Plane) Valid() bool {
	return p <= PlaneTimeDepth
}

func (p Plane) String() string {
	switch p {
	case PlaneInline:
		return "inline"
	case PlaneCrossline:
		return "crossline"
	case PlaneTimeDepth:
		return "timedepth"
	}
	return fmt.Sprintf("plane(%d)", uint8(p))
}

// DataType is the sample data type of a tile payload.
type DataType uint8

const (
	U8 DataType = iota
	U16
	F32
	MuLawU8
)

// Valid reports whether d is a defined data type value.
func (d DataType) Valid() bool {
	return d <= MuLawU8
}

// BytesPerSample returns the storage size of one sample, or 0 for an
// undefined data type.
func (d DataType) BytesPerSample() int {
	switch d {
	case U8, MuLawU8:
		return 1
	case U16:
		return 2
	case F32:
		return 4
	}
	return 0
}

func (d DataType) String() string {
	switch d {
	case U8:
		return "u8"
	case U16:
		return "u16"
	case F32:
		return "f32"
	case MuLawU8:
		return "mulaw"
	}
	return fmt.Sprintf("dtype(%d)", uint8(d))
}

// ParseDataType is the inverse of DataType.String. Returns ok=false for an
// unknown name.
func ParseDataType(s string) (DataType, bool) {
	switch s {
	case "u8":
		return U8, true
	case "u16":
		return U16, true
	case "f32":
		return F32, true
	case "mulaw":
		return MuLawU8, true
	}
	return 0, false
}

// Compression is the compression algorithm applied to a tile payload.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionLZ4
	CompressionZstd
)

// Valid reports whether c is a defined compression value.
func (c Compression) Valid() bool {
	return c <= CompressionZstd
}

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	}
	return fmt.Sprintf("compression(%d)", uint8(c))
}

// TileHeader is the decoded fixed-layout header of one tile frame.
type TileHeader struct {
	Plane             Plane
	TileW             uint16
	TileH             uint16
	TileX             uint32
	TileY             uint32
	SliceIndex        uint32
	DataType          DataType
	Compression       Compression
	UncompressedBytes uint32
	PayloadBytes      uint32
}

// PixelCount returns the number of samples in the tile.
func (h *TileHeader) PixelCount() int {
	return int(h.TileW) * int(h.TileH)
}

// TileRecord is a validated tile header plus its payload, exactly
// PayloadBytes long. The payload is owned by the record and never mutated
// after creation.
type TileRecord struct {
	Header  TileHeader
	Payload []byte
}

// EncodeFrame serializes a header and payload into one wire frame. The
// header's PayloadBytes field is taken from len(payload). No validation is
// performed; feed the result to a Decoder to check it.
func EncodeFrame(h *TileHeader, payload []byte) []byte {
	buf := make([]byte, HeaderSize+len(payload))
	buf[0] = MsgTypeTile
	buf[1] = byte(h.Plane)
	binary.LittleEndian.PutUint16(buf[2:4], h.TileW)
	binary.LittleEndian.PutUint16(buf[4:6], h.TileH)
	binary.LittleEndian.PutUint32(buf[6:10], h.TileX)
	binary.LittleEndian.PutUint32(buf[10:14], h.TileY)
	binary.LittleEndian.PutUint32(buf[14:18], h.SliceIndex)
	buf[18] = byte(h.DataType)
	buf[19] = byte(h.Compression)
	binary.LittleEndian.PutUint32(buf[20:24], h.UncompressedBytes)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(len(payload)))
	copy(buf[HeaderSize:], payload)
	return buf
}

// LooksLikeTileFrame reports whether b plausibly starts a binary tile frame.
// It inspects only the length and tag byte; transports use it to separate
// tile frames from JSON control messages before full decoding.
func LooksLikeTileFrame(b []byte) bool {
	return len(b) >= HeaderSize && b[0] == MsgTypeTile
}

// Clone returns a deep copy of the record.
func (r *TileRecord) Clone() *TileRecord {
	if r == nil {
		return nil
	}
	return &TileRecord{Header: r.Header, Payload: slices.Clone(r.Payload)}
}
