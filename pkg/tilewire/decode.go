package tilewire

import (
	"encoding/binary"
	"sync"
)

// Decoder validates and parses binary tile frames. Decode is pure with
// respect to its input: the only mutable state is the frame/drop counters,
// which are reporting-only and never influence a decode outcome.
//
// Decode is meant to be called from a single receive loop; Stats may be
// read concurrently.
type Decoder struct {
	limits Limits

	mu        sync.Mutex
	total     uint64
	dropped   uint64
	lastError *ParseError
}

// NewDecoder creates a Decoder enforcing the given limits. Zero limit
// fields fall back to DefaultLimits.
func NewDecoder(limits Limits) *Decoder {
	return &Decoder{limits: limits.orDefaults()}
}

// Decode validates buf as one complete tile frame and returns the parsed
// record. The payload is copied, so buf may be reused by the caller.
//
// Validation short-circuits at the first failure and never reads past the
// failure point. Any internal fault is reported as CorruptedHeader rather
// than a panic.
func (d *Decoder) Decode(buf []byte) (rec *TileRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec, err = nil, parseErrorf(CorruptedHeader, "parse fault: %v", r)
		}
		d.record(err)
	}()

	if len(buf) < HeaderSize {
		return nil, parseErrorf(BufferTooShort, "%d bytes, need %d", len(buf), HeaderSize)
	}
	if buf[0] != MsgTypeTile {
		return nil, parseErrorf(InvalidMessageType, "tag 0x%02x", buf[0])
	}

	h := TileHeader{
		Plane:             Plane(buf[1]),
		TileW:             binary.LittleEndian.Uint16(buf[2:4]),
		TileH:             binary.LittleEndian.Uint16(buf[4:6]),
		TileX:             binary.LittleEndian.Uint32(buf[6:10]),
		TileY:             binary.LittleEndian.Uint32(buf[10:14]),
		SliceIndex:        binary.LittleEndian.Uint32(buf[14:18]),
		DataType:          DataType(buf[18]),
		Compression:       Compression(buf[19]),
		UncompressedBytes: binary.LittleEndian.Uint32(buf[20:24]),
		PayloadBytes:      binary.LittleEndian.Uint32(buf[24:28]),
	}

	if !h.Plane.Valid() {
		return nil, parseErrorf(InvalidPlaneType, "plane byte %d", buf[1])
	}
	if h.TileW == 0 || int(h.TileW) > d.limits.MaxTileWidth ||
		h.TileH == 0 || int(h.TileH) > d.limits.MaxTileHeight {
		return nil, parseErrorf(InvalidTileDimensions, "%dx%d", h.TileW, h.TileH)
	}
	if h.PixelCount() > d.limits.MaxPixelsPerTile {
		return nil, parseErrorf(InvalidTileDimensions, "%d pixels exceeds limit", h.PixelCount())
	}
	if h.TileX > d.limits.MaxCoordinate || h.TileY > d.limits.MaxCoordinate {
		return nil, parseErrorf(InvalidTileDimensions, "origin (%d,%d) out of range", h.TileX, h.TileY)
	}
	if h.SliceIndex > d.limits.MaxSliceIndex {
		return nil, parseErrorf(InvalidTileDimensions, "slice %d out of range", h.SliceIndex)
	}
	if !h.DataType.Valid() {
		return nil, parseErrorf(InvalidDataType, "dtype byte %d", buf[18])
	}
	if !h.Compression.Valid() {
		return nil, parseErrorf(InvalidCompressionType, "compression byte %d", buf[19])
	}
	if int(h.PayloadBytes) > d.limits.MaxPayloadSize {
		return nil, parseErrorf(InvalidPayloadSize, "%d bytes exceeds limit", h.PayloadBytes)
	}
	if h.Compression == CompressionNone && h.UncompressedBytes != h.PayloadBytes {
		return nil, parseErrorf(UncompressedSizeMismatch,
			"uncompressed payload declares %d raw vs %d payload bytes", h.UncompressedBytes, h.PayloadBytes)
	}
	want := h.PixelCount() * h.DataType.BytesPerSample()
	if int(h.UncompressedBytes) != want {
		return nil, parseErrorf(UncompressedSizeMismatch,
			"declared %d, geometry needs %d", h.UncompressedBytes, want)
	}
	if len(buf) != HeaderSize+int(h.PayloadBytes) {
		return nil, parseErrorf(PayloadSizeMismatch,
			"frame is %d bytes, header declares %d", len(buf), HeaderSize+int(h.PayloadBytes))
	}
	// A compressed payload larger than its own output is corruption, not
	// compression.
	if h.Compression != CompressionNone && h.PayloadBytes > h.UncompressedBytes {
		return nil, parseErrorf(InvalidPayloadSize,
			"compressed payload %d exceeds uncompressed %d", h.PayloadBytes, h.UncompressedBytes)
	}

	payload := make([]byte, h.PayloadBytes)
	copy(payload, buf[HeaderSize:])
	return &TileRecord{Header: h, Payload: payload}, nil
}

func (d *Decoder) record(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.total++
	if err != nil {
		d.dropped++
		if pe, ok := err.(*ParseError); ok {
			d.lastError = pe
		}
	}
}

// Stats is a snapshot of the decoder's frame counters.
type Stats struct {
	TotalFrames   uint64
	DroppedFrames uint64
	SuccessRate   float64
	LastError     *ParseError
}

// Stats returns a snapshot of the counters. Safe for concurrent use.
func (d *Decoder) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := Stats{
		TotalFrames:   d.total,
		DroppedFrames: d.dropped,
		LastError:     d.lastError,
	}
	if d.total > 0 {
		s.SuccessRate = float64(d.total-d.dropped) / float64(d.total)
	}
	return s
}
