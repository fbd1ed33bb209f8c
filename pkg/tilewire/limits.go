package tilewire

// Limits bounds every size and coordinate a frame may declare. Loaded once
// at startup and treated as constant afterwards.
type Limits struct {
	MaxTileWidth     int    `yaml:"max_tile_width"`
	MaxTileHeight    int    `yaml:"max_tile_height"`
	MaxPixelsPerTile int    `yaml:"max_pixels_per_tile"`
	MaxCoordinate    uint32 `yaml:"max_coordinate"`
	MaxSliceIndex    uint32 `yaml:"max_slice_index"`
	MaxPayloadSize   int    `yaml:"max_payload_size"`
}

// DefaultLimits returns the limits used when no configuration overrides
// them. Generous enough for any real survey, tight enough that a hostile
// header cannot request absurd allocations.
func DefaultLimits() Limits {
	return Limits{
		MaxTileWidth:     4096,
		MaxTileHeight:    4096,
		MaxPixelsPerTile: 4096 * 4096,
		MaxCoordinate:    1 << 24,
		MaxSliceIndex:    1 << 24,
		MaxPayloadSize:   64 << 20,
	}
}

// orDefaults fills any zero field from DefaultLimits so a partially
// configured Limits stays safe.
func (l Limits) orDefaults() Limits {
	d := DefaultLimits()
	if l.MaxTileWidth <= 0 {
		l.MaxTileWidth = d.MaxTileWidth
	}
	if l.MaxTileHeight <= 0 {
		l.MaxTileHeight = d.MaxTileHeight
	}
	if l.MaxPixelsPerTile <= 0 {
		l.MaxPixelsPerTile = d.MaxPixelsPerTile
	}
	if l.MaxCoordinate == 0 {
		l.MaxCoordinate = d.MaxCoordinate
	}
	if l.MaxSliceIndex == 0 {
		l.MaxSliceIndex = d.MaxSliceIndex
	}
	if l.MaxPayloadSize <= 0 {
		l.MaxPayloadSize = d.MaxPayloadSize
	}
	return l
}
