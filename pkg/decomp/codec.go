package decomp

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/seisview/seisview/pkg/tilewire"
)

// Codec decompresses one payload into exactly uncompressedSize bytes.
// Implementations must be safe for concurrent use by multiple workers.
type Codec interface {
	Decompress(src []byte, uncompressedSize int) ([]byte, error)
}

// defaultCodecs returns the codec for every defined compression kind.
func defaultCodecs() map[tilewire.Compression]Codec {
	return map[tilewire.Compression]Codec{
		tilewire.CompressionNone: identityCodec{},
		tilewire.CompressionLZ4:  lz4Codec{},
		tilewire.CompressionZstd: &zstdCodec{},
	}
}

// identityCodec passes uncompressed payloads through after a size check.
type identityCodec struct{}

func (identityCodec) Decompress(src []byte, uncompressedSize int) ([]byte, error) {
	if len(src) != uncompressedSize {
		return nil, fmt.Errorf("decomp: identity payload is %d bytes, declared %d", len(src), uncompressedSize)
	}
	return src, nil
}

// lz4Codec decodes LZ4 block-format payloads.
type lz4Codec struct{}

func (lz4Codec) Decompress(src []byte, uncompressedSize int) ([]byte, error) {
	dst := make([]byte, uncompressedSize)
	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return nil, fmt.Errorf("decomp: lz4: %w", err)
	}
	if n != uncompressedSize {
		return nil, fmt.Errorf("decomp: lz4 produced %d bytes, declared %d", n, uncompressedSize)
	}
	return dst, nil
}

// zstdCodec decodes zstd payloads. The underlying decoder is created on
// first use and shared: DecodeAll on a stateless decoder is safe for
// concurrent callers.
type zstdCodec struct {
	once sync.Once
	dec  *zstd.Decoder
	err  error
}

func (c *zstdCodec) Decompress(src []byte, uncompressedSize int) ([]byte, error) {
	c.once.Do(func() {
		c.dec, c.err = zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(uint64(1<<30)))
	})
	if c.err != nil {
		return nil, fmt.Errorf("decomp: zstd init: %w", c.err)
	}
	dst, err := c.dec.DecodeAll(src, make([]byte, 0, uncompressedSize))
	if err != nil {
		return nil, fmt.Errorf("decomp: zstd: %w", err)
	}
	if len(dst) != uncompressedSize {
		return nil, fmt.Errorf("decomp: zstd produced %d bytes, declared %d", len(dst), uncompressedSize)
	}
	return dst, nil
}
