// Package tilewire implements the binary tile frame format for the seisview
// streaming protocol.
//
// A tile frame is a fixed 28-byte header followed by a variable-length
// compressed payload. All multi-byte header fields are little-endian:
//
//	+---------+-------+-------+-------+-------+-------+------------+
//	| msgType | plane | tileW | tileH | tileX | tileY | sliceIndex |
//	| (1B)    | (1B)  | (2B)  | (2B)  | (4B)  | (4B)  | (4B)       |
//	+---------+-------+-------+-------+-------+-------+------------+
//	| dtype   | comp  | uncompressedBytes | payloadBytes | payload |
//	| (1B)    | (1B)  | (4B)              | (4B)         | ...     |
//	+---------+-------+-------------------+--------------+---------+
//
// Decoding is pure and total: every malformed input maps to a ParseError
// with a specific Kind, never a panic. The Decoder keeps frame counters for
// observability only; decode outcomes never depend on prior frames.
//
// LooksLikeTileFrame is the cheap pre-check transports use to route binary
// tile frames away from JSON control messages without full validation.
package tilewire
