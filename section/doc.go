// Package section defines the preamble that starts every scil compressed stream.
//
// # Stream Structure
//
//	┌─────────────────────────────────────────────────────────┐
//	│ Preamble (4 + stages [+ 8] bytes)                       │
//	│  - Magic (1 byte): 0x5C                                 │
//	│  - Flag (1 byte): bit 0 = checksum present              │
//	│  - Datatype (1 byte)                                    │
//	│  - Stage count (1 byte)                                 │
//	│  - Stage ids (1 byte each, chain order)                 │
//	│  - Checksum (8 bytes, optional): xxHash64 of the body   │
//	├─────────────────────────────────────────────────────────┤
//	│ Body (variable)                                         │
//	│  - Stage headers in chain order                         │
//	│  - Data block                                           │
//	│  - Wrapped as uvarint(len) + codec(body) when the       │
//	│    chain ends with a byte compressor                    │
//	└─────────────────────────────────────────────────────────┘
//
// Multi-byte fields are little-endian (see package endian).
//
// The element count is not stored: callers pass the same dims to decompression that
// they passed to compression.
//
// # Usage
//
//	p := section.Preamble{Datatype: format.TypeFloat64, IDs: ids}
//	p.Flag.WithChecksum()
//	p.Checksum = hash.Checksum(body)
//	buf, err := p.AppendTo(buf)
//
//	p, offset, err := section.ParsePreamble(stream)
//	body := stream[offset:]
package section
