package section

const (
	// Magic identifies a compressed stream. It is the first byte of every preamble.
	Magic = 0x5C

	// Flag bits
	FlagChecksum     = 0x01 // an 8-byte xxHash64 of the body follows the stage ids
	FlagReservedMask = 0xFE // reserved bits, must be zero

	// FixedSize is the size of the preamble without stage ids and checksum:
	// magic, flags, datatype and stage count.
	FixedSize = 4
	// ChecksumSize is the size of the optional body checksum.
	ChecksumSize = 8
	// MaxStageCount is the largest stage count a preamble can record.
	MaxStageCount = 0xFF
)
