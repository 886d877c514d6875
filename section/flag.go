package section

import (
	"fmt"

	"github.com/arloliu/scil/errs"
)

// Flag is the packed option byte of a preamble.
//
// Bit 0 records whether the body checksum is present. Bits 1-7 are reserved and
// must be zero.
type Flag uint8

// HasChecksum returns whether the preamble carries a body checksum.
func (f Flag) HasChecksum() bool {
	return f&FlagChecksum != 0
}

// WithChecksum enables the body checksum.
func (f *Flag) WithChecksum() {
	*f |= FlagChecksum
}

// WithoutChecksum disables the body checksum.
func (f *Flag) WithoutChecksum() {
	*f &^= FlagChecksum
}

// Validate checks that no reserved bit is set.
func (f Flag) Validate() error {
	if f&FlagReservedMask != 0 {
		return fmt.Errorf("%w: reserved preamble flags 0x%02x are set", errs.ErrStageFailure, uint8(f&FlagReservedMask))
	}

	return nil
}
