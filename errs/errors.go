// Package errs defines the sentinel errors returned by scil.
//
// Every public operation reports failures by wrapping one of these sentinels,
// so callers can match the error kind with errors.Is regardless of how much
// context was added on the way up:
//
//	out, err := pipeline.Compress(ctx, values, d)
//	if errors.Is(err, errs.ErrPrecisionUnachievable) {
//	    // fall back to a lossless chain
//	}
package errs

import "errors"

var (
	// ErrInvalidParameter reports malformed dims, hints, arguments or buffers.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrInvalidChainSpec reports an override string naming an unknown or incompatible
	// stage, or stages in an illegal order.
	ErrInvalidChainSpec = errors.New("invalid chain specification")
	// ErrPrecisionUnachievable reports that a lossy stage cannot meet the requested
	// tolerance at all for the given data.
	ErrPrecisionUnachievable = errors.New("precision unachievable")
	// ErrAccuracyUnachievable reports that the chain search found no chain satisfying
	// the requested accuracy.
	ErrAccuracyUnachievable = errors.New("accuracy unachievable")
	// ErrBufferTooSmall reports that a caller supplied destination is too small.
	ErrBufferTooSmall = errors.New("buffer too small")
	// ErrStageFailure reports that an underlying codec failed or a payload is corrupt.
	ErrStageFailure = errors.New("stage failure")
	// ErrChecksumMismatch reports that a compressed buffer failed its integrity check.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrContextClosed reports use of a context after Close.
	ErrContextClosed = errors.New("context closed")
)

// Kind is the discriminator of a scil error.
type Kind uint8

const (
	KindNone Kind = iota
	KindInvalidParameter
	KindInvalidChainSpec
	KindPrecisionUnachievable
	KindAccuracyUnachievable
	KindBufferTooSmall
	KindStageFailure
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindInvalidParameter:
		return "InvalidParameter"
	case KindInvalidChainSpec:
		return "InvalidChainSpec"
	case KindPrecisionUnachievable:
		return "PrecisionUnachievable"
	case KindAccuracyUnachievable:
		return "AccuracyUnachievable"
	case KindBufferTooSmall:
		return "BufferTooSmall"
	case KindStageFailure:
		return "StageFailure"
	default:
		return "Unknown"
	}
}

// KindOf maps err to its Kind.
//
// A nil error maps to KindNone. Checksum mismatches are stage failures and a closed
// context is an invalid parameter. Errors that wrap none of the sentinels map to
// KindUnknown.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidParameter), errors.Is(err, ErrContextClosed):
		return KindInvalidParameter
	case errors.Is(err, ErrInvalidChainSpec):
		return KindInvalidChainSpec
	case errors.Is(err, ErrPrecisionUnachievable):
		return KindPrecisionUnachievable
	case errors.Is(err, ErrAccuracyUnachievable):
		return KindAccuracyUnachievable
	case errors.Is(err, ErrBufferTooSmall):
		return KindBufferTooSmall
	case errors.Is(err, ErrStageFailure), errors.Is(err, ErrChecksumMismatch):
		return KindStageFailure
	default:
		return KindUnknown
	}
}
