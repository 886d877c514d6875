package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNone},
		{"invalid parameter", ErrInvalidParameter, KindInvalidParameter},
		{"closed context", ErrContextClosed, KindInvalidParameter},
		{"chain spec", ErrInvalidChainSpec, KindInvalidChainSpec},
		{"precision", ErrPrecisionUnachievable, KindPrecisionUnachievable},
		{"accuracy", ErrAccuracyUnachievable, KindAccuracyUnachievable},
		{"buffer", ErrBufferTooSmall, KindBufferTooSmall},
		{"stage", ErrStageFailure, KindStageFailure},
		{"checksum", ErrChecksumMismatch, KindStageFailure},
		{"foreign", errors.New("boom"), KindUnknown},
		{"wrapped", fmt.Errorf("stage abstol: %w", ErrPrecisionUnachievable), KindPrecisionUnachievable},
		{"double wrapped", fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", ErrBufferTooSmall)), KindBufferTooSmall},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestKindString(t *testing.T) {
	require.Equal(t, "PrecisionUnachievable", KindPrecisionUnachievable.String())
	require.Equal(t, "None", KindNone.String())
	require.Equal(t, "Unknown", Kind(200).String())
}
