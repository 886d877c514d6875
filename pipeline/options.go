package pipeline

import (
	"fmt"
	"log"

	"github.com/arloliu/scil/algo"
	"github.com/arloliu/scil/errs"
	"github.com/arloliu/scil/internal/options"
)

// DefaultSampleSize is the number of values the chain search round-trips per
// candidate.
const DefaultSampleSize = 4096

// sampleBlocks is the number of contiguous blocks a sample is drawn from when the
// array is larger than the sample size.
const sampleBlocks = 16

// ContextOption configures a Context.
type ContextOption = options.Option[*contextConfig]

type contextConfig struct {
	registry       *algo.Registry
	logger         *log.Logger
	sampleSize     int
	fullValidation bool
	checksum       bool
}

func defaultConfig() *contextConfig {
	return &contextConfig{
		registry:   algo.Default(),
		sampleSize: DefaultSampleSize,
	}
}

func (c *contextConfig) Validate() error {
	if c.registry == nil {
		return fmt.Errorf("%w: nil registry", errs.ErrInvalidParameter)
	}
	if c.sampleSize < sampleBlocks {
		return fmt.Errorf("%w: sample size %d is below %d", errs.ErrInvalidParameter, c.sampleSize, sampleBlocks)
	}

	return nil
}

// WithRegistry resolves chains against reg instead of the default registry.
//
// Streams produced with a custom registry must be decompressed with the same
// registry.
func WithRegistry(reg *algo.Registry) ContextOption {
	return options.NoError(func(c *contextConfig) {
		c.registry = reg
	})
}

// WithLogger makes the context log chain resolution and search progress to l.
// Without a logger the context writes no diagnostics.
func WithLogger(l *log.Logger) ContextOption {
	return options.NoError(func(c *contextConfig) {
		c.logger = l
	})
}

// WithSampleSize sets how many values the chain search round-trips per candidate.
// Arrays no larger than n are searched in full.
func WithSampleSize(n int) ContextOption {
	return options.New(func(c *contextConfig) error {
		if n <= 0 {
			return fmt.Errorf("%w: sample size %d must be positive", errs.ErrInvalidParameter, n)
		}
		c.sampleSize = n

		return nil
	})
}

// WithFullValidation makes the chain search confirm its winner against the whole
// array, falling back to the next-ranked candidate when the sample was misleading.
func WithFullValidation(enabled bool) ContextOption {
	return options.NoError(func(c *contextConfig) {
		c.fullValidation = enabled
	})
}

// WithChecksum adds an xxHash64 of the body to every stream, verified on
// decompression.
func WithChecksum(enabled bool) ContextOption {
	return options.NoError(func(c *contextConfig) {
		c.checksum = enabled
	})
}
