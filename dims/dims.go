// Package dims describes the shape of a multidimensional array.
package dims

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arloliu/scil/errs"
	"github.com/arloliu/scil/format"
)

// MaxRank is the largest number of dimensions an array may have.
const MaxRank = 4

// Dims is an immutable list of 1 to MaxRank positive dimension lengths.
//
// The zero value is not valid; construct Dims with New.
type Dims struct {
	lengths [MaxRank]int
	rank    int
}

// New creates Dims from the given lengths.
//
// Returns:
//   - Dims: the array shape
//   - error: ErrInvalidParameter if the rank is not 1..4, any length is not positive,
//     or the element count overflows int
func New(lengths ...int) (Dims, error) {
	if len(lengths) == 0 || len(lengths) > MaxRank {
		return Dims{}, fmt.Errorf("%w: rank %d not in [1,%d]", errs.ErrInvalidParameter, len(lengths), MaxRank)
	}

	d := Dims{rank: len(lengths)}
	count := 1
	for i, l := range lengths {
		if l <= 0 {
			return Dims{}, fmt.Errorf("%w: dimension %d has length %d", errs.ErrInvalidParameter, i, l)
		}
		if count > maxInt/l {
			return Dims{}, fmt.Errorf("%w: element count overflows", errs.ErrInvalidParameter)
		}
		count *= l
		d.lengths[i] = l
	}

	return d, nil
}

// Must is like New but panics on invalid input. It is meant for tests and constants.
func Must(lengths ...int) Dims {
	d, err := New(lengths...)
	if err != nil {
		panic(err)
	}

	return d
}

const maxInt = int(^uint(0) >> 1)

// Rank returns the number of dimensions, or 0 for the zero value.
func (d Dims) Rank() int {
	return d.rank
}

// Len returns the length of dimension i.
func (d Dims) Len(i int) int {
	if i < 0 || i >= d.rank {
		return 0
	}

	return d.lengths[i]
}

// Lengths returns a copy of the dimension lengths.
func (d Dims) Lengths() []int {
	out := make([]int, d.rank)
	copy(out, d.lengths[:d.rank])

	return out
}

// Count returns the number of elements, or 0 for the zero value.
func (d Dims) Count() int {
	if d.rank == 0 {
		return 0
	}

	count := 1
	for _, l := range d.lengths[:d.rank] {
		count *= l
	}

	return count
}

// ByteSize returns Count multiplied by the width of dt.
func (d Dims) ByteSize(dt format.Datatype) int {
	return d.Count() * dt.Width()
}

// Valid reports whether d was constructed by New.
func (d Dims) Valid() bool {
	return d.rank > 0
}

func (d Dims) String() string {
	parts := make([]string, d.rank)
	for i := range d.rank {
		parts[i] = strconv.Itoa(d.lengths[i])
	}

	return "(" + strings.Join(parts, "x") + ")"
}
