package pool

import "sync"

// Slice pools for scratch code buffers used while quantizing and packing.
var (
	uint64SlicePool = sync.Pool{
		New: func() any { return &[]uint64{} },
	}
	int64SlicePool = sync.Pool{
		New: func() any { return &[]int64{} },
	}
)

// GetUint64Slice retrieves a uint64 slice of exactly size elements from the pool.
//
// The contents are not zeroed. The caller must call the returned cleanup function
// (typically with defer) to hand the slice back.
//
// Example:
//
//	codes, cleanup := pool.GetUint64Slice(count)
//	defer cleanup()
func GetUint64Slice(size int) ([]uint64, func()) {
	ptr, _ := uint64SlicePool.Get().(*[]uint64)
	slice := (*ptr)[:0]

	if cap(slice) < size {
		slice = make([]uint64, size)
	} else {
		slice = slice[:size]
	}
	*ptr = slice

	return slice, func() { uint64SlicePool.Put(ptr) }
}

// GetInt64Slice retrieves an int64 slice of exactly size elements from the pool.
//
// The contents are not zeroed. The caller must call the returned cleanup function.
func GetInt64Slice(size int) ([]int64, func()) {
	ptr, _ := int64SlicePool.Get().(*[]int64)
	slice := (*ptr)[:0]

	if cap(slice) < size {
		slice = make([]int64, size)
	} else {
		slice = slice[:size]
	}
	*ptr = slice

	return slice, func() { int64SlicePool.Put(ptr) }
}
