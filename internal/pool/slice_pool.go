package pool

import "sync"

// float32SlicePool backs decompressed clip value and time buffers.
var float32SlicePool = sync.Pool{
	New: func() any { return &[]float32{} },
}

// GetFloat32Slice retrieves a zeroed float32 slice of the given length from the pool.
//
// The caller must call the returned cleanup function exactly once when the
// slice is no longer referenced, typically when the owning clip is disposed.
//
// Parameters:
//   - size: The desired length of the slice
//
// Returns:
//   - []float32: A zeroed slice with length equal to size
//   - func(): Cleanup function that returns the slice to the pool
func GetFloat32Slice(size int) ([]float32, func()) {
	ptr, _ := float32SlicePool.Get().(*[]float32)
	slice := (*ptr)[:0]

	if cap(slice) < size {
		slice = make([]float32, size)
	} else {
		slice = slice[:size]
		clear(slice)
	}
	*ptr = slice

	return slice, func() { float32SlicePool.Put(ptr) }
}
