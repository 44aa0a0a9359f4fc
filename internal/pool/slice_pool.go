package pool

import "sync"

// symbolSlicePool recycles the uint64 symbol slices that transforms decode words into.
var symbolSlicePool = sync.Pool{
	New: func() any { return &[]uint64{} },
}

// GetSymbolSlice retrieves a uint64 slice of exactly size elements from the pool.
//
// The caller must call the returned cleanup function once the slice is no longer
// referenced:
//
//	symbols, cleanup := pool.GetSymbolSlice(n)
//	defer cleanup()
func GetSymbolSlice(size int) ([]uint64, func()) {
	ptr, _ := symbolSlicePool.Get().(*[]uint64)
	slice := *ptr

	if cap(slice) < size {
		slice = make([]uint64, size)
	} else {
		slice = slice[:size]
	}
	*ptr = slice

	return slice, func() { symbolSlicePool.Put(ptr) }
}
