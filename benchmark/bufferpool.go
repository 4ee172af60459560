package benchmark

import (
	"sync"
)

const defaultBufferSize = 10240

// bufPool recycles chunk buffers between tasks. A buffer is owned by one
// task from GetBuffer until PutBuffer.
var bufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, defaultBufferSize)
		return &buf
	},
}

// GetBuffer returns a buffer of exactly size bytes. Its contents are undefined.
func GetBuffer(size int) []byte {
	buf := *bufPool.Get().(*[]byte)
	if cap(buf) < size {
		return make([]byte, size)
	}
	return buf[:size]
}

// PutBuffer returns a buffer to the pool.
func PutBuffer(buf []byte) {
	bufPool.Put(&buf)
}
