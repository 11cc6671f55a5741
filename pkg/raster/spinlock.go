package raster

import (
	"runtime"
	"sync/atomic"
)

// spinLock guards a single texel. Critical sections are a handful of loads
// and stores, so waiting goroutines yield instead of parking.
type spinLock struct {
	state int32
}

func (s *spinLock) Lock() {
	for !atomic.CompareAndSwapInt32(&s.state, 0, 1) {
		runtime.Gosched()
	}
}

func (s *spinLock) Unlock() {
	atomic.StoreInt32(&s.state, 0)
}
