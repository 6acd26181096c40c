package clock

import (
	"sync"
	"time"
)

// SystemClock returns the wall clock time as Unix seconds.
type SystemClock struct{}

func (SystemClock) Now() int64 {
	return time.Now().Unix()
}

// ManualClock is a settable clock for tests.
type ManualClock struct {
	locker sync.Mutex
	now    int64
}

// NewManualClock returns a ManualClock set to the given time.
func NewManualClock(now int64) *ManualClock {
	return &ManualClock{now: now}
}

func (c *ManualClock) Now() int64 {
	c.locker.Lock()
	defer c.locker.Unlock()
	return c.now
}

// SetNow moves the clock to the given time.
func (c *ManualClock) SetNow(now int64) {
	c.locker.Lock()
	defer c.locker.Unlock()
	c.now = now
}
