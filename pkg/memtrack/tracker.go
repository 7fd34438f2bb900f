// Package memtrack accounts for the large arrays allocated while clustering.
package memtrack

import "sync/atomic"

// Gauge receives the bytes currently in use after every change.
// prometheus.Gauge satisfies it.
type Gauge interface {
	Set(float64)
}

// Tracker counts bytes held by level arrays and coarse graphs.
// The zero value is ready to use; a nil *Tracker ignores all calls.
type Tracker struct {
	inUse atomic.Int64
	peak  atomic.Int64
	gauge Gauge
}

// New creates a tracker that mirrors its usage into gauge (may be nil)
func New(gauge Gauge) *Tracker {
	return &Tracker{gauge: gauge}
}

// Add records an allocation of n bytes
func (t *Tracker) Add(n int64) {
	if t == nil || n == 0 {
		return
	}
	cur := t.inUse.Add(n)
	for {
		peak := t.peak.Load()
		if cur <= peak || t.peak.CompareAndSwap(peak, cur) {
			break
		}
	}
	t.publish(cur)
}

// Remove records that n bytes were released
func (t *Tracker) Remove(n int64) {
	if t == nil || n == 0 {
		return
	}
	t.publish(t.inUse.Add(-n))
}

// InUse returns the bytes currently tracked
func (t *Tracker) InUse() int64 {
	if t == nil {
		return 0
	}
	return t.inUse.Load()
}

// Peak returns the highest value InUse has reached
func (t *Tracker) Peak() int64 {
	if t == nil {
		return 0
	}
	return t.peak.Load()
}

func (t *Tracker) publish(cur int64) {
	if t.gauge != nil {
		t.gauge.Set(float64(cur))
	}
}

// Sizes of the array element types used by the clustering core
const (
	Uint64Bytes  = 8
	Float64Bytes = 8
)

// Uint64s returns the size of a []uint64 of length n
func Uint64s(n uint64) int64 {
	return int64(n) * Uint64Bytes
}

// Float64s returns the size of a []float64 of length n
func Float64s(n uint64) int64 {
	return int64(n) * Float64Bytes
}
