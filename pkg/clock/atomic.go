package clock

import "sync/atomic"

// AtomicClock hands out commit sequence numbers. The base store reserves one
// number per batch record and publishes the last one once the batch applies.
type AtomicClock struct {
	atomic.Uint64
}

// NewAtomic starts the clock at init, the last sequence already used.
func NewAtomic(init uint64) *AtomicClock {
	var ac AtomicClock
	ac.Set(init)
	return &ac
}

// Val is the last published sequence number.
func (ac *AtomicClock) Val() uint64 {
	return ac.Load()
}

// Next reserves a single sequence number.
func (ac *AtomicClock) Next() uint64 {
	return ac.Add(1)
}

// Set publishes seq as the last used sequence number.
func (ac *AtomicClock) Set(seq uint64) {
	ac.Store(seq)
}
