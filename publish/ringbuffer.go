package publish

import (
	"sync/atomic"
	_ "unsafe" // for go:linkname
)

//go:linkname semacquireBusSafe sync.runtime_Semacquire
func semacquireBusSafe(s *uint32)

//go:linkname semreleaseBusSafe sync.runtime_Semrelease
func semreleaseBusSafe(s *uint32, handoff bool, skipframes int)

// message is one published event queued for a single MemoryBus subscriber:
// the channel name it was published on (e.g. "orderbook:BTCUSD") and its
// rendered wire payload.
type message struct {
	channel string
	payload string
}

// ringBuffer is a fixed-size, power-of-two circular buffer of pending
// messages for one subscriber. The consumer side blocks on an OS semaphore
// so a subscriber goroutine can sleep until data arrives, but the producer
// side (TryPublish) never blocks — a full buffer means a slow subscriber,
// and publishing is best-effort, so the event is dropped rather than
// back-pressuring the matching engine.
type ringBuffer struct {
	buffer     []message
	mask       int64
	writeSeq   atomic.Int64
	readSeq    atomic.Int64
	emptySlots atomic.Uint32 // plain counter; producer never blocks on this
	fullSlots  uint32        // OS semaphore; consumer blocks on this
}

func newRingBuffer(size int) *ringBuffer {
	if size&(size-1) != 0 {
		panic("publish: ring buffer size must be a power of two")
	}

	rb := &ringBuffer{
		buffer: make([]message, size),
		mask:   int64(size - 1),
	}
	rb.emptySlots.Store(uint32(size))
	return rb
}

// TryPublish appends msg if the buffer has room, returning false if it is
// full (the subscriber is falling behind and this event is dropped).
func (rb *ringBuffer) TryPublish(msg message) bool {
	for {
		slots := rb.emptySlots.Load()
		if slots == 0 {
			return false
		}
		if rb.emptySlots.CompareAndSwap(slots, slots-1) {
			break
		}
	}

	seq := rb.writeSeq.Add(1) - 1
	index := seq & rb.mask
	rb.buffer[index] = msg

	semreleaseBusSafe(&rb.fullSlots, false, 0)
	return true
}

// Consume blocks until a message is available and returns it.
func (rb *ringBuffer) Consume() message {
	semacquireBusSafe(&rb.fullSlots)

	seq := rb.readSeq.Add(1) - 1
	index := seq & rb.mask
	msg := rb.buffer[index]

	rb.emptySlots.Add(1)
	return msg
}
