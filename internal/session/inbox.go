package session

import (
	"sync"

	"github.com/banshee-data/pushup.report/internal/pose"
)

// inbox holds at most one unprocessed frame. A newer frame replaces an
// older one that has not been taken yet, so a slow consumer always works on
// the most recent frame.
type inbox struct {
	mu      sync.Mutex
	pending *pose.Frame
	dropped uint64
	ready   chan struct{}
}

func newInbox() *inbox {
	return &inbox{ready: make(chan struct{}, 1)}
}

// put stores f and reports whether an older frame was discarded.
func (b *inbox) put(f pose.Frame) bool {
	b.mu.Lock()
	replaced := b.pending != nil
	if replaced {
		b.dropped++
	}
	b.pending = &f
	b.mu.Unlock()

	select {
	case b.ready <- struct{}{}:
	default:
	}
	return replaced
}

func (b *inbox) take() (pose.Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == nil {
		return pose.Frame{}, false
	}
	f := *b.pending
	b.pending = nil
	return f, true
}

func (b *inbox) clear() {
	b.mu.Lock()
	b.pending = nil
	b.mu.Unlock()
}

func (b *inbox) droppedCount() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
