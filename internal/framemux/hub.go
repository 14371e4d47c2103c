package framemux

import (
	"sync"

	"github.com/google/uuid"
)

// hub fans estimator lines out to subscriber channels. Sends never block:
// a subscriber whose buffer is full misses the line.
type hub struct {
	mu     sync.Mutex
	subs   map[string]chan string
	buffer int
	closed bool
}

func newHub(buffer int) *hub {
	return &hub{subs: map[string]chan string{}, buffer: buffer}
}

// add registers a subscriber. After shutdown the returned channel is
// already closed so readers fall through immediately.
func (h *hub) add() (string, chan string) {
	id := uuid.NewString()
	ch := make(chan string, h.buffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return id, ch
	}
	h.subs[id] = ch
	return id, ch
}

func (h *hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// broadcast reports false once the hub has shut down.
func (h *hub) broadcast(line string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	for id, ch := range h.subs {
		select {
		case ch <- line:
		default:
			logf("subscriber %s is behind, line dropped", id)
		}
	}
	return true
}

// shutdown closes every subscriber. It reports whether this call did the
// work, so owners can release their port exactly once.
func (h *hub) shutdown() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
	return true
}

func (h *hub) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *hub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
