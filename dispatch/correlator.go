package dispatch

import (
	"sync"

	"kadnode/wire"
)

// Correlator tracks outstanding closestNodesRequests by their requestID so
// that a closestNodesResponse can be delivered to the exact goroutine
// awaiting it, no matter how many lookups are in flight concurrently. This
// is the per-request replacement for a single shared pending-response slot,
// modeled directly on the teacher's rpc.Client pending map.
type Correlator struct {
	mu      sync.Mutex
	pending map[string]chan wire.ClosestNodesResponse
}

// NewCorrelator creates an empty correlator.
func NewCorrelator() *Correlator {
	return &Correlator{pending: make(map[string]chan wire.ClosestNodesResponse)}
}

// Register installs a one-shot channel for requestID and returns it. The
// caller must eventually call Cancel if no response ever arrives (e.g. on
// timeout) to avoid leaking the map entry.
func (c *Correlator) Register(requestID string) chan wire.ClosestNodesResponse {
	ch := make(chan wire.ClosestNodesResponse, 1)
	c.mu.Lock()
	c.pending[requestID] = ch
	c.mu.Unlock()
	return ch
}

// Complete delivers resp to the channel registered under requestID, if any.
// It reports whether a waiter was found. Late, duplicate, or foreign
// responses (no matching requestID) are discarded.
func (c *Correlator) Complete(requestID string, resp wire.ClosestNodesResponse) bool {
	c.mu.Lock()
	ch, ok := c.pending[requestID]
	if ok {
		delete(c.pending, requestID)
	}
	c.mu.Unlock()

	if !ok {
		return false
	}
	ch <- resp
	close(ch)
	return true
}

// Cancel removes a pending registration without delivering anything, used
// on timeout or when the owning lookup is cancelled.
func (c *Correlator) Cancel(requestID string) {
	c.mu.Lock()
	delete(c.pending, requestID)
	c.mu.Unlock()
}

// Len reports the number of outstanding requests, for tests and diagnostics.
func (c *Correlator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
