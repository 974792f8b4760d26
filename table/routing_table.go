// Package table implements the bucketed routing table: 160 buckets indexed
// by the highest bit at which a contact's CID differs from the local one.
package table

import (
	"fmt"
	"sort"
	"sync"

	"kadnode/kadid"
)

// K is the maximum number of contacts a single bucket holds.
const K = 20

// bucket holds up to K contacts. Insertion order is first-seen; a full
// bucket drops new contacts rather than evicting existing ones (see
// DESIGN.md for why this repository keeps the reference node's simple
// policy instead of adopting an LRU-eviction k-bucket).
type bucket struct {
	contacts []Contact
}

func (b *bucket) has(id kadid.CID) bool {
	for _, c := range b.contacts {
		if c.CID.Equal(id) {
			return true
		}
	}
	return false
}

// RoutingTable is a Kademlia routing table centered on a local CID.
type RoutingTable struct {
	self kadid.CID

	mu      sync.RWMutex
	buckets [kadid.Bits]*bucket
}

// New creates an empty routing table centered on self.
func New(self kadid.CID) *RoutingTable {
	return &RoutingTable{self: self}
}

// Insert adds a contact to its bucket. Self-contacts are rejected silently.
// A duplicate CID already present in its bucket is left untouched
// (first-seen-wins); a new CID is dropped if its bucket is already at
// capacity K.
func (t *RoutingTable) Insert(c Contact) {
	idx, ok := kadid.BucketIndex(t.self, c.CID)
	if !ok {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	b := t.buckets[idx]
	if b == nil {
		b = &bucket{}
		t.buckets[idx] = b
	}

	if b.has(c.CID) {
		return
	}
	if len(b.contacts) >= K {
		return
	}
	b.contacts = append(b.contacts, c)
}

// Closest returns up to n contacts from the table sorted by ascending XOR
// distance to target. Fewer than n are returned if the table holds fewer.
func (t *RoutingTable) Closest(target kadid.CID, n int) []Contact {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var all []Contact
	for _, b := range t.buckets {
		if b == nil {
			continue
		}
		all = append(all, b.contacts...)
	}

	sort.Slice(all, func(i, j int) bool {
		di := kadid.Distance(all[i].CID, target)
		dj := kadid.Distance(all[j].CID, target)
		return kadid.Less(di, dj)
	})

	if len(all) > n {
		all = all[:n]
	}
	return all
}

// Snapshot returns every non-empty bucket, in bucket-index order, for
// diagnostics.
func (t *RoutingTable) Snapshot() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []string
	for idx, b := range t.buckets {
		if b == nil || len(b.contacts) == 0 {
			continue
		}
		out = append(out, fmt.Sprintf("bucket %3d: %d contact(s)", idx, len(b.contacts)))
	}
	return out
}

// Len returns the total number of contacts across every bucket.
func (t *RoutingTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, b := range t.buckets {
		if b != nil {
			n += len(b.contacts)
		}
	}
	return n
}
