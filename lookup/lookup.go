// Package lookup implements the iterative closest-node search: the engine
// that drives a sequence of closestNodesRequests toward a target CID,
// converging once no closer contact can be found.
package lookup

import (
	"context"
	"sort"
	"time"

	"kadnode/kadid"
	"kadnode/table"
)

// SeedWidth is how many locally-known contacts seed a lookup.
const SeedWidth = table.K

// WholeLookupTimeout bounds the total wall-clock time a single Lookup call
// may take, regardless of how many hops it drives.
const WholeLookupTimeout = 10 * time.Second

// Querier asks addr for contacts closest to target and returns what it
// learns. A silent or failed peer is reported as (nil, nil) — see
// dispatch.Dispatcher.QueryClosestNodes, the production implementation.
type Querier func(ctx context.Context, addr string, target kadid.CID) ([]table.Contact, error)

// Engine drives iterative lookups against a local routing table using query
// to reach the network.
type Engine struct {
	Self  kadid.CID
	Table *table.RoutingTable
	Query Querier
}

// New builds a lookup engine.
func New(self kadid.CID, rt *table.RoutingTable, query Querier) *Engine {
	return &Engine{Self: self, Table: rt, Query: query}
}

// candidate tracks one contact's membership in the working set: whether it
// has already been queried this lookup.
type candidate struct {
	contact table.Contact
	asked   bool
}

// Lookup runs the iterative closest-node search for target and returns up
// to k contacts, the closest it could find. It respects ctx for
// cancellation in addition to enforcing WholeLookupTimeout internally.
func (e *Engine) Lookup(ctx context.Context, target kadid.CID, k int) []table.Contact {
	ctx, cancel := context.WithTimeout(ctx, WholeLookupTimeout)
	defer cancel()

	seed := e.Table.Closest(target, SeedWidth)
	if len(seed) == 0 {
		return nil
	}

	candidates := make([]*candidate, 0, len(seed))
	for _, c := range seed {
		candidates = append(candidates, &candidate{contact: c})
	}

	bestDistance := allOnes()

	for {
		sortCandidates(candidates, target)

		next := selectNext(candidates, target, bestDistance)
		if next == nil {
			break
		}
		next.asked = true

		select {
		case <-ctx.Done():
			return topK(candidates, target, k)
		default:
		}

		results, err := e.Query(ctx, next.contact.Addr, target)
		if err != nil {
			// ctx cancellation/deadline: stop driving further hops.
			return topK(candidates, target, k)
		}

		candidates = merge(candidates, results, e.Self)

		sortCandidates(candidates, target)
		if len(candidates) > SeedWidth {
			candidates = candidates[:SeedWidth]
		}
		newBest := bestOf(candidates, target)
		if !kadid.Less(newBest, bestDistance) {
			break
		}
		bestDistance = newBest
	}

	return topK(candidates, target, k)
}

func selectNext(cands []*candidate, target kadid.CID, bestDistance kadid.CID) *candidate {
	for _, c := range cands {
		if c.asked {
			continue
		}
		d := kadid.Distance(c.contact.CID, target)
		if kadid.Less(d, bestDistance) {
			return c
		}
	}
	return nil
}

func bestOf(cands []*candidate, target kadid.CID) kadid.CID {
	if len(cands) == 0 {
		return allOnes()
	}
	return kadid.Distance(cands[0].contact.CID, target)
}

func sortCandidates(cands []*candidate, target kadid.CID) {
	sort.Slice(cands, func(i, j int) bool {
		di := kadid.Distance(cands[i].contact.CID, target)
		dj := kadid.Distance(cands[j].contact.CID, target)
		return kadid.Less(di, dj)
	})
}

// merge folds newly discovered contacts into the candidate set, dropping
// the local CID and de-duplicating by CID. It does not truncate; Lookup
// sorts the result and cuts it back to SeedWidth.
func merge(cands []*candidate, discovered []table.Contact, self kadid.CID) []*candidate {
	seen := make(map[kadid.CID]bool, len(cands))
	for _, c := range cands {
		seen[c.contact.CID] = true
	}

	for _, d := range discovered {
		if d.CID.Equal(self) {
			continue
		}
		if seen[d.CID] {
			continue
		}
		seen[d.CID] = true
		cands = append(cands, &candidate{contact: d})
	}

	return cands
}

func topK(cands []*candidate, target kadid.CID, k int) []table.Contact {
	sortCandidates(cands, target)
	if len(cands) > k {
		cands = cands[:k]
	}
	out := make([]table.Contact, len(cands))
	for i, c := range cands {
		out[i] = c.contact
	}
	return out
}

func allOnes() kadid.CID {
	var c kadid.CID
	for i := range c {
		c[i] = 0xFF
	}
	return c
}
