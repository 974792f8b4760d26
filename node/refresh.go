package node

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"kadnode/kadid"
	"kadnode/wire"
)

// bootstrapTimeout bounds a single bootstrap nodeInfoRequest dial.
const bootstrapTimeout = 2 * time.Second

// refreshLookupWidth is how many contacts each per-bucket refresh lookup
// asks for.
const refreshLookupWidth = 5

// runBootstrapRefreshLoop runs one eager bootstrap+refresh pass at startup,
// then repeats on a timer. Cycles that add no new contacts to the table
// back off exponentially (capped at MaxRefreshInterval); a cycle that does
// add a contact resets the cadence to the configured base interval. This
// replaces the reference node's unconditional once-a-second forever loop
// with a load-aware cadence while preserving its eager-then-periodic shape.
func (n *Node) runBootstrapRefreshLoop(ctx context.Context) {
	interval := n.cfg.RefreshInterval
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}

	for {
		before := n.table.Len()
		n.runOneCycle(ctx)
		after := n.table.Len()

		if after > before {
			interval = n.cfg.RefreshInterval
			if interval <= 0 {
				interval = DefaultRefreshInterval
			}
		} else {
			interval *= 2
			if interval > MaxRefreshInterval {
				interval = MaxRefreshInterval
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// runOneCycle sends a nodeInfoRequest to every configured bootstrap
// address, then runs a lookup against a random target in each of the 160
// bucket ranges, inserting whatever it discovers.
func (n *Node) runOneCycle(ctx context.Context) {
	n.announceToBootstrapPeers(ctx)
	n.refreshAllBuckets(ctx)
}

func (n *Node) announceToBootstrapPeers(ctx context.Context) {
	if len(n.cfg.Bootstrap) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, addr := range n.cfg.Bootstrap {
		addr := addr
		if addr == n.Addr() {
			continue // self-exclusion
		}
		g.Go(func() error {
			dialCtx, cancel := context.WithTimeout(gctx, bootstrapTimeout)
			defer cancel()

			msg := &wire.Message{
				RequestID:       wire.NewRequestID(),
				NodeInfoRequest: &wire.NodeInfo{Addr: n.Addr(), CID: n.self.String()},
			}
			if err := n.dispatcher.Send(dialCtx, addr, msg); err != nil {
				log.Printf("node: bootstrap announce to %s: %v", addr, err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (n *Node) refreshAllBuckets(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(16)

	for i := 0; i < kadid.Bits; i++ {
		i := i
		g.Go(func() error {
			target, err := kadid.RandomInBucket(n.self, i)
			if err != nil {
				log.Printf("node: generate refresh target for bucket %d: %v", i, err)
				return nil
			}

			found := n.lookup.Lookup(gctx, target, refreshLookupWidth)
			for _, c := range found {
				n.table.Insert(c)
			}
			return nil
		})
	}
	_ = g.Wait()
}
