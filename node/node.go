// Package node assembles the routing subsystem into a long-lived process:
// a Node owns the routing table, dispatcher, and transport endpoint, and
// runs the bootstrap/refresh loop that keeps every bucket populated.
package node

import (
	"context"
	"fmt"
	"log"
	"time"

	"kadnode/dispatch"
	"kadnode/kadid"
	"kadnode/lookup"
	"kadnode/table"
	"kadnode/transport"
	"kadnode/wire"
)

// Node is one participant in the overlay.
type Node struct {
	self kadid.CID
	cfg  Config

	table      *table.RoutingTable
	dispatcher *dispatch.Dispatcher
	lookup     *lookup.Engine
	endpoint   *transport.Endpoint
}

// CID returns the node's self-assigned identifier.
func (n *Node) CID() kadid.CID { return n.self }

// Addr returns the node's bound listen address.
func (n *Node) Addr() string { return n.endpoint.Addr() }

// Lookup runs an application-facing iterative closest-node search.
func (n *Node) Lookup(ctx context.Context, target kadid.CID, k int) []table.Contact {
	return n.lookup.Lookup(ctx, target, k)
}

// ShowTable returns a printable summary of non-empty buckets, the
// diagnostic counterpart of the reference node's show_table().
func (n *Node) ShowTable() []string {
	return n.table.Snapshot()
}

// Start runs the accept loop and the bootstrap/refresh loop until ctx is
// cancelled. It blocks until both exit.
func (n *Node) Start(ctx context.Context) error {
	log.Printf("node: listening on %s, cid=%s", n.Addr(), n.self.String())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- n.endpoint.Serve(ctx, n.dispatcher.Handle)
	}()

	n.runBootstrapRefreshLoop(ctx)

	return <-serveErr
}

// Builder assembles a Node the way host.Builder assembles a Host: collect
// configuration progressively, validate and wire everything at Build time.
type Builder struct {
	cfg Config
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{cfg: Config{RefreshInterval: DefaultRefreshInterval}}
}

func (b *Builder) Listen(addr string) *Builder {
	b.cfg.ListenAddr = addr
	return b
}

func (b *Builder) Bootstrap(addrs []string) *Builder {
	b.cfg.Bootstrap = addrs
	return b
}

func (b *Builder) RefreshInterval(d time.Duration) *Builder {
	b.cfg.RefreshInterval = d
	return b
}

// Build constructs the Node: generates a fresh CID, binds the listener,
// wires the routing table, dispatcher, and lookup engine together, and
// returns the assembled Node ready for Start.
func (b *Builder) Build() (*Node, error) {
	if b.cfg.ListenAddr == "" {
		return nil, fmt.Errorf("node: Listen address must be set (call Builder.Listen)")
	}

	self, err := kadid.New()
	if err != nil {
		return nil, fmt.Errorf("node: generate cid: %w", err)
	}

	ep, err := transport.Listen(b.cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("node: listen on %s: %w", b.cfg.ListenAddr, err)
	}

	rt := table.New(self)

	send := func(ctx context.Context, addr string, msg *wire.Message) error {
		return transport.Dial(ctx, addr, msg)
	}
	d := dispatch.New(self, ep.Addr(), rt, send)

	le := lookup.New(self, rt, d.QueryClosestNodes)

	n := &Node{
		self:       self,
		cfg:        b.cfg,
		table:      rt,
		dispatcher: d,
		lookup:     le,
		endpoint:   ep,
	}
	return n, nil
}
