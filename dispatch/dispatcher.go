// Package dispatch implements the protocol dispatcher: it interprets
// inbound wire messages, mutates the routing table, emits replies, and
// completes in-flight lookups through the request correlator.
package dispatch

import (
	"context"
	"log"
	"time"

	"kadnode/kadid"
	"kadnode/table"
	"kadnode/wire"
)

// Sender delivers msg to addr. Implementations typically wrap
// transport.Dial; it is an interface here purely so dispatch can be tested
// without a real network.
type Sender func(ctx context.Context, addr string, msg *wire.Message) error

// RequestTimeout bounds how long a single closestNodesRequest waits for its
// matching response before the lookup engine treats the peer as silent.
const RequestTimeout = 2 * time.Second

// Dispatcher owns the routing table and request correlator for one node
// and implements the four message-kind handling rules.
type Dispatcher struct {
	Self kadid.CID
	Addr string

	Table      *table.RoutingTable
	Correlator *Correlator
	Send       Sender
}

// New builds a dispatcher over an existing routing table.
func New(self kadid.CID, addr string, rt *table.RoutingTable, send Sender) *Dispatcher {
	return &Dispatcher{
		Self:       self,
		Addr:       addr,
		Table:      rt,
		Correlator: NewCorrelator(),
		Send:       send,
	}
}

// Handle is the transport.Handler entry point: it dispatches an already
// decoded message on its kind and, for request kinds, replies.
func (d *Dispatcher) Handle(remoteAddr string, msg *wire.Message) {
	switch msg.Kind() {
	case "nodeInfoRequest":
		d.handleNodeInfoRequest(msg)
	case "nodeInfoResponse":
		d.handleNodeInfoResponse(msg)
	case "closestNodesRequest":
		d.handleClosestNodesRequest(msg)
	case "closestNodesResponse":
		d.handleClosestNodesResponse(msg)
	default:
		log.Printf("dispatch: unknown message kind from %s", remoteAddr)
	}
}

func (d *Dispatcher) handleNodeInfoRequest(msg *wire.Message) {
	req := msg.NodeInfoRequest
	cid, err := kadid.ParseHex(req.CID)
	if err != nil {
		log.Printf("dispatch: nodeInfoRequest with bad cid: %v", err)
		return
	}
	d.Table.Insert(table.Contact{CID: cid, Addr: req.Addr})

	reply := &wire.Message{
		RequestID:        msg.RequestID,
		NodeInfoResponse: &wire.NodeInfo{Addr: d.Addr, CID: d.Self.String()},
	}
	ctx, cancel := context.WithTimeout(context.Background(), RequestTimeout)
	defer cancel()
	if err := d.Send(ctx, req.Addr, reply); err != nil {
		log.Printf("dispatch: reply nodeInfoResponse to %s: %v", req.Addr, err)
	}
}

func (d *Dispatcher) handleNodeInfoResponse(msg *wire.Message) {
	resp := msg.NodeInfoResponse
	cid, err := kadid.ParseHex(resp.CID)
	if err != nil {
		log.Printf("dispatch: nodeInfoResponse with bad cid: %v", err)
		return
	}
	d.Table.Insert(table.Contact{CID: cid, Addr: resp.Addr})
}

func (d *Dispatcher) handleClosestNodesRequest(msg *wire.Message) {
	req := msg.ClosestNodesRequest
	target, err := kadid.ParseHex(req.Target)
	if err != nil {
		log.Printf("dispatch: closestNodesRequest with bad target: %v", err)
		return
	}

	closest := d.Table.Closest(target, table.K)
	contacts := make(map[string]string, len(closest))
	for _, c := range closest {
		contacts[c.CID.String()] = c.Addr
	}

	reply := &wire.Message{
		RequestID:            msg.RequestID,
		ClosestNodesResponse: &wire.ClosestNodesResponse{Contacts: contacts},
	}
	ctx, cancel := context.WithTimeout(context.Background(), RequestTimeout)
	defer cancel()
	if err := d.Send(ctx, req.SenderAddr, reply); err != nil {
		log.Printf("dispatch: reply closestNodesResponse to %s: %v", req.SenderAddr, err)
	}
}

func (d *Dispatcher) handleClosestNodesResponse(msg *wire.Message) {
	resp := msg.ClosestNodesResponse
	if resp == nil {
		return
	}
	if !d.Correlator.Complete(msg.RequestID, *resp) {
		log.Printf("dispatch: discarding closestNodesResponse with no matching request %s", msg.RequestID)
	}
}

// QueryClosestNodes sends a closestNodesRequest to addr and waits for the
// matching response (by requestID) or RequestTimeout, whichever comes
// first. A timed-out or failed query returns a nil slice and no error — the
// lookup engine treats a silent peer as having answered with nothing. Only
// cancellation or expiry of ctx is reported as an error.
func (d *Dispatcher) QueryClosestNodes(ctx context.Context, addr string, target kadid.CID) ([]table.Contact, error) {
	requestID := wire.NewRequestID()
	ch := d.Correlator.Register(requestID)

	req := &wire.Message{
		RequestID: requestID,
		ClosestNodesRequest: &wire.ClosestNodesRequest{
			SenderAddr: d.Addr,
			Target:     target.String(),
		},
	}

	if err := d.Send(ctx, addr, req); err != nil {
		d.Correlator.Cancel(requestID)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Printf("dispatch: send closestNodesRequest to %s: %v", addr, err)
		return nil, nil
	}

	timer := time.NewTimer(RequestTimeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		return contactsFromWire(resp.Contacts), nil
	case <-timer.C:
		d.Correlator.Cancel(requestID)
		return nil, nil
	case <-ctx.Done():
		d.Correlator.Cancel(requestID)
		return nil, ctx.Err()
	}
}

func contactsFromWire(m map[string]string) []table.Contact {
	out := make([]table.Contact, 0, len(m))
	for cidHex, addr := range m {
		cid, err := kadid.ParseHex(cidHex)
		if err != nil {
			continue
		}
		out = append(out, table.Contact{CID: cid, Addr: addr})
	}
	return out
}
