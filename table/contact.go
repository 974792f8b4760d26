package table

import "kadnode/kadid"

// Contact is a (CID, address) pair: everything the routing table or a
// lookup needs to dial a peer.
type Contact struct {
	CID  kadid.CID
	Addr string // "host:port"
}
