// Package wire implements the four-message Kademlia wire protocol: its JSON
// encoding (one top-level key per kind, plus a correlation id) and the
// length-prefixed frame that carries a message over a connection.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// NodeInfo is the payload carried by nodeInfoRequest/nodeInfoResponse: the
// sender's reachable address and CID.
type NodeInfo struct {
	Addr string `json:"addr"`
	CID  string `json:"cid"`
}

// ClosestNodesRequest asks the responder for contacts near Target.
type ClosestNodesRequest struct {
	SenderAddr string `json:"senderAddr"`
	Target     string `json:"target"`
}

// ClosestNodesResponse carries up to K contacts, keyed by their CID.
type ClosestNodesResponse struct {
	Contacts map[string]string `json:"contacts"`
}

// Message is the envelope every wire frame carries: exactly one of the
// pointer fields below is non-nil, and RequestID correlates a
// closestNodesResponse back to the request that triggered it.
type Message struct {
	RequestID string `json:"requestID"`

	NodeInfoRequest      *NodeInfo             `json:"nodeInfoRequest,omitempty"`
	NodeInfoResponse     *NodeInfo             `json:"nodeInfoResponse,omitempty"`
	ClosestNodesRequest  *ClosestNodesRequest  `json:"closestNodesRequest,omitempty"`
	ClosestNodesResponse *ClosestNodesResponse `json:"closestNodesResponse,omitempty"`
}

// NewRequestID mints a fresh correlation id for an outbound request.
func NewRequestID() string {
	return uuid.NewString()
}

// Kind names which of the four message kinds m carries, for logging.
func (m *Message) Kind() string {
	switch {
	case m.NodeInfoRequest != nil:
		return "nodeInfoRequest"
	case m.NodeInfoResponse != nil:
		return "nodeInfoResponse"
	case m.ClosestNodesRequest != nil:
		return "closestNodesRequest"
	case m.ClosestNodesResponse != nil:
		return "closestNodesResponse"
	default:
		return "unknown"
	}
}

// Validate rejects a decoded message that doesn't carry exactly one kind.
func (m *Message) Validate() error {
	set := 0
	if m.NodeInfoRequest != nil {
		set++
	}
	if m.NodeInfoResponse != nil {
		set++
	}
	if m.ClosestNodesRequest != nil {
		set++
	}
	if m.ClosestNodesResponse != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("wire: message must carry exactly one kind, got %d", set)
	}
	return nil
}

// Marshal encodes m as JSON.
func (m *Message) Marshal() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// Unmarshal decodes and validates a wire message.
func Unmarshal(b []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("wire: decode message: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
