package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"kadnode/kadid"
	"kadnode/table"
	"kadnode/wire"
)

type fakeWire struct {
	mu  sync.Mutex
	sent []struct {
		addr string
		msg  *wire.Message
	}
	fail bool
}

func (w *fakeWire) sender() Sender {
	return func(ctx context.Context, addr string, msg *wire.Message) error {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.fail {
			return assert.AnError
		}
		w.sent = append(w.sent, struct {
			addr string
			msg  *wire.Message
		}{addr, msg})
		return nil
	}
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *fakeWire) {
	t.Helper()
	self, err := kadid.New()
	require.NoError(t, err)
	rt := table.New(self)
	fw := &fakeWire{}
	return New(self, "127.0.0.1:9000", rt, fw.sender()), fw
}

func TestHandleNodeInfoRequestInsertsAndReplies(t *testing.T) {
	d, fw := newTestDispatcher(t)

	senderCID, err := kadid.New()
	require.NoError(t, err)

	d.Handle("ignored", &wire.Message{
		RequestID:       "req-1",
		NodeInfoRequest: &wire.NodeInfo{Addr: "10.0.0.1:9000", CID: senderCID.String()},
	})

	assert.Equal(t, 1, d.Table.Len())

	fw.mu.Lock()
	defer fw.mu.Unlock()
	require.Len(t, fw.sent, 1)
	assert.Equal(t, "10.0.0.1:9000", fw.sent[0].addr)
	assert.Equal(t, "nodeInfoResponse", fw.sent[0].msg.Kind())
}

func TestHandleNodeInfoResponseInsertsOnly(t *testing.T) {
	d, fw := newTestDispatcher(t)

	responderCID, err := kadid.New()
	require.NoError(t, err)

	d.Handle("ignored", &wire.Message{
		RequestID:        "req-2",
		NodeInfoResponse: &wire.NodeInfo{Addr: "10.0.0.2:9000", CID: responderCID.String()},
	})

	assert.Equal(t, 1, d.Table.Len())
	fw.mu.Lock()
	defer fw.mu.Unlock()
	assert.Len(t, fw.sent, 0)
}

func TestHandleClosestNodesRequestRepliesWithTableContents(t *testing.T) {
	d, fw := newTestDispatcher(t)

	other, err := kadid.New()
	require.NoError(t, err)
	d.Table.Insert(table.Contact{CID: other, Addr: "10.0.0.3:9000"})

	target, err := kadid.New()
	require.NoError(t, err)

	d.Handle("ignored", &wire.Message{
		RequestID: "req-3",
		ClosestNodesRequest: &wire.ClosestNodesRequest{
			SenderAddr: "10.0.0.4:9000",
			Target:     target.String(),
		},
	})

	fw.mu.Lock()
	defer fw.mu.Unlock()
	require.Len(t, fw.sent, 1)
	assert.Equal(t, "10.0.0.4:9000", fw.sent[0].addr)
	resp := fw.sent[0].msg.ClosestNodesResponse
	require.NotNil(t, resp)
	assert.Contains(t, resp.Contacts, other.String())
}

func TestQueryClosestNodesDeliversOnMatchingResponse(t *testing.T) {
	d, fw := newTestDispatcher(t)

	target, err := kadid.New()
	require.NoError(t, err)
	other, err := kadid.New()
	require.NoError(t, err)

	resultCh := make(chan []table.Contact, 1)
	go func() {
		contacts, _ := d.QueryClosestNodes(context.Background(), "10.0.0.5:9000", target)
		resultCh <- contacts
	}()

	// Wait for the request to actually be sent, then simulate the reply.
	require.Eventually(t, func() bool {
		fw.mu.Lock()
		defer fw.mu.Unlock()
		return len(fw.sent) == 1
	}, time.Second, 5*time.Millisecond)

	fw.mu.Lock()
	reqID := fw.sent[0].msg.RequestID
	fw.mu.Unlock()

	d.Handle("ignored", &wire.Message{
		RequestID: reqID,
		ClosestNodesResponse: &wire.ClosestNodesResponse{
			Contacts: map[string]string{other.String(): "10.0.0.6:9000"},
		},
	})

	select {
	case got := <-resultCh:
		require.Len(t, got, 1)
		assert.Equal(t, other, got[0].CID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for QueryClosestNodes to return")
	}
}

func TestQueryClosestNodesTimesOutOnSilence(t *testing.T) {
	d, _ := newTestDispatcher(t)
	target, err := kadid.New()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = d.QueryClosestNodes(ctx, "10.0.0.7:9000", target)
	assert.Error(t, err) // ctx deadline, since RequestTimeout > test's own timeout
}

func TestDiscardsResponseWithNoMatchingRequest(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.Handle("ignored", &wire.Message{
		RequestID:             "no-such-request",
		ClosestNodesResponse: &wire.ClosestNodesResponse{Contacts: map[string]string{}},
	})
	assert.Equal(t, 0, d.Correlator.Len())
}
