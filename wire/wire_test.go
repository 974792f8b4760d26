package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRoundTrip(t *testing.T) {
	m := &Message{
		RequestID:           NewRequestID(),
		ClosestNodesRequest: &ClosestNodesRequest{SenderAddr: "127.0.0.1:9000", Target: "ab"},
	}
	b, err := m.Marshal()
	require.NoError(t, err)

	got, err := Unmarshal(b)
	require.NoError(t, err)
	assert.Equal(t, m.RequestID, got.RequestID)
	assert.Equal(t, m.ClosestNodesRequest.Target, got.ClosestNodesRequest.Target)
	assert.Equal(t, "closestNodesRequest", got.Kind())
}

func TestMessageRejectsZeroKinds(t *testing.T) {
	m := &Message{RequestID: "x"}
	_, err := m.Marshal()
	assert.Error(t, err)
}

func TestMessageRejectsMultipleKinds(t *testing.T) {
	raw := []byte(`{"requestID":"x","nodeInfoRequest":{"addr":"a","cid":"b"},"nodeInfoResponse":{"addr":"a","cid":"b"}}`)
	_, err := Unmarshal(raw)
	assert.Error(t, err)
}

func TestFrameRoundTrip(t *testing.T) {
	payload := []byte(`{"hello":"world"}`)
	encoded, err := EncodeFrame(payload)
	require.NoError(t, err)

	decoded, err := ReadFrame(bytes.NewReader(encoded))
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func TestFrameRejectsOversizedPayload(t *testing.T) {
	_, err := EncodeFrame(make([]byte, MaxFrameSize+1))
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestReadFrameRejectsTruncatedHeader(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{0x00, 0x01}))
	assert.Error(t, err)
}

func TestReadFrameRejectsTruncatedPayload(t *testing.T) {
	header := []byte{0x00, 0x00, 0x00, 0x10} // claims 16 bytes
	_, err := ReadFrame(bytes.NewReader(header))
	assert.Error(t, err)
}
