package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// FrameHeaderSize is the length of the frame header: a 4-byte big-endian
// payload length. Widened from the reference one-shot envelope framing's
// 2-byte length field so a single frame can carry well over the required
// 64 KiB minimum.
const FrameHeaderSize = 4

// MaxFrameSize bounds a single frame's payload, guarding against a
// malicious or corrupt peer claiming an unbounded length.
const MaxFrameSize = 256 * 1024

// ErrFrameTooLarge is returned when a frame's declared length exceeds
// MaxFrameSize.
var ErrFrameTooLarge = errors.New("wire: frame exceeds maximum size")

// EncodeFrame length-prefixes payload for writing to a connection.
func EncodeFrame(payload []byte) ([]byte, error) {
	if len(payload) > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	buf := make([]byte, FrameHeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf[:FrameHeaderSize], uint32(len(payload)))
	copy(buf[FrameHeaderSize:], payload)
	return buf, nil
}

// ReadFrame reads one length-prefixed frame from r. It is the receiving
// half of EncodeFrame, used by the transport endpoint's per-connection
// handler: read exactly one frame, then the connection is done.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("wire: read frame header: %w", err)
	}

	length := binary.BigEndian.Uint32(header[:])
	if length > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("wire: read frame payload: %w", err)
	}
	return payload, nil
}
