// Package transport implements the TCP endpoint: one goroutine accepts
// connections and hands each off to its own handler goroutine, which reads
// exactly one frame and closes. Outbound sends dial fresh, write one frame,
// and close — there is no connection pooling, matching the protocol's
// one-message-per-connection contract.
package transport

import (
	"context"
	"log"
	"net"
	"time"

	"kadnode/wire"
)

// ConnectTimeout bounds how long Dial waits to establish a TCP connection.
const ConnectTimeout = 2 * time.Second

// Handler is invoked with a decoded message for every accepted connection
// that delivers a well-formed frame. It runs on the connection's own
// goroutine.
type Handler func(remoteAddr string, msg *wire.Message)

// Endpoint is a TCP listener bound to one local address.
type Endpoint struct {
	listener net.Listener
}

// Listen binds addr without starting to accept connections yet.
func Listen(addr string) (*Endpoint, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Endpoint{listener: l}, nil
}

// Addr returns the endpoint's bound local address.
func (e *Endpoint) Addr() string {
	return e.listener.Addr().String()
}

// Serve accepts connections until ctx is cancelled or the listener is
// closed, dispatching each to handle on its own goroutine. It blocks until
// the accept loop exits.
func (e *Endpoint) Serve(ctx context.Context, handle Handler) error {
	go func() {
		<-ctx.Done()
		e.listener.Close()
	}()

	for {
		conn, err := e.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go e.handleConn(conn, handle)
	}
}

// handleConn reads exactly one frame from conn, decodes it, and invokes
// handle. Any error (truncated frame, malformed JSON, message with other
// than one kind) is logged and the connection is dropped — a single bad
// frame never brings down the accept loop.
func (e *Endpoint) handleConn(conn net.Conn, handle Handler) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(ConnectTimeout))

	payload, err := wire.ReadFrame(conn)
	if err != nil {
		log.Printf("transport: read frame from %s: %v", conn.RemoteAddr(), err)
		return
	}

	msg, err := wire.Unmarshal(payload)
	if err != nil {
		log.Printf("transport: decode message from %s: %v", conn.RemoteAddr(), err)
		return
	}

	handle(conn.RemoteAddr().String(), msg)
}

// Close stops the accept loop by closing the underlying listener.
func (e *Endpoint) Close() error {
	return e.listener.Close()
}

// Dial opens a fresh TCP connection to addr, writes msg as a single frame,
// and closes. Failures are returned to the caller to log and treat the
// contact as potentially stale; they never panic.
func Dial(ctx context.Context, addr string, msg *wire.Message) error {
	dialer := net.Dialer{Timeout: ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	payload, err := msg.Marshal()
	if err != nil {
		return err
	}
	frame, err := wire.EncodeFrame(payload)
	if err != nil {
		return err
	}

	conn.SetWriteDeadline(time.Now().Add(ConnectTimeout))
	_, err = conn.Write(frame)
	return err
}
