// SPDX-License-Identifier: GPL-3.0-or-later

package dnschat

import (
	"bufio"
	"context"
	"io"
	"math"
	"time"

	"github.com/bassosimone/runtimex"
	"github.com/miekg/dns"
)

// Stream is a byte stream suitable for the 2-byte length-framed DNS
// exchange shared by TCP and QUIC.
type Stream interface {
	// SetDeadline sets the I/O deadline.
	SetDeadline(t time.Time) error

	// We can obviously do I/O with the stream.
	io.ReadWriter

	// The semantics of closing a stream depend on the protocol.
	//
	// For TCP this is a no-op mid-exchange: the connection is the stream.
	//
	// For QUIC this closes the stream, sending the FIN that RFC 9250
	// requires after the query.
	io.Closer
}

// StreamOpener abstracts the connection a stream is opened over: a
// [net.Conn] for TCP or a QUIC connection for DoQ.
type StreamOpener interface {
	// OpenStream opens a new stream over the connection.
	OpenStream() (Stream, error)

	// MutateQuery applies protocol-specific settings to the query
	// before it is serialized.
	MutateQuery(msg *dns.Msg)

	// Close closes the underlying connection.
	Close() error
}

// StreamOpenerDialer dials a [StreamOpener] for a given server address.
type StreamOpenerDialer interface {
	DialContext(ctx context.Context, address string) (StreamOpener, error)
}

// streamTransport runs the TXT exchange over any [StreamOpenerDialer].
// It creates a new connection per call and targets the server configured
// at construction time.
type streamTransport struct {
	name   string
	dialer StreamOpenerDialer
	server string
}

// Name implements [Transport].
func (t *streamTransport) Name() string {
	return t.name
}

// Available implements [Transport].
func (t *streamTransport) Available() bool {
	return t.server != "" && t.dialer != nil
}

// QueryTXT implements [Transport].
func (t *streamTransport) QueryTXT(ctx context.Context, name string) ([]string, error) {
	// 1. Create the connection.
	conn, err := t.dialer.DialContext(ctx, t.server)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	// 2. Make sure we react to the context being canceled early, and
	// close the connection on every exit path.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	// 3. Open the stream for the exchange.
	stream, err := conn.OpenStream()
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer stream.Close()

	// 4. Use the context deadline to limit the query lifetime.
	if deadline, ok := ctx.Deadline(); ok {
		_ = stream.SetDeadline(deadline)
	}

	// 5. Mutate and serialize the query.
	query := newTXTQuery(name)
	conn.MutateQuery(query)
	rawQuery, err := query.Pack()
	if err != nil {
		return nil, classifyTransportError(err)
	}

	// 6. Wrap the query into a frame and send it.
	if _, err := stream.Write(newStreamMsgFrame(rawQuery)); err != nil {
		return nil, classifyTransportError(err)
	}

	// 7. Close the stream to signal the server no further data follows.
	// Mandatory for DoQ (RFC 9250 Sect. 4.2), a no-op for TCP.
	stream.Close()

	// 8. Wrap the stream to avoid issuing too many reads, then read the
	// response header and message.
	br := bufio.NewReader(stream)
	header := make([]byte, 2)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, classifyTransportError(err)
	}
	length := int(header[0])<<8 | int(header[1])
	rawResp := make([]byte, length)
	if _, err := io.ReadFull(br, rawResp); err != nil {
		return nil, classifyTransportError(err)
	}

	// 9. Parse the response and extract the TXT payloads.
	resp := new(dns.Msg)
	if err := resp.Unpack(rawResp); err != nil {
		return nil, classifyTransportError(err)
	}
	return txtFromMsg(resp)
}

// newStreamMsgFrame prepends the 2-byte big-endian length header.
func newStreamMsgFrame(rawMsg []byte) []byte {
	runtimex.Assert(len(rawMsg) <= math.MaxUint16)
	frame := []byte{byte(len(rawMsg) >> 8), byte(len(rawMsg))}
	return append(frame, rawMsg...)
}
