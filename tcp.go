// SPDX-License-Identifier: GPL-3.0-or-later

package dnschat

import (
	"context"
	"net"
	"time"

	"github.com/miekg/dns"
)

// NewTCPTransport creates the TCP fallback transport, used when a UDP
// answer is truncated or port 53 datagrams are filtered.
func NewTCPTransport(dialer NetDialer, server string) Transport {
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	return &streamTransport{
		name:   TransportTCP,
		dialer: &StreamOpenerDialerTCP{Dialer: dialer},
		server: server,
	}
}

// StreamOpenerDialerTCP implements [StreamOpenerDialer] for TCP.
type StreamOpenerDialerTCP struct {
	// Dialer is the underlying [NetDialer].
	Dialer NetDialer
}

var _ StreamOpenerDialer = &StreamOpenerDialerTCP{}

// DialContext implements [StreamOpenerDialer].
func (d *StreamOpenerDialerTCP) DialContext(ctx context.Context, address string) (StreamOpener, error) {
	conn, err := d.Dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	return &tcpStreamConn{conn: conn}, nil
}

// NewTCPStreamOpener creates a [StreamOpener] from an existing [net.Conn].
//
// This allows callers who already hold a TCP connection to run the
// exchange without dialing.
func NewTCPStreamOpener(conn net.Conn) StreamOpener {
	return &tcpStreamConn{conn: conn}
}

// tcpStreamConn implements [StreamOpener] for TCP.
type tcpStreamConn struct {
	conn net.Conn
}

// Close implements [StreamOpener].
func (s *tcpStreamConn) Close() error {
	return s.conn.Close()
}

// MutateQuery implements [StreamOpener].
func (s *tcpStreamConn) MutateQuery(msg *dns.Msg) {
	// Nothing protocol-specific for TCP: the frame length bounds the
	// answer, no EDNS0 size advertisement needed.
}

// OpenStream implements [StreamOpener].
func (s *tcpStreamConn) OpenStream() (Stream, error) {
	return &tcpStream{s.conn}, nil
}

// tcpStream implements [Stream] for TCP.
type tcpStream struct {
	conn net.Conn
}

// Close implements [Stream].
func (s *tcpStream) Close() error {
	// We do not close the stream midway for TCP.
	return nil
}

// Read implements [Stream].
func (s *tcpStream) Read(buff []byte) (int, error) {
	return s.conn.Read(buff)
}

// SetDeadline implements [Stream].
func (s *tcpStream) SetDeadline(t time.Time) error {
	return s.conn.SetDeadline(t)
}

// Write implements [Stream].
func (s *tcpStream) Write(data []byte) (int, error) {
	return s.conn.Write(data)
}
