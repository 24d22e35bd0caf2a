// SPDX-License-Identifier: GPL-3.0-or-later

package dnschat

import (
	"context"
	"fmt"
	"net"

	"github.com/miekg/dns"
)

// NetDialer is typically [*net.Dialer].
type NetDialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Maximum answer size we advertise via EDNS0 and read in one datagram.
// Value taken from https://dnsflagday.net/2020/.
const maxUDPAnswerSize = 1232

// UDPTransport sends a raw datagram query, for environments where the
// stub resolver is unavailable or restricted. A truncated answer (TC=1)
// fails with [ErrResponseTruncated] so the chain can fall through to TCP.
type UDPTransport struct {
	dialer NetDialer
	server string
}

var _ Transport = &UDPTransport{}

// NewUDPTransport creates a UDP transport targeting server (host:port).
func NewUDPTransport(dialer NetDialer, server string) *UDPTransport {
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	return &UDPTransport{dialer: dialer, server: server}
}

// Name implements [Transport].
func (t *UDPTransport) Name() string {
	return TransportUDP
}

// Available implements [Transport].
func (t *UDPTransport) Available() bool {
	return t.server != ""
}

// QueryTXT implements [Transport].
func (t *UDPTransport) QueryTXT(ctx context.Context, name string) ([]string, error) {
	// 1. Create the connection; one datagram socket per attempt.
	conn, err := t.dialer.DialContext(ctx, "udp", t.server)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer conn.Close()

	// 2. React to cancellation even while blocked in I/O.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	// 3. Build and send the query with EDNS0 so the server may answer
	// beyond the 512-octet classic limit.
	query := newTXTQuery(name)
	query.SetEdns0(maxUDPAnswerSize, false)
	rawQuery, err := query.Pack()
	if err != nil {
		return nil, classifyTransportError(err)
	}
	if _, err := conn.Write(rawQuery); err != nil {
		return nil, classifyTransportError(err)
	}

	// 4. Read datagrams until one matches our transaction, guarding
	// against stray answers on the socket (RFC 5452).
	buffer := make([]byte, maxUDPAnswerSize)
	for {
		n, err := conn.Read(buffer)
		if err != nil {
			return nil, classifyTransportError(err)
		}
		resp := new(dns.Msg)
		if err := resp.Unpack(buffer[:n]); err != nil {
			continue
		}
		if resp.Id != query.Id || !resp.Response {
			continue
		}
		if resp.Truncated {
			return nil, fmt.Errorf("%w: TC=1 from %s", ErrResponseTruncated, t.server)
		}
		return txtFromMsg(resp)
	}
}
