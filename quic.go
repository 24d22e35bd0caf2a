// SPDX-License-Identifier: GPL-3.0-or-later
//
// See https://datatracker.ietf.org/doc/rfc9250/

package dnschat

import (
	"context"
	"crypto/tls"
	"sync"

	"github.com/miekg/dns"
	"github.com/quic-go/quic-go"
)

// NewTLSConfigDNSOverQUIC returns the [*tls.Config] to use for DNS over QUIC.
func NewTLSConfigDNSOverQUIC(serverName string) *tls.Config {
	return &tls.Config{
		NextProtos: []string{"doq"},
		ServerName: serverName,
	}
}

// NewDoQTransport creates the optional DNS-over-QUIC transport targeting
// server (host:port). The serverName authenticates the TLS handshake.
func NewDoQTransport(server, serverName string) Transport {
	return &streamTransport{
		name: TransportDoQ,
		dialer: &quicStreamDialer{
			tlsConfig:  NewTLSConfigDNSOverQUIC(serverName),
			quicConfig: &quic.Config{},
		},
		server: server,
	}
}

// quicStreamDialer implements [StreamOpenerDialer] for QUIC.
type quicStreamDialer struct {
	tlsConfig  *tls.Config
	quicConfig *quic.Config
}

var _ StreamOpenerDialer = &quicStreamDialer{}

// DialContext implements [StreamOpenerDialer].
func (d *quicStreamDialer) DialContext(ctx context.Context, address string) (StreamOpener, error) {
	conn, err := quic.DialAddr(ctx, address, d.tlsConfig, d.quicConfig)
	if err != nil {
		return nil, err
	}
	return &quicConnAdapter{qconn: conn}, nil
}

// quicConnAdapter adapts [*quic.Conn] to [StreamOpener].
type quicConnAdapter struct {
	qconn *quic.Conn
	once  sync.Once
}

// Close implements [StreamOpener].
func (q *quicConnAdapter) Close() (err error) {
	q.once.Do(func() {
		// Closing w/o specific error -- RFC 9250 Sect. 4.3
		const quicNoError = 0x00
		err = q.qconn.CloseWithError(quicNoError, "")
	})
	return
}

// MutateQuery implements [StreamOpener].
func (q *quicConnAdapter) MutateQuery(msg *dns.Msg) {
	// RFC 9250 Sect. 4.2.1: the message ID MUST be zero.
	msg.Id = 0
}

// OpenStream implements [StreamOpener].
func (q *quicConnAdapter) OpenStream() (Stream, error) {
	stream, err := q.qconn.OpenStream()
	if err != nil {
		return nil, err
	}
	return stream, nil
}
