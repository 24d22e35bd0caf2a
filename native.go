// SPDX-License-Identifier: GPL-3.0-or-later

package dnschat

import (
	"context"
	"net"
)

// TXTResolver is the capability a platform resolver binding must expose.
// [*net.Resolver] satisfies it; so do native module bindings on platforms
// where Go cannot reach the system resolver directly.
type TXTResolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// NativeTransport resolves TXT queries through the OS stub resolver, or
// through an injected [TXTResolver] binding. It is the fastest path and
// benefits from OS-level DNS caching and policy.
type NativeTransport struct {
	resolver TXTResolver
}

var _ Transport = &NativeTransport{}

// NewNativeTransport creates a native transport pinned to the given
// server. When resolver is nil it builds a Go resolver whose connections
// dial the server directly, so the query targets the whitelisted endpoint
// rather than whatever resolv.conf names.
func NewNativeTransport(server string, resolver TXTResolver) *NativeTransport {
	if resolver == nil {
		resolver = &net.Resolver{
			PreferGo: true,
			Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
				d := &net.Dialer{}
				return d.DialContext(ctx, network, server)
			},
		}
	}
	return &NativeTransport{resolver: resolver}
}

// Name implements [Transport].
func (t *NativeTransport) Name() string {
	return TransportNative
}

// Available implements [Transport].
func (t *NativeTransport) Available() bool {
	return t.resolver != nil
}

// QueryTXT implements [Transport].
func (t *NativeTransport) QueryTXT(ctx context.Context, name string) ([]string, error) {
	if t.resolver == nil {
		return nil, ErrTransportUnavailable
	}
	records, err := t.resolver.LookupTXT(ctx, name)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	if len(records) == 0 {
		return nil, classifyTransportError(&net.DNSError{Err: "no TXT records", Name: name})
	}
	return records, nil
}
