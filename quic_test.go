// SPDX-License-Identifier: GPL-3.0-or-later

package dnschat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTLSConfigDNSOverQUIC(t *testing.T) {
	cfg := NewTLSConfigDNSOverQUIC("dns.example.com")

	require.Equal(t, "dns.example.com", cfg.ServerName)
	require.Contains(t, cfg.NextProtos, "doq")
}

func TestQuicConnAdapterMutateQuery(t *testing.T) {
	adapter := &quicConnAdapter{qconn: nil}
	query := newTXTQuery("test-message.ch.at")
	query.Id = 12345

	adapter.MutateQuery(query)

	require.Zero(t, query.Id, "DoQ must zero the message ID")
}

func TestNewDoQTransport(t *testing.T) {
	t.Run("unavailable without an endpoint", func(t *testing.T) {
		tr := NewDoQTransport("", "")
		require.False(t, tr.Available())
	})

	t.Run("available with an endpoint", func(t *testing.T) {
		tr := NewDoQTransport("94.140.14.14:853", "dns.adguard.com")
		require.True(t, tr.Available())
		require.Equal(t, TransportDoQ, tr.Name())
	})
}
