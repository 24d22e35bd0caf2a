// SPDX-License-Identifier: GPL-3.0-or-later

package dnschat

import (
	"log/slog"
	"slices"
	"time"
)

// Defaults for [Config]. Timeout and retry values mirror the native
// resolver bindings so both sides of the bridge behave the same.
const (
	DefaultServer             = "ch.at:53"
	DefaultZone               = "ch.at"
	DefaultDoHURL             = "https://cloudflare-dns.com/dns-query"
	DefaultPerStrategyTimeout = 10 * time.Second
	DefaultTotalSendTimeout   = 30 * time.Second
	DefaultMaxRetries         = 3
	DefaultRetryBaseDelay     = 200 * time.Millisecond
	DefaultRateLimitWindow    = 10 * time.Second
	DefaultRateLimitMax       = 10
)

// DefaultTransportOrder is the documented fallback chain. DoQ comes last
// and only runs when a QUIC endpoint is configured.
var DefaultTransportOrder = []string{
	TransportNative,
	TransportUDP,
	TransportDoH,
	TransportTCP,
	TransportDoQ,
}

// DefaultServerWhitelist is the set of first-party endpoints and public
// resolvers a client trusts unless configured otherwise.
var DefaultServerWhitelist = []string{
	"llm.pieter.com",
	"ch.at",
	"cloudflare-dns.com",
	"8.8.8.8",
	"8.8.4.4",
	"1.1.1.1",
	"1.0.0.1",
}

// Config configures a [*Client]. The zero value is usable: every field
// falls back to the defaults above.
type Config struct {
	// Server is the host:port of the DNS endpoint answering chat queries.
	Server string

	// Zone is the query domain suffix appended to encoded messages.
	Zone string

	// TransportOrder lists transport names in fallback priority order.
	// nil means [DefaultTransportOrder]; an empty non-nil slice disables
	// all network transports, leaving only the mock fallback.
	TransportOrder []string

	// PerStrategyTimeout bounds one transport attempt.
	PerStrategyTimeout time.Duration

	// MaxRetriesPerStrategy is the attempt budget per transport for
	// timeout and network failures.
	MaxRetriesPerStrategy int

	// RetryBaseDelay is the first backoff delay; it doubles per retry.
	RetryBaseDelay time.Duration

	// TotalSendTimeout bounds the whole fallback chain of one send,
	// independently of any per-attempt timeout.
	TotalSendTimeout time.Duration

	// ServerWhitelist is the set of servers a client may target.
	ServerWhitelist []string

	// RateLimitWindow and RateLimitMaxPerWindow pace sends: at most
	// RateLimitMaxPerWindow admissions per RateLimitWindow.
	RateLimitWindow       time.Duration
	RateLimitMaxPerWindow int

	// MockFallback, when set, answers a send after every real transport
	// has failed. Mock replies are marked as such in the result.
	MockFallback MockResponder

	// NativeResolver substitutes the platform TXT resolver used by the
	// native transport. nil selects the OS stub resolver pinned to Server.
	NativeResolver TXTResolver

	// DoHURL is the DNS-over-HTTPS endpoint (RFC 8484 POST).
	DoHURL string

	// QUICEndpoint is the host:port for DNS over QUIC. Empty disables
	// the doq transport.
	QUICEndpoint string

	// Logger receives structured progress events. nil discards them.
	Logger *slog.Logger

	// Transports overrides the built-in transports entirely. Intended
	// for tests and for embedding platform resolver bindings.
	Transports []Transport
}

// withDefaults returns a copy of c with zero values filled in.
func (c Config) withDefaults() Config {
	if c.Server == "" {
		c.Server = DefaultServer
	}
	if c.Zone == "" {
		c.Zone = DefaultZone
	}
	if c.TransportOrder == nil {
		c.TransportOrder = slices.Clone(DefaultTransportOrder)
	}
	if c.PerStrategyTimeout <= 0 {
		c.PerStrategyTimeout = DefaultPerStrategyTimeout
	}
	if c.MaxRetriesPerStrategy <= 0 {
		c.MaxRetriesPerStrategy = DefaultMaxRetries
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if c.TotalSendTimeout <= 0 {
		c.TotalSendTimeout = DefaultTotalSendTimeout
	}
	if c.ServerWhitelist == nil {
		c.ServerWhitelist = slices.Clone(DefaultServerWhitelist)
	}
	if c.RateLimitWindow <= 0 {
		c.RateLimitWindow = DefaultRateLimitWindow
	}
	if c.RateLimitMaxPerWindow <= 0 {
		c.RateLimitMaxPerWindow = DefaultRateLimitMax
	}
	if c.DoHURL == "" {
		c.DoHURL = DefaultDoHURL
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return c
}
