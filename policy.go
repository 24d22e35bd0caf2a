// SPDX-License-Identifier: GPL-3.0-or-later

package dnschat

import (
	"fmt"
	"net"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// RateGate enforces client-side pacing: at most maxPerWindow sends per
// window. It is the single admission point for a client, safe for
// concurrent use, and lives for the lifetime of the process.
type RateGate struct {
	limiter *rate.Limiter
	window  time.Duration
}

// NewRateGate creates a gate admitting maxPerWindow sends per window.
// A zero window or count disables the gate.
func NewRateGate(window time.Duration, maxPerWindow int) *RateGate {
	if window <= 0 || maxPerWindow <= 0 {
		return &RateGate{}
	}
	interval := window / time.Duration(maxPerWindow)
	return &RateGate{
		limiter: rate.NewLimiter(rate.Every(interval), maxPerWindow),
		window:  window,
	}
}

// Admit returns nil when a send may proceed now, or a [*RateLimitedError]
// carrying a retry-after hint. A denied call does not consume budget.
func (g *RateGate) Admit() error {
	if g.limiter == nil {
		return nil
	}
	r := g.limiter.Reserve()
	if !r.OK() {
		return &RateLimitedError{RetryAfter: g.window}
	}
	if delay := r.Delay(); delay > 0 {
		r.Cancel()
		return &RateLimitedError{RetryAfter: delay}
	}
	return nil
}

// ServerWhitelist is the immutable set of DNS servers a client may target.
// An empty whitelist rejects every server; construction normalizes entries
// the same way [ServerWhitelist.Check] normalizes candidates.
type ServerWhitelist struct {
	hosts map[string]struct{}
}

// NewServerWhitelist builds a whitelist from server addresses or
// hostnames, with or without port and trailing dot.
func NewServerWhitelist(entries []string) *ServerWhitelist {
	hosts := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if h := normalizeServerHost(e); h != "" {
			hosts[h] = struct{}{}
		}
	}
	return &ServerWhitelist{hosts: hosts}
}

// Check returns nil when server is whitelisted and [ErrUntrustedServer]
// otherwise. It runs before any transport is invoked.
func (w *ServerWhitelist) Check(server string) error {
	host := normalizeServerHost(server)
	if host == "" {
		return fmt.Errorf("%w: empty server", ErrUntrustedServer)
	}
	if _, ok := w.hosts[host]; !ok {
		return fmt.Errorf("%w: %q", ErrUntrustedServer, host)
	}
	return nil
}

// normalizeServerHost lowercases, strips an optional port, and trims the
// trailing dot, so "CH.AT.:53" and "ch.at" compare equal.
func normalizeServerHost(server string) string {
	s := strings.TrimSpace(strings.ToLower(server))
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	return strings.TrimSuffix(s, ".")
}
