// SPDX-License-Identifier: GPL-3.0-or-later

package dnschat

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Errors returned by this package. Transport-level failures are always
// wrapped into one of these sentinels before they reach a caller.
var (
	// ErrInvalidInput means the message failed sanitization or cannot be
	// represented within DNS name limits. Nothing was sent to the network.
	ErrInvalidInput = errors.New("dnschat: invalid input")

	// ErrUntrustedServer means the target server is not whitelisted.
	// Nothing was sent to the network.
	ErrUntrustedServer = errors.New("dnschat: server not in whitelist")

	// ErrTransportUnavailable means the transport cannot run on this
	// platform or with this configuration.
	ErrTransportUnavailable = errors.New("dnschat: transport unavailable")

	// ErrTransportTimeout means a single transport attempt timed out.
	ErrTransportTimeout = errors.New("dnschat: transport timeout")

	// ErrTransportNetwork means a single transport attempt failed with a
	// network-level error, including an answer without usable TXT records.
	ErrTransportNetwork = errors.New("dnschat: transport network error")

	// ErrResponseTruncated means a UDP answer arrived with TC=1 and the
	// caller should retry over a stream transport.
	ErrResponseTruncated = errors.New("dnschat: response truncated")

	// ErrMalformedResponse means an answer was received but its TXT
	// records could not be reassembled into a complete reply.
	ErrMalformedResponse = errors.New("dnschat: malformed response")
)

// RateLimitedError is returned when the rate gate denies admission. It is
// recoverable: the caller may retry after RetryAfter.
type RateLimitedError struct {
	// RetryAfter is how long to wait before the next send may be admitted.
	RetryAfter time.Duration
}

// Error implements error.
func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("dnschat: rate limited, retry after %v", e.RetryAfter)
}

// Attempt records the outcome of one transport execution within a send.
type Attempt struct {
	// Transport is the name of the transport that ran.
	Transport string

	// StartedAt is when the attempt began.
	StartedAt time.Time

	// Elapsed is how long the attempt took.
	Elapsed time.Duration

	// Err is the classified failure, or nil on success.
	Err error
}

// AllTransportsFailedError is the terminal failure of a send: every
// transport in the fallback chain was skipped or exhausted its retry
// budget. Attempts holds the per-transport failure reasons in the order
// in which they occurred.
type AllTransportsFailedError struct {
	Attempts []Attempt
}

// Error implements error.
func (e *AllTransportsFailedError) Error() string {
	var sb strings.Builder
	sb.WriteString("dnschat: all transports failed")
	for _, a := range e.Attempts {
		fmt.Fprintf(&sb, "; %s: %v", a.Transport, a.Err)
	}
	return sb.String()
}

// classifyTransportError maps an error returned by transport I/O onto the
// package taxonomy. Errors already in the taxonomy pass through unchanged.
func classifyTransportError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTransportTimeout),
		errors.Is(err, ErrTransportNetwork),
		errors.Is(err, ErrTransportUnavailable),
		errors.Is(err, ErrResponseTruncated):
		return err
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTransportTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTransportTimeout, err)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsTimeout {
		return fmt.Errorf("%w: %v", ErrTransportTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrTransportNetwork, err)
}
