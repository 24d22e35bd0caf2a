// SPDX-License-Identifier: GPL-3.0-or-later

package dnschat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/bassosimone/runtimex"
)

// Client sends chat messages over DNS and reassembles the replies. It is
// safe for concurrent use; each Query call runs its own fallback chain
// while sharing the process-wide rate gate and whitelist.
type Client struct {
	cfg        Config
	transports []Transport
	targets    []string
	gate       *RateGate
	whitelist  *ServerWhitelist
	log        *slog.Logger
}

// QueryResult is the detailed outcome of one send.
type QueryResult struct {
	// Text is the decoded reply.
	Text string

	// Transport names the transport that produced the answer. Empty when
	// the reply came from the mock responder.
	Transport string

	// Mocked reports whether the reply came from the offline responder
	// rather than the network.
	Mocked bool

	// Attempts lists every transport execution of this send, including
	// the failures that preceded a success.
	Attempts []Attempt
}

// New creates a [*Client] from cfg, filling unset fields with defaults.
// It fails when cfg.TransportOrder names an unknown transport.
func New(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	runtimex.Assert(cfg.MaxRetriesPerStrategy > 0)

	transports := cfg.Transports
	targets := []string{}
	if transports != nil {
		targets = append(targets, cfg.Server)
	} else {
		for _, name := range cfg.TransportOrder {
			switch name {
			case TransportNative:
				transports = append(transports, NewNativeTransport(cfg.Server, cfg.NativeResolver))
				targets = append(targets, cfg.Server)
			case TransportUDP:
				transports = append(transports, NewUDPTransport(nil, cfg.Server))
				targets = append(targets, cfg.Server)
			case TransportDoH:
				transports = append(transports, NewDoHTransport(cfg.DoHURL, nil))
				host, err := dohHost(cfg.DoHURL)
				if err != nil {
					return nil, err
				}
				targets = append(targets, host)
			case TransportTCP:
				transports = append(transports, NewTCPTransport(nil, cfg.Server))
				targets = append(targets, cfg.Server)
			case TransportDoQ:
				transports = append(transports, NewDoQTransport(cfg.QUICEndpoint, normalizeServerHost(cfg.QUICEndpoint)))
				if cfg.QUICEndpoint != "" {
					targets = append(targets, cfg.QUICEndpoint)
				}
			default:
				return nil, fmt.Errorf("dnschat: unknown transport %q", name)
			}
		}
	}

	return &Client{
		cfg:        cfg,
		transports: transports,
		targets:    dedupe(targets),
		gate:       NewRateGate(cfg.RateLimitWindow, cfg.RateLimitMaxPerWindow),
		whitelist:  NewServerWhitelist(cfg.ServerWhitelist),
		log:        cfg.Logger,
	}, nil
}

// Descriptors returns the fallback chain in priority order.
func (c *Client) Descriptors() []TransportDescriptor {
	descriptors := make([]TransportDescriptor, 0, len(c.transports))
	for i, t := range c.transports {
		descriptors = append(descriptors, TransportDescriptor{
			Name:      t.Name(),
			Priority:  i,
			Available: t.Available,
		})
	}
	return descriptors
}

// Query sends text and returns the decoded reply. It is the plain form of
// [Client.QueryDetailed].
func (c *Client) Query(ctx context.Context, text string) (string, error) {
	result, err := c.QueryDetailed(ctx, text)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// errTotalBudget marks expiry of the whole-send deadline, so it can be
// told apart from caller-side cancellation.
var errTotalBudget = errors.New("dnschat: total send budget exceeded")

// QueryDetailed sends text through the fallback chain and reports the
// full outcome. Failure paths, in order: [ErrInvalidInput] and
// [ErrUntrustedServer] before any I/O, [*RateLimitedError] at admission,
// [ErrMalformedResponse] when an answer cannot be decoded, and
// [*AllTransportsFailedError] once the chain is exhausted and no mock
// responder is configured.
func (c *Client) QueryDetailed(ctx context.Context, text string) (*QueryResult, error) {
	// 1. Encode. Fails fast, nothing sent to the network.
	name, err := EncodeQuery(text, c.cfg.Zone)
	if err != nil {
		return nil, err
	}

	// 2. Policy guard: every configured target must be whitelisted.
	for _, target := range c.targets {
		if err := c.whitelist.Check(target); err != nil {
			return nil, err
		}
	}

	// 3. Rate gate: single admission point, serialized internally.
	if err := c.gate.Admit(); err != nil {
		return nil, err
	}

	// 4. Bound the whole chain independently of per-attempt timeouts.
	ctx, cancel := context.WithTimeoutCause(ctx, c.cfg.TotalSendTimeout, errTotalBudget)
	defer cancel()

	// 5. Try transports strictly in priority order.
	var attempts []Attempt
	for _, transport := range c.transports {
		records, terminal, err := c.tryTransport(ctx, transport, name, &attempts)
		if err != nil {
			if terminal {
				return nil, err
			}
			if context.Cause(ctx) == errTotalBudget {
				// Out of wall-clock budget; do not start further transports.
				break
			}
			continue
		}
		reply, err := DecodeTXT(records)
		if err != nil {
			// The server answered deterministically wrong; retrying the
			// same or another transport cannot fix that.
			return nil, err
		}
		c.log.InfoContext(ctx, "query succeeded",
			"transport", transport.Name(), "attempts", len(attempts)+1)
		return &QueryResult{
			Text:      reply,
			Transport: transport.Name(),
			Attempts:  attempts,
		}, nil
	}

	// 6. Exhausted. Fall back to the mock responder when configured.
	allErr := &AllTransportsFailedError{Attempts: attempts}
	if c.cfg.MockFallback != nil {
		reply, mockErr := c.cfg.MockFallback.Reply(context.WithoutCancel(ctx), text)
		if mockErr == nil {
			c.log.WarnContext(ctx, "all transports failed, using mock responder", "cause", allErr)
			return &QueryResult{Text: reply, Mocked: true, Attempts: attempts}, nil
		}
		c.log.WarnContext(ctx, "mock responder failed", "err", mockErr)
	}
	return nil, allErr
}

// tryTransport runs one transport with its retry budget. It returns the
// raw records on success; otherwise terminal reports whether the whole
// send must stop with err instead of falling through.
func (c *Client) tryTransport(ctx context.Context, transport Transport, name string, attempts *[]Attempt) (records []string, terminal bool, err error) {
	// Unavailable transports are skipped without touching the retry
	// budget meant for network failures.
	if !transport.Available() {
		c.log.DebugContext(ctx, "transport unavailable", "transport", transport.Name())
		*attempts = append(*attempts, Attempt{
			Transport: transport.Name(),
			StartedAt: time.Now(),
			Err:       ErrTransportUnavailable,
		})
		return nil, false, ErrTransportUnavailable
	}

	for attempt := 0; attempt < c.cfg.MaxRetriesPerStrategy; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.PerStrategyTimeout)
		started := time.Now()
		records, err = transport.QueryTXT(attemptCtx, name)
		cancel()
		err = classifyTransportError(err)
		*attempts = append(*attempts, Attempt{
			Transport: transport.Name(),
			StartedAt: started,
			Elapsed:   time.Since(started),
			Err:       err,
		})
		if err == nil {
			return records, false, nil
		}
		c.log.DebugContext(ctx, "transport attempt failed",
			"transport", transport.Name(), "attempt", attempt, "err", err)

		// The send-level context decides whether we are out of budget or
		// the caller canceled; either way this send is over.
		if ctx.Err() != nil {
			if context.Cause(ctx) == errTotalBudget {
				return nil, false, err
			}
			return nil, true, ctx.Err()
		}
		switch {
		case errors.Is(err, ErrTransportUnavailable):
			// Capability vanished mid-send; move on without retrying.
			return nil, false, err
		case errors.Is(err, ErrResponseTruncated):
			// Retrying UDP cannot grow the datagram; let TCP handle it.
			return nil, false, err
		}
		if attempt+1 < c.cfg.MaxRetriesPerStrategy {
			if !sleepBackoff(ctx, c.cfg.RetryBaseDelay<<attempt) {
				if context.Cause(ctx) == errTotalBudget {
					return nil, false, err
				}
				return nil, true, ctx.Err()
			}
		}
	}
	return nil, false, err
}

// sleepBackoff waits for d or until ctx is done, reporting whether the
// full delay elapsed.
func sleepBackoff(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// dohHost extracts the whitelist target from a DoH URL.
func dohHost(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("dnschat: invalid DoH URL %q", rawURL)
	}
	return u.Host, nil
}

// dedupe removes duplicate targets while preserving order.
func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
