// SPDX-License-Identifier: GPL-3.0-or-later

package dnschat

import (
	"context"
	"fmt"
	"strings"

	"github.com/miekg/dns"
)

// Transport names, in descending fallback priority. The order is a
// documented contract: changing it changes which network path a message
// takes first on every platform.
const (
	TransportNative = "native"
	TransportUDP    = "udp"
	TransportDoH    = "doh"
	TransportTCP    = "tcp"
	TransportDoQ    = "doq"
)

// Transport is one concrete mechanism for issuing a TXT query and
// obtaining its answer. Implementations are stateless between calls: each
// QueryTXT owns its transient socket or request and releases it on every
// exit path, including timeout and cancellation.
type Transport interface {
	// Name returns the transport name.
	Name() string

	// Available reports whether the transport can run on this platform
	// and configuration. It is synchronous and side-effect free.
	Available() bool

	// QueryTXT issues a TXT query for name and returns the raw record
	// payloads, one string per TXT record.
	QueryTXT(ctx context.Context, name string) ([]string, error)
}

// TransportDescriptor describes one entry of the fallback chain.
type TransportDescriptor struct {
	// Name is the transport name.
	Name string

	// Priority is the position in the chain; lower runs first.
	Priority int

	// Available mirrors [Transport.Available].
	Available func() bool
}

// txtFromMsg extracts the TXT payloads from an answer. Character strings
// within one record are concatenated, as resolvers do; distinct records
// stay distinct so the reassembler can reorder them.
func txtFromMsg(msg *dns.Msg) ([]string, error) {
	if msg.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("%w: server returned %s",
			ErrTransportNetwork, dns.RcodeToString[msg.Rcode])
	}
	var records []string
	for _, rr := range msg.Answer {
		if txt, ok := rr.(*dns.TXT); ok {
			records = append(records, strings.Join(txt.Txt, ""))
		}
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no TXT records in answer", ErrTransportNetwork)
	}
	return records, nil
}

// newTXTQuery builds the TXT question message for an encoded query name.
func newTXTQuery(name string) *dns.Msg {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeTXT)
	msg.RecursionDesired = true
	return msg
}
