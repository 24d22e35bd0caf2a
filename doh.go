// SPDX-License-Identifier: GPL-3.0-or-later
//
// See https://datatracker.ietf.org/doc/rfc8484/

package dnschat

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/miekg/dns"
)

const dohMimeType = "application/dns-message"

// DoHTransport sends the query over DNS-over-HTTPS wireformat POST, for
// networks that block raw port 53. Unlike the socket transports it reuses
// HTTP connections across calls; each call still owns its own request and
// response body.
type DoHTransport struct {
	url    string
	client *http.Client
}

var _ Transport = &DoHTransport{}

// NewDoHTransport creates a DoH transport for the given query URL. A nil
// client selects one with sane handshake and header timeouts.
func NewDoHTransport(url string, client *http.Client) *DoHTransport {
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				ForceAttemptHTTP2:     true,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 20 * time.Second,
			},
		}
	}
	return &DoHTransport{url: url, client: client}
}

// Name implements [Transport].
func (t *DoHTransport) Name() string {
	return TransportDoH
}

// Available implements [Transport].
func (t *DoHTransport) Available() bool {
	return t.url != ""
}

// QueryTXT implements [Transport].
func (t *DoHTransport) QueryTXT(ctx context.Context, name string) ([]string, error) {
	// ID zero per RFC 8484 Sect. 4.1, to help HTTP-level caching.
	query := newTXTQuery(name)
	query.Id = 0
	rawQuery, err := query.Pack()
	if err != nil {
		return nil, classifyTransportError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(rawQuery))
	if err != nil {
		return nil, classifyTransportError(err)
	}
	req.Header.Set("Content-Type", dohMimeType)
	req.Header.Set("Accept", dohMimeType)

	httpResp, err := t.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: doh status %d", ErrTransportNetwork, httpResp.StatusCode)
	}

	rawResp, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	resp := new(dns.Msg)
	if err := resp.Unpack(rawResp); err != nil {
		return nil, classifyTransportError(err)
	}
	return txtFromMsg(resp)
}
