// SPDX-License-Identifier: GPL-3.0-or-later

// Package dnschat carries short chat messages to a remote language-model
// endpoint over the DNS, using TXT queries as the request/reply channel.
//
// A message is sanitized and encoded into the labels of a DNS query name,
// the query is sent to a whitelisted server over the first transport that
// works (OS stub resolver, raw UDP, DNS over HTTPS, TCP, optionally DNS
// over QUIC), and the TXT records of the answer are reassembled into the
// reply text.
//
// The entry point is [New], which builds a [*Client] from a [Config]. A
// single [*Client.Query] call runs the whole fallback chain; concurrent
// calls are independent and each transport attempt owns its own connection.
package dnschat
