// SPDX-License-Identifier: GPL-3.0-or-later

package dnschat

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Multi-record framing: when the server must split a long reply across
// TXT records it prefixes each record with "i/n:", where i is the 1-based
// part index and n the total part count. A record without the prefix is a
// complete single-part answer. This framing is part of the client/server
// contract; DNS itself guarantees no ordering across records.
var partPrefixRe = regexp.MustCompile(`^(\d+)/(\d+):`)

// DecodeTXT reassembles the TXT records of one answer into the reply text.
//
// A single unframed record short-circuits to a trivial decode. Framed
// records are reordered by part index, validated for completeness, and
// concatenated with the framing stripped. DecodeTXT never touches the
// network; it fails with [ErrMalformedResponse] when the record set cannot
// form a complete answer.
func DecodeTXT(records []string) (string, error) {
	if len(records) == 0 {
		return "", fmt.Errorf("%w: empty record set", ErrMalformedResponse)
	}
	if len(records) == 1 && !partPrefixRe.MatchString(records[0]) {
		return records[0], nil
	}

	type part struct {
		index   int
		payload string
	}
	parts := make([]part, 0, len(records))
	total := 0
	for _, rec := range records {
		m := partPrefixRe.FindStringSubmatch(rec)
		if m == nil {
			return "", fmt.Errorf("%w: unframed record in multi-record answer", ErrMalformedResponse)
		}
		index, err := strconv.Atoi(m[1])
		if err != nil || index < 1 {
			return "", fmt.Errorf("%w: bad part index %q", ErrMalformedResponse, m[1])
		}
		n, err := strconv.Atoi(m[2])
		if err != nil || n < 1 {
			return "", fmt.Errorf("%w: bad part total %q", ErrMalformedResponse, m[2])
		}
		if total == 0 {
			total = n
		} else if n != total {
			return "", fmt.Errorf("%w: conflicting part totals %d and %d", ErrMalformedResponse, total, n)
		}
		if index > n {
			return "", fmt.Errorf("%w: part index %d exceeds total %d", ErrMalformedResponse, index, n)
		}
		parts = append(parts, part{index: index, payload: rec[len(m[0]):]})
	}
	if len(parts) != total {
		return "", fmt.Errorf("%w: got %d of %d parts", ErrMalformedResponse, len(parts), total)
	}

	sort.Slice(parts, func(i, j int) bool { return parts[i].index < parts[j].index })
	var sb strings.Builder
	for i, p := range parts {
		if p.index != i+1 {
			return "", fmt.Errorf("%w: duplicate or missing part %d", ErrMalformedResponse, i+1)
		}
		sb.WriteString(p.payload)
	}
	return sb.String(), nil
}
