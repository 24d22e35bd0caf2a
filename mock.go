// SPDX-License-Identifier: GPL-3.0-or-later

package dnschat

import (
	"context"
	"fmt"
)

// MockResponder produces offline replies. A client consults it only when
// every real transport has already failed; the resulting reply is marked
// as mocked in [QueryResult] so it is never mistaken for a real answer.
type MockResponder interface {
	Reply(ctx context.Context, message string) (string, error)
}

// CannedResponder is a [MockResponder] backed by a fixed table. Replies
// maps the original message text to replies; Default answers everything else.
type CannedResponder struct {
	Replies map[string]string
	Default string
}

var _ MockResponder = &CannedResponder{}

// Reply implements [MockResponder].
func (r *CannedResponder) Reply(ctx context.Context, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if reply, ok := r.Replies[message]; ok {
		return reply, nil
	}
	if r.Default != "" {
		return r.Default, nil
	}
	return "", fmt.Errorf("%w: no canned reply for message", ErrTransportNetwork)
}
