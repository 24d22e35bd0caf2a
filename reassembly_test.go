// SPDX-License-Identifier: GPL-3.0-or-later

package dnschat

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeTXT(t *testing.T) {
	t.Run("single bare record short-circuits", func(t *testing.T) {
		got, err := DecodeTXT([]string{"hello world"})
		require.NoError(t, err)
		require.Equal(t, "hello world", got)
	})

	t.Run("bare record may contain a colon", func(t *testing.T) {
		got, err := DecodeTXT([]string{"note: DNS is fun"})
		require.NoError(t, err)
		require.Equal(t, "note: DNS is fun", got)
	})

	t.Run("single framed record", func(t *testing.T) {
		got, err := DecodeTXT([]string{"1/1:hello"})
		require.NoError(t, err)
		require.Equal(t, "hello", got)
	})

	t.Run("reorders framed records", func(t *testing.T) {
		got, err := DecodeTXT([]string{"3/3:c", "1/3:a", "2/3:b"})
		require.NoError(t, err)
		require.Equal(t, "abc", got)
	})

	t.Run("order independence", func(t *testing.T) {
		records := []string{"1/4:the ", "2/4:quick ", "3/4:brown ", "4/4:fox"}
		for range 10 {
			shuffled := append([]string(nil), records...)
			rand.Shuffle(len(shuffled), func(i, j int) {
				shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
			})
			got, err := DecodeTXT(shuffled)
			require.NoError(t, err)
			require.Equal(t, "the quick brown fox", got)
		}
	})

	t.Run("empty record set", func(t *testing.T) {
		_, err := DecodeTXT(nil)
		require.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("missing part", func(t *testing.T) {
		_, err := DecodeTXT([]string{"1/3:a", "3/3:c"})
		require.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("duplicate part", func(t *testing.T) {
		_, err := DecodeTXT([]string{"1/2:a", "1/2:a"})
		require.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("conflicting totals", func(t *testing.T) {
		_, err := DecodeTXT([]string{"1/2:a", "2/3:b"})
		require.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("index beyond total", func(t *testing.T) {
		_, err := DecodeTXT([]string{"1/1:a", "5/1:b"})
		require.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("bare record mixed with framed ones", func(t *testing.T) {
		_, err := DecodeTXT([]string{"1/2:a", "something"})
		require.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("zero index", func(t *testing.T) {
		_, err := DecodeTXT([]string{"0/2:a", "1/2:b"})
		require.ErrorIs(t, err, ErrMalformedResponse)
	})
}

// Replies chunked the way the server chunks them must round-trip through
// the reassembler regardless of arrival order.
func TestDecodeTXTRoundTrip(t *testing.T) {
	reply := "A DNS query asks a name server for the records of a domain name."
	const chunkSize = 20

	var records []string
	total := (len(reply) + chunkSize - 1) / chunkSize
	for i := 0; i < total; i++ {
		end := min(len(reply), (i+1)*chunkSize)
		records = append(records, fmt.Sprintf("%d/%d:%s", i+1, total, reply[i*chunkSize:end]))
	}
	rand.Shuffle(len(records), func(i, j int) {
		records[i], records[j] = records[j], records[i]
	})

	got, err := DecodeTXT(records)
	require.NoError(t, err)
	require.Equal(t, reply, got)
}
