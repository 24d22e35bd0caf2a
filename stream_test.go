// SPDX-License-Identifier: GPL-3.0-or-later

package dnschat

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"
)

// streamOpenerStub implements [StreamOpener] with function fields.
type streamOpenerStub struct {
	openStream  func() (Stream, error)
	mutateQuery func(msg *dns.Msg)
}

// Close implements [StreamOpener].
func (s *streamOpenerStub) Close() error { return nil }

// MutateQuery implements [StreamOpener].
func (s *streamOpenerStub) MutateQuery(msg *dns.Msg) {
	if s.mutateQuery != nil {
		s.mutateQuery(msg)
	}
}

// OpenStream implements [StreamOpener].
func (s *streamOpenerStub) OpenStream() (Stream, error) {
	return s.openStream()
}

// openerDialerStub implements [StreamOpenerDialer] returning a fixed opener.
type openerDialerStub struct {
	opener StreamOpener
	err    error
}

// DialContext implements [StreamOpenerDialer].
func (d *openerDialerStub) DialContext(ctx context.Context, address string) (StreamOpener, error) {
	return d.opener, d.err
}

// streamStub implements [Stream] with function fields.
type streamStub struct {
	setDeadline func(t time.Time) error
	read        func(p []byte) (int, error)
	write       func(p []byte) (int, error)
	close       func() error
}

// SetDeadline implements [Stream].
func (s *streamStub) SetDeadline(t time.Time) error { return s.setDeadline(t) }

// Read implements [Stream].
func (s *streamStub) Read(p []byte) (int, error) { return s.read(p) }

// Write implements [Stream].
func (s *streamStub) Write(p []byte) (int, error) { return s.write(p) }

// Close implements [Stream].
func (s *streamStub) Close() error { return s.close() }

// newStreamStub creates a stream stub with default no-op implementations.
func newStreamStub() *streamStub {
	return &streamStub{
		setDeadline: func(t time.Time) error { return nil },
		read:        func(p []byte) (int, error) { return 0, io.EOF },
		write:       func(p []byte) (int, error) { return len(p), nil },
		close:       func() error { return nil },
	}
}

// buildRawTXTResponse packs a TXT response for a raw DNS query.
func buildRawTXTResponse(t *testing.T, rawQuery []byte, records ...string) []byte {
	t.Helper()

	queryMsg := &dns.Msg{}
	require.NoError(t, queryMsg.Unpack(rawQuery))

	resp := &dns.Msg{}
	resp.SetReply(queryMsg)
	for _, rec := range records {
		resp.Answer = append(resp.Answer, &dns.TXT{
			Hdr: dns.RR_Header{
				Name:   queryMsg.Question[0].Name,
				Rrtype: dns.TypeTXT,
				Class:  dns.ClassINET,
				Ttl:    1,
			},
			Txt: []string{rec},
		})
	}

	rawResp, err := resp.Pack()
	require.NoError(t, err)
	return rawResp
}

func newStubTransport(opener StreamOpener) *streamTransport {
	return &streamTransport{
		name:   TransportTCP,
		dialer: &openerDialerStub{opener: opener},
		server: "127.0.0.1:53",
	}
}

func TestStreamTransportQueryTXT(t *testing.T) {
	t.Run("full exchange round-trips", func(t *testing.T) {
		var written bytes.Buffer
		var response *bytes.Reader
		stream := newStreamStub()
		stream.write = func(p []byte) (int, error) {
			return written.Write(p)
		}
		stream.read = func(p []byte) (int, error) {
			if response == nil {
				// Strip the 2-byte frame, answer the captured query.
				rawQuery := written.Bytes()[2:]
				rawResp := buildRawTXTResponse(t, rawQuery, "ok")
				response = bytes.NewReader(newStreamMsgFrame(rawResp))
			}
			return response.Read(p)
		}
		opener := &streamOpenerStub{
			openStream: func() (Stream, error) { return stream, nil },
		}

		records, err := newStubTransport(opener).QueryTXT(context.Background(), "test-message.ch.at")
		require.NoError(t, err)
		require.Equal(t, []string{"ok"}, records)
	})

	t.Run("dial error", func(t *testing.T) {
		expected := errors.New("dial failed")
		tr := &streamTransport{
			name:   TransportTCP,
			dialer: &openerDialerStub{err: expected},
			server: "127.0.0.1:53",
		}

		_, err := tr.QueryTXT(context.Background(), "test-message.ch.at")
		require.ErrorIs(t, err, ErrTransportNetwork)
	})

	t.Run("open stream error", func(t *testing.T) {
		expected := errors.New("open stream failed")
		opener := &streamOpenerStub{
			openStream: func() (Stream, error) { return nil, expected },
		}

		_, err := newStubTransport(opener).QueryTXT(context.Background(), "test-message.ch.at")
		require.ErrorIs(t, err, ErrTransportNetwork)
	})

	t.Run("write error", func(t *testing.T) {
		stream := newStreamStub()
		stream.write = func(p []byte) (int, error) { return 0, errors.New("write failed") }
		opener := &streamOpenerStub{
			openStream: func() (Stream, error) { return stream, nil },
		}

		_, err := newStubTransport(opener).QueryTXT(context.Background(), "test-message.ch.at")
		require.ErrorIs(t, err, ErrTransportNetwork)
	})

	t.Run("short response", func(t *testing.T) {
		stream := newStreamStub() // reads return EOF immediately
		opener := &streamOpenerStub{
			openStream: func() (Stream, error) { return stream, nil },
		}

		_, err := newStubTransport(opener).QueryTXT(context.Background(), "test-message.ch.at")
		require.ErrorIs(t, err, ErrTransportNetwork)
	})

	t.Run("mutate query is applied", func(t *testing.T) {
		var sawID uint16 = 1 // sentinel, overwritten below
		stream := newStreamStub()
		stream.write = func(p []byte) (int, error) {
			if len(p) > 2 {
				msg := &dns.Msg{}
				require.NoError(t, msg.Unpack(p[2:]))
				sawID = msg.Id
			}
			return len(p), nil
		}
		opener := &streamOpenerStub{
			openStream:  func() (Stream, error) { return stream, nil },
			mutateQuery: func(msg *dns.Msg) { msg.Id = 0 },
		}

		_, err := newStubTransport(opener).QueryTXT(context.Background(), "test-message.ch.at")
		require.Error(t, err) // no response configured
		require.Zero(t, sawID)
	})
}

func TestNewStreamMsgFrame(t *testing.T) {
	frame := newStreamMsgFrame([]byte{0xAA, 0xBB, 0xCC})
	require.Equal(t, []byte{0x00, 0x03, 0xAA, 0xBB, 0xCC}, frame)

	big := make([]byte, 300)
	frame = newStreamMsgFrame(big)
	require.Equal(t, byte(0x01), frame[0])
	require.Equal(t, byte(0x2C), frame[1])
	require.Len(t, frame, 302)
}
