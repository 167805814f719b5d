// Package sequencer implements the external counter service of spec.md §6:
// a Sequencer hands out a strictly increasing uint64 on
// every call and keeps no state beyond the counter itself.
//
// FakeSequencer is the in-process stand-in used by tests and by Log when
// no network sequencer is configured. Client/Server implement the real
// wire contract from original_source/src/sequencer/client.cc and seqd.cc:
// a 1-byte request ("a") answered with an 8-byte little-endian counter
// value, no other framing, no persisted state across restarts.
package sequencer

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync/atomic"

	"github.com/op/go-logging"
	"github.com/pborman/uuid"

	"github.com/zlogio/zlog/bte"
)

var logger *logging.Logger

func init() {
	logger = logging.MustGetLogger("log")
}

// Sequencer hands out monotonically increasing positions.
type Sequencer interface {
	Next(ctx context.Context) (uint64, bte.BTE)
}

// PeekSequencer is implemented by sequencers that can report the next
// value they would hand out without consuming it, for Log.CheckTail. The
// real network wire protocol (one request byte, one counter response)
// doesn't carry a non-destructive peek, so only FakeSequencer implements
// this; Log falls back to treating CheckTail as unsupported against a
// Client.
type PeekSequencer interface {
	Peek(ctx context.Context) (uint64, bte.BTE)
}

// FakeSequencer is an in-process atomic counter, for single-process tests
// and deployments with no external sequencer (spec.md §6: "a log may run
// without a sequencer... a real deployment almost always wants one").
type FakeSequencer struct {
	counter uint64
}

// NewFake returns a sequencer whose first Next() call returns start.
func NewFake(start uint64) *FakeSequencer {
	return &FakeSequencer{counter: start}
}

func (f *FakeSequencer) Next(ctx context.Context) (uint64, bte.BTE) {
	return atomic.AddUint64(&f.counter, 1) - 1, nil
}

// Peek implements PeekSequencer.
func (f *FakeSequencer) Peek(ctx context.Context) (uint64, bte.BTE) {
	return atomic.LoadUint64(&f.counter), nil
}

var _ PeekSequencer = (*FakeSequencer)(nil)

// requestByte is the sole request octet the wire protocol defines.
const requestByte = 'a'

// Server answers sequencer requests over TCP: one connection, one
// request, one 8-byte little-endian response, matching seqd.cc's
// handle_connection loop.
type Server struct {
	ln      net.Listener
	counter uint64
}

// Listen starts a Server on addr (e.g. ":5678"). start is the first value
// ever handed out.
func Listen(addr string, start uint64) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{ln: ln, counter: start}, nil
}

// Addr returns the listener's bound address.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Serve accepts connections until the listener is closed.
func (s *Server) Serve() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return err
		}
		go s.handle(conn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error { return s.ln.Close() }

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	req := make([]byte, 1)
	if _, err := conn.Read(req); err != nil {
		logger.Warningf("sequencer: reading request: %v", err)
		return
	}
	if req[0] != requestByte {
		logger.Warningf("sequencer: unexpected request byte 0x%x", req[0])
		return
	}

	next := atomic.AddUint64(&s.counter, 1) - 1
	resp := make([]byte, 8)
	binary.LittleEndian.PutUint64(resp, next)
	if _, err := conn.Write(resp); err != nil {
		logger.Warningf("sequencer: writing response: %v", err)
	}
}

// Client is a Sequencer that fetches each value from a Server over TCP,
// opening one short-lived connection per call, matching client.cc.
type Client struct {
	addr string
	id   uuid.UUID // correlates this client's requests across server log lines
}

// NewClient returns a Client that dials addr on every Next call.
func NewClient(addr string) *Client {
	return &Client{addr: addr, id: uuid.NewRandom()}
}

func (c *Client) Next(ctx context.Context) (uint64, bte.BTE) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return 0, bte.Errf(bte.IOError, "sequencer dial %s: %v", c.addr, err)
	}
	defer conn.Close()
	logger.Debugf("sequencer client %s: requesting next position from %s", c.id, c.addr)

	if _, err := conn.Write([]byte{requestByte}); err != nil {
		return 0, bte.Errf(bte.IOError, "sequencer write request: %v", err)
	}

	resp := make([]byte, 8)
	if _, err := io.ReadFull(conn, resp); err != nil {
		return 0, bte.Errf(bte.IOError, "sequencer read response: %v", err)
	}
	return binary.LittleEndian.Uint64(resp), nil
}
