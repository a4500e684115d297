// Package transport implements the client side of the wire: multiplexed
// connections with heartbeats, and a per-address pool of them.
//
// ClientTransport runs many concurrent calls over one TCP connection. Each
// request gets a sequence number, and a background goroutine (recvLoop)
// routes each response to the caller waiting on that number.
//
//	goroutine-1 ──Send(seq=1)──┐
//	goroutine-2 ──Send(seq=2)──┼──→ single TCP conn ──→ Server
//	goroutine-3 ──Send(seq=3)──┘
//
//	recvLoop:  ←── response(seq=2) → pending[2] chan ← response → goroutine-2 wakes up
package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"calldata-rpc/codec"
	"calldata-rpc/message"
	"calldata-rpc/protocol"
)

// DefaultHeartbeat is the idle ping interval of a transport.
const DefaultHeartbeat = 30 * time.Second

// ErrClosed is returned by Send once the connection has failed or been closed.
var ErrClosed = errors.New("transport: connection closed")

// Option configures a ClientTransport.
type Option func(*ClientTransport)

// WithHeartbeat sets the heartbeat interval. Zero disables heartbeats.
func WithHeartbeat(d time.Duration) Option {
	return func(t *ClientTransport) { t.heartbeat = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(t *ClientTransport) { t.logger = l }
}

// WithMaxBodyLen bounds the response frames the transport accepts.
func WithMaxBodyLen(n uint32) Option {
	return func(t *ClientTransport) { t.maxBodyLen = n }
}

// ClientTransport manages one multiplexed connection.
type ClientTransport struct {
	conn       net.Conn
	codec      codec.CodecType
	heartbeat  time.Duration
	maxBodyLen uint32
	logger     *zap.Logger

	sending sync.Mutex // serializes frames; also guards seq
	seq     uint32

	mu      sync.Mutex
	pending map[uint32]chan *message.Message
	err     error // set once the connection is dead
	done    chan struct{}
}

// NewClientTransport takes ownership of conn and starts the receive and
// heartbeat loops.
func NewClientTransport(conn net.Conn, codecType codec.CodecType, opts ...Option) *ClientTransport {
	t := &ClientTransport{
		conn:       conn,
		codec:      codecType,
		heartbeat:  DefaultHeartbeat,
		maxBodyLen: protocol.DefaultMaxBodyLen,
		logger:     zap.NewNop(),
		pending:    make(map[uint32]chan *message.Message),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	go t.recvLoop()
	if t.heartbeat > 0 {
		go t.heartbeatLoop(t.heartbeat)
	}
	return t
}

// Send writes req and returns its sequence number and a channel that receives
// exactly one response. If the connection dies first, the response carries
// an unavailable error.
func (t *ClientTransport) Send(req *message.Message) (uint32, <-chan *message.Message, error) {
	body, err := codec.GetCodec(t.codec).Encode(req)
	if err != nil {
		return 0, nil, err
	}

	t.sending.Lock()
	defer t.sending.Unlock()

	t.seq++
	seq := t.seq
	respChan := make(chan *message.Message, 1)

	// register before writing so recvLoop cannot miss a fast response
	t.mu.Lock()
	if t.err != nil {
		t.mu.Unlock()
		return 0, nil, t.err
	}
	t.pending[seq] = respChan
	t.mu.Unlock()

	header := protocol.Header{
		CodecType: byte(t.codec),
		MsgType:   protocol.MsgTypeRequest,
		Seq:       seq,
	}
	if err := protocol.Encode(t.conn, &header, body); err != nil {
		t.forget(seq)
		return 0, nil, err
	}
	return seq, respChan, nil
}

// RoundTrip sends req and waits for its response or for ctx to end.
// Transport failures are reported as error responses of kind unavailable,
// and an expired ctx as kind timeout.
func (t *ClientTransport) RoundTrip(ctx context.Context, req *message.Message) *message.Message {
	seq, ch, err := t.Send(req)
	if err != nil {
		return message.Errorf(req.ServiceMethod, message.KindUnavailable, err.Error())
	}
	select {
	case resp := <-ch:
		return resp
	case <-ctx.Done():
		t.forget(seq)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return message.Errorf(req.ServiceMethod, message.KindTimeout, "request timed out")
		}
		return message.Errorf(req.ServiceMethod, message.KindUnavailable, ctx.Err().Error())
	}
}

func (t *ClientTransport) forget(seq uint32) {
	t.mu.Lock()
	delete(t.pending, seq)
	t.mu.Unlock()
}

// recvLoop is the only reader of conn.
func (t *ClientTransport) recvLoop() {
	for {
		header, body, err := protocol.DecodeLimit(t.conn, t.maxBodyLen)
		if err != nil {
			t.fail(err)
			return
		}
		if header.MsgType != protocol.MsgTypeResponse {
			continue
		}

		resp := &message.Message{}
		if err := codec.GetCodec(codec.CodecType(header.CodecType)).Decode(body, resp); err != nil {
			resp = message.Errorf("", message.KindInternal, "malformed response: "+err.Error())
		}

		t.mu.Lock()
		ch, ok := t.pending[header.Seq]
		delete(t.pending, header.Seq)
		t.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

// fail marks the transport dead and answers every pending call.
func (t *ClientTransport) fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return
	}
	if errors.Is(err, net.ErrClosed) {
		err = ErrClosed
	}
	t.err = err
	close(t.done)
	t.conn.Close()

	if len(t.pending) > 0 {
		t.logger.Warn("connection lost",
			zap.String("remote", t.conn.RemoteAddr().String()),
			zap.Int("pending", len(t.pending)),
			zap.Error(err))
	}
	for seq, ch := range t.pending {
		ch <- message.Errorf("", message.KindUnavailable, err.Error())
		delete(t.pending, seq)
	}
}

// Alive reports whether the connection is still usable.
func (t *ClientTransport) Alive() bool {
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

// Close closes the connection. Pending calls fail with ErrClosed.
func (t *ClientTransport) Close() error {
	t.fail(ErrClosed)
	return nil
}

func (t *ClientTransport) Conn() net.Conn {
	return t.conn
}

func (t *ClientTransport) heartbeatLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
		}
		header := &protocol.Header{MsgType: protocol.MsgTypeHeartbeat}
		t.sending.Lock()
		err := protocol.Encode(t.conn, header, nil)
		t.sending.Unlock()
		if err != nil {
			t.fail(err)
			return
		}
	}
}
