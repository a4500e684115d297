package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"calldata-rpc/codec"
)

// DialFunc opens a connection to addr.
type DialFunc func(ctx context.Context, addr string) (net.Conn, error)

// ErrPoolClosed is returned by Get after Close.
var ErrPoolClosed = errors.New("transport: pool closed")

// PoolConfig configures a Pool.
type PoolConfig struct {
	Size        int             // transports per address; values < 1 mean 1
	Codec       codec.CodecType // codec of every transport
	Dial        DialFunc        // nil dials TCP with DialTimeout
	DialTimeout time.Duration   // zero means 5s
	Options     []Option        // passed to each ClientTransport
}

// Pool keeps up to Size multiplexed transports per address and hands them
// out round-robin. Slots are filled lazily, and a slot whose transport died
// is redialed on its next turn.
type Pool struct {
	cfg PoolConfig

	mu     sync.Mutex
	addrs  map[string]*addrPool
	closed bool
}

type addrPool struct {
	next  atomic.Uint64
	slots []slot
}

type slot struct {
	mu sync.Mutex
	t  *ClientTransport
}

func NewPool(cfg PoolConfig) *Pool {
	if cfg.Size < 1 {
		cfg.Size = 1
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.Dial == nil {
		d := &net.Dialer{Timeout: cfg.DialTimeout}
		cfg.Dial = func(ctx context.Context, addr string) (net.Conn, error) {
			return d.DialContext(ctx, "tcp", addr)
		}
	}
	return &Pool{cfg: cfg, addrs: make(map[string]*addrPool)}
}

// Get returns a live transport to addr, dialing one if its slot is empty.
func (p *Pool) Get(ctx context.Context, addr string) (*ClientTransport, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	ap, ok := p.addrs[addr]
	if !ok {
		ap = &addrPool{slots: make([]slot, p.cfg.Size)}
		p.addrs[addr] = ap
	}
	p.mu.Unlock()

	s := &ap.slots[(ap.next.Add(1)-1)%uint64(len(ap.slots))]
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.t != nil && s.t.Alive() {
		return s.t, nil
	}

	conn, err := p.cfg.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	t := NewClientTransport(conn, p.cfg.Codec, p.cfg.Options...)

	// Close may have run while dialing
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		t.Close()
		return nil, ErrPoolClosed
	}
	s.t = t
	return t, nil
}

// Evict closes every transport to addr, e.g. when it left the registry.
func (p *Pool) Evict(addr string) {
	p.mu.Lock()
	ap := p.addrs[addr]
	delete(p.addrs, addr)
	p.mu.Unlock()
	if ap != nil {
		ap.close()
	}
}

// Close closes every transport. Later Gets fail with ErrPoolClosed.
func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	addrs := p.addrs
	p.addrs = make(map[string]*addrPool)
	p.mu.Unlock()

	for _, ap := range addrs {
		ap.close()
	}
	return nil
}

func (ap *addrPool) close() {
	for i := range ap.slots {
		s := &ap.slots[i]
		s.mu.Lock()
		if s.t != nil {
			s.t.Close()
			s.t = nil
		}
		s.mu.Unlock()
	}
}
