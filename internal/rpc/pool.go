package rpc

import (
	"fmt"
	"sync"

	"chorddht/internal/logger"
	"chorddht/internal/node"
	"chorddht/internal/ring"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Pool caches gRPC client connections keyed by peer address. Channels
// may be cached per address but are not required to be — correctness
// tolerates a fresh channel per call — so the pool is an optimization,
// not a safety requirement.
type Pool struct {
	lgr     logger.Logger
	mu      sync.RWMutex
	conns   map[string]*grpc.ClientConn
	dialOps []grpc.DialOption
}

// NewPool builds an empty connection pool. With no dial options, it
// defaults to insecure transport credentials, suitable for a trusted
// cluster network.
func NewPool(lgr logger.Logger, opts ...grpc.DialOption) *Pool {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	return &Pool{
		lgr:     lgr,
		conns:   make(map[string]*grpc.ClientConn),
		dialOps: opts,
	}
}

// GetConn returns a cached connection to addr, dialing a new one on
// first use.
func (p *Pool) GetConn(addr string) (*grpc.ClientConn, error) {
	p.mu.RLock()
	conn, ok := p.conns[addr]
	p.mu.RUnlock()
	if ok {
		return conn, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if conn, ok = p.conns[addr]; ok {
		return conn, nil
	}
	conn, err := grpc.NewClient(addr, p.dialOps...)
	if err != nil {
		return nil, fmt.Errorf("rpc: dial %s: %w", addr, err)
	}
	p.conns[addr] = conn
	p.lgr.Info("rpc: new connection", logger.F("addr", addr))
	return conn, nil
}

// CloseConn closes and evicts the connection to addr, if any.
func (p *Pool) CloseConn(addr string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	conn, ok := p.conns[addr]
	if !ok {
		return nil
	}
	delete(p.conns, addr)
	if err := conn.Close(); err != nil {
		return err
	}
	p.lgr.Info("rpc: connection closed", logger.F("addr", addr))
	return nil
}

// CloseAll closes every pooled connection.
func (p *Pool) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for addr, conn := range p.conns {
		if err := conn.Close(); err != nil {
			return err
		}
		delete(p.conns, addr)
	}
	p.lgr.Info("rpc: pool closed, all connections released")
	return nil
}

// GRPCTransport dials peers over gRPC, pooling connections by address.
// It implements the node package's Transport interface structurally.
type GRPCTransport struct {
	pool  *Pool
	space ring.Space
}

// NewGRPCTransport builds a transport for the given ring space.
func NewGRPCTransport(space ring.Space, lgr logger.Logger, opts ...grpc.DialOption) *GRPCTransport {
	return &GRPCTransport{pool: NewPool(lgr, opts...), space: space}
}

// Dial returns a Peer façade for addr, reusing a pooled connection. The
// return type is the node package's PeerClient interface, which Peer
// satisfies structurally.
func (t *GRPCTransport) Dial(addr string) (node.PeerClient, error) {
	conn, err := t.pool.GetConn(addr)
	if err != nil {
		return nil, err
	}
	return NewPeer(conn, addr, t.space), nil
}

// Close releases every pooled connection.
func (t *GRPCTransport) Close() error {
	return t.pool.CloseAll()
}
