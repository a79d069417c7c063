package node

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"chorddht/internal/logger"
	"chorddht/internal/ring"
	"chorddht/internal/store"

	"google.golang.org/grpc/metadata"
)

// registry is an in-process directory of live nodes keyed by address,
// standing in for the external RPC transport the way the Chord
// reference implementations in the example pack isolate their protocol
// tests from a real network. Removing an address simulates that node
// going dark: Dial on a removed address fails exactly like a transport
// timeout would.
type registry struct {
	mu    sync.RWMutex
	nodes map[string]*Node
}

func newRegistry() *registry {
	return &registry{nodes: make(map[string]*Node)}
}

func (r *registry) add(n *Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[n.Self().Address] = n
}

func (r *registry) kill(addr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.nodes, addr)
}

func (r *registry) lookup(addr string) (*Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[addr]
	return n, ok
}

// inMemTransport implements the node package's Transport interface
// over the registry: a "dial" is a map lookup, and every call runs
// synchronously in the caller's goroutine.
type inMemTransport struct {
	reg *registry
}

func (t *inMemTransport) Dial(addr string) (PeerClient, error) {
	target, ok := t.reg.lookup(addr)
	if !ok {
		return nil, fmt.Errorf("inmem: no node listening on %s", addr)
	}
	return &inMemPeer{addr: addr, target: target}, nil
}

// inMemPeer adapts a *Node into the PeerClient interface without any
// real wire encoding, the way a local-transport test double calls
// straight through to the callee's handlers.
type inMemPeer struct {
	addr   string
	target *Node
}

// toIncoming mirrors what a real gRPC server does to a context carrying
// outgoing metadata: FindSuccessor's hop count travels via
// ctxutil.WithHops, which appends to the *outgoing* side, so an
// in-process callee must see it on the *incoming* side to enforce the
// hop cap across hops. Like a server-side context, the result carries
// no outgoing metadata, so the callee's own WithHops starts clean.
func toIncoming(ctx context.Context) context.Context {
	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		return ctx
	}
	return metadata.NewIncomingContext(metadata.NewOutgoingContext(ctx, metadata.MD{}), md)
}

func (p *inMemPeer) FindSuccessor(ctx context.Context, id ring.ID) (ring.NodeInfo, error) {
	return p.target.FindSuccessor(toIncoming(ctx), id)
}

func (p *inMemPeer) GetSuccessor(ctx context.Context) (ring.NodeInfo, error) {
	return p.target.GetSuccessor(ctx)
}

func (p *inMemPeer) GetPredecessor(ctx context.Context) (ring.NodeInfo, bool, error) {
	return p.target.GetPredecessor(ctx)
}

func (p *inMemPeer) Notify(ctx context.Context, self ring.NodeInfo) error {
	return p.target.Notify(ctx, self)
}

func (p *inMemPeer) ClosestPrecedingFinger(ctx context.Context, id ring.ID) (ring.NodeInfo, bool, error) {
	return p.target.ClosestPrecedingFinger(ctx, id)
}

func (p *inMemPeer) Ping(ctx context.Context) error {
	return p.target.Ping(ctx)
}

func (p *inMemPeer) TransferKeys(ctx context.Context, pairs []store.Entry) error {
	return p.target.TransferKeys(ctx, pairs)
}

func (p *inMemPeer) PutLocal(ctx context.Context, key, value string) error {
	return p.target.Put(ctx, key, value)
}

func (p *inMemPeer) GetLocal(ctx context.Context, key string) (string, bool, error) {
	return p.target.Get(ctx, key)
}

func (p *inMemPeer) DeleteLocal(ctx context.Context, key string) (bool, error) {
	return p.target.Delete(ctx, key)
}

func (p *inMemPeer) Address() string { return p.addr }

func (p *inMemPeer) Close() error { return nil }

// testRing builds count nodes sharing one registry, all addressed
// "nodeN", the first creating a fresh ring and the rest joining through
// it in turn.
func testRing(t *testing.T, bits uint, replication, succListSize, count int) ([]*Node, *registry) {
	t.Helper()
	space := ring.NewSpace(bits)
	reg := newRegistry()
	nodes := make([]*Node, 0, count)

	for i := 0; i < count; i++ {
		addr := fmt.Sprintf("node%d", i)
		self := ring.NodeInfo{ID: space.Hash(addr), Address: addr}
		st := store.NewMemoryStore(&logger.NopLogger{}, space)
		n := New(self, space, st, &inMemTransport{reg: reg}, replication, succListSize)
		reg.add(n)
		if i == 0 {
			n.Create()
		} else {
			if err := n.Join(context.Background(), nodes[0].Self().Address); err != nil {
				t.Fatalf("node%d failed to join: %v", i, err)
			}
		}
		nodes = append(nodes, n)
	}
	return nodes, reg
}

// converge runs the stabilization tasks for every node, in order, for
// the given number of rounds, letting successors, predecessors and
// finger tables settle the way the background scheduler would over
// several ticks.
func converge(nodes []*Node, rounds int) {
	ctx := context.Background()
	for r := 0; r < rounds; r++ {
		for _, n := range nodes {
			n.stabilize(ctx)
			n.notifyTask(ctx)
		}
		for _, n := range nodes {
			for i := 0; i < int(n.space.Bits); i++ {
				n.fixFingers(ctx)
			}
		}
		for _, n := range nodes {
			n.checkPredecessor(ctx)
		}
	}
}
