// Package node implements the Chord protocol engine: the per-node state
// machine, lookup, join, stabilization and replicated key-value
// operations built on the ring and finger-table packages.
package node

import (
	"context"
	"sync"

	"chorddht/internal/fingertable"
	"chorddht/internal/logger"
	"chorddht/internal/ring"
	"chorddht/internal/store"
)

// State is a node's position in its lifecycle.
type State int

const (
	StateInitial State = iota
	StateJoining
	StateActive
	StateDetached
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateJoining:
		return "joining"
	case StateActive:
		return "active"
	case StateDetached:
		return "detached"
	default:
		return "unknown"
	}
}

// PeerClient is the remote-peer façade the protocol engine calls
// through. The concrete implementation (internal/rpc.Peer) wraps each
// call with a per-call timeout; the node package only sees the logical
// operations.
type PeerClient interface {
	FindSuccessor(ctx context.Context, id ring.ID) (ring.NodeInfo, error)
	GetSuccessor(ctx context.Context) (ring.NodeInfo, error)
	GetPredecessor(ctx context.Context) (ring.NodeInfo, bool, error)
	Notify(ctx context.Context, self ring.NodeInfo) error
	ClosestPrecedingFinger(ctx context.Context, id ring.ID) (ring.NodeInfo, bool, error)
	Ping(ctx context.Context) error
	TransferKeys(ctx context.Context, pairs []store.Entry) error
	PutLocal(ctx context.Context, key, value string) error
	GetLocal(ctx context.Context, key string) (string, bool, error)
	DeleteLocal(ctx context.Context, key string) (bool, error)
	Address() string
	Close() error
}

// Transport dials a peer by address. The ring holds only remote
// addresses; peer proxies are resolved through the transport on demand
// and are not owned long-term by the node.
type Transport interface {
	Dial(addr string) (PeerClient, error)
}

// Node is one Chord ring member. The store protects itself, the finger
// table has its own lock, and successor, predecessor, successorList and
// nextFinger share the single lock mu. No two locks are ever held at
// once, and no lock is ever held across an RPC.
type Node struct {
	lgr   logger.Logger
	space ring.Space
	self  ring.NodeInfo

	replication  int
	succListSize int

	fingers   *fingertable.FingerTable
	store     store.Store
	transport Transport

	mu             sync.RWMutex
	successor      ring.NodeInfo
	predecessor    ring.NodeInfo
	hasPredecessor bool
	successorList  []ring.NodeInfo
	nextFinger     uint
	state          State
}

// New builds a node that has not yet joined a ring. Call Create or Join
// to bring it to the Active state.
func New(self ring.NodeInfo, space ring.Space, st store.Store, transport Transport, replication, succListSize int, opts ...Option) *Node {
	n := &Node{
		lgr:          &logger.NopLogger{},
		space:        space,
		self:         self,
		replication:  replication,
		succListSize: succListSize,
		store:        st,
		transport:    transport,
		state:        StateInitial,
	}
	for _, opt := range opts {
		opt(n)
	}
	n.fingers = fingertable.New(self, space, fingertable.WithLogger(n.lgr))
	return n
}

// Space returns the node's ring space, satisfying the rpc package's
// spaceProvider hook so it can parse decimal id strings off the wire.
func (n *Node) Space() ring.Space { return n.space }

// Self returns this node's own identity.
func (n *Node) Self() ring.NodeInfo { return n.self }

// State returns the node's current lifecycle state.
func (n *Node) State() State {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

func (n *Node) setState(s State) {
	n.mu.Lock()
	n.state = s
	n.mu.Unlock()
}

// Successor returns a snapshot of the current successor.
func (n *Node) Successor() ring.NodeInfo {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.successor
}

func (n *Node) setSuccessor(s ring.NodeInfo) {
	n.mu.Lock()
	n.successor = s
	n.mu.Unlock()
}

// Predecessor returns a snapshot of the current predecessor and whether
// one is set.
func (n *Node) Predecessor() (ring.NodeInfo, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.predecessor, n.hasPredecessor
}

func (n *Node) clearPredecessor() {
	n.mu.Lock()
	n.predecessor = ring.NodeInfo{}
	n.hasPredecessor = false
	n.mu.Unlock()
}

// SuccessorList returns a snapshot of the successor list. Its first
// element is always Successor().
func (n *Node) SuccessorList() []ring.NodeInfo {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]ring.NodeInfo, len(n.successorList))
	copy(out, n.successorList)
	return out
}

func (n *Node) setSuccessorList(list []ring.NodeInfo) {
	if len(list) > n.succListSize {
		list = list[:n.succListSize]
	}
	n.mu.Lock()
	n.successorList = list
	n.mu.Unlock()
}

// FingerTable exposes the finger table for diagnostics and tests.
func (n *Node) FingerTable() *fingertable.FingerTable { return n.fingers }

// Store exposes the local store for diagnostics and tests.
func (n *Node) Store() store.Store { return n.store }

// GetSuccessor answers the GetSuccessor RPC with a snapshot of the
// current successor.
func (n *Node) GetSuccessor(ctx context.Context) (ring.NodeInfo, error) {
	return n.Successor(), nil
}

// GetPredecessor answers the GetPredecessor RPC.
func (n *Node) GetPredecessor(ctx context.Context) (ring.NodeInfo, bool, error) {
	p, ok := n.Predecessor()
	return p, ok, nil
}

// Ping answers the Ping RPC. A reachable node always succeeds.
func (n *Node) Ping(ctx context.Context) error {
	return nil
}
