package node

import (
	"context"
	"errors"

	"chorddht/internal/dhterr"
	"chorddht/internal/logger"
	"chorddht/internal/ring"
	"chorddht/internal/store"
)

// Put answers the Put RPC: a local-only store write, no recursion or
// replication. Replication is orchestrated by ClientPut, which fans
// this call out to every node in the replica set.
func (n *Node) Put(ctx context.Context, key, value string) error {
	n.store.Put(key, value)
	return nil
}

// Get answers the Get RPC: a local-only store read.
func (n *Node) Get(ctx context.Context, key string) (string, bool, error) {
	value, found := n.store.Get(key)
	return value, found, nil
}

// Delete answers the Delete RPC: a local-only store removal.
func (n *Node) Delete(ctx context.Context, key string) (bool, error) {
	return n.store.Delete(key), nil
}

// TransferKeys answers the TransferKeys RPC: a bulk ingest of entries
// handed off during join or replication repair.
func (n *Node) TransferKeys(ctx context.Context, pairs []store.Entry) error {
	n.store.Ingest(pairs)
	return nil
}

// quorum is the number of acknowledging replicas required for a write,
// ceil((R+1)/2) over the R-member replica set (the owner plus its next
// R-1 successors). Reads do not use it.
func (n *Node) quorum() int {
	return (n.replication + 2) / 2
}

// locate resolves the owner of key: the node succeeding hash(key) on
// the ring. RoutingExhausted is never surfaced past this client
// boundary: a ring inconsistent enough to exhaust the hop cap looks
// like an unreachable ring to the caller.
func (n *Node) locate(ctx context.Context, key string) (ring.NodeInfo, error) {
	owner, err := n.FindSuccessor(ctx, n.space.Hash(key))
	if errors.Is(err, dhterr.ErrRoutingExhausted) {
		n.lgr.Warn("locate: routing exhausted, reporting unavailable", logger.F("key", key))
		return ring.NodeInfo{}, dhterr.ErrUnavailable
	}
	if err != nil {
		return ring.NodeInfo{}, err
	}
	return owner, nil
}

// replicaSet walks the chain of successors starting at owner, up to R-1
// hops, building the set of nodes that should hold a copy of any key
// owner is responsible for: the primary plus its next R-1 successors,
// R members total.
func (n *Node) replicaSet(ctx context.Context, owner ring.NodeInfo) []ring.NodeInfo {
	set := []ring.NodeInfo{owner}
	current := owner
	for i := 0; i < n.replication-1; i++ {
		next, err := n.getSuccessorOf(ctx, current)
		if err != nil || next.IsZero() || next.Equal(owner) {
			break
		}
		set = append(set, next)
		current = next
	}
	return set
}

func (n *Node) getSuccessorOf(ctx context.Context, target ring.NodeInfo) (ring.NodeInfo, error) {
	if target.Equal(n.self) {
		return n.GetSuccessor(ctx)
	}
	peer, err := n.transport.Dial(target.Address)
	if err != nil {
		return ring.NodeInfo{}, dhterr.ErrTransport
	}
	defer peer.Close()
	return peer.GetSuccessor(ctx)
}

func (n *Node) putOn(ctx context.Context, target ring.NodeInfo, key, value string) error {
	if target.Equal(n.self) {
		return n.Put(ctx, key, value)
	}
	peer, err := n.transport.Dial(target.Address)
	if err != nil {
		return dhterr.ErrTransport
	}
	defer peer.Close()
	return peer.PutLocal(ctx, key, value)
}

func (n *Node) getOn(ctx context.Context, target ring.NodeInfo, key string) (string, bool, error) {
	if target.Equal(n.self) {
		return n.Get(ctx, key)
	}
	peer, err := n.transport.Dial(target.Address)
	if err != nil {
		return "", false, dhterr.ErrTransport
	}
	defer peer.Close()
	return peer.GetLocal(ctx, key)
}

func (n *Node) deleteOn(ctx context.Context, target ring.NodeInfo, key string) (bool, error) {
	if target.Equal(n.self) {
		return n.Delete(ctx, key)
	}
	peer, err := n.transport.Dial(target.Address)
	if err != nil {
		return false, dhterr.ErrTransport
	}
	defer peer.Close()
	return peer.DeleteLocal(ctx, key)
}

// ClientPut writes key/value to the owner of key and its replica chain,
// succeeding once a quorum of the replica set has acknowledged.
func (n *Node) ClientPut(ctx context.Context, key, value string) error {
	if n.State() != StateActive {
		return dhterr.ErrNotJoined
	}
	owner, err := n.locate(ctx, key)
	if err != nil {
		return err
	}
	set := n.replicaSet(ctx, owner)
	acks := 0
	for _, target := range set {
		if err := n.putOn(ctx, target, key, value); err == nil {
			acks++
		}
	}
	if acks < n.quorum() {
		return dhterr.ErrQuorumFailed
	}
	return nil
}

// ClientGet probes the owner of key and its replica chain in order,
// returning the first value found. If every candidate reports the key
// absent, the result is NotFound; if every candidate is unreachable,
// the result is Unavailable instead.
func (n *Node) ClientGet(ctx context.Context, key string) (string, error) {
	if n.State() != StateActive {
		return "", dhterr.ErrNotJoined
	}
	owner, err := n.locate(ctx, key)
	if err != nil {
		return "", err
	}
	set := n.replicaSet(ctx, owner)
	reachable := 0
	for _, target := range set {
		value, found, err := n.getOn(ctx, target, key)
		if err != nil {
			continue
		}
		reachable++
		if found {
			return value, nil
		}
	}
	if reachable == 0 {
		return "", dhterr.ErrUnavailable
	}
	return "", dhterr.ErrNotFound
}

// ClientDelete issues delete_local to every candidate in the replica
// chain and aggregates the results. Per the lenient delete semantics
// this system adopts (see the design notes on the resurrection
// hazard), it succeeds as soon as any candidate reported the key
// present and deleted it; unreachable candidates are logged but never
// fail the operation, accepting transient inconsistency if an offline
// replica later resurrects the key.
func (n *Node) ClientDelete(ctx context.Context, key string) error {
	if n.State() != StateActive {
		return dhterr.ErrNotJoined
	}
	owner, err := n.locate(ctx, key)
	if err != nil {
		return err
	}
	set := n.replicaSet(ctx, owner)
	deletedAny := false
	for _, target := range set {
		found, err := n.deleteOn(ctx, target, key)
		if err != nil {
			n.lgr.Warn("client_delete: candidate unreachable", logger.FNode("target", target), logger.F("err", err.Error()))
			continue
		}
		if found {
			deletedAny = true
		}
	}
	if !deletedAny {
		return dhterr.ErrNotFound
	}
	return nil
}
