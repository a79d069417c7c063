package node

import (
	"context"
	"errors"

	"chorddht/internal/ctxutil"
	"chorddht/internal/dhterr"
	"chorddht/internal/logger"
	"chorddht/internal/ring"
)

// FindSuccessor resolves the node responsible for id, per the standard
// Chord lookup: if id falls in (self.id, successor.id] the successor is
// the answer; otherwise the query is forwarded to the closest
// preceding node found in the finger table, recursing across the
// network. The hop count is carried on ctx and capped at the ring's bit
// width — once exhausted the call fails with dhterr.ErrRoutingExhausted
// rather than looping forever on a corrupt or partitioned ring.
func (n *Node) FindSuccessor(ctx context.Context, id ring.ID) (ring.NodeInfo, error) {
	hops := ctxutil.HopsFromContext(ctx)
	if hops >= int(n.space.Bits) {
		return ring.NodeInfo{}, dhterr.ErrRoutingExhausted
	}

	succ := n.Successor()
	if succ.IsZero() || succ.Equal(n.self) {
		return n.self, nil
	}
	if n.space.InRange(id, n.self.ID, succ.ID, false, true) {
		return succ, nil
	}

	next, ok := n.fingers.ClosestPrecedingNode(id)
	if !ok || next.Equal(n.self) {
		return succ, nil
	}

	peer, err := n.transport.Dial(next.Address)
	if err != nil {
		n.lgr.Warn("find_successor: dial failed, falling back to successor", logger.F("addr", next.Address), logger.F("err", err.Error()))
		return succ, nil
	}
	defer peer.Close()

	nextCtx := ctxutil.WithHops(ctx, hops+1)
	result, err := peer.FindSuccessor(nextCtx, id)
	if err != nil {
		if errors.Is(err, dhterr.ErrRoutingExhausted) {
			return ring.NodeInfo{}, err
		}
		n.lgr.Warn("find_successor: forward failed, falling back to successor", logger.F("addr", next.Address), logger.F("err", err.Error()))
		return succ, nil
	}
	return result, nil
}

// ClosestPrecedingFinger answers the ClosestPrecedingFinger RPC with a
// pure local finger-table scan; it never recurses or blocks on the
// network.
func (n *Node) ClosestPrecedingFinger(ctx context.Context, id ring.ID) (ring.NodeInfo, bool, error) {
	found, ok := n.fingers.ClosestPrecedingNode(id)
	return found, ok, nil
}
