package node

import (
	"context"

	"chorddht/internal/dhterr"
	"chorddht/internal/logger"
	"chorddht/internal/ring"
)

// Create starts a brand-new ring with this node as its only member: the
// successor is self and there is no predecessor. The node is
// immediately Active since there is nothing to stabilize against.
func (n *Node) Create() {
	n.setSuccessor(n.self)
	n.setSuccessorList([]ring.NodeInfo{n.self})
	n.clearPredecessor()
	n.setState(StateActive)
	n.lgr.Info("ring created", logger.FNode("self", n.self))
}

// Join attaches this node to an existing ring via a known bootstrap
// address: it asks the bootstrap node who owns its own id, adopts the
// answer as successor, seeds the successor list, and notifies the new
// successor immediately so key transfer happens at join time rather
// than waiting for the next stabilization tick.
func (n *Node) Join(ctx context.Context, bootstrapAddr string) error {
	n.setState(StateJoining)
	n.clearPredecessor()

	bootstrap, err := n.transport.Dial(bootstrapAddr)
	if err != nil {
		n.setState(StateInitial)
		return dhterr.ErrTransport
	}
	defer bootstrap.Close()

	succ, err := bootstrap.FindSuccessor(ctx, n.self.ID)
	if err != nil {
		n.setState(StateInitial)
		return err
	}
	n.setSuccessor(succ)

	if succ.Equal(n.self) {
		n.setSuccessorList([]ring.NodeInfo{n.self})
		n.setState(StateActive)
		return nil
	}

	peer, err := n.transport.Dial(succ.Address)
	if err != nil {
		n.setState(StateInitial)
		return dhterr.ErrTransport
	}
	defer peer.Close()

	n.setSuccessorList(n.buildSuccessorList(ctx, succ))

	if err := peer.Notify(ctx, n.self); err != nil {
		n.lgr.Warn("join: notify failed", logger.F("addr", succ.Address))
	}

	n.setState(StateActive)
	n.lgr.Info("joined ring", logger.FNode("self", n.self), logger.FNode("successor", succ))
	return nil
}

// Leave transitions the node out of the ring. A departing node should
// have already handed its keys to its successor via the normal
// stabilization/replication path; Leave only flips the lifecycle state
// so RPC handlers can reject further routing through a detached node.
func (n *Node) Leave() {
	n.setState(StateDetached)
}
