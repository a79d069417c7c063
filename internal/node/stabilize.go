package node

import (
	"context"
	"sync"
	"time"

	"chorddht/internal/logger"
	"chorddht/internal/ring"
)

// Scheduler runs the four stabilization tasks — stabilize, notify,
// fix_fingers, check_predecessor — in fixed order on every tick of a
// single goroutine, matching the one-scheduler design: no task ever
// runs concurrently with another on the same node.
type Scheduler struct {
	n        *Node
	interval time.Duration
	stop     chan struct{}
	wg       sync.WaitGroup
}

// StartStabilizer launches the periodic loop and returns a handle that
// can be used to stop it.
func (n *Node) StartStabilizer(interval time.Duration) *Scheduler {
	s := &Scheduler{n: n, interval: interval, stop: make(chan struct{})}
	s.wg.Add(1)
	go s.run()
	return s
}

// Stop halts the scheduler and waits for the in-flight tick to finish.
func (s *Scheduler) Stop() {
	close(s.stop)
	s.wg.Wait()
}

func (s *Scheduler) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()
	s.n.stabilize(ctx)
	s.n.notifyTask(ctx)
	s.n.fixFingers(ctx)
	s.n.checkPredecessor(ctx)
}

// buildSuccessorList walks successor pointers starting at head, via
// live GetSuccessor RPCs, up to succListSize entries total. It stops
// early if the chain wraps back to self or to head, matching the join
// procedure's "stop early if the ring wraps back to self".
func (n *Node) buildSuccessorList(ctx context.Context, head ring.NodeInfo) []ring.NodeInfo {
	list := []ring.NodeInfo{head}
	current := head
	for len(list) < n.succListSize {
		next, err := n.getSuccessorOf(ctx, current)
		if err != nil || next.IsZero() || next.Equal(n.self) || next.Equal(head) {
			break
		}
		duplicate := false
		for _, have := range list {
			if have.Equal(next) {
				duplicate = true
				break
			}
		}
		if duplicate {
			break
		}
		list = append(list, next)
		current = next
	}
	return list
}

// stabilize asks the current successor for its predecessor, adopting it
// as the new successor if it lies strictly between self and the old
// successor, then refreshes the successor list by walking the (possibly
// new) successor's own successor chain. If the successor is unreachable
// it fails over to the next live entry of successorList; if every entry
// is unreachable the ring has fragmented and self becomes its own
// successor, matching a one-node ring.
func (n *Node) stabilize(ctx context.Context) {
	succ := n.Successor()
	if succ.IsZero() || succ.Equal(n.self) {
		return
	}

	peer, err := n.transport.Dial(succ.Address)
	if err != nil {
		n.failoverSuccessor(ctx, succ)
		return
	}
	defer peer.Close()

	x, ok, gpErr := peer.GetPredecessor(ctx)
	if gpErr != nil {
		n.failoverSuccessor(ctx, succ)
		return
	}
	if ok && !x.IsZero() && n.space.InRange(x.ID, n.self.ID, succ.ID, false, false) {
		n.setSuccessor(x)
		succ = x
		peer.Close()
		peer, err = n.transport.Dial(succ.Address)
		if err != nil {
			n.failoverSuccessor(ctx, succ)
			return
		}
		defer peer.Close()
	}

	n.setSuccessorList(n.buildSuccessorList(ctx, succ))
}

// failoverSuccessor is invoked when the current successor cannot be
// reached. It promotes the next live entry of successorList; if none
// answer, the ring has fragmented down to this node alone.
func (n *Node) failoverSuccessor(ctx context.Context, dead ring.NodeInfo) {
	n.lgr.Warn("stabilize: successor unreachable, failing over", logger.FNode("dead", dead))
	for _, candidate := range n.SuccessorList() {
		if candidate.Equal(dead) || candidate.Equal(n.self) {
			continue
		}
		peer, err := n.transport.Dial(candidate.Address)
		if err != nil {
			continue
		}
		pingErr := peer.Ping(ctx)
		peer.Close()
		if pingErr != nil {
			continue
		}
		n.setSuccessor(candidate)
		n.setSuccessorList(n.buildSuccessorList(ctx, candidate))
		n.lgr.Info("stabilize: failed over to new successor", logger.FNode("successor", candidate))
		return
	}
	n.setSuccessor(n.self)
	n.setSuccessorList([]ring.NodeInfo{n.self})
	n.lgr.Error("stabilize: ring fragmented, no live successor remains")
}

// notifyTask tells the current successor that this node believes itself
// to be its predecessor, giving the successor the chance to adopt it.
func (n *Node) notifyTask(ctx context.Context) {
	succ := n.Successor()
	if succ.IsZero() || succ.Equal(n.self) {
		return
	}
	peer, err := n.transport.Dial(succ.Address)
	if err != nil {
		return
	}
	defer peer.Close()
	if err := peer.Notify(ctx, n.self); err != nil {
		n.lgr.Warn("notify: failed", logger.F("addr", succ.Address))
	}
}

// Notify answers the Notify RPC: a candidate node claims to be this
// node's predecessor. It is adopted if there is no predecessor yet, or
// if it lies strictly between the current predecessor and self. On
// adoption, keys in (old_predecessor, candidate.id] are handed off to
// the candidate asynchronously, since the candidate is now responsible
// for them.
func (n *Node) Notify(ctx context.Context, candidate ring.NodeInfo) error {
	if candidate.IsZero() || candidate.Equal(n.self) {
		return nil
	}

	n.mu.Lock()
	hadPred := n.hasPredecessor
	oldPred := n.predecessor
	adopt := !hadPred || n.space.InRange(candidate.ID, oldPred.ID, n.self.ID, false, false)
	if adopt {
		n.predecessor = candidate
		n.hasPredecessor = true
	}
	n.mu.Unlock()

	if adopt {
		n.donateKeys(candidate, hadPred, oldPred)
	}
	return nil
}

// donateKeys pushes the keys the candidate predecessor is now
// responsible for. When there was no prior predecessor, self previously
// owned the entire ring, so the whole store is handed off.
func (n *Node) donateKeys(candidate ring.NodeInfo, hadPred bool, oldPred ring.NodeInfo) {
	from := candidate.ID
	if hadPred {
		from = oldPred.ID
	}
	entries := n.store.ExtractRange(from, candidate.ID)
	if len(entries) == 0 {
		return
	}
	go func() {
		peer, err := n.transport.Dial(candidate.Address)
		if err != nil {
			n.lgr.Warn("donate: dial failed", logger.F("addr", candidate.Address))
			return
		}
		defer peer.Close()
		if err := peer.TransferKeys(context.Background(), entries); err != nil {
			n.lgr.Warn("donate: transfer failed", logger.F("addr", candidate.Address), logger.F("err", err.Error()))
		}
	}()
}

// fixFingers refreshes one finger-table slot per tick, cycling through
// all M slots over time rather than recomputing the whole table at
// once.
func (n *Node) fixFingers(ctx context.Context) {
	n.mu.Lock()
	i := n.nextFinger
	n.nextFinger = (n.nextFinger + 1) % n.space.Bits
	n.mu.Unlock()

	start := n.fingers.Start(i)
	found, err := n.FindSuccessor(ctx, start)
	if err != nil {
		n.lgr.Warn("fix_fingers: lookup failed", logger.F("slot", int(i)))
		return
	}
	n.fingers.Set(i, found)
}

// checkPredecessor pings the predecessor and clears it if unreachable,
// so a dead predecessor does not linger and block the range it once
// guarded.
func (n *Node) checkPredecessor(ctx context.Context) {
	pred, ok := n.Predecessor()
	if !ok || pred.IsZero() {
		return
	}
	peer, err := n.transport.Dial(pred.Address)
	if err != nil {
		n.clearPredecessor()
		return
	}
	defer peer.Close()
	if err := peer.Ping(ctx); err != nil {
		n.clearPredecessor()
	}
}
