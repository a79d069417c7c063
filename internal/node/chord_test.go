package node

import (
	"context"
	"errors"
	"testing"

	"chorddht/internal/dhterr"
)

func TestSingleNodePutGetDelete(t *testing.T) {
	nodes, _ := testRing(t, 16, 3, 3, 1)
	a := nodes[0]
	ctx := context.Background()

	if err := a.ClientPut(ctx, "foo", "bar"); err != nil {
		t.Fatalf("ClientPut: %v", err)
	}
	value, err := a.ClientGet(ctx, "foo")
	if err != nil || value != "bar" {
		t.Fatalf("ClientGet = %q, %v, want bar, nil", value, err)
	}
	if err := a.ClientDelete(ctx, "foo"); err != nil {
		t.Fatalf("ClientDelete: %v", err)
	}
	if _, err := a.ClientGet(ctx, "foo"); !errors.Is(err, dhterr.ErrNotFound) {
		t.Fatalf("ClientGet after delete = %v, want NotFound", err)
	}
}

func TestThreeNodeJoinConverges(t *testing.T) {
	nodes, _ := testRing(t, 16, 3, 3, 3)
	converge(nodes, 5)

	for _, n := range nodes {
		succ := n.Successor()
		peer, err := n.transport.Dial(succ.Address)
		if err != nil {
			t.Fatalf("dial %s: %v", succ.Address, err)
		}
		pred, ok, err := peer.GetPredecessor(context.Background())
		if err != nil || !ok || !pred.Equal(n.Self()) {
			t.Fatalf("%s.successor.predecessor = %+v, %v, %v, want self", n.Self().Address, pred, ok, err)
		}
	}

	if err := nodes[0].ClientPut(context.Background(), "alpha", "1"); err != nil {
		t.Fatalf("ClientPut: %v", err)
	}
	present := 0
	for _, n := range nodes {
		if _, found := n.Store().Get("alpha"); found {
			present++
		}
	}
	if present != 3 {
		t.Fatalf("key present on %d nodes, want 3", present)
	}
}

// TestReplicaSetSizeMatchesReplicationFactor guards against a
// replicaSet off-by-one: with a 5-node ring and R=3 a key must land on
// exactly 3 nodes (the primary plus its next R-1 successors), never R+1,
// per spec §3's "k is present on n and on the next R−1 distinct live
// successors of n."
func TestReplicaSetSizeMatchesReplicationFactor(t *testing.T) {
	nodes, _ := testRing(t, 16, 3, 3, 5)
	converge(nodes, 8)
	ctx := context.Background()

	if err := nodes[0].ClientPut(ctx, "beta", "2"); err != nil {
		t.Fatalf("ClientPut: %v", err)
	}
	present := 0
	for _, n := range nodes {
		if _, found := n.Store().Get("beta"); found {
			present++
		}
	}
	if present != 3 {
		t.Fatalf("key present on %d nodes, want exactly 3 (R)", present)
	}
}

func TestLookupFromNonOwner(t *testing.T) {
	nodes, _ := testRing(t, 16, 3, 3, 5)
	converge(nodes, 8)

	ctx := context.Background()
	if err := nodes[0].ClientPut(ctx, "k", "v"); err != nil {
		t.Fatalf("ClientPut: %v", err)
	}

	value, err := nodes[4].ClientGet(ctx, "k")
	if err != nil || value != "v" {
		t.Fatalf("ClientGet @ non-owner = %q, %v, want v, nil", value, err)
	}
}

func TestPrimaryFailureGetSurvives(t *testing.T) {
	nodes, reg := testRing(t, 16, 3, 3, 5)
	converge(nodes, 8)

	ctx := context.Background()
	if err := nodes[0].ClientPut(ctx, "x", "v"); err != nil {
		t.Fatalf("ClientPut: %v", err)
	}
	owner, err := nodes[0].FindSuccessor(ctx, nodes[0].space.Hash("x"))
	if err != nil {
		t.Fatalf("FindSuccessor: %v", err)
	}

	reg.kill(owner.Address)
	var survivor *Node
	for _, n := range nodes {
		if n.Self().Address != owner.Address {
			survivor = n
			break
		}
	}
	converge(nodes, 3)

	value, err := survivor.ClientGet(ctx, "x")
	if err != nil || value != "v" {
		t.Fatalf("ClientGet after primary failure = %q, %v, want v, nil", value, err)
	}
}

// TestQuorumFailureOnPut builds a 3-node ring with R=3 so the replica
// chain for any key spans every node, then kills replicas one at a
// time: quorum is ceil((3+1)/2)=2, so the PUT succeeds with 2 nodes
// alive and fails once only the owner itself remains.
func TestQuorumFailureOnPut(t *testing.T) {
	nodes, reg := testRing(t, 16, 3, 3, 3)
	converge(nodes, 8)
	ctx := context.Background()

	owner, err := nodes[0].FindSuccessor(ctx, nodes[0].space.Hash("y"))
	if err != nil {
		t.Fatalf("FindSuccessor: %v", err)
	}
	var ownerNode *Node
	var others []*Node
	for _, n := range nodes {
		if n.Self().Equal(owner) {
			ownerNode = n
		} else {
			others = append(others, n)
		}
	}
	if ownerNode == nil || len(others) != 2 {
		t.Fatalf("expected to locate owner and 2 other replicas, got owner=%v others=%d", ownerNode != nil, len(others))
	}

	reg.kill(others[0].Self().Address)
	converge([]*Node{ownerNode}, 3)
	if err := ownerNode.ClientPut(ctx, "y", "v"); err != nil {
		t.Fatalf("ClientPut with 2 live nodes = %v, want success (quorum=2)", err)
	}

	reg.kill(others[1].Self().Address)
	converge([]*Node{ownerNode}, 3)
	if err := ownerNode.ClientPut(ctx, "z", "v"); !errors.Is(err, dhterr.ErrQuorumFailed) {
		t.Fatalf("ClientPut with 1 live node = %v, want QuorumFailed", err)
	}
}

func TestDeleteIdempotence(t *testing.T) {
	nodes, _ := testRing(t, 16, 3, 3, 3)
	converge(nodes, 5)
	ctx := context.Background()

	if err := nodes[0].ClientPut(ctx, "x", "v"); err != nil {
		t.Fatalf("ClientPut: %v", err)
	}
	if err := nodes[0].ClientDelete(ctx, "x"); err != nil {
		t.Fatalf("first ClientDelete: %v", err)
	}

	err := nodes[0].ClientDelete(ctx, "x")
	if err != nil && !errors.Is(err, dhterr.ErrNotFound) {
		t.Fatalf("second ClientDelete = %v, want nil or NotFound", err)
	}
	for _, n := range nodes {
		if _, found := n.Store().Get("x"); found {
			t.Fatalf("%s still holds deleted key", n.Self().Address)
		}
	}
}

func TestNotJoinedRejectsClientOps(t *testing.T) {
	space := uint(16)
	nodes, _ := testRing(t, space, 3, 3, 1)
	n := nodes[0]
	n.setState(StateInitial)

	if _, err := n.ClientGet(context.Background(), "k"); !errors.Is(err, dhterr.ErrNotJoined) {
		t.Fatalf("ClientGet before join = %v, want NotJoined", err)
	}
}
