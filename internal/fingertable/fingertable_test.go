package fingertable

import (
	"testing"

	"chorddht/internal/ring"
)

func TestStartWraps(t *testing.T) {
	space := ring.NewSpace(4)
	self := ring.NodeInfo{ID: space.FromUint64(15)}
	ft := New(self, space)
	if got := ft.Start(1); !got.Equal(space.FromUint64(1)) {
		t.Fatalf("Start(1) = %s, want 1", got)
	}
}

func TestGetSetEmptySlot(t *testing.T) {
	space := ring.NewSpace(8)
	self := ring.NodeInfo{ID: space.FromUint64(1), Address: "n1"}
	ft := New(self, space)
	if _, ok := ft.Get(3); ok {
		t.Fatalf("fresh finger table should have empty slots")
	}
	other := ring.NodeInfo{ID: space.FromUint64(50), Address: "n2"}
	ft.Set(3, other)
	got, ok := ft.Get(3)
	if !ok || !got.Equal(other) {
		t.Fatalf("Get(3) = %+v, %v, want %+v, true", got, ok, other)
	}
}

func TestClosestPrecedingNode(t *testing.T) {
	space := ring.NewSpace(8)
	self := ring.NodeInfo{ID: space.FromUint64(0), Address: "self"}
	ft := New(self, space)

	n10 := ring.NodeInfo{ID: space.FromUint64(10), Address: "n10"}
	n100 := ring.NodeInfo{ID: space.FromUint64(100), Address: "n100"}
	n200 := ring.NodeInfo{ID: space.FromUint64(200), Address: "n200"}
	ft.Set(3, n10)   // start(3) = 8
	ft.Set(6, n100)  // start(6) = 64
	ft.Set(7, n200)  // start(7) = 128

	got, ok := ft.ClosestPrecedingNode(space.FromUint64(150))
	if !ok || !got.Equal(n100) {
		t.Fatalf("ClosestPrecedingNode(150) = %+v, %v, want n100", got, ok)
	}

	got, ok = ft.ClosestPrecedingNode(space.FromUint64(5))
	if ok {
		t.Fatalf("ClosestPrecedingNode(5) should find nothing preceding self in (0,5), got %+v", got)
	}
}

func TestClosestPrecedingNodeAllEmpty(t *testing.T) {
	space := ring.NewSpace(8)
	self := ring.NodeInfo{ID: space.FromUint64(0)}
	ft := New(self, space)
	if _, ok := ft.ClosestPrecedingNode(space.FromUint64(42)); ok {
		t.Fatalf("empty finger table should report no closest preceding node")
	}
}
