package bootstrap

import (
	"context"

	"chorddht/internal/ring"
)

// StaticBootstrap discovers a fixed, operator-supplied list of peers.
type StaticBootstrap struct {
	peers []string
}

// NewStaticBootstrap builds a bootstrap source over peers.
func NewStaticBootstrap(peers []string) *StaticBootstrap {
	return &StaticBootstrap{peers: peers}
}

// Discover returns the static list of peers.
func (s *StaticBootstrap) Discover(ctx context.Context) ([]string, error) {
	return s.peers, nil
}

// Register does nothing in static mode.
func (s *StaticBootstrap) Register(ctx context.Context, self ring.NodeInfo) error {
	return nil
}

// Deregister does nothing in static mode.
func (s *StaticBootstrap) Deregister(ctx context.Context, self ring.NodeInfo) error {
	return nil
}
