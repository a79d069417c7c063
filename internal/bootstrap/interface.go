package bootstrap

import (
	"context"

	"chorddht/internal/ring"
)

// Bootstrap discovers existing ring members to join and, for
// implementations that require it, publishes this node's own presence.
type Bootstrap interface {
	// Discover returns a list of known peer addresses.
	Discover(ctx context.Context) ([]string, error)
	// Register advertises self, if the implementation needs to (e.g. Route53).
	Register(ctx context.Context, self ring.NodeInfo) error
	// Deregister withdraws self's advertisement, if any.
	Deregister(ctx context.Context, self ring.NodeInfo) error
}
