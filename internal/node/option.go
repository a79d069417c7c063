package node

import "chorddht/internal/logger"

// Option configures a Node at construction time.
type Option func(*Node)

// WithLogger attaches a structured logger.
func WithLogger(lgr logger.Logger) Option {
	return func(n *Node) {
		n.lgr = lgr
	}
}
