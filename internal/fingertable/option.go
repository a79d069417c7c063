package fingertable

import "chorddht/internal/logger"

// Option configures a FingerTable at construction time.
type Option func(*FingerTable)

// WithLogger sets the logger used by the finger table.
func WithLogger(l logger.Logger) Option {
	return func(ft *FingerTable) {
		ft.lgr = l
	}
}
