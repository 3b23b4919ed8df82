package prefixnet

import "overlaylab/internal/logger"

// Option customizes a Node at construction time.
type Option func(*Node)

// WithLogger attaches a structured logger to the node.
func WithLogger(l logger.Logger) Option {
	return func(n *Node) {
		if l != nil {
			n.lgr = l
		}
	}
}
