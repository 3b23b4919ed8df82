// Package network implements the in-process simulation substrate shared
// by every overlay: a node registry resolving ids to live references, and
// an optional virtual clock used to model per-hop RTT latency (§4.B).
package network

import (
	"sync"

	"overlaylab/internal/domain"
	"overlaylab/internal/logger"
	"overlaylab/internal/overlay"
)

// Simulator is the single shared substrate a benchmark harness constructs
// once and hands to every node instance of whichever protocol it is
// driving. All operations are synchronous and non-failing: absence is
// represented by a zero value, never an error (§4.B, §7).
type Simulator struct {
	lgr logger.Logger

	mu    sync.RWMutex
	nodes map[domain.ID]overlay.Node

	perHopDelay float64
	virtualTime float64

	breakers *breakerRegistry
}

// Option customizes a Simulator at construction time.
type Option func(*Simulator)

// WithLogger attaches a structured logger to the simulator.
func WithLogger(l logger.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.lgr = l
		}
	}
}

// New creates a Simulator. perHopDelay is the virtual-time cost charged
// once per lookup round by any overlay that issues round-structured
// queries (XOR); it is zero (no latency modelling) by default.
func New(perHopDelay float64, opts ...Option) *Simulator {
	s := &Simulator{
		nodes:       make(map[domain.ID]overlay.Node),
		perHopDelay: perHopDelay,
		lgr:         &logger.NopLogger{},
		breakers:    newBreakerRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lgr.Debug("network simulator initialized", logger.F("per_hop_delay", perHopDelay))
	return s
}

// Register adds node to the registry, making it reachable via GetNode.
func (s *Simulator) Register(node overlay.Node) {
	s.mu.Lock()
	s.nodes[node.ID()] = node
	s.mu.Unlock()
	s.breakers.reset(node.ID())
	s.lgr.Debug("node registered", logger.F("id", node.ID().String()))
}

// Unregister removes the node with the given id from the registry, if
// present. It is a no-op otherwise.
func (s *Simulator) Unregister(id domain.ID) {
	s.mu.Lock()
	delete(s.nodes, id)
	s.mu.Unlock()
	s.lgr.Debug("node unregistered", logger.F("id", id.String()))
}

// GetNode returns the live node with the given id, or (nil, false) if no
// such node is currently registered.
func (s *Simulator) GetNode(id domain.ID) (overlay.Node, bool) {
	s.mu.RLock()
	n, ok := s.nodes[id]
	s.mu.RUnlock()
	return n, ok
}

// NodeCount returns the number of currently registered nodes.
func (s *Simulator) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// LiveIDs returns a snapshot of every currently registered node id, used
// by ground-truth oracles and test harnesses. The slice is unsorted.
func (s *Simulator) LiveIDs() []domain.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ID, 0, len(s.nodes))
	for id := range s.nodes {
		out = append(out, id)
	}
	return out
}

// VirtualTime returns the simulator's current virtual clock reading.
func (s *Simulator) VirtualTime() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.virtualTime
}

// PerHopDelay returns the configured per-round latency cost.
func (s *Simulator) PerHopDelay() float64 {
	return s.perHopDelay
}

// AdvanceTime adds PerHopDelay to the virtual clock. Overlays call this
// once per lookup round when PerHopDelay > 0 (§4.B, §5); it never blocks
// and models no real wait.
func (s *Simulator) AdvanceTime() {
	if s.perHopDelay <= 0 {
		return
	}
	s.mu.Lock()
	s.virtualTime += s.perHopDelay
	s.mu.Unlock()
}

// ReportDead lets a routing protocol flag that a call to id failed to
// reach a live node. Repeated reports trip a per-id circuit breaker
// (see breaker.go) that Stabilize passes may consult as a cheap
// pre-filter, but GetNode remains the sole source of truth for liveness:
// a breaker can only short-circuit a call that would fail anyway.
func (s *Simulator) ReportDead(id domain.ID) {
	s.breakers.recordFailure(id)
}

// LikelyDead reports whether id has recently failed enough calls that its
// breaker is open. False negatives are expected (a fresh id always
// reports false); false positives cannot happen because the breaker only
// opens after observed failures through ReportDead.
func (s *Simulator) LikelyDead(id domain.ID) bool {
	return s.breakers.isOpen(id)
}
