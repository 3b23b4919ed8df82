package network

import (
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"overlaylab/internal/domain"
)

// breakerRegistry keeps one circuit breaker per node id, tripped by
// repeated ReportDead calls from routing code that hit a stale pointer.
// It is a cheap hint, not a liveness authority: the registry map in
// Simulator remains the only source of truth, so a breaker opening can
// only save a doomed call, never hide a live node.
type breakerRegistry struct {
	mu       sync.Mutex
	breakers map[domain.ID]*gobreaker.CircuitBreaker[struct{}]
}

func newBreakerRegistry() *breakerRegistry {
	return &breakerRegistry{breakers: make(map[domain.ID]*gobreaker.CircuitBreaker[struct{}])}
}

func (r *breakerRegistry) get(id domain.ID) *gobreaker.CircuitBreaker[struct{}] {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[id]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        id.String(),
		MaxRequests: 1,
		Interval:    0,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	r.breakers[id] = cb
	return cb
}

func (r *breakerRegistry) recordFailure(id domain.ID) {
	cb := r.get(id)
	_, _ = cb.Execute(func() (struct{}, error) {
		return struct{}{}, errDead
	})
}

func (r *breakerRegistry) isOpen(id domain.ID) bool {
	r.mu.Lock()
	cb, ok := r.breakers[id]
	r.mu.Unlock()
	if !ok {
		return false
	}
	return cb.State() == gobreaker.StateOpen
}

// reset drops any accumulated failure state for id, called on (re)register
// so a node rejoining the network starts with a closed breaker.
func (r *breakerRegistry) reset(id domain.ID) {
	r.mu.Lock()
	delete(r.breakers, id)
	r.mu.Unlock()
}

var errDead = errors.New("network: node unreachable")
