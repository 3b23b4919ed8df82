// Package lookup defines the result record every overlay's Lookup
// operation returns (§4.C).
package lookup

import "overlaylab/internal/domain"

// Result is the outcome of a single key lookup.
//
// Path begins with the initiator's id and appends the id of each
// visited next hop in order. HopCount equals len(Path)-1 for RING and
// PREFIX (one hop per intermediate node) and equals the number of query
// rounds for XOR, where a single round may contact up to alpha nodes.
type Result struct {
	Key             domain.ID
	ResponsibleNode domain.ID
	HopCount        int
	Path            []domain.ID
	Success         bool
}

// New builds a Result, copying path so the caller's backing slice can be
// reused or mutated afterwards without affecting the returned record.
func New(key, responsible domain.ID, hops int, path []domain.ID, success bool) Result {
	cp := make([]domain.ID, len(path))
	copy(cp, path)
	return Result{
		Key:             key,
		ResponsibleNode: responsible,
		HopCount:        hops,
		Path:            cp,
		Success:         success,
	}
}

// Failed builds a Result with Success=false, used when a lookup exceeds
// its hop cap.
func Failed(key domain.ID, hops int, path []domain.ID) Result {
	return New(key, 0, hops, path, false)
}
