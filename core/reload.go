package core

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/jdelaire/shingram/core/policy"
)

// AllowlistLoader reads the current chat allowlist from path.
type AllowlistLoader func(path string) ([]int64, error)

// PolicyReloader swaps a running policy's allowlist when its source file
// changes. A failed load leaves the previous allowlist in place.
type PolicyReloader struct {
	policy *policy.Policy
	load   AllowlistLoader
	logger *slog.Logger

	mu      sync.Mutex
	current []int64
}

// NewPolicyReloader creates a reloader for p. initial is the allowlist p was
// built with.
func NewPolicyReloader(p *policy.Policy, load AllowlistLoader, initial []int64, logger *slog.Logger) *PolicyReloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &PolicyReloader{
		policy:  p,
		load:    load,
		logger:  logger,
		current: append([]int64(nil), initial...),
	}
}

// Reload reads the allowlist from path and applies it.
func (r *PolicyReloader) Reload(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids, err := r.load(path)
	if err != nil {
		return fmt.Errorf("reload allowlist from %s: %w", path, err)
	}
	if sameIDs(ids, r.current) {
		r.logger.Debug("allowlist unchanged", "path", path)
		return nil
	}

	r.policy.SetAllowed(ids)
	r.current = append([]int64(nil), ids...)
	r.logger.Info("allowlist reloaded", "path", path, "count", len(ids))
	return nil
}

// Allowed returns the allowlist most recently applied.
func (r *PolicyReloader) Allowed() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.current...)
}

func sameIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[int64]int, len(a))
	for _, id := range a {
		seen[id]++
	}
	for _, id := range b {
		if seen[id] == 0 {
			return false
		}
		seen[id]--
	}
	return true
}
