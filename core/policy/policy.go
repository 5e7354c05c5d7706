package policy

import (
	"fmt"
	"sync"
	"time"
)

const (
	maxSeenIDs = 10000
	pruneCount = 1000
)

// Config controls which events a Policy lets through.
type Config struct {
	// Allowed lists chat ids permitted to reach handlers. Empty allows all.
	Allowed []int64
	// RestrictUsers applies the allowlist to the user id of chatless
	// events such as inline queries.
	RestrictUsers bool
	// Freshness drops events older than this window. Zero disables the check.
	Freshness time.Duration
}

// Request carries the fields of an event that the policy inspects.
type Request struct {
	ChatID    int64
	UserID    int64
	UpdateID  int64
	Timestamp time.Time
}

// Policy gates events against a chat allowlist, a freshness window,
// and update_id deduplication.
type Policy struct {
	mu            sync.Mutex
	allowed       map[int64]bool
	restrictUsers bool
	freshness     time.Duration
	seen          map[int64]bool
	seenOrder     []int64
	now           func() time.Time
}

// New creates a Policy from cfg.
func New(cfg Config) *Policy {
	p := &Policy{
		restrictUsers: cfg.RestrictUsers,
		freshness:     cfg.Freshness,
		seen:          make(map[int64]bool),
		now:           time.Now,
	}
	p.allowed = toSet(cfg.Allowed)
	return p
}

// SetAllowed replaces the chat allowlist.
func (p *Policy) SetAllowed(ids []int64) {
	set := toSet(ids)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowed = set
}

// Authorize returns an error if the event must not be dispatched.
// A successful call records UpdateID, so a redelivered update is rejected.
func (p *Policy) Authorize(req Request) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.allowed) > 0 {
		switch {
		case req.ChatID != 0:
			if !p.allowed[req.ChatID] {
				return fmt.Errorf("unauthorized chat: %d", req.ChatID)
			}
		case p.restrictUsers:
			if !p.allowed[req.UserID] {
				return fmt.Errorf("unauthorized user: %d", req.UserID)
			}
		}
	}

	if p.freshness > 0 && !req.Timestamp.IsZero() {
		if age := p.now().Sub(req.Timestamp); age > p.freshness {
			return fmt.Errorf("stale update: %v old", age.Truncate(time.Second))
		}
	}

	if req.UpdateID == 0 {
		return nil
	}

	if p.seen[req.UpdateID] {
		return fmt.Errorf("duplicate update: %d", req.UpdateID)
	}

	// Prune oldest entries if at capacity.
	if len(p.seen) >= maxSeenIDs {
		for i := 0; i < pruneCount && i < len(p.seenOrder); i++ {
			delete(p.seen, p.seenOrder[i])
		}
		p.seenOrder = p.seenOrder[pruneCount:]
	}

	p.seen[req.UpdateID] = true
	p.seenOrder = append(p.seenOrder, req.UpdateID)

	return nil
}

func toSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
