package core

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// Wildcard is the registration key whose handlers observe every event.
const Wildcard = "*"

// Handler processes a dispatched event.
type Handler func(ctx context.Context, ev Event) error

// Router maps event keys ("type", "type:name" or "*") to ordered handler lists.
type Router struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{handlers: make(map[string][]Handler)}
}

// On appends h to the handlers for key and returns h unchanged.
// Nil handlers are ignored.
func (r *Router) On(key string, h Handler) Handler {
	if h == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[key] = append(r.handlers[key], h)
	return h
}

// Handlers resolves the handlers for ev in invocation order: wildcard
// handlers first, then "type:name" handlers if any exist, otherwise the bare
// "type" handlers. Specific and type handlers never both apply.
func (r *Router) Handlers(ev Event) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Handler
	out = append(out, r.handlers[Wildcard]...)

	if ev.Name != "" {
		if specific := r.handlers[string(ev.Type)+":"+ev.Name]; len(specific) > 0 {
			return append(out, specific...)
		}
	}
	return append(out, r.handlers[string(ev.Type)]...)
}

// Dispatch invokes every resolved handler in order. A handler error does not
// stop later handlers; all errors are joined in the result. Panics are not
// recovered here (see Dispatcher).
func (r *Router) Dispatch(ctx context.Context, ev Event) error {
	var errs []error
	for _, h := range r.Handlers(ev) {
		if err := h(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Keys returns all registered keys sorted alphabetically.
func (r *Router) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.handlers))
	for key := range r.handlers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
