package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jdelaire/shingram/core/policy"
)

const defaultHandlerTimeout = 30 * time.Second

// Dispatcher feeds events from any transport into a Router. It gates events
// through an optional Policy and isolates handler failures: an error or panic
// in one handler is logged and the remaining handlers still run.
//
// Dispatches from different transports run concurrently unless the
// dispatcher was built WithSerialDispatch, in which case handlers never run
// concurrently with each other.
type Dispatcher struct {
	router  *Router
	policy  *policy.Policy
	logger  *slog.Logger
	timeout time.Duration
	serial  bool
	mu      sync.Mutex
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithPolicy drops events the policy does not authorize.
func WithPolicy(p *policy.Policy) DispatcherOption {
	return func(d *Dispatcher) { d.policy = p }
}

// WithSerialDispatch serializes all dispatches behind one lock, for handler
// code that is not safe to run concurrently.
func WithSerialDispatch() DispatcherOption {
	return func(d *Dispatcher) { d.serial = true }
}

// WithHandlerTimeout bounds the context handed to handlers for one dispatch.
func WithHandlerTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// NewDispatcher creates a Dispatcher over router.
func NewDispatcher(router *Router, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		router:  router,
		logger:  logger,
		timeout: defaultHandlerTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HandleUpdate normalizes raw and dispatches the resulting event.
// Unrecognized updates are skipped. It reports whether an event reached
// the handler stage.
func (d *Dispatcher) HandleUpdate(ctx context.Context, raw RawUpdate) bool {
	ev, ok := Normalize(raw)
	if !ok {
		d.logger.Debug("skipping unsupported update", "update_id", updateID(raw))
		return false
	}
	return d.Dispatch(ctx, ev)
}

// Dispatch delivers ev to every handler the router resolves for it.
// It returns false when the policy rejected the event.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) bool {
	if d.policy != nil {
		err := d.policy.Authorize(policy.Request{
			ChatID:    ev.ChatID,
			UserID:    ev.UserID,
			UpdateID:  ev.UpdateID,
			Timestamp: ev.Date,
		})
		if err != nil {
			d.logger.Debug("event rejected by policy", "key", ev.Key(), "chat_id", ev.ChatID, "error", err)
			return false
		}
	}

	handlers := d.router.Handlers(ev)
	if len(handlers) == 0 {
		return true
	}

	if d.serial {
		d.mu.Lock()
		defer d.mu.Unlock()
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	id := uuid.New().String()[:8]
	d.logger.Debug("dispatching event",
		"dispatch_id", id,
		"key", ev.Key(),
		"update_id", ev.UpdateID,
		"handlers", len(handlers),
	)

	for i, h := range handlers {
		if err := invoke(ctx, h, ev); err != nil {
			d.logger.Error("handler failed",
				"dispatch_id", id,
				"key", ev.Key(),
				"handler", i,
				"error", err,
			)
		}
	}
	return true
}

func invoke(ctx context.Context, h Handler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, ev)
}

func updateID(raw RawUpdate) int64 {
	id, _ := intField(raw, "update_id")
	return id
}
