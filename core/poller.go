package core

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

const (
	DefaultLongPollTimeout = 30
	DefaultErrorBackoff    = 5 * time.Second

	// DefaultShortPollInterval is the pause after an empty short poll.
	DefaultShortPollInterval = time.Second
)

// PollerConfig tunes the long-poll loop.
type PollerConfig struct {
	Timeout        int           // long-poll timeout in seconds
	ShortPoll      bool          // request with timeout 0; Timeout is ignored
	ErrorBackoff   time.Duration // fixed pause after a failed request
	InitialOffset  int64
	AllowedUpdates []string
}

// Poller long-polls an UpdateSource and feeds every update to a Dispatcher,
// one at a time, in arrival order.
type Poller struct {
	source     UpdateSource
	dispatcher *Dispatcher
	cfg        PollerConfig
	logger     *slog.Logger
	offset     atomic.Int64
	wait       func(ctx context.Context, d time.Duration) bool
}

// NewPoller creates a Poller. Zero config fields take their defaults.
func NewPoller(source UpdateSource, dispatcher *Dispatcher, cfg PollerConfig, logger *slog.Logger) *Poller {
	switch {
	case cfg.ShortPoll:
		cfg.Timeout = 0
	case cfg.Timeout <= 0:
		cfg.Timeout = DefaultLongPollTimeout
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = DefaultErrorBackoff
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Poller{
		source:     source,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
		wait:       sleepContext,
	}
	p.offset.Store(cfg.InitialOffset)
	return p
}

// Offset returns the next offset the poller will request.
func (p *Poller) Offset() int64 {
	return p.offset.Load()
}

// Run polls until ctx is cancelled. Failed requests are logged and retried
// after the fixed backoff; Run never returns because of a transport error.
// A batch in progress is finished before cancellation is observed.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller started", "offset", p.Offset(), "timeout", p.cfg.Timeout)
	for {
		if err := ctx.Err(); err != nil {
			p.logger.Info("poller stopped", "offset", p.Offset())
			return nil
		}

		res := p.source.GetUpdates(ctx, PollRequest{
			Offset:         p.Offset(),
			Timeout:        p.cfg.Timeout,
			AllowedUpdates: p.cfg.AllowedUpdates,
		})

		switch res.Status {
		case PollEmpty:
			// Telegram answers a short poll at once, so pace the loop.
			if p.cfg.ShortPoll {
				p.wait(ctx, DefaultShortPollInterval)
			}
			continue
		case PollError:
			if ctx.Err() != nil {
				continue
			}
			p.logger.Error("poll error", "error", res.Err)
			p.wait(ctx, p.cfg.ErrorBackoff)
			continue
		}

		// Handlers of a batch already received run to completion even if
		// ctx is cancelled meanwhile.
		dispatchCtx := context.WithoutCancel(ctx)
		for _, u := range res.Updates {
			p.advance(u)
			p.dispatcher.HandleUpdate(dispatchCtx, u)
		}
	}
}

// advance moves the offset past u before u is dispatched, so a crash inside
// a handler does not redeliver u within this process. The offset never
// moves backwards.
func (p *Poller) advance(u RawUpdate) {
	id, ok := intField(u, "update_id")
	if !ok {
		return
	}
	if next := id + 1; next > p.offset.Load() {
		p.offset.Store(next)
	}
}

// sleepContext waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
