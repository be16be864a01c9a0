package journal

import (
	"context"
	"sync"
	"time"

	"surflog-cli/internal/viewstate"

	"go.uber.org/zap"
)

// Controller hosts a View for callers without an event loop. Each Navigate aborts
// the previous in-flight load; Close aborts everything and drops late results.
type Controller struct {
	f        Fetcher
	log      *zap.Logger
	timeout  time.Duration
	onChange func(Snapshot)

	mu     sync.Mutex
	view   View
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

type ControllerOptions struct {
	Logger   *zap.Logger
	Timeout  time.Duration
	OnChange func(Snapshot)
}

func NewController(f Fetcher, opts ControllerOptions) *Controller {
	c := &Controller{f: f, log: opts.Logger, timeout: opts.Timeout, onChange: opts.OnChange}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.timeout <= 0 {
		c.timeout = 30 * time.Second
	}
	return c
}

// Navigate moves the view to spec and starts loading it unless it is already
// loading or loaded.
func (c *Controller) Navigate(spec viewstate.QuerySpec) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	gen, changed := c.view.Begin(spec)
	if !changed {
		c.mu.Unlock()
		return
	}
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	c.cancel = cancel
	snap := c.view.Snapshot()
	c.wg.Add(1)
	c.mu.Unlock()

	c.log.Debug("view load started", zap.Uint64("gen", gen), zap.String("query", spec.Key()))
	c.notify(snap)

	go func() {
		defer c.wg.Done()
		defer cancel()
		res := Fetch(ctx, c.f, spec)

		c.mu.Lock()
		if c.closed || !c.view.Resolve(gen, res) {
			c.mu.Unlock()
			c.log.Debug("stale view load dropped", zap.Uint64("gen", gen), zap.String("query", spec.Key()))
			return
		}
		snap := c.view.Snapshot()
		c.mu.Unlock()

		if err := snap.Err(); err != nil {
			c.log.Warn("view load failed",
				zap.String("query", spec.Key()),
				zap.Bool("fatal", snap.Fatal()),
				zap.Error(err))
		}
		c.notify(snap)
	}()
}

func (c *Controller) notify(s Snapshot) {
	if c.onChange != nil {
		c.onChange(s)
	}
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view.Snapshot()
}

// Wait blocks until every started load has settled.
func (c *Controller) Wait() { c.wg.Wait() }

func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()
	c.wg.Wait()
}
