package reaction

import (
	"context"
	"sync"
	"time"

	"surflog-cli/internal/model"

	"go.uber.org/zap"
)

const defaultRequestTimeout = 15 * time.Second

// API is what an Engine needs from the API client.
type API interface {
	Toggler
	ReactorLister
}

// Engine hosts the reaction state of one session item for callers that are not
// driven by an event loop. Toggle never blocks on the network; resolutions are
// published through the OnChange callback from the request goroutine.
type Engine struct {
	sessionID int64
	api       API
	log       *zap.Logger
	onChange  func(State, Phase)
	timeout   time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	state   State
	phase   Phase
	preview []model.UserRef
	closed  bool
	// mount changes on every Refresh; outcomes of toggles issued before it are dropped.
	mount uint64
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithOnChange registers fn to run after every state change (optimistic and resolved).
func WithOnChange(fn func(State, Phase)) Option {
	return func(e *Engine) { e.onChange = fn }
}

func WithRequestTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func NewEngine(sessionID int64, summary model.ReactionSummary, api API, opts ...Option) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		sessionID: sessionID,
		api:       api,
		log:       zap.NewNop(),
		timeout:   defaultRequestTimeout,
		ctx:       ctx,
		cancel:    cancel,
		state:     Initialize(summary),
		preview:   summary.Preview,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) SessionID() int64 { return e.sessionID }

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Refresh re-initializes from reloaded session data. A refetch is authoritative.
func (e *Engine) Refresh(summary model.ReactionSummary) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.state = Initialize(summary)
	e.preview = summary.Preview
	e.phase = PhaseIdle
	e.mount++
	st, ph := e.state, e.phase
	e.mu.Unlock()
	e.notify(st, ph)
}

// Toggle applies the optimistic state synchronously and resolves it in the background.
// It returns the optimistic state. After Close it is a no-op returning the last state.
func (e *Engine) Toggle() State {
	e.mu.Lock()
	if e.closed {
		st := e.state
		e.mu.Unlock()
		return st
	}
	optimistic, pending := Toggle(e.sessionID, e.state)
	e.state = optimistic
	e.phase = PhasePending
	mount := e.mount
	e.wg.Add(1)
	e.mu.Unlock()

	e.notify(optimistic, PhasePending)

	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(e.ctx, e.timeout)
		defer cancel()
		e.apply(mount, pending.Do(ctx, e.api))
	}()
	return optimistic
}

func (e *Engine) apply(mount uint64, o Outcome) {
	e.mu.Lock()
	if e.closed {
		// Late result for an unmounted item.
		e.mu.Unlock()
		return
	}
	if mount != e.mount {
		e.mu.Unlock()
		e.log.Debug("shaka result predates refresh; dropped",
			zap.Int64("session_id", o.SessionID),
			zap.Stringer("phase", o.Phase))
		return
	}
	e.state = o.State
	e.phase = o.Phase
	e.mu.Unlock()

	if o.Err != nil {
		e.log.Warn("shaka toggle failed; rolled back",
			zap.Int64("session_id", o.SessionID),
			zap.Int("count", o.State.Count),
			zap.Bool("viewer_has_reacted", o.State.ViewerHasReacted),
			zap.Error(o.Err))
	}
	e.notify(o.State, o.Phase)
}

func (e *Engine) notify(st State, ph Phase) {
	if e.onChange != nil {
		e.onChange(st, ph)
	}
}

// OpenDetail opens the reactor list for the current state.
func (e *Engine) OpenDetail(ctx context.Context) Detail {
	e.mu.Lock()
	st := e.state
	preview := append([]model.UserRef(nil), e.preview...)
	e.mu.Unlock()
	return OpenDetail(ctx, e.sessionID, st, preview, e.api, e.log)
}

// Wait blocks until every issued toggle has resolved (or was aborted).
func (e *Engine) Wait() { e.wg.Wait() }

// Close aborts in-flight requests and drops their late results.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.cancel()
	e.wg.Wait()
}
