// Package search runs the debounced user search behind the search box.
package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"surflog-cli/internal/debounce"
	"surflog-cli/internal/model"

	"go.uber.org/zap"
)

// MinQueryLength is the shortest query that reaches the API.
const MinQueryLength = 2

type UserSearcher interface {
	SearchUsers(ctx context.Context, query string) ([]model.UserRef, error)
}

// Result is delivered for every issued search and for every clear.
type Result struct {
	Query   string
	Users   []model.UserRef
	Err     error
	Cleared bool
}

type Options struct {
	Delay   time.Duration
	Clock   debounce.Clock
	Logger  *zap.Logger
	Timeout time.Duration
}

// Searcher turns keystrokes into at most one request per quiet window. A newer
// request cancels the in-flight one and older results are never delivered.
type Searcher struct {
	api     UserSearcher
	log     *zap.Logger
	timeout time.Duration
	deb     *debounce.Debouncer[pendingQuery]
	out     chan Result

	mu       sync.Mutex
	seq      uint64
	clears   uint64
	inflight context.CancelFunc
	closed   bool
	wg       sync.WaitGroup
}

// pendingQuery is a scheduled search. clears is the Searcher's clear count when it
// was scheduled; a clear after that makes the search stale.
type pendingQuery struct {
	text   string
	clears uint64
}

func New(api UserSearcher, opts Options) *Searcher {
	s := &Searcher{
		api:     api,
		log:     opts.Logger,
		timeout: opts.Timeout,
		out:     make(chan Result, 1),
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.timeout <= 0 {
		s.timeout = 15 * time.Second
	}
	s.deb = debounce.New(opts.Delay, s.run, debounce.WithClock(opts.Clock))
	return s
}

// Results yields the latest result. Only the newest undelivered result is kept.
func (s *Searcher) Results() <-chan Result { return s.out }

// Input handles the current contents of the search box.
func (s *Searcher) Input(query string) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		s.deb.Cancel()
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return
		}
		s.seq++
		s.clears++
		s.abortLocked()
		s.emitLocked(Result{Query: query, Cleared: true})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deb.Trigger(pendingQuery{text: query, clears: s.clears})
}

func (s *Searcher) run(p pendingQuery) {
	query := p.text
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	// The debouncer can hand over a run that fired just before the box was cleared.
	if p.clears != s.clears {
		s.mu.Unlock()
		s.log.Debug("search dropped after clear", zap.String("query", query))
		return
	}
	s.seq++
	seq := s.seq
	s.abortLocked()
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	s.inflight = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer cancel()
		users, err := s.api.SearchUsers(ctx, query)

		s.mu.Lock()
		defer s.mu.Unlock()
		if seq != s.seq || s.closed {
			return
		}
		s.inflight = nil
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.log.Warn("user search failed", zap.String("query", query), zap.Error(err))
		}
		s.emitLocked(Result{Query: query, Users: users, Err: err})
	}()
}

func (s *Searcher) abortLocked() {
	if s.inflight != nil {
		s.inflight()
		s.inflight = nil
	}
}

func (s *Searcher) emitLocked(r Result) {
	select {
	case <-s.out:
	default:
	}
	s.out <- r
}

// Close stops the debouncer, aborts the in-flight request and closes Results.
func (s *Searcher) Close() {
	s.deb.Stop()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.abortLocked()
	s.mu.Unlock()
	s.wg.Wait()
	close(s.out)
}
