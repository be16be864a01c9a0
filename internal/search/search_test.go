package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"surflog-cli/internal/debounce"
	"surflog-cli/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeAPI struct {
	mu      sync.Mutex
	queries []string
	block   map[string]chan struct{}
	err     error
}

func (f *fakeAPI) SearchUsers(ctx context.Context, q string) ([]model.UserRef, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	gate := f.block[q]
	err := f.err
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return []model.UserRef{{DisplayName: q}}, nil
}

func (f *fakeAPI) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func recv(t *testing.T, s *Searcher) Result {
	t.Helper()
	select {
	case r := <-s.Results():
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("no result")
	}
	return Result{}
}

func TestSearcher_KeystrokesCollapseToLastValue(t *testing.T) {
	clock := debounce.NewManualClock(time.Unix(0, 0))
	api := &fakeAPI{}
	s := New(api, Options{Delay: 300 * time.Millisecond, Clock: clock})
	defer s.Close()

	for _, q := range []string{"ka", "kai", "kail", "kailu", "kailua"} {
		s.Input(q)
		clock.Advance(50 * time.Millisecond)
	}
	clock.Advance(300 * time.Millisecond)

	r := recv(t, s)
	assert.Equal(t, "kailua", r.Query)
	require.Len(t, r.Users, 1)
	assert.Equal(t, []string{"kailua"}, api.seen())
}

func TestSearcher_ShortQueryClearsImmediately(t *testing.T) {
	clock := debounce.NewManualClock(time.Unix(0, 0))
	api := &fakeAPI{}
	s := New(api, Options{Clock: clock})
	defer s.Close()

	s.Input("kel")
	s.Input("k")
	r := recv(t, s)
	assert.True(t, r.Cleared)
	assert.Empty(t, r.Users)

	clock.Advance(time.Second)
	assert.Empty(t, api.seen())
}

func TestSearcher_FiredRunAfterClearIsDropped(t *testing.T) {
	clock := debounce.NewManualClock(time.Unix(0, 0))
	api := &fakeAPI{}
	s := New(api, Options{Clock: clock})
	defer s.Close()

	// The debounced run for "kel" has fired and is about to call run when the
	// box is cleared.
	s.Input("kel")
	s.mu.Lock()
	fired := pendingQuery{text: "kel", clears: s.clears}
	s.mu.Unlock()
	s.Input("")
	r := recv(t, s)
	require.True(t, r.Cleared)

	s.run(fired)
	clock.Advance(time.Second)

	assert.Empty(t, api.seen())
	select {
	case r := <-s.Results():
		t.Fatalf("unexpected result after clear: %+v", r)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSearcher_NewerRequestDropsOlderResult(t *testing.T) {
	clock := debounce.NewManualClock(time.Unix(0, 0))
	slow := make(chan struct{})
	api := &fakeAPI{block: map[string]chan struct{}{"old": slow}}
	s := New(api, Options{Clock: clock})
	defer s.Close()

	s.Input("old")
	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return len(api.seen()) == 1 }, time.Second, time.Millisecond)

	s.Input("new")
	clock.Advance(time.Second)
	r := recv(t, s)
	assert.Equal(t, "new", r.Query)

	close(slow)
	select {
	case r := <-s.Results():
		t.Fatalf("stale result delivered: %+v", r)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSearcher_ErrorIsDelivered(t *testing.T) {
	clock := debounce.NewManualClock(time.Unix(0, 0))
	s := New(&fakeAPI{err: errors.New("API Error: 500")}, Options{Clock: clock})
	defer s.Close()

	s.Input("pipeline")
	clock.Advance(time.Second)
	r := recv(t, s)
	assert.EqualError(t, r.Err, "API Error: 500")
}

func TestSearcher_CloseAbortsInflight(t *testing.T) {
	clock := debounce.NewManualClock(time.Unix(0, 0))
	api := &fakeAPI{block: map[string]chan struct{}{"hang": make(chan struct{})}}
	s := New(api, Options{Clock: clock})

	s.Input("hang")
	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return len(api.seen()) == 1 }, time.Second, time.Millisecond)
	s.Close()

	_, ok := <-s.Results()
	assert.False(t, ok)
}
