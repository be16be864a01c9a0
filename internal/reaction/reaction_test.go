package reaction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"surflog-cli/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedAPI answers toggles from a queue. Each call blocks until its gate is released.
type scriptedAPI struct {
	mu       sync.Mutex
	calls    int
	results  []result
	gates    []chan struct{}
	reactors []model.UserRef
	listErr  error
	listHits int
}

type result struct {
	count int
	err   error
}

func (s *scriptedAPI) ToggleShaka(ctx context.Context, _ int64) (int, error) {
	s.mu.Lock()
	i := s.calls
	s.calls++
	var gate chan struct{}
	if i < len(s.gates) {
		gate = s.gates[i]
	}
	r := s.results[i]
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return r.count, r.err
}

func (s *scriptedAPI) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *scriptedAPI) Reactors(context.Context, int64) ([]model.UserRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listHits++
	return s.reactors, s.listErr
}

func TestToggle_IsExactlyPlusOrMinusOne(t *testing.T) {
	for _, st := range []State{
		{Count: 0, ViewerHasReacted: false},
		{Count: 5, ViewerHasReacted: false},
		{Count: 5, ViewerHasReacted: true},
		{Count: 1, ViewerHasReacted: true},
	} {
		next, p := Toggle(3, st)
		assert.Equal(t, !st.ViewerHasReacted, next.ViewerHasReacted)
		if st.ViewerHasReacted {
			assert.Equal(t, st.Count-1, next.Count)
		} else {
			assert.Equal(t, st.Count+1, next.Count)
		}
		assert.Equal(t, st, p.Snapshot)
		assert.Equal(t, next, p.Optimistic)
		assert.Equal(t, int64(3), p.SessionID)
	}
}

func TestToggle_DoesNotClampInconsistentServerState(t *testing.T) {
	// Reacted with zero count is a server inconsistency; the arithmetic is still exact.
	next, _ := Toggle(1, State{Count: 0, ViewerHasReacted: true})
	assert.Equal(t, State{Count: -1, ViewerHasReacted: false}, next)
}

func TestPending_ReconcileTakesServerCountKeepsFlag(t *testing.T) {
	_, p := Toggle(1, State{Count: 5, ViewerHasReacted: false})
	o := p.Resolve(9, nil)
	assert.Equal(t, PhaseReconciled, o.Phase)
	assert.Equal(t, State{Count: 9, ViewerHasReacted: true}, o.State)
	assert.NoError(t, o.Err)
}

func TestPending_RollbackRestoresSnapshotExactly(t *testing.T) {
	snap := State{Count: 5, ViewerHasReacted: false}
	opt, p := Toggle(1, snap)
	assert.Equal(t, State{Count: 6, ViewerHasReacted: true}, opt)

	o := p.Resolve(0, errors.New("boom"))
	assert.Equal(t, PhaseRolledBack, o.Phase)
	assert.Equal(t, snap, o.State)
	assert.False(t, o.Canceled())
}

func TestOutcome_CanceledIsDistinguished(t *testing.T) {
	_, p := Toggle(1, State{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := p.Do(ctx, &scriptedAPI{results: []result{{0, nil}}, gates: []chan struct{}{make(chan struct{})}})
	assert.True(t, o.Canceled())
	assert.Equal(t, PhaseRolledBack, o.Phase)
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "pending", PhasePending.String())
	assert.Equal(t, "reconciled", PhaseReconciled.String())
	assert.Equal(t, "rolled-back", PhaseRolledBack.String())
}

func TestEngine_OptimisticThenReconciled(t *testing.T) {
	gate := make(chan struct{})
	api := &scriptedAPI{results: []result{{count: 7}}, gates: []chan struct{}{gate}}

	var mu sync.Mutex
	var phases []Phase
	e := NewEngine(1, model.ReactionSummary{Count: 5}, api, WithOnChange(func(_ State, ph Phase) {
		mu.Lock()
		phases = append(phases, ph)
		mu.Unlock()
	}))
	defer e.Close()

	got := e.Toggle()
	assert.Equal(t, State{Count: 6, ViewerHasReacted: true}, got)
	assert.Equal(t, got, e.State())
	assert.Equal(t, PhasePending, e.Phase())

	close(gate)
	e.Wait()
	assert.Equal(t, State{Count: 7, ViewerHasReacted: true}, e.State())
	assert.Equal(t, PhaseReconciled, e.Phase())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Phase{PhasePending, PhaseReconciled}, phases)
}

func TestEngine_FailureRollsBackAndLogs(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	api := &scriptedAPI{results: []result{{err: errors.New("API Error: 500")}}}
	e := NewEngine(4, model.ReactionSummary{Count: 5}, api, WithLogger(zap.New(core)))
	defer e.Close()

	e.Toggle()
	e.Wait()
	assert.Equal(t, State{Count: 5, ViewerHasReacted: false}, e.State())
	assert.Equal(t, PhaseRolledBack, e.Phase())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, int64(4), logs.All()[0].ContextMap()["session_id"])
}

func TestEngine_OverlappingTogglesLastResolutionWins(t *testing.T) {
	g1, g2 := make(chan struct{}), make(chan struct{})
	api := &scriptedAPI{
		results: []result{{count: 6}, {err: errors.New("offline")}},
		gates:   []chan struct{}{g1, g2},
	}
	e := NewEngine(1, model.ReactionSummary{Count: 5}, api)
	defer e.Close()

	assert.Equal(t, State{Count: 6, ViewerHasReacted: true}, e.Toggle())
	require.Eventually(t, func() bool { return api.callCount() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, State{Count: 5, ViewerHasReacted: false}, e.Toggle())
	require.Eventually(t, func() bool { return api.callCount() == 2 }, time.Second, time.Millisecond)

	// Second request fails first: it rolls back to its own snapshot.
	close(g2)
	require.Eventually(t, func() bool { return e.Phase() == PhaseRolledBack }, time.Second, 5*time.Millisecond)
	assert.Equal(t, State{Count: 6, ViewerHasReacted: true}, e.State())

	// First request resolves last and wins.
	close(g1)
	e.Wait()
	assert.Equal(t, State{Count: 6, ViewerHasReacted: true}, e.State())
	assert.Equal(t, PhaseReconciled, e.Phase())
}

func TestEngine_CloseDropsLateResults(t *testing.T) {
	gate := make(chan struct{})
	api := &scriptedAPI{results: []result{{count: 99}}, gates: []chan struct{}{gate}}
	calls := 0
	e := NewEngine(1, model.ReactionSummary{Count: 2, ViewerHasReacted: true}, api, WithOnChange(func(State, Phase) { calls++ }))

	e.Toggle()
	e.Close()
	assert.Equal(t, State{Count: 1, ViewerHasReacted: false}, e.State())
	assert.Equal(t, 1, calls)

	// Toggling after close is a no-op.
	assert.Equal(t, State{Count: 1, ViewerHasReacted: false}, e.Toggle())
	close(gate)
}

func TestEngine_RefreshIsAuthoritative(t *testing.T) {
	e := NewEngine(1, model.ReactionSummary{Count: 1}, &scriptedAPI{})
	defer e.Close()
	e.Refresh(model.ReactionSummary{Count: 12, ViewerHasReacted: true})
	assert.Equal(t, State{Count: 12, ViewerHasReacted: true}, e.State())
	assert.Equal(t, PhaseIdle, e.Phase())
}

func TestEngine_RefreshWinsOverInflightToggle(t *testing.T) {
	gate := make(chan struct{})
	api := &scriptedAPI{results: []result{{count: 1}}, gates: []chan struct{}{gate}}
	e := NewEngine(1, model.ReactionSummary{Count: 0}, api)
	defer e.Close()

	assert.Equal(t, State{Count: 1, ViewerHasReacted: true}, e.Toggle())
	require.Eventually(t, func() bool { return api.callCount() == 1 }, time.Second, time.Millisecond)

	e.Refresh(model.ReactionSummary{Count: 7})
	close(gate)
	e.Wait()

	assert.Equal(t, State{Count: 7, ViewerHasReacted: false}, e.State())
	assert.Equal(t, PhaseIdle, e.Phase())

	// Toggles issued after the refresh resolve normally.
	api.mu.Lock()
	api.results = append(api.results, result{count: 8})
	api.mu.Unlock()
	e.Toggle()
	e.Wait()
	assert.Equal(t, State{Count: 8, ViewerHasReacted: true}, e.State())
	assert.Equal(t, PhaseReconciled, e.Phase())
}

func TestOpenDetail_ZeroCountMakesNoRequest(t *testing.T) {
	api := &scriptedAPI{}
	d := OpenDetail(context.Background(), 1, State{Count: 0}, nil, api, nil)
	assert.False(t, d.Open)
	assert.Equal(t, 0, api.listHits)
}

func TestOpenDetail_FallsBackToPreview(t *testing.T) {
	preview := []model.UserRef{{DisplayName: "Kai"}}
	api := &scriptedAPI{listErr: errors.New("offline")}
	e := NewEngine(1, model.ReactionSummary{Count: 3, Preview: preview}, api)
	defer e.Close()

	d := e.OpenDetail(context.Background())
	assert.True(t, d.Open)
	assert.True(t, d.FromPreview)
	assert.Equal(t, preview, d.Reactors)
}

func TestOpenDetail_UsesFullList(t *testing.T) {
	full := []model.UserRef{{DisplayName: "Kai"}, {DisplayName: "Leilani"}}
	api := &scriptedAPI{reactors: full}
	d := OpenDetail(context.Background(), 1, State{Count: 2}, []model.UserRef{{DisplayName: "Someone else"}}, api, nil)
	assert.True(t, d.Open)
	assert.False(t, d.FromPreview)
	assert.Equal(t, full, d.Reactors)
}
