package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestDebouncer_FiveKeystrokesIssueOneRun(t *testing.T) {
	clock := NewManualClock(epoch)
	var got []string
	d := New(300*time.Millisecond, func(q string) { got = append(got, q) }, WithClock(clock))

	for _, q := range []string{"k", "ke", "kel", "kell", "kelly"} {
		d.Trigger(q)
		clock.Advance(100 * time.Millisecond)
	}
	assert.Empty(t, got)
	assert.True(t, d.Pending())

	clock.Advance(200 * time.Millisecond)
	assert.Equal(t, []string{"kelly"}, got)
	assert.False(t, d.Pending())

	clock.Advance(time.Second)
	assert.Len(t, got, 1)
}

func TestDebouncer_QuietGapsRunEachValue(t *testing.T) {
	clock := NewManualClock(epoch)
	var got []int
	d := New(300*time.Millisecond, func(v int) { got = append(got, v) }, WithClock(clock))

	d.Trigger(1)
	clock.Advance(300 * time.Millisecond)
	d.Trigger(2)
	clock.Advance(299 * time.Millisecond)
	assert.Equal(t, []int{1}, got)
	clock.Advance(time.Millisecond)
	assert.Equal(t, []int{1, 2}, got)
}

func TestDebouncer_CancelAndStop(t *testing.T) {
	clock := NewManualClock(epoch)
	calls := 0
	d := New(300*time.Millisecond, func(string) { calls++ }, WithClock(clock))

	d.Trigger("ab")
	d.Cancel()
	clock.Advance(time.Second)
	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, clock.Pending())

	d.Stop()
	d.Trigger("abc")
	clock.Advance(time.Second)
	assert.Equal(t, 0, calls)
}

func TestDebouncer_RealClock(t *testing.T) {
	var mu sync.Mutex
	var got []string
	done := make(chan struct{})
	d := New(20*time.Millisecond, func(q string) {
		mu.Lock()
		got = append(got, q)
		mu.Unlock()
		close(done)
	})
	defer d.Stop()

	d.Trigger("a")
	d.Trigger("ab")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced run never happened")
	}
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"ab"}, got)
}

func TestCollapse_MatchesDebouncer(t *testing.T) {
	ms := time.Millisecond
	events := []Event[string]{
		{At: 0, Value: "s"},
		{At: 80 * ms, Value: "su"},
		{At: 150 * ms, Value: "sur"},
		{At: 700 * ms, Value: "surf"},
		{At: 950 * ms, Value: "surfe"},
	}
	out := Collapse(events, 300*ms)
	assert.Equal(t, []Event[string]{
		{At: 450 * ms, Value: "sur"},
		{At: 1250 * ms, Value: "surfe"},
	}, out)

	clock := NewManualClock(epoch)
	var fired []Event[string]
	d := New(300*ms, func(v string) {
		fired = append(fired, Event[string]{At: clock.Now().Sub(epoch), Value: v})
	}, WithClock(clock))
	var at time.Duration
	for _, e := range events {
		clock.Advance(e.At - at)
		at = e.At
		d.Trigger(e.Value)
	}
	clock.Advance(time.Second)
	assert.Equal(t, out, fired)
}

func TestCollapse_Empty(t *testing.T) {
	assert.Empty(t, Collapse[string](nil, 300*time.Millisecond))
}
