// Package journal loads the data behind a journal or feed view and tracks it
// through Uninitialized -> Loading -> Ready | Error. Every load is tagged with a
// generation; a result whose generation is no longer current is discarded.
package journal

import (
	"surflog-cli/internal/model"
	"surflog-cli/internal/viewstate"
)

type Status int

const (
	StatusUninitialized Status = iota
	StatusLoading
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Panel is the tab content. Exactly one field is populated for a loaded panel.
type Panel struct {
	Sessions    []model.Session
	Stats       *model.Stats
	Leaderboard []model.LeaderboardEntry
}

// Result is the outcome of one load.
type Result struct {
	Profile    *model.UserProfile
	ProfileErr error
	Panel      Panel
	PanelErr   error
}

// Snapshot is what a view renders.
type Snapshot struct {
	Status  Status
	Spec    viewstate.QuerySpec
	Profile *model.UserProfile
	Panel   Panel

	// ProfileErr blocks the whole view. PanelErr only replaces the tab content.
	ProfileErr error
	PanelErr   error
}

// Fatal reports whether the view cannot render its tab content at all.
func (s Snapshot) Fatal() bool { return s.ProfileErr != nil }

// Err returns the error to surface, fatal first.
func (s Snapshot) Err() error {
	if s.ProfileErr != nil {
		return s.ProfileErr
	}
	return s.PanelErr
}

// View is the per-view state machine. It is not safe for concurrent use; the TUI
// drives it from the event loop and Controller guards it with a mutex.
type View struct {
	gen  uint64
	snap Snapshot
}

func (v *View) Snapshot() Snapshot { return v.snap }

func (v *View) Generation() uint64 { return v.gen }

// Begin starts a load for spec. It reports changed=false when spec is already
// loading or loaded; a view in Error always reloads.
func (v *View) Begin(spec viewstate.QuerySpec) (gen uint64, changed bool) {
	if v.snap.Status != StatusUninitialized && v.snap.Status != StatusError && v.snap.Spec.Equal(spec) {
		return v.gen, false
	}
	return v.start(spec), true
}

// Reload starts a new load for spec even when it is already loaded. Any load in
// flight becomes stale.
func (v *View) Reload(spec viewstate.QuerySpec) uint64 { return v.start(spec) }

func (v *View) start(spec viewstate.QuerySpec) uint64 {
	prev := v.snap
	v.gen++
	v.snap = Snapshot{Status: StatusLoading, Spec: spec}
	if sameProfile(prev.Spec, spec) {
		v.snap.Profile = prev.Profile
	}
	return v.gen
}

// Resolve applies a result. It returns false and leaves the view untouched when
// gen is stale.
func (v *View) Resolve(gen uint64, res Result) bool {
	if gen != v.gen || v.snap.Status != StatusLoading {
		return false
	}
	switch {
	case res.ProfileErr != nil:
		// Keep the last good profile header; tab content tied to this load is dropped.
		v.snap.Status = StatusError
		v.snap.ProfileErr = res.ProfileErr
		v.snap.Panel = Panel{}
		return true
	case res.Profile != nil:
		v.snap.Profile = res.Profile
	}
	if res.PanelErr != nil {
		v.snap.Status = StatusError
		v.snap.PanelErr = res.PanelErr
		v.snap.Panel = Panel{}
		return true
	}
	v.snap.Status = StatusReady
	v.snap.Panel = res.Panel
	return true
}

func sameProfile(a, b viewstate.QuerySpec) bool {
	pa, okA := a.Profile()
	pb, okB := b.Profile()
	return okA && okB && pa.Key() == pb.Key()
}
