// Package reaction implements the optimistic shaka toggle.
//
// A toggle moves through Idle -> Pending(snapshot) and resolves into either
// Reconciled (the server's count replaces the optimistic count, the flag is kept)
// or RolledBack(snapshot) (exactly the pre-toggle values). Overlapping toggles are
// not serialized: each rolls back to its own snapshot and the last resolution wins.
package reaction

import (
	"context"
	"errors"

	"surflog-cli/internal/model"
)

// State is the client-local reaction state of one session.
type State struct {
	Count            int  `json:"count"`
	ViewerHasReacted bool `json:"viewerHasReacted"`
}

// Initialize projects a server summary into local state. The preview is ignored.
func Initialize(summary model.ReactionSummary) State {
	return State{Count: summary.Count, ViewerHasReacted: summary.ViewerHasReacted}
}

type Phase int

const (
	PhaseIdle Phase = iota
	PhasePending
	PhaseReconciled
	PhaseRolledBack
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePending:
		return "pending"
	case PhaseReconciled:
		return "reconciled"
	case PhaseRolledBack:
		return "rolled-back"
	default:
		return "unknown"
	}
}

// Toggler issues the toggle request and returns the authoritative count.
type Toggler interface {
	ToggleShaka(ctx context.Context, sessionID int64) (int, error)
}

// Pending is a toggle whose request has not resolved yet.
type Pending struct {
	SessionID  int64
	Snapshot   State
	Optimistic State
}

// Toggle computes the optimistic state from current and the pending request that
// will resolve it. It performs no I/O; the caller shows the optimistic state
// immediately and runs Pending.Do asynchronously.
func Toggle(sessionID int64, current State) (State, Pending) {
	was := current.ViewerHasReacted
	next := State{ViewerHasReacted: !was, Count: current.Count + 1}
	if was {
		next.Count = current.Count - 1
	}
	return next, Pending{SessionID: sessionID, Snapshot: current, Optimistic: next}
}

func (p Pending) Reconcile(count int) State {
	return State{ViewerHasReacted: p.Optimistic.ViewerHasReacted, Count: count}
}

func (p Pending) Rollback() State { return p.Snapshot }

// Outcome is a resolved toggle.
type Outcome struct {
	SessionID int64
	Phase     Phase
	State     State
	Err       error
}

// Canceled reports whether the request was aborted (owner went away) rather than failed.
func (o Outcome) Canceled() bool {
	return errors.Is(o.Err, context.Canceled)
}

// Resolve turns the request result into an outcome.
func (p Pending) Resolve(count int, err error) Outcome {
	if err != nil {
		return Outcome{SessionID: p.SessionID, Phase: PhaseRolledBack, State: p.Rollback(), Err: err}
	}
	return Outcome{SessionID: p.SessionID, Phase: PhaseReconciled, State: p.Reconcile(count)}
}

// Do performs the request. It never returns an error to the caller; a failure is
// an Outcome carrying the rolled-back state and the cause.
func (p Pending) Do(ctx context.Context, t Toggler) Outcome {
	count, err := t.ToggleShaka(ctx, p.SessionID)
	return p.Resolve(count, err)
}
