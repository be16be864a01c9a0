package tui

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"surflog-cli/internal/apiclient"
	"surflog-cli/internal/auth"
	"surflog-cli/internal/model"
	"surflog-cli/internal/reaction"
	"surflog-cli/internal/viewstate"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC)

type fakeAPI struct {
	mu        sync.Mutex
	calls     []string
	toggleErr error
	toggleTo  int
	sessions  []model.Session
}

func (f *fakeAPI) record(s string) {
	f.mu.Lock()
	f.calls = append(f.calls, s)
	f.mu.Unlock()
}

func (f *fakeAPI) called(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeAPI) Profile(_ context.Context, userID string) (model.UserProfile, error) {
	f.record("profile:" + userID)
	return model.UserProfile{UserID: userID, DisplayName: "Kelly"}, nil
}

func (f *fakeAPI) UserSessions(_ context.Context, userID string, q url.Values) ([]model.Session, error) {
	f.record("sessions:" + userID + "?" + q.Encode())
	return f.sessions, nil
}

func (f *fakeAPI) Stats(_ context.Context, _ string, year int) (model.Stats, error) {
	f.record("stats")
	return model.Stats{TotalSessions: year}, nil
}

func (f *fakeAPI) Feed(context.Context, url.Values) ([]model.Session, error) {
	f.record("feed")
	return f.sessions, nil
}

func (f *fakeAPI) Leaderboard(context.Context, int, string) ([]model.LeaderboardEntry, error) {
	f.record("leaderboard")
	return nil, nil
}

func (f *fakeAPI) ToggleShaka(context.Context, int64) (int, error) {
	f.record("toggle")
	if f.toggleErr != nil {
		return 0, f.toggleErr
	}
	return f.toggleTo, nil
}

func (f *fakeAPI) Reactors(context.Context, int64) ([]model.UserRef, error) {
	f.record("reactors")
	return []model.UserRef{{UserID: "u-2", DisplayName: "Layne"}}, nil
}

func (f *fakeAPI) SearchUsers(context.Context, string) ([]model.UserRef, error) {
	f.record("search")
	return nil, nil
}

func (f *fakeAPI) Login(context.Context, string, string) (model.LoginResult, error) {
	return model.LoginResult{}, nil
}

func (f *fakeAPI) Signup(context.Context, model.SignupRequest) error { return nil }

func (f *fakeAPI) Session(_ context.Context, id int64) (model.Session, error) {
	f.record("session")
	for _, s := range f.sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return model.Session{}, &apiclient.Error{Kind: apiclient.KindAPI, Status: 404, Message: "Session not found"}
}

func (f *fakeAPI) Comments(context.Context, int64) ([]model.Comment, error) {
	return []model.Comment{{ID: 1, DisplayName: "Layne", Text: "Looked **firing**"}}, nil
}

func (f *fakeAPI) PostComment(_ context.Context, id int64, text string) (model.Comment, error) {
	return model.Comment{ID: 2, SessionID: id, Text: text}, nil
}

func (f *fakeAPI) Notifications(context.Context) ([]model.Notification, error) {
	return []model.Notification{{ID: 9, SessionID: 1, SessionTitle: "Dawn patrol", SenderDisplayName: "Layne"}}, nil
}

func (f *fakeAPI) MarkNotificationRead(context.Context, int64) error { return nil }

func (f *fakeAPI) SnakeSession(context.Context, int64) (int64, error) { return 42, nil }

type fakeAuth struct {
	user   string
	signed bool
}

func (a *fakeAuth) Authenticated() bool { return a.signed }
func (a *fakeAuth) UserID() string      { return a.user }

func (a *fakeAuth) Login(_ context.Context, _ auth.Authenticator, email, _ string) (model.UserProfile, error) {
	if email == "wrong@example.com" {
		return model.UserProfile{}, errors.New("invalid credentials")
	}
	a.signed = true
	return model.UserProfile{UserID: a.user, DisplayName: "Kelly"}, nil
}

func (a *fakeAuth) Logout(context.Context) error {
	a.signed = false
	return nil
}

func sessionFixture(id int64, count int, reacted bool) model.Session {
	return model.Session{
		ID:        id,
		Title:     "Dawn patrol",
		Location:  "Ocean Beach",
		StartedAt: fixedNow.Add(-time.Hour),
		EndedAt:   fixedNow,
		Shakas:    model.ReactionSummary{Count: count, ViewerHasReacted: reacted},
	}
}

func newTestModel(t *testing.T, api *fakeAPI, a *fakeAuth, startView string) appModel {
	t.Helper()
	deps := Deps{API: api, Auth: a, Now: func() time.Time { return fixedNow }}
	m := newAppModel(context.Background(), deps)
	t.Cleanup(m.close)
	if startView != "" {
		m.history = viewstate.NewHistory(viewstate.ParseLocation(startView))
		m.initCmd = m.syncLocation(false)
	}
	mm, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return mm.(appModel)
}

func update(t *testing.T, m appModel, msg tea.Msg) (appModel, tea.Cmd) {
	t.Helper()
	mm, cmd := m.Update(msg)
	out, ok := mm.(appModel)
	if !ok {
		t.Fatalf("unexpected model type %T", mm)
	}
	return out, cmd
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func mustMsg[T any](t *testing.T, cmd tea.Cmd) T {
	t.Helper()
	if cmd == nil {
		t.Fatalf("expected a command")
	}
	raw := cmd()
	msg, ok := raw.(T)
	if !ok {
		t.Fatalf("unexpected message type %T", raw)
	}
	return msg
}

func TestInitialLoad_MountsRowsFromServerSummaries(t *testing.T) {
	api := &fakeAPI{sessions: []model.Session{sessionFixture(1, 3, false), sessionFixture(2, 0, false)}}
	m := newTestModel(t, api, &fakeAuth{user: "u-1", signed: true}, "")
	if m.view != viewBrowse {
		t.Fatalf("expected browse view; got %v", m.view)
	}

	m, _ = update(t, m, mustMsg[viewLoadedMsg](t, m.initCmd))
	if got := len(m.sessions.Items()); got != 2 {
		t.Fatalf("expected 2 rows; got %d", got)
	}
	if got := m.shakas[1]; got != (reaction.State{Count: 3}) {
		t.Fatalf("unexpected shaka state: %+v", got)
	}
	if !strings.Contains(m.View(), "Dawn patrol") {
		t.Fatalf("expected session title in view")
	}
}

func TestUnauthenticated_StartsAtLogin(t *testing.T) {
	m := newTestModel(t, &fakeAPI{}, &fakeAuth{user: "u-1"}, "")
	if m.view != viewLogin || m.initCmd != nil {
		t.Fatalf("expected login without a load; view=%v", m.view)
	}
	if !strings.Contains(m.View(), "Sign in") {
		t.Fatalf("expected login form")
	}
}

func TestYearChange_StaleResultDiscarded(t *testing.T) {
	api := &fakeAPI{}
	m := newTestModel(t, api, &fakeAuth{user: "u-1", signed: true}, "/journal?tab=stats&year=2025")
	first := m.initCmd

	m, second := update(t, m, keyRunes("["))
	if second == nil {
		t.Fatalf("expected a load for 2024")
	}
	if got := m.history.Current().Query.Get(viewstate.KeyYear); got != "2024" {
		t.Fatalf("expected year=2024 in location; got %q", got)
	}
	if m.history.Len() != 1 {
		t.Fatalf("year change must replace the history entry; len=%d", m.history.Len())
	}

	m, _ = update(t, m, mustMsg[viewLoadedMsg](t, second))
	m, _ = update(t, m, mustMsg[viewLoadedMsg](t, first))

	snap := m.page.Snapshot()
	if snap.Panel.Stats == nil || snap.Panel.Stats.TotalSessions != 2024 {
		t.Fatalf("expected 2024 stats to remain; got %+v", snap.Panel.Stats)
	}
}

func TestYearChange_ClampedAtFloor(t *testing.T) {
	m := newTestModel(t, &fakeAPI{}, &fakeAuth{user: "u-1", signed: true}, "/journal?tab=stats&year=2023")
	m, cmd := update(t, m, keyRunes("["))
	if cmd != nil {
		t.Fatalf("expected no load below the floor year")
	}
	if m.state.Year != viewstate.FloorYear {
		t.Fatalf("expected %d; got %d", viewstate.FloorYear, m.state.Year)
	}
}

func TestTabSwitch_PushesHistory(t *testing.T) {
	m := newTestModel(t, &fakeAPI{}, &fakeAuth{user: "u-1", signed: true}, "")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if cmd == nil || m.state.Tab != viewstate.TabStats {
		t.Fatalf("expected stats tab load; tab=%v", m.state.Tab)
	}
	if m.history.Len() != 2 {
		t.Fatalf("expected tab switch to push; len=%d", m.history.Len())
	}

	m, _ = update(t, m, keyRunes("b"))
	if m.state.Tab != viewstate.TabLog {
		t.Fatalf("expected back to log; got %v", m.state.Tab)
	}
}

func TestShaka_OptimisticThenReconciled(t *testing.T) {
	api := &fakeAPI{sessions: []model.Session{sessionFixture(1, 3, false)}, toggleTo: 5}
	m := newTestModel(t, api, &fakeAuth{user: "u-1", signed: true}, "")
	m, _ = update(t, m, mustMsg[viewLoadedMsg](t, m.initCmd))

	m, cmd := update(t, m, keyRunes(" "))
	if got := m.shakas[1]; got != (reaction.State{Count: 4, ViewerHasReacted: true}) {
		t.Fatalf("expected optimistic state before the request resolves; got %+v", got)
	}
	if api.called("toggle") != 0 {
		t.Fatalf("request must run in the command, not in Update")
	}

	m, _ = update(t, m, mustMsg[shakaResolvedMsg](t, cmd))
	if got := m.shakas[1]; got != (reaction.State{Count: 5, ViewerHasReacted: true}) {
		t.Fatalf("expected server count with local flag; got %+v", got)
	}
}

func TestShaka_FailureRollsBackAndFlashes(t *testing.T) {
	api := &fakeAPI{
		sessions:  []model.Session{sessionFixture(1, 5, true)},
		toggleErr: &apiclient.Error{Kind: apiclient.KindAPI, Status: 500, Message: "boom"},
	}
	m := newTestModel(t, api, &fakeAuth{user: "u-1", signed: true}, "")
	m, _ = update(t, m, mustMsg[viewLoadedMsg](t, m.initCmd))

	m, cmd := update(t, m, keyRunes("+"))
	if got := m.shakas[1]; got != (reaction.State{Count: 4}) {
		t.Fatalf("unexpected optimistic state: %+v", got)
	}
	m, flash := update(t, m, mustMsg[shakaResolvedMsg](t, cmd))
	if got := m.shakas[1]; got != (reaction.State{Count: 5, ViewerHasReacted: true}) {
		t.Fatalf("expected exact rollback; got %+v", got)
	}
	if m.flashID != 1 || flash == nil {
		t.Fatalf("expected the row to flash")
	}
	if !strings.Contains(m.minibuffer, "Shaka not saved") {
		t.Fatalf("expected a notice; got %q", m.minibuffer)
	}
}

func TestShaka_LateResultAfterRemountDropped(t *testing.T) {
	api := &fakeAPI{sessions: []model.Session{sessionFixture(1, 3, false)}, toggleTo: 99}
	m := newTestModel(t, api, &fakeAuth{user: "u-1", signed: true}, "")
	m, _ = update(t, m, mustMsg[viewLoadedMsg](t, m.initCmd))

	m, toggle := update(t, m, keyRunes(" "))
	m, reload := update(t, m, keyRunes("r"))
	m, _ = update(t, m, mustMsg[viewLoadedMsg](t, reload))
	m, _ = update(t, m, mustMsg[shakaResolvedMsg](t, toggle))

	if got := m.shakas[1]; got != (reaction.State{Count: 3}) {
		t.Fatalf("expected the remounted server state; got %+v", got)
	}
}

func TestShaka_DetailToggleSurvivesRemount(t *testing.T) {
	api := &fakeAPI{sessions: []model.Session{sessionFixture(1, 3, false)}, toggleTo: 5}
	m := newTestModel(t, api, &fakeAuth{user: "u-1", signed: true}, "")
	m, _ = update(t, m, mustMsg[viewLoadedMsg](t, m.initCmd))

	m, open := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, mustMsg[sessionLoadedMsg](t, open))
	m, toggle := update(t, m, keyRunes(" "))

	// The own log reloads (e.g. after a snake) while the toggle is in flight.
	reload := m.syncLocation(true)
	m, _ = update(t, m, mustMsg[viewLoadedMsg](t, reload))
	if got := m.shakas[1]; got != (reaction.State{Count: 4, ViewerHasReacted: true}) {
		t.Fatalf("optimistic detail state must survive the remount; got %+v", got)
	}
	if m.shakaInflight[1] != 1 {
		t.Fatalf("expected the toggle to stay pending; got %d", m.shakaInflight[1])
	}

	m, _ = update(t, m, mustMsg[shakaResolvedMsg](t, toggle))
	if got := m.shakas[1]; got != (reaction.State{Count: 5, ViewerHasReacted: true}) {
		t.Fatalf("expected the toggle outcome to apply; got %+v", got)
	}
	if m.shakaInflight[1] != 0 || len(m.shakaKeep) != 0 {
		t.Fatalf("expected the pending marker cleared; inflight=%d keep=%v", m.shakaInflight[1], m.shakaKeep)
	}
}

func TestReactors_ZeroCountMakesNoRequest(t *testing.T) {
	api := &fakeAPI{sessions: []model.Session{sessionFixture(1, 0, false)}}
	m := newTestModel(t, api, &fakeAuth{user: "u-1", signed: true}, "")
	m, _ = update(t, m, mustMsg[viewLoadedMsg](t, m.initCmd))

	m, _ = update(t, m, keyRunes("w"))
	if api.called("reactors") != 0 || m.modal != modalNone {
		t.Fatalf("expected no request and no modal")
	}
	if m.minibuffer != "No shakas yet" {
		t.Fatalf("unexpected notice %q", m.minibuffer)
	}
}

func TestReactors_OpensModal(t *testing.T) {
	api := &fakeAPI{sessions: []model.Session{sessionFixture(1, 1, false)}}
	m := newTestModel(t, api, &fakeAuth{user: "u-1", signed: true}, "")
	m, _ = update(t, m, mustMsg[viewLoadedMsg](t, m.initCmd))

	m, cmd := update(t, m, keyRunes("w"))
	m, _ = update(t, m, mustMsg[reactorsMsg](t, cmd))
	if m.modal != modalReactors || len(m.reactors.Items()) != 1 {
		t.Fatalf("expected reactor modal with one user")
	}

	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.modal != modalNone || cmd == nil {
		t.Fatalf("expected navigation to the reactor's journal")
	}
	if got := m.state.UserID; got != "u-2" {
		t.Fatalf("expected u-2 journal; got %q", got)
	}
}

func TestFilterModal_ReplacesLocation(t *testing.T) {
	api := &fakeAPI{}
	m := newTestModel(t, api, &fakeAuth{user: "u-1", signed: true}, "")
	m, _ = update(t, m, mustMsg[viewLoadedMsg](t, m.initCmd))

	m, _ = update(t, m, keyRunes("F"))
	m, _ = update(t, m, keyRunes("region=north"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatalf("expected a reload for the new filter")
	}
	if got := m.history.Current().Query.Get(viewstate.KeyRegion); got != "north" {
		t.Fatalf("expected region=north; got %q", got)
	}
	if m.history.Len() != 1 {
		t.Fatalf("filter edits replace the history entry")
	}
	m, _ = update(t, m, mustMsg[viewLoadedMsg](t, cmd))
	if api.called("sessions:u-1?region=north") != 1 {
		t.Fatalf("expected filtered request; calls=%v", api.calls)
	}

	m, cmd = update(t, m, keyRunes("x"))
	if cmd == nil || m.state.Filters.Len() != 0 {
		t.Fatalf("expected filters cleared")
	}
}

func TestFilterModal_UnknownKeyRejected(t *testing.T) {
	m := newTestModel(t, &fakeAPI{}, &fakeAuth{user: "u-1", signed: true}, "")
	m, _ = update(t, m, keyRunes("F"))
	m, _ = update(t, m, keyRunes("colour=blue"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.modal != modalFilter {
		t.Fatalf("expected the modal to stay open")
	}
	if !strings.Contains(m.minibuffer, "Unknown filter") {
		t.Fatalf("unexpected notice %q", m.minibuffer)
	}
}

func TestLoginRequired_ThenSignInReturnsToLocation(t *testing.T) {
	a := &fakeAuth{user: "u-1", signed: true}
	m := newTestModel(t, &fakeAPI{}, a, "/journal?tab=stats")

	a.signed = false
	m, _ = update(t, m, loginRequiredMsg{reason: "Your session has expired. Please log in again."})
	if m.view != viewLogin {
		t.Fatalf("expected login view")
	}
	if !strings.Contains(m.View(), "session has expired") {
		t.Fatalf("expected the reason on the login form")
	}

	m.login.email.SetValue("kelly@example.com")
	m.login.password.SetValue("pw")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.login.busy {
		t.Fatalf("expected busy while signing in")
	}
	m, cmd = update(t, m, mustMsg[loginDoneMsg](t, cmd))
	if m.view != viewBrowse || cmd == nil {
		t.Fatalf("expected browse view with a reload")
	}
	if m.state.Tab != viewstate.TabStats {
		t.Fatalf("expected to return to stats; got %v", m.state.Tab)
	}
}

func TestLogin_ErrorShownOnForm(t *testing.T) {
	m := newTestModel(t, &fakeAPI{}, &fakeAuth{user: "u-1"}, "")
	m.login.email.SetValue("wrong@example.com")
	m.login.password.SetValue("pw")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, mustMsg[loginDoneMsg](t, cmd))
	if m.view != viewLogin || m.login.err != "invalid credentials" {
		t.Fatalf("expected error on form; view=%v err=%q", m.view, m.login.err)
	}
}

func TestSessionDetail_LoadsCommentsAndIgnoresStale(t *testing.T) {
	api := &fakeAPI{sessions: []model.Session{sessionFixture(1, 2, false), sessionFixture(2, 0, false)}}
	m := newTestModel(t, api, &fakeAuth{user: "u-1", signed: true}, "")
	m, _ = update(t, m, mustMsg[viewLoadedMsg](t, m.initCmd))

	m, first := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, second := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	m, _ = update(t, m, mustMsg[sessionLoadedMsg](t, first))
	if m.detail != nil {
		t.Fatalf("stale detail load must be ignored")
	}
	m, _ = update(t, m, mustMsg[sessionLoadedMsg](t, second))
	if m.detail == nil || m.detail.ID != 2 {
		t.Fatalf("expected session 2; got %+v", m.detail)
	}
	if len(m.detailComments) != 1 {
		t.Fatalf("expected comments loaded")
	}
}

func TestLoadSession_SessionFailureFailsLoad(t *testing.T) {
	api := &fakeAPI{sessions: []model.Session{sessionFixture(1, 0, false)}}

	msg := mustMsg[sessionLoadedMsg](t, loadSessionCmd(context.Background(), api, zap.NewNop(), 99, 3))
	var apiErr *apiclient.Error
	if !errors.As(msg.err, &apiErr) || apiErr.Status != 404 {
		t.Fatalf("expected the session error from the group; got %v", msg.err)
	}
	if msg.seq != 3 {
		t.Fatalf("unexpected seq %d", msg.seq)
	}

	msg = mustMsg[sessionLoadedMsg](t, loadSessionCmd(context.Background(), api, zap.NewNop(), 1, 4))
	if msg.err != nil || msg.session.ID != 1 || len(msg.comments) != 1 {
		t.Fatalf("unexpected load: %+v", msg)
	}
}

func TestNotifications_SnakeReloadsOwnLog(t *testing.T) {
	api := &fakeAPI{}
	m := newTestModel(t, api, &fakeAuth{user: "u-1", signed: true}, "")
	m, _ = update(t, m, mustMsg[viewLoadedMsg](t, m.initCmd))

	m, cmd := update(t, m, keyRunes("n"))
	m, _ = update(t, m, mustMsg[notificationsMsg](t, cmd))
	if len(m.notifications.Items()) != 1 {
		t.Fatalf("expected one notification")
	}
	m, cmd = update(t, m, keyRunes("s"))
	m, cmd = update(t, m, mustMsg[snakedMsg](t, cmd))
	if cmd == nil || !strings.Contains(m.minibuffer, "#42") {
		t.Fatalf("expected notice and reload; notice=%q", m.minibuffer)
	}
}

func TestLoginNavigator_DeliversPendingOnAttach(t *testing.T) {
	var n LoginNavigator
	n.ToLogin("expired")

	got := make(chan tea.Msg, 1)
	n.attach(func(msg tea.Msg) { got <- msg })
	select {
	case msg := <-got:
		if lr, ok := msg.(loginRequiredMsg); !ok || lr.reason != "expired" {
			t.Fatalf("unexpected message %#v", msg)
		}
	case <-time.After(time.Second):
		t.Fatalf("pending login request not delivered")
	}

	n.ToLogin("again")
	if msg := <-got; msg.(loginRequiredMsg).reason != "again" {
		t.Fatalf("expected direct delivery once attached")
	}
	n.detach()
}
