package tui

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"surflog-cli/internal/apiclient"
	"surflog-cli/internal/reaction"
	"surflog-cli/internal/viewstate"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeLists()
		return m, nil

	case minibufferClearMsg:
		if msg.seq == m.minibufferSeq {
			m.minibuffer = ""
		}
		return m, nil

	case flashDoneMsg:
		if msg.seq == m.flashSeq {
			m.flashID = 0
			m.redrawShakas()
		}
		return m, nil

	case configChangedMsg:
		applyMarkdownPreference(msg.cfg)
		m.log.Debug("config changed")
		return m, m.showMinibuffer("Config reloaded")

	case loginRequiredMsg:
		return m.toLogin(msg.reason), nil

	case loginDoneMsg:
		return m.applyLogin(msg)

	case logoutDoneMsg:
		if msg.err != nil {
			m.log.Warn("logout", zap.Error(msg.err))
		}
		return m.toLogin(""), nil

	case viewLoadedMsg:
		return m.applyViewLoaded(msg)

	case shakaResolvedMsg:
		return m.applyShaka(msg)

	case reactorsMsg:
		if !msg.detail.Open {
			return m, m.showMinibuffer("No shakas yet")
		}
		m.modal = modalReactors
		m.reactors.SetItems(userItems(msg.detail.Reactors))
		m.reactorsNote = ""
		if msg.detail.FromPreview {
			m.reactorsNote = "Full list unavailable; showing a preview."
		}
		return m, nil

	case sessionLoadedMsg:
		if msg.seq != m.detailSeq || m.view != viewSession {
			return m, nil
		}
		if msg.err != nil {
			m.detailErr = msg.err
			return m, nil
		}
		s := msg.session
		m.detail = &s
		m.detailComments = msg.comments
		m.detailErr = nil
		if _, ok := m.shakas[s.ID]; !ok {
			m.shakas[s.ID] = reaction.Initialize(s.Shakas)
		}
		return m, nil

	case commentPostedMsg:
		if msg.err != nil {
			return m, m.showMinibuffer("Comment not posted: " + apiclient.UserMessage(msg.err))
		}
		if m.detail != nil && m.detail.ID == msg.sessionID {
			m.detailComments = append(m.detailComments, msg.comment)
		}
		return m, m.showMinibuffer("Comment posted")

	case searchResultMsg:
		m.applySearch(msg)
		return m, waitForSearch(m.res.searcher)

	case notificationsMsg:
		if msg.seq != m.notifSeq {
			return m, nil
		}
		if msg.err != nil {
			return m, m.showMinibuffer(apiclient.UserMessage(msg.err))
		}
		items := make([]list.Item, 0, len(msg.items))
		for _, n := range msg.items {
			items = append(items, notificationItem{n: n})
		}
		m.notifications.SetItems(items)
		return m, nil

	case notificationReadMsg:
		if msg.err != nil {
			m.log.Warn("mark notification read", zap.Int64("notification_id", msg.id), zap.Error(msg.err))
			return m, nil
		}
		m.markNotificationRead(msg.id)
		return m, nil

	case snakedMsg:
		if msg.err != nil {
			return m, m.showMinibuffer("Snake failed: " + apiclient.UserMessage(msg.err))
		}
		m.log.Info("session snaked", zap.Int64("session_id", msg.sessionID), zap.Int64("new_session_id", msg.newSessionID))
		return m, tea.Batch(
			m.showMinibuffer("Snaked into your journal as #"+strconv.FormatInt(msg.newSessionID, 10)),
			m.reloadIfOwnJournal(),
		)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.view == viewLogin {
			return m.updateLogin(msg)
		}
		if m.modal != modalNone {
			return m.updateModal(msg)
		}
		switch m.view {
		case viewBrowse:
			return m.updateBrowse(msg)
		case viewSession:
			return m.updateSession(msg)
		case viewNotifications:
			return m.updateNotifications(msg)
		}
	}

	// Cursor blink and other input housekeeping go to the focused input.
	var cmd tea.Cmd
	switch {
	case m.view == viewLogin:
		m.login, cmd = m.login.update(msg)
	case m.modal == modalSearch:
		m.searchInput, cmd = m.searchInput.Update(msg)
	case m.modal == modalComment:
		m.commentInput, cmd = m.commentInput.Update(msg)
	case m.modal == modalFilter:
		m.filterInput, cmd = m.filterInput.Update(msg)
	}
	return m, cmd
}

func (m appModel) applyViewLoaded(msg viewLoadedMsg) (tea.Model, tea.Cmd) {
	if !m.page.Resolve(msg.gen, msg.res) {
		m.log.Debug("stale view load dropped", zap.Uint64("gen", msg.gen), zap.Uint64("current", m.page.Generation()))
		return m, nil
	}
	m.loadCancel = nil
	snap := m.page.Snapshot()
	m.mountRows(snap)
	if err := snap.Err(); err != nil {
		if errors.Is(err, context.Canceled) {
			return m, nil
		}
		m.log.Warn("view load failed",
			zap.String("query", snap.Spec.Key()),
			zap.Bool("fatal", snap.Fatal()),
			zap.Error(err))
		if apiclient.IsUnauthorized(err) {
			// The navigator moves us to login.
			return m, nil
		}
		return m, m.showMinibuffer(apiclient.UserMessage(err))
	}
	return m, nil
}

func (m appModel) applyShaka(msg shakaResolvedMsg) (tea.Model, tea.Cmd) {
	o := msg.outcome
	keep, kept := m.shakaKeep[o.SessionID]
	current := msg.mount == m.shakaMount || (kept && msg.mount >= keep)
	if !current || o.Canceled() {
		m.log.Debug("late shaka result dropped", zap.Int64("session_id", o.SessionID))
		return m, nil
	}
	m.shakas[o.SessionID] = o.State
	if m.shakaInflight[o.SessionID] > 0 {
		m.shakaInflight[o.SessionID]--
	}
	if kept && m.shakaInflight[o.SessionID] == 0 {
		delete(m.shakaKeep, o.SessionID)
	}
	if o.Phase != reaction.PhaseRolledBack {
		m.redrawShakas()
		return m, nil
	}

	m.log.Warn("shaka toggle failed; rolled back",
		zap.Int64("session_id", o.SessionID),
		zap.Int("count", o.State.Count),
		zap.Bool("viewer_has_reacted", o.State.ViewerHasReacted),
		zap.Error(o.Err))
	m.flashID = o.SessionID
	m.flashSeq++
	m.redrawShakas()
	cmds := []tea.Cmd{flashCmd(m.flashSeq)}
	if !apiclient.IsUnauthorized(o.Err) {
		cmds = append(cmds, m.showMinibuffer("Shaka not saved: "+apiclient.UserMessage(o.Err)))
	}
	return m, tea.Batch(cmds...)
}

func (m appModel) applyLogin(msg loginDoneMsg) (tea.Model, tea.Cmd) {
	m.login.busy = false
	if msg.err != nil {
		m.login.err = apiclient.UserMessage(msg.err)
		if !errors.As(msg.err, new(*apiclient.Error)) {
			m.login.err = msg.err.Error()
		}
		return m, nil
	}
	m.login.reason = ""
	m.login.err = ""
	m.login.password.SetValue("")
	m.view = viewBrowse
	name := msg.profile.DisplayName
	if name == "" {
		name = msg.profile.Email
	}
	return m, tea.Batch(m.syncLocation(true), m.showMinibuffer("Signed in as "+name))
}

// toLogin shows the login form. In-flight loads are aborted; the location is kept
// so signing in again returns to it.
func (m appModel) toLogin(reason string) appModel {
	m.abortLoad()
	m.view = viewLogin
	m.modal = modalNone
	m.detail = nil
	m.login.reset(reason)
	return m
}

func (m appModel) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.login.busy {
		return m, nil
	}
	switch msg.String() {
	case "tab", "shift+tab", "down", "up":
		m.login.focus(1 - m.login.focused)
		return m, nil
	case "enter":
		email, password := m.login.credentials()
		if email == "" || password == "" {
			m.login.err = "Email and password are required."
			return m, nil
		}
		if m.login.focused == 0 {
			m.login.focus(1)
		}
		m.login.busy = true
		m.login.err = ""
		return m, loginCmd(m.res.ctx, m.auth, m.api, email, password)
	}
	var cmd tea.Cmd
	m.login, cmd = m.login.update(msg)
	return m, cmd
}

func (m appModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "tab", "shift+tab":
		return m, m.cycleTab(msg.String() == "shift+tab")
	case "[", "]":
		year := m.state.Year + 1
		if msg.String() == "[" {
			year = m.state.Year - 1
		}
		year = viewstate.ClampYear(year, m.now())
		if year == m.state.Year {
			return m, nil
		}
		m.history.SetYear(year)
		return m, m.syncLocation(false)
	case "s":
		if m.state.Tab != viewstate.TabLeaderboard {
			return m, nil
		}
		m.history.Replace(m.history.Current().With(viewstate.KeyStat, nextStat(m.state.Stat)))
		return m, m.syncLocation(false)
	case "f":
		if m.state.Location.IsFeed() {
			m.history.Navigate(viewstate.JournalLocation("", nil))
		} else {
			m.history.Navigate(viewstate.Location{Path: viewstate.PathFeed})
		}
		return m, m.syncLocation(false)
	case "b", "backspace":
		if _, ok := m.history.Back(); !ok {
			return m, nil
		}
		return m, m.syncLocation(false)
	case "r":
		return m, m.syncLocation(true)
	case "/":
		m.modal = modalSearch
		m.searchInput.SetValue("")
		m.searchList.SetItems(nil)
		m.searchStatus = ""
		return m, m.searchInput.Focus()
	case "F":
		m.modal = modalFilter
		m.filterInput.SetValue("")
		return m, m.filterInput.Focus()
	case "x":
		loc := m.history.Current()
		loc.Query = viewstate.ClearFilters(loc.Query)
		m.history.Replace(loc)
		return m, m.syncLocation(false)
	case "n":
		return m, m.openNotifications()
	case "L":
		return m, logoutCmd(m.res.ctx, m.auth)
	case " ", "+":
		return m, m.toggleShaka()
	case "w":
		return m, m.openReactors()
	case "enter":
		if s, ok := m.selectedSession(); ok {
			return m, m.openSession(s.ID)
		}
		return m, nil
	}

	var cmd tea.Cmd
	if m.state.Tab == viewstate.TabLeaderboard {
		m.board, cmd = m.board.Update(msg)
	} else {
		m.sessions, cmd = m.sessions.Update(msg)
	}
	return m, cmd
}

func nextStat(cur string) string {
	for i, s := range viewstate.LeaderboardStats {
		if s == cur {
			return viewstate.LeaderboardStats[(i+1)%len(viewstate.LeaderboardStats)]
		}
	}
	return viewstate.LeaderboardStats[0]
}

func (m *appModel) cycleTab(reverse bool) tea.Cmd {
	tabs := viewstate.JournalTabs
	if m.state.Location.IsFeed() {
		tabs = viewstate.FeedTabs
	}
	i := 0
	for j, t := range tabs {
		if t == m.state.Tab {
			i = j
		}
	}
	if reverse {
		i = (i - 1 + len(tabs)) % len(tabs)
	} else {
		i = (i + 1) % len(tabs)
	}
	m.history.SetTab(tabs[i])
	return m.syncLocation(false)
}

// toggleShaka applies the optimistic state at once and resolves it asynchronously.
func (m *appModel) toggleShaka() tea.Cmd {
	s, ok := m.selectedSession()
	if !ok {
		return nil
	}
	cur, ok := m.shakas[s.ID]
	if !ok {
		cur = reaction.Initialize(s.Shakas)
	}
	optimistic, pending := reaction.Toggle(s.ID, cur)
	m.shakas[s.ID] = optimistic
	m.shakaInflight[s.ID]++
	m.redrawShakas()
	return toggleShakaCmd(m.res.ctx, m.timeout, m.api, pending, m.shakaMount)
}

func (m *appModel) openReactors() tea.Cmd {
	s, ok := m.selectedSession()
	if !ok {
		return nil
	}
	st, ok := m.shakas[s.ID]
	if !ok {
		st = reaction.Initialize(s.Shakas)
	}
	if st.Count <= 0 {
		return m.showMinibuffer("No shakas yet")
	}
	return openReactorsCmd(m.res.ctx, m.api, m.log, s, st)
}

func (m *appModel) openSession(id int64) tea.Cmd {
	m.view = viewSession
	m.detail = nil
	m.detailComments = nil
	m.detailErr = nil
	m.detailScroll = 0
	m.detailSeq++
	return loadSessionCmd(m.res.ctx, m.api, m.log, id, m.detailSeq)
}

func (m *appModel) openNotifications() tea.Cmd {
	m.view = viewNotifications
	m.notifSeq++
	return loadNotificationsCmd(m.res.ctx, m.api, m.notifSeq)
}

func (m *appModel) markNotificationRead(id int64) {
	items := m.notifications.Items()
	for i, it := range items {
		if ni, ok := it.(notificationItem); ok && ni.n.ID == id {
			ni.n.Read = true
			m.notifications.SetItem(i, ni)
		}
	}
}

// reloadIfOwnJournal refreshes the viewer's log after a snake copied a session into it.
func (m *appModel) reloadIfOwnJournal() tea.Cmd {
	if m.state.Location.IsFeed() || m.state.Tab != viewstate.TabLog {
		return nil
	}
	if m.auth == nil || m.state.UserID != m.auth.UserID() {
		return nil
	}
	return m.syncLocation(true)
}

func (m appModel) updateSession(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc", "b", "backspace":
		m.view = viewBrowse
		m.detail = nil
		m.detailSeq++
		return m, nil
	case " ", "+":
		return m, m.toggleShaka()
	case "w":
		return m, m.openReactors()
	case "c":
		if m.detail == nil {
			return m, nil
		}
		m.modal = modalComment
		m.commentInput.SetValue("")
		return m, m.commentInput.Focus()
	case "j", "down":
		m.detailScroll++
		return m, nil
	case "k", "up":
		if m.detailScroll > 0 {
			m.detailScroll--
		}
		return m, nil
	}
	return m, nil
}

func (m appModel) updateNotifications(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	it, _ := m.notifications.SelectedItem().(notificationItem)
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc", "b", "backspace":
		m.view = viewBrowse
		return m, nil
	case "r":
		return m, m.openNotifications()
	case "enter":
		if it.n.ID == 0 {
			return m, nil
		}
		cmds := []tea.Cmd{m.openSession(it.n.SessionID)}
		if !it.n.Read {
			cmds = append(cmds, markReadCmd(m.res.ctx, m.api, it.n.ID))
		}
		return m, tea.Batch(cmds...)
	case "s":
		if it.n.ID == 0 {
			return m, nil
		}
		return m, snakeCmd(m.res.ctx, m.api, it.n.SessionID)
	}
	var cmd tea.Cmd
	m.notifications, cmd = m.notifications.Update(msg)
	return m, cmd
}

func (m appModel) updateModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		if m.modal == modalSearch {
			m.res.searcher.Input("")
			m.searchInput.Blur()
		}
		m.commentInput.Blur()
		m.filterInput.Blur()
		m.modal = modalNone
		return m, nil
	}

	switch m.modal {
	case modalReactors:
		if msg.String() == "enter" {
			if u, ok := m.reactors.SelectedItem().(userItem); ok {
				m.modal = modalNone
				return m.navigateToUser(u.user.UserID)
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.reactors, cmd = m.reactors.Update(msg)
		return m, cmd

	case modalSearch:
		switch msg.String() {
		case "enter":
			if u, ok := m.searchList.SelectedItem().(userItem); ok {
				m.modal = modalNone
				m.searchInput.Blur()
				m.res.searcher.Input("")
				return m.navigateToUser(u.user.UserID)
			}
			return m, nil
		case "up", "down", "ctrl+p", "ctrl+n":
			var cmd tea.Cmd
			m.searchList, cmd = m.searchList.Update(msg)
			return m, cmd
		}
		before := m.searchInput.Value()
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		if v := m.searchInput.Value(); v != before {
			m.res.searcher.Input(v)
			m.searchStatus = "searching…"
		}
		return m, cmd

	case modalComment:
		if msg.String() == "enter" {
			text := strings.TrimSpace(m.commentInput.Value())
			if text == "" || m.detail == nil {
				return m, nil
			}
			m.modal = modalNone
			m.commentInput.Blur()
			return m, postCommentCmd(m.res.ctx, m.api, m.detail.ID, text)
		}
		var cmd tea.Cmd
		m.commentInput, cmd = m.commentInput.Update(msg)
		return m, cmd

	case modalFilter:
		if msg.String() == "enter" {
			key, value, ok := strings.Cut(m.filterInput.Value(), "=")
			key = strings.TrimSpace(key)
			if !ok || !viewstate.IsFilterKey(key) {
				return m, m.showMinibuffer("Unknown filter; use one of: " + strings.Join(viewstate.FilterKeys, ", "))
			}
			m.modal = modalNone
			m.filterInput.Blur()
			m.history.SetFilter(key, strings.TrimSpace(value))
			return m, m.syncLocation(false)
		}
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m appModel) navigateToUser(userID string) (tea.Model, tea.Cmd) {
	m.view = viewBrowse
	m.detail = nil
	m.history.Navigate(viewstate.JournalLocation(userID, nil))
	return m, m.syncLocation(false)
}

func (m *appModel) applySearch(msg searchResultMsg) {
	r := msg.result
	if m.modal != modalSearch {
		return
	}
	switch {
	case r.Cleared:
		m.searchList.SetItems(nil)
		m.searchStatus = ""
	case r.Err != nil:
		m.searchList.SetItems(nil)
		m.searchStatus = apiclient.UserMessage(r.Err)
	default:
		m.searchList.SetItems(userItems(r.Users))
		m.searchStatus = ""
		if len(r.Users) == 0 {
			m.searchStatus = "No surfers match " + strconv.Quote(r.Query)
		}
	}
}
