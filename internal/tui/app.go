package tui

import (
	"context"
	"strings"
	"time"

	"surflog-cli/internal/auth"
	"surflog-cli/internal/journal"
	"surflog-cli/internal/model"
	"surflog-cli/internal/reaction"
	"surflog-cli/internal/search"
	"surflog-cli/internal/viewstate"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// Auth is the credential owner as seen by the TUI.
type Auth interface {
	Authenticated() bool
	UserID() string
	Login(ctx context.Context, a auth.Authenticator, email, password string) (model.UserProfile, error)
	Logout(ctx context.Context) error
}

type view int

const (
	viewLogin view = iota
	viewBrowse
	viewSession
	viewNotifications
)

type modalKind int

const (
	modalNone modalKind = iota
	modalSearch
	modalReactors
	modalComment
	modalFilter
)

const (
	defaultRequestTimeout = 30 * time.Second
	minibufferTTL         = 4 * time.Second
	flashTTL              = 700 * time.Millisecond
)

// resources are shared by every copy of the model and released when the program exits.
type resources struct {
	ctx      context.Context
	cancel   context.CancelFunc
	searcher *search.Searcher
}

type appModel struct {
	api     API
	auth    Auth
	log     *zap.Logger
	now     func() time.Time
	timeout time.Duration
	res     *resources

	width  int
	height int

	view  view
	modal modalKind

	history    *viewstate.History
	state      viewstate.State
	page       journal.View
	loadCancel context.CancelFunc
	initCmd    tea.Cmd

	sessions list.Model
	board    list.Model
	rows     []model.Session

	// Local shaka state of the mounted rows. shakaMount changes whenever the rows are
	// replaced so toggles resolving after that are dropped.
	shakas        map[int64]reaction.State
	shakaInflight map[int64]int
	shakaMount    uint64
	// shakaKeep holds the open detail session across remounts while its toggle is
	// in flight: results tagged with a mount at or after the value still apply.
	shakaKeep map[int64]uint64
	flashID       int64
	flashSeq      int

	detail         *model.Session
	detailComments []model.Comment
	detailErr      error
	detailSeq      uint64
	detailScroll   int

	reactors     list.Model
	reactorsNote string

	searchInput  textinput.Model
	searchList   list.Model
	searchStatus string

	commentInput textinput.Model
	filterInput  textinput.Model

	notifications list.Model
	notifSeq      uint64

	login loginForm

	minibuffer    string
	minibufferSeq int
}

func newAppModel(ctx context.Context, deps Deps) appModel {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	rctx, cancel := context.WithCancel(ctx)
	res := &resources{ctx: rctx, cancel: cancel}
	opts := search.Options{Logger: log.Named("search"), Timeout: defaultRequestTimeout}
	if deps.Config != nil {
		opts.Delay = deps.Config.SearchDebounce()
	}
	res.searcher = search.New(deps.API, opts)

	start := viewstate.JournalLocation("", nil)
	if deps.Config != nil && deps.Config.TUI != nil && strings.TrimSpace(deps.Config.TUI.DefaultView) != "" {
		if loc := viewstate.ParseLocation(deps.Config.TUI.DefaultView); !loc.IsLogin() {
			start = loc
		}
	}

	m := appModel{
		api:           deps.API,
		auth:          deps.Auth,
		log:           log,
		now:           now,
		timeout:       defaultRequestTimeout,
		res:           res,
		history:       viewstate.NewHistory(start),
		sessions:      newList("Sessions", nil),
		board:         newList("Leaderboard", nil),
		reactors:      newList("Shakas", nil),
		searchList:    newList("Surfers", nil),
		notifications: newList("Notifications", nil),
		shakas:        map[int64]reaction.State{},
		shakaInflight: map[int64]int{},
		shakaKeep:     map[int64]uint64{},
		searchInput:   newTextInput("name or email"),
		commentInput:  newTextInput("say something nice"),
		filterInput:   newTextInput("region=north, min_swell_height=3, region= to clear"),
		login:         newLoginForm(),
	}

	if m.auth != nil && m.auth.Authenticated() {
		m.view = viewBrowse
		m.initCmd = m.syncLocation(false)
	} else {
		m.view = viewLogin
		m.login.focus(0)
	}
	return m
}

func newTextInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = ""
	ti.CharLimit = 500
	return ti
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(m.initCmd, waitForSearch(m.res.searcher), textinput.Blink)
}

// close aborts in-flight work and stops the searcher.
func (m appModel) close() {
	m.res.cancel()
	m.res.searcher.Close()
}

func (m *appModel) resizeLists() {
	// Leave room for header, tabs and footer.
	h := m.height - 6
	if h < 4 {
		h = 4
	}
	w := m.width
	if w < 20 {
		w = 20
	}
	m.sessions.SetSize(w, h)
	m.board.SetSize(w, h)
	m.notifications.SetSize(w, h)

	mw := modalBodyWidth(m.width)
	mh := h / 2
	if mh < 3 {
		mh = 3
	}
	m.reactors.SetSize(mw, mh)
	m.searchList.SetSize(mw, mh)
	m.searchInput.Width = mw - 2
	m.commentInput.Width = mw - 2
	m.filterInput.Width = mw - 2
	m.login.setWidth(mw - 2)
}

// syncLocation resolves the current history entry and starts loading it unless
// it is already loading or loaded. force reloads regardless.
func (m *appModel) syncLocation(force bool) tea.Cmd {
	viewer := ""
	if m.auth != nil {
		viewer = m.auth.UserID()
	}
	m.state = viewstate.Resolve(m.history.Current(), viewer, m.now())
	spec := m.state.Query()

	var gen uint64
	if force {
		gen = m.page.Reload(spec)
	} else {
		g, changed := m.page.Begin(spec)
		if !changed {
			return nil
		}
		gen = g
	}
	if m.loadCancel != nil {
		m.loadCancel()
	}
	ctx, cancel := context.WithTimeout(m.res.ctx, m.timeout)
	m.loadCancel = cancel
	m.log.Debug("loading view",
		zap.String("location", m.state.Location.String()),
		zap.String("query", spec.Key()),
		zap.Uint64("gen", gen))
	return loadViewCmd(ctx, cancel, m.api, spec, gen)
}

func (m *appModel) abortLoad() {
	if m.loadCancel != nil {
		m.loadCancel()
		m.loadCancel = nil
	}
}

// mountRows replaces the list rows with the loaded snapshot and resets local
// shaka state from the server summaries.
func (m *appModel) mountRows(snap journal.Snapshot) {
	prevShakas, prevInflight, prevMount := m.shakas, m.shakaInflight, m.shakaMount
	m.shakaMount++
	m.shakas = map[int64]reaction.State{}
	m.shakaInflight = map[int64]int{}
	keep := map[int64]uint64{}
	for _, s := range snap.Panel.Sessions {
		m.shakas[s.ID] = reaction.Initialize(s.Shakas)
	}
	if m.detail != nil {
		id := m.detail.ID
		cur, seen := prevShakas[id]
		switch {
		case prevInflight[id] > 0:
			m.shakas[id] = cur
			m.shakaInflight[id] = prevInflight[id]
			keep[id] = prevMount
			if k, ok := m.shakaKeep[id]; ok {
				keep[id] = k
			}
		case seen:
			if _, ok := m.shakas[id]; !ok {
				m.shakas[id] = cur
			}
		default:
			if _, ok := m.shakas[id]; !ok {
				m.shakas[id] = reaction.Initialize(m.detail.Shakas)
			}
		}
	}
	m.shakaKeep = keep
	m.rows = snap.Panel.Sessions
	m.refreshSessionRows(m.rows)

	items := make([]list.Item, 0, len(snap.Panel.Leaderboard))
	for i, e := range snap.Panel.Leaderboard {
		items = append(items, leaderboardItem{rank: i + 1, entry: e, stat: m.state.Stat})
	}
	m.board.SetItems(items)
}

func (m *appModel) refreshSessionRows(sessions []model.Session) {
	idx := m.sessions.Index()
	items := make([]list.Item, 0, len(sessions))
	for _, s := range sessions {
		items = append(items, sessionItem{
			session:    s,
			shakas:     m.shakas[s.ID],
			pending:    m.shakaInflight[s.ID] > 0,
			flashing:   m.flashID == s.ID,
			showSurfer: m.state.Location.IsFeed(),
		})
	}
	m.sessions.SetItems(items)
	if idx < len(items) {
		m.sessions.Select(idx)
	}
}

// redrawShakas re-renders the rows after a local shaka change.
func (m *appModel) redrawShakas() {
	m.refreshSessionRows(m.rows)
}

func (m *appModel) selectedSession() (model.Session, bool) {
	if m.view == viewSession && m.detail != nil {
		return *m.detail, true
	}
	it, ok := m.sessions.SelectedItem().(sessionItem)
	if !ok {
		return model.Session{}, false
	}
	return it.session, true
}

func (m *appModel) showMinibuffer(text string) tea.Cmd {
	m.minibuffer = text
	m.minibufferSeq++
	seq := m.minibufferSeq
	return tea.Tick(minibufferTTL, func(time.Time) tea.Msg { return minibufferClearMsg{seq: seq} })
}
