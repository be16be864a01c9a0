package tui

import (
	"context"
	"sync"
	"time"

	"surflog-cli/internal/auth"
	"surflog-cli/internal/journal"
	"surflog-cli/internal/model"
	"surflog-cli/internal/reaction"
	"surflog-cli/internal/search"
	"surflog-cli/internal/store"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// API is the slice of the API client the TUI talks to.
type API interface {
	journal.Fetcher
	reaction.API
	search.UserSearcher
	auth.Authenticator

	Session(ctx context.Context, sessionID int64) (model.Session, error)
	Comments(ctx context.Context, sessionID int64) ([]model.Comment, error)
	PostComment(ctx context.Context, sessionID int64, text string) (model.Comment, error)
	Notifications(ctx context.Context) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID int64) error
	SnakeSession(ctx context.Context, sessionID int64) (int64, error)
}

type Deps struct {
	API      API
	Auth     Auth
	Config   *store.Config
	Logger   *zap.Logger
	Navigate *LoginNavigator
	Now      func() time.Time
}

// LoginNavigator routes the API client's "go to login" into the running program.
// Requests made before the program starts are delivered once it is attached.
type LoginNavigator struct {
	mu      sync.Mutex
	send    func(tea.Msg)
	pending string
}

func (n *LoginNavigator) ToLogin(reason string) {
	n.mu.Lock()
	send := n.send
	if send == nil {
		n.pending = reason
	}
	n.mu.Unlock()
	if send != nil {
		send(loginRequiredMsg{reason: reason})
	}
}

func (n *LoginNavigator) attach(send func(tea.Msg)) {
	n.mu.Lock()
	n.send = send
	reason := n.pending
	n.pending = ""
	n.mu.Unlock()
	if reason != "" {
		// Program.Send blocks until the event loop runs.
		go send(loginRequiredMsg{reason: reason})
	}
}

func (n *LoginNavigator) detach() {
	n.mu.Lock()
	n.send = nil
	n.mu.Unlock()
}

func Run(ctx context.Context, deps Deps) error {
	applyColorProfilePreference()
	applyThemePreference()
	applyMarkdownPreference(deps.Config)

	m := newAppModel(ctx, deps)
	defer m.close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if deps.Navigate != nil {
		deps.Navigate.attach(p.Send)
		defer deps.Navigate.detach()
	}
	if w, err := store.WatchConfig(ctx, deps.Logger, func(cfg *store.Config) {
		p.Send(configChangedMsg{cfg: cfg})
	}); err != nil {
		if deps.Logger != nil {
			deps.Logger.Warn("config watch disabled", zap.Error(err))
		}
	} else {
		defer w.Close()
	}
	_, err := p.Run()
	return err
}
