package tui

import (
	"context"
	"time"

	"surflog-cli/internal/journal"
	"surflog-cli/internal/model"
	"surflog-cli/internal/reaction"
	"surflog-cli/internal/search"
	"surflog-cli/internal/store"
	"surflog-cli/internal/viewstate"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type viewLoadedMsg struct {
	gen uint64
	res journal.Result
}

type shakaResolvedMsg struct {
	mount   uint64
	outcome reaction.Outcome
}

type reactorsMsg struct {
	sessionID int64
	detail    reaction.Detail
}

type sessionLoadedMsg struct {
	seq      uint64
	session  model.Session
	comments []model.Comment
	err      error
}

type commentPostedMsg struct {
	sessionID int64
	comment   model.Comment
	err       error
}

type searchResultMsg struct {
	result search.Result
}

type notificationsMsg struct {
	seq   uint64
	items []model.Notification
	err   error
}

type notificationReadMsg struct {
	id  int64
	err error
}

type snakedMsg struct {
	sessionID    int64
	newSessionID int64
	err          error
}

type loginDoneMsg struct {
	profile model.UserProfile
	err     error
}

// loginRequiredMsg is sent by LoginNavigator when the API rejects the credential.
type loginRequiredMsg struct {
	reason string
}

type logoutDoneMsg struct {
	err error
}

// configChangedMsg carries config.json after it changed on disk.
type configChangedMsg struct {
	cfg *store.Config
}

type flashDoneMsg struct{ seq int }

type minibufferClearMsg struct{ seq int }

func loadViewCmd(ctx context.Context, cancel context.CancelFunc, f journal.Fetcher, spec viewstate.QuerySpec, gen uint64) tea.Cmd {
	return func() tea.Msg {
		defer cancel()
		return viewLoadedMsg{gen: gen, res: journal.Fetch(ctx, f, spec)}
	}
}

func toggleShakaCmd(ctx context.Context, timeout time.Duration, t reaction.Toggler, p reaction.Pending, mount uint64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return shakaResolvedMsg{mount: mount, outcome: p.Do(ctx, t)}
	}
}

func openReactorsCmd(ctx context.Context, l reaction.ReactorLister, log *zap.Logger, s model.Session, st reaction.State) tea.Cmd {
	return func() tea.Msg {
		return reactorsMsg{
			sessionID: s.ID,
			detail:    reaction.OpenDetail(ctx, s.ID, st, s.Shakas.Preview, l, log),
		}
	}
}

// loadSessionCmd fetches a session and its comments together. A comments failure
// leaves the list empty; only the session itself can fail the load, and that
// failure cancels the comments request.
func loadSessionCmd(ctx context.Context, api API, log *zap.Logger, id int64, seq uint64) tea.Cmd {
	return func() tea.Msg {
		var (
			sess     model.Session
			comments []model.Comment
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			s, err := api.Session(gctx, id)
			if err != nil {
				return err
			}
			sess = s
			return nil
		})
		g.Go(func() error {
			cs, err := api.Comments(gctx, id)
			if err != nil {
				if gctx.Err() == nil {
					log.Warn("load comments", zap.Int64("session_id", id), zap.Error(err))
				}
				return nil
			}
			comments = cs
			return nil
		})
		err := g.Wait()
		return sessionLoadedMsg{seq: seq, session: sess, comments: comments, err: err}
	}
}

func postCommentCmd(ctx context.Context, api API, id int64, text string) tea.Cmd {
	return func() tea.Msg {
		c, err := api.PostComment(ctx, id, text)
		return commentPostedMsg{sessionID: id, comment: c, err: err}
	}
}

func loadNotificationsCmd(ctx context.Context, api API, seq uint64) tea.Cmd {
	return func() tea.Msg {
		ns, err := api.Notifications(ctx)
		return notificationsMsg{seq: seq, items: ns, err: err}
	}
}

func markReadCmd(ctx context.Context, api API, id int64) tea.Cmd {
	return func() tea.Msg {
		return notificationReadMsg{id: id, err: api.MarkNotificationRead(ctx, id)}
	}
}

func snakeCmd(ctx context.Context, api API, sessionID int64) tea.Cmd {
	return func() tea.Msg {
		id, err := api.SnakeSession(ctx, sessionID)
		return snakedMsg{sessionID: sessionID, newSessionID: id, err: err}
	}
}

func loginCmd(ctx context.Context, a Auth, api API, email, password string) tea.Cmd {
	return func() tea.Msg {
		p, err := a.Login(ctx, api, email, password)
		return loginDoneMsg{profile: p, err: err}
	}
}

func logoutCmd(ctx context.Context, a Auth) tea.Cmd {
	return func() tea.Msg {
		return logoutDoneMsg{err: a.Logout(ctx)}
	}
}

// waitForSearch delivers the next search result. It returns nil once the
// searcher is closed, which ends the listen loop.
func waitForSearch(s *search.Searcher) tea.Cmd {
	return func() tea.Msg {
		r, ok := <-s.Results()
		if !ok {
			return nil
		}
		return searchResultMsg{result: r}
	}
}

func flashCmd(seq int) tea.Cmd {
	return tea.Tick(flashTTL, func(time.Time) tea.Msg { return flashDoneMsg{seq: seq} })
}
