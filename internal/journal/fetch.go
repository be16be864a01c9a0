package journal

import (
	"context"
	"fmt"
	"net/url"

	"surflog-cli/internal/model"
	"surflog-cli/internal/viewstate"

	"golang.org/x/sync/errgroup"
)

// Fetcher is the slice of the API client a view loads from.
type Fetcher interface {
	Profile(ctx context.Context, userID string) (model.UserProfile, error)
	UserSessions(ctx context.Context, userID string, filters url.Values) ([]model.Session, error)
	Stats(ctx context.Context, userID string, year int) (model.Stats, error)
	Feed(ctx context.Context, filters url.Values) ([]model.Session, error)
	Leaderboard(ctx context.Context, year int, stat string) ([]model.LeaderboardEntry, error)
}

// Fetch performs the requests of spec concurrently. It never returns an error;
// failures are recorded per request in the Result. A panel failure does not
// cancel the profile request or the other way round.
func Fetch(ctx context.Context, f Fetcher, spec viewstate.QuerySpec) Result {
	var (
		res Result
		g   errgroup.Group
	)
	if req, ok := spec.Profile(); ok {
		g.Go(func() error {
			p, err := f.Profile(ctx, req.UserID)
			if err != nil {
				res.ProfileErr = err
				return nil
			}
			res.Profile = &p
			return nil
		})
	}
	if req, ok := spec.Panel(); ok {
		g.Go(func() error {
			res.Panel, res.PanelErr = fetchPanel(ctx, f, req)
			return nil
		})
	}
	_ = g.Wait()
	return res
}

func fetchPanel(ctx context.Context, f Fetcher, req viewstate.Request) (Panel, error) {
	switch req.Kind {
	case viewstate.RequestSessions:
		sessions, err := f.UserSessions(ctx, req.UserID, req.Params)
		return Panel{Sessions: sessions}, err
	case viewstate.RequestStats:
		st, err := f.Stats(ctx, req.UserID, req.Year())
		if err != nil {
			return Panel{}, err
		}
		return Panel{Stats: &st}, nil
	case viewstate.RequestFeed:
		sessions, err := f.Feed(ctx, req.Params)
		return Panel{Sessions: sessions}, err
	case viewstate.RequestLeaderboard:
		entries, err := f.Leaderboard(ctx, req.Year(), req.Params.Get(viewstate.KeyStat))
		return Panel{Leaderboard: entries}, err
	default:
		return Panel{}, fmt.Errorf("unsupported request %q", req.Kind)
	}
}
