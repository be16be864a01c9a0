package cli

import (
	"context"
	"strconv"
	"strings"

	"surflog-cli/internal/apiclient"
	"surflog-cli/internal/journal"
	"surflog-cli/internal/model"
	"surflog-cli/internal/viewstate"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// viewFlags map command flags onto the view query string, so a command line and a
// journal URL describe the same view.
type viewFlags struct {
	url     string
	user    string
	tab     string
	year    int
	stat    string
	filters map[string]*string
}

func filterFlagName(key string) string { return strings.ReplaceAll(key, "_", "-") }

func addViewFlags(cmd *cobra.Command, vf *viewFlags) {
	cmd.Flags().StringVar(&vf.url, "url", "", "View location or query string (e.g. '/journal?tab=stats&year=2024')")
	cmd.Flags().StringVar(&vf.tab, "tab", "", "Tab to show")
	cmd.Flags().IntVar(&vf.year, "year", 0, "Year (2023..current)")
	vf.filters = map[string]*string{}
	for _, k := range viewstate.FilterKeys {
		v := new(string)
		vf.filters[k] = v
		cmd.Flags().StringVar(v, filterFlagName(k), "", "Filter: "+k+" (empty clears)")
	}
}

// apply overlays every explicitly set flag onto loc.
func (vf *viewFlags) apply(cmd *cobra.Command, loc viewstate.Location) viewstate.Location {
	if cmd.Flags().Changed("tab") {
		loc = loc.With(viewstate.KeyTab, vf.tab)
	}
	if cmd.Flags().Changed("year") {
		loc = loc.With(viewstate.KeyYear, strconv.Itoa(vf.year))
	}
	if cmd.Flags().Changed("stat") {
		loc = loc.With(viewstate.KeyStat, vf.stat)
	}
	for _, k := range viewstate.FilterKeys {
		if cmd.Flags().Changed(filterFlagName(k)) {
			loc = loc.With(k, *vf.filters[k])
		}
	}
	return loc
}

// viewOutput is the CLI rendering of a loaded view.
type viewOutput struct {
	Location    string                   `json:"location"`
	Tab         viewstate.Tab            `json:"tab"`
	Year        int                      `json:"year"`
	Stat        string                   `json:"stat,omitempty"`
	Filters     viewstate.Filters        `json:"filters"`
	Profile     *model.UserProfile       `json:"profile,omitempty"`
	Sessions    []model.Session          `json:"sessions,omitempty"`
	Stats       *model.Stats             `json:"stats,omitempty"`
	Leaderboard []model.LeaderboardEntry `json:"leaderboard,omitempty"`
	Error       string                   `json:"error,omitempty"`
}

func (o viewOutput) TableHeaders() []string {
	switch {
	case o.Stats != nil:
		return statsTable{o.Stats}.TableHeaders()
	case o.Tab == viewstate.TabLeaderboard:
		return leaderboardTable(o.Leaderboard).TableHeaders()
	default:
		return sessionsTable(o.Sessions).TableHeaders()
	}
}

func (o viewOutput) TableRows() [][]string {
	switch {
	case o.Stats != nil:
		return statsTable{o.Stats}.TableRows()
	case o.Tab == viewstate.TabLeaderboard:
		return leaderboardTable(o.Leaderboard).TableRows()
	default:
		return sessionsTable(o.Sessions).TableRows()
	}
}

// loadView resolves loc, loads it and renders the outcome. A profile failure is
// fatal; a panel failure still prints the profile.
func loadView(cmd *cobra.Command, app *App, s *session, loc viewstate.Location) error {
	st := viewstate.Resolve(loc, s.auth.UserID(), app.now())
	spec := st.Query()
	s.log.Debug("loading view", zap.String("location", loc.String()), zap.String("query", spec.Key()))

	c := journal.NewController(s.api, journal.ControllerOptions{Logger: s.log.Named("journal"), Timeout: app.Timeout})
	defer c.Close()
	c.Navigate(spec)
	c.Wait()
	snap := c.Snapshot()
	if snap.Fatal() {
		return writeErr(cmd, snap.ProfileErr)
	}

	out := viewOutput{
		Location:    loc.String(),
		Tab:         st.Tab,
		Year:        st.Year,
		Stat:        st.Stat,
		Filters:     st.Filters,
		Profile:     snap.Profile,
		Sessions:    snap.Panel.Sessions,
		Stats:       snap.Panel.Stats,
		Leaderboard: snap.Panel.Leaderboard,
	}
	if snap.PanelErr != nil {
		out.Error = apiclient.UserMessage(snap.PanelErr)
	}
	if err := writeOut(cmd, app, map[string]any{"data": out, "_hints": viewHints(st)}); err != nil {
		return err
	}
	if snap.PanelErr != nil {
		return writeErr(cmd, snap.PanelErr)
	}
	return nil
}

func viewHints(st viewstate.State) []string {
	if st.Location.IsFeed() {
		if st.Tab == viewstate.TabLeaderboard {
			return []string{"surflog feed --tab leaderboard --stat time|rating|sessions --year <year>"}
		}
		return []string{"surflog shaka <session-id>", "surflog feed --tab leaderboard"}
	}
	if st.Tab == viewstate.TabStats {
		return []string{"surflog stats --year <year>", "surflog journal --tab log"}
	}
	return []string{"surflog sessions show <session-id>", "surflog shaka <session-id>", "surflog journal --tab stats"}
}

func newJournalCmd(app *App) *cobra.Command {
	vf := &viewFlags{}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show a journal (your sessions log or stats)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc := viewstate.JournalLocation(vf.user, nil)
			if vf.url != "" {
				loc = viewstate.ParseLocation(vf.url)
				if !strings.HasPrefix(loc.Path, viewstate.PathJournal) {
					loc.Path = viewstate.PathJournal
				}
			}
			if cmd.Flags().Changed("user") {
				loc.Path = viewstate.JournalLocation(vf.user, nil).Path
			}
			loc = vf.apply(cmd, loc)
			return withSession(cmd, app, func(_ context.Context, s *session) error {
				return loadView(cmd, app, s, loc)
			})
		},
	}
	addViewFlags(cmd, vf)
	cmd.Flags().StringVar(&vf.user, "user", "", "User id (default: you)")
	return cmd
}

func newStatsCmd(app *App) *cobra.Command {
	vf := &viewFlags{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show yearly stats (shortcut for: surflog journal --tab stats)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc := viewstate.JournalLocation(vf.user, nil).With(viewstate.KeyTab, string(viewstate.TabStats))
			if cmd.Flags().Changed("year") {
				loc = loc.With(viewstate.KeyYear, strconv.Itoa(vf.year))
			}
			return withSession(cmd, app, func(_ context.Context, s *session) error {
				return loadView(cmd, app, s, loc)
			})
		},
	}
	cmd.Flags().IntVar(&vf.year, "year", 0, "Year (2023..current)")
	cmd.Flags().StringVar(&vf.user, "user", "", "User id (default: you)")
	return cmd
}

func newFeedCmd(app *App) *cobra.Command {
	vf := &viewFlags{}

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show the community feed or leaderboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc := viewstate.Location{Path: viewstate.PathFeed}
			if vf.url != "" {
				loc = viewstate.ParseLocation(vf.url)
				loc.Path = viewstate.PathFeed
			}
			loc = vf.apply(cmd, loc)
			return withSession(cmd, app, func(_ context.Context, s *session) error {
				return loadView(cmd, app, s, loc)
			})
		},
	}
	addViewFlags(cmd, vf)
	cmd.Flags().StringVar(&vf.stat, "stat", "", "Leaderboard stat (sessions|time|rating)")
	return cmd
}
