package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"surflog-cli/internal/model"
	"surflog-cli/internal/reaction"
	"surflog-cli/internal/search"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func parseSessionID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid session id: %q", s)
	}
	return id, nil
}

func newSessionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   "Session commands",
	}
	cmd.AddCommand(newSessionsShowCmd(app))
	cmd.AddCommand(newSessionsEditCmd(app))
	return cmd
}

// sessionEditFlags are the fields a session edit can override. Both
// `sessions edit` and `notifications snake` take them.
type sessionEditFlags struct {
	title    string
	location string
	stoke    string
	notes    string
	tags     []string
}

func (f *sessionEditFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Session title")
	cmd.Flags().StringVar(&f.location, "location", "", "Break or spot")
	cmd.Flags().StringVar(&f.stoke, "stoke", "", "Fun rating, 0 to 10 in steps of 0.25")
	cmd.Flags().StringVar(&f.notes, "notes", "", "Session notes")
	cmd.Flags().StringArrayVar(&f.tags, "tag", nil, "Tag a friend by user id, email or name (repeatable; replaces existing tags)")
}

// update builds the edit from the flags that were set. Tags are resolved through
// the user search; each must match exactly one surfer.
func (f *sessionEditFlags) update(ctx context.Context, cmd *cobra.Command, users search.UserSearcher) (model.SessionUpdate, error) {
	var u model.SessionUpdate
	flags := cmd.Flags()
	if flags.Changed("title") {
		t := strings.TrimSpace(f.title)
		if t == "" {
			return u, fmt.Errorf("title cannot be empty")
		}
		u.Title = &t
	}
	if flags.Changed("location") {
		l := strings.TrimSpace(f.location)
		if l == "" {
			return u, fmt.Errorf("location cannot be empty")
		}
		u.Location = &l
	}
	if flags.Changed("stoke") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f.stoke), 64)
		st := model.Stoke(v)
		if err != nil || !st.Valid() {
			return u, fmt.Errorf("invalid stoke %q: want 0 to 10 in steps of 0.25", f.stoke)
		}
		u.FunRating = &st
	}
	if flags.Changed("notes") {
		n := f.notes
		u.Notes = &n
	}
	if flags.Changed("tag") {
		u.TaggedUsers = []string{}
		seen := map[string]bool{}
		for _, q := range f.tags {
			ref, err := resolveTag(ctx, users, q)
			if err != nil {
				return u, err
			}
			if !seen[ref.UserID] {
				seen[ref.UserID] = true
				u.TaggedUsers = append(u.TaggedUsers, ref.UserID)
			}
		}
	}
	return u, nil
}

// resolveTag finds the surfer q names. An exact user id, email or display name
// match wins; otherwise the search must return a single surfer.
func resolveTag(ctx context.Context, users search.UserSearcher, q string) (model.UserRef, error) {
	q = strings.TrimSpace(q)
	if len([]rune(q)) < search.MinQueryLength {
		return model.UserRef{}, fmt.Errorf("tag %q: need at least %d characters", q, search.MinQueryLength)
	}
	found, err := users.SearchUsers(ctx, q)
	if err != nil {
		return model.UserRef{}, err
	}
	var exact []model.UserRef
	for _, u := range found {
		if u.UserID == "" {
			continue
		}
		if u.UserID == q || strings.EqualFold(u.Email, q) || strings.EqualFold(u.Label(), q) {
			exact = append(exact, u)
		}
	}
	switch {
	case len(exact) == 1:
		return exact[0], nil
	case len(exact) == 0 && len(found) == 1 && found[0].UserID != "":
		return found[0], nil
	case len(found) == 0:
		return model.UserRef{}, fmt.Errorf("tag %q: no surfer found", q)
	}
	return model.UserRef{}, fmt.Errorf("tag %q matches %d surfers; use a user id or email", q, len(found))
}

func newSessionsEditCmd(app *App) *cobra.Command {
	var f sessionEditFlags

	cmd := &cobra.Command{
		Use:   "edit <session-id>",
		Short: "Edit one of your sessions and tag friends",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return withSession(cmd, app, func(ctx context.Context, s *session) error {
				u, err := f.update(ctx, cmd, s.api)
				if err != nil {
					return writeErr(cmd, err)
				}
				if u.Empty() {
					return writeErr(cmd, fmt.Errorf("nothing to change: pass --title, --location, --stoke, --notes or --tag"))
				}
				sess, err := s.api.UpdateSession(ctx, id, u)
				if err != nil {
					return writeErr(cmd, err)
				}
				s.log.Info("session updated", zap.Int64("session_id", id), zap.Int("tagged", len(u.TaggedUsers)))
				return writeOut(cmd, app, map[string]any{
					"data":   sess,
					"_hints": []string{"surflog sessions show " + args[0]},
				})
			})
		},
	}
	f.bind(cmd)
	return cmd
}

func newSessionsShowCmd(app *App) *cobra.Command {
	var withComments bool

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return withSession(cmd, app, func(ctx context.Context, s *session) error {
				sess, err := s.api.Session(ctx, id)
				if err != nil {
					return writeErr(cmd, err)
				}
				out := sessionDetail{Session: sess}
				if withComments {
					cs, err := s.api.Comments(ctx, id)
					if err != nil {
						// Comments are secondary; the session still prints.
						s.log.Warn("load comments", zap.Int64("session_id", id), zap.Error(err))
					}
					out.Comments = cs
				}
				return writeOut(cmd, app, map[string]any{
					"data": out,
					"_hints": []string{
						"surflog shaka " + args[0],
						"surflog reactors " + args[0],
						"surflog comments list " + args[0],
					},
				})
			})
		},
	}
	cmd.Flags().BoolVar(&withComments, "comments", true, "Include comments")
	return cmd
}

func newShakaCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "shaka <session-id>",
		Short: "Toggle your shaka on a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return withSession(cmd, app, func(ctx context.Context, s *session) error {
				sess, err := s.api.Session(ctx, id)
				if err != nil {
					return writeErr(cmd, err)
				}

				e := reaction.NewEngine(id, sess.Shakas, s.api,
					reaction.WithLogger(s.log.Named("reaction")),
					reaction.WithRequestTimeout(app.Timeout))
				defer e.Close()
				optimistic := e.Toggle()
				e.Wait()

				st, phase := e.State(), e.Phase()
				s.log.Debug("shaka toggled",
					zap.Int64("session_id", id),
					zap.Int("optimistic", optimistic.Count),
					zap.Int("count", st.Count),
					zap.Stringer("phase", phase))

				out := reactionOutput{SessionID: id, Count: st.Count, ViewerHasReacted: st.ViewerHasReacted, Phase: phase.String()}
				if err := writeOut(cmd, app, map[string]any{"data": out}); err != nil {
					return err
				}
				if phase == reaction.PhaseRolledBack {
					return writeErr(cmd, fmt.Errorf("shaka not saved; count is still %d", st.Count))
				}
				return nil
			})
		},
	}
}

func newReactorsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reactors <session-id>",
		Short: "List who gave a session a shaka",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return withSession(cmd, app, func(ctx context.Context, s *session) error {
				sess, err := s.api.Session(ctx, id)
				if err != nil {
					return writeErr(cmd, err)
				}
				d := reaction.OpenDetail(ctx, id, reaction.Initialize(sess.Shakas), sess.Shakas.Preview, s.api, s.log.Named("reaction"))
				var hints []string
				switch {
				case !d.Open:
					hints = append(hints, "no shakas yet: surflog shaka "+args[0])
				case d.FromPreview:
					hints = append(hints, "full list unavailable; showing a preview")
				}
				users := usersTable(d.Reactors)
				if users == nil {
					users = usersTable{}
				}
				return writeOut(cmd, app, map[string]any{"data": users, "_hints": hints})
			})
		},
	}
}
