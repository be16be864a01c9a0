package cli

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"surflog-cli/internal/model"
	"surflog-cli/internal/search"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSearchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search surfers by name or email",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return withSession(cmd, app, func(ctx context.Context, s *session) error {
				sr := search.New(s.api, search.Options{
					Delay:   s.cfg.SearchDebounce(),
					Logger:  s.log.Named("search"),
					Timeout: app.Timeout,
				})
				defer sr.Close()
				sr.Input(query)

				var res search.Result
				select {
				case res = <-sr.Results():
				case <-ctx.Done():
					return writeErr(cmd, ctx.Err())
				}
				if res.Err != nil {
					return writeErr(cmd, res.Err)
				}
				var hints []string
				if res.Cleared {
					hints = append(hints, "queries need at least 2 characters")
				} else {
					hints = append(hints, "surflog journal --user <user-id>")
				}
				users := usersTable(res.Users)
				if users == nil {
					users = usersTable{}
				}
				return writeOut(cmd, app, map[string]any{"data": users, "_hints": hints})
			})
		},
	}
}

func newNotificationsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notif"},
		Short:   "Session tag notifications",
	}
	cmd.AddCommand(newNotificationsListCmd(app))
	cmd.AddCommand(newNotificationsReadCmd(app))
	cmd.AddCommand(newNotificationsSnakeCmd(app))
	return cmd
}

func newNotificationsListCmd(app *App) *cobra.Command {
	var unread bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notifications, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, app, func(ctx context.Context, s *session) error {
				ns, err := s.api.Notifications(ctx)
				if err != nil {
					return writeErr(cmd, err)
				}
				out := notificationsTable{}
				for _, n := range ns {
					if unread && n.Read {
						continue
					}
					out = append(out, n)
				}
				return writeOut(cmd, app, map[string]any{
					"data":   out,
					"_hints": []string{"surflog notifications read <id>", "surflog notifications snake <session-id>"},
				})
			})
		},
	}
	cmd.Flags().BoolVar(&unread, "unread", false, "Only unread notifications")
	return cmd
}

func newNotificationsReadCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "read <notification-id>",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || id <= 0 {
				return writeErr(cmd, errors.New("invalid notification id: "+args[0]))
			}
			return withSession(cmd, app, func(ctx context.Context, s *session) error {
				if err := s.api.MarkNotificationRead(ctx, id); err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": id, "read": true}})
			})
		},
	}
}

func newNotificationsSnakeCmd(app *App) *cobra.Command {
	var f sessionEditFlags

	cmd := &cobra.Command{
		Use:   "snake <session-id>",
		Short: "Copy a session you were tagged in into your own journal",
		Long: "Copy a session you were tagged in into your own journal. The copy keeps the\n" +
			"original's conditions; --title, --location, --stoke, --notes and --tag edit it\n" +
			"right after it is created.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return withSession(cmd, app, func(ctx context.Context, s *session) error {
				// Resolve tags first so a bad tag does not leave a half-edited copy.
				u, err := f.update(ctx, cmd, s.api)
				if err != nil {
					return writeErr(cmd, err)
				}
				newID, err := s.api.SnakeSession(ctx, id)
				if err != nil {
					return writeErr(cmd, err)
				}
				out := map[string]any{"sessionId": id, "newSessionId": newID}
				hints := []string{"surflog sessions show " + strconv.FormatInt(newID, 10)}
				if !u.Empty() {
					sess, err := s.api.UpdateSession(ctx, newID, u)
					if err != nil {
						s.log.Warn("edit snaked session", zap.Int64("session_id", newID), zap.Error(err))
						hints = append(hints, "copy created but not edited: surflog sessions edit "+strconv.FormatInt(newID, 10))
						if werr := writeOut(cmd, app, map[string]any{"data": out, "_hints": hints}); werr != nil {
							return werr
						}
						return writeErr(cmd, err)
					}
					out["session"] = sess
				}
				return writeOut(cmd, app, map[string]any{"data": out, "_hints": hints})
			})
		},
	}
	f.bind(cmd)
	return cmd
}

func newCommentsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comments",
		Short: "Comment commands",
	}
	cmd.AddCommand(newCommentsAddCmd(app))
	cmd.AddCommand(newCommentsListCmd(app))
	return cmd
}

func newCommentsAddCmd(app *App) *cobra.Command {
	var body string

	cmd := &cobra.Command{
		Use:   "add <session-id>",
		Short: "Comment on a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			body = strings.TrimSpace(body)
			if body == "" {
				return writeErr(cmd, errors.New("comment body is empty"))
			}
			return withSession(cmd, app, func(ctx context.Context, s *session) error {
				c, err := s.api.PostComment(ctx, id, body)
				if err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, map[string]any{"data": c})
			})
		},
	}
	cmd.Flags().StringVar(&body, "body", "", "Comment body")
	_ = cmd.MarkFlagRequired("body")
	return cmd
}

func newCommentsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list <session-id>",
		Short: "List comments on a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return withSession(cmd, app, func(ctx context.Context, s *session) error {
				cs, err := s.api.Comments(ctx, id)
				if err != nil {
					return writeErr(cmd, err)
				}
				if cs == nil {
					cs = []model.Comment{}
				}
				return writeOut(cmd, app, map[string]any{
					"data":   commentsTable(cs),
					"_hints": []string{"surflog comments add " + args[0] + " --body \"...\""},
				})
			})
		},
	}
}
