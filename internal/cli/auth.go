package cli

import (
	"bufio"
	"context"
	"errors"
	"strings"

	"surflog-cli/internal/model"

	"github.com/spf13/cobra"
)

// readPassword resolves the password from the flag, SURFLOG_PASSWORD, or the
// first line of stdin, in that order.
func readPassword(cmd *cobra.Command, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if v := envOr("SURFLOG_PASSWORD", ""); v != "" {
		return v, nil
	}
	sc := bufio.NewScanner(cmd.InOrStdin())
	if sc.Scan() {
		if pw := strings.TrimRight(sc.Text(), "\r\n"); pw != "" {
			return pw, nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return "", errors.New("password is required (--password, SURFLOG_PASSWORD or stdin)")
}

func newLoginCmd(app *App) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd, password)
			if err != nil {
				return writeErr(cmd, err)
			}
			return withSession(cmd, app, func(ctx context.Context, s *session) error {
				user, err := s.auth.Login(ctx, s.api, email, pw)
				if err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, map[string]any{
					"data":   user,
					"_hints": []string{"surflog journal", "surflog feed"},
				})
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", envOr("SURFLOG_EMAIL", ""), "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prefer SURFLOG_PASSWORD or stdin)")
	return cmd
}

func newSignupCmd(app *App) *cobra.Command {
	var req model.SignupRequest

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd, req.Password)
			if err != nil {
				return writeErr(cmd, err)
			}
			req.Password = pw
			return withSession(cmd, app, func(ctx context.Context, s *session) error {
				user, err := s.auth.Signup(ctx, s.api, req)
				if err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, map[string]any{"data": user})
			})
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&req.Password, "password", "", "Account password (prefer SURFLOG_PASSWORD or stdin)")
	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "Last name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, app, func(ctx context.Context, s *session) error {
				if err := s.auth.Logout(ctx); err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, map[string]any{"data": map[string]any{"loggedOut": true}})
			})
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Verify the stored token and show the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, app, func(ctx context.Context, s *session) error {
				prof, err := s.auth.Verify(ctx, s.api)
				if err != nil {
					return writeErr(cmd, err)
				}
				out := map[string]any{"profile": prof}
				if c, ok := s.auth.Claims(); ok && !c.ExpiresAt.IsZero() {
					out["tokenExpiresAt"] = c.ExpiresAt.UTC()
				}
				return writeOut(cmd, app, map[string]any{"data": out})
			})
		},
	}
}
