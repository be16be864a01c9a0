package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"surflog-cli/internal/apiclient"
	"surflog-cli/internal/auth"
	"surflog-cli/internal/format"
	"surflog-cli/internal/logging"
	"surflog-cli/internal/store"
	"surflog-cli/internal/tui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type App struct {
	APIURL     string
	LogLevel   string
	LogFile    string
	PrettyJSON bool
	Format     string
	Timeout    time.Duration

	// now is swapped in tests.
	now func() time.Time
}

func NewRootCmd() *cobra.Command {
	app := &App{now: time.Now}

	cmd := &cobra.Command{
		Use:          "surflog",
		Short:        "Surf log CLI + TUI",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  surflog

  # Log in once; the token is kept in ~/.surflog/credentials.sqlite
  surflog login --email kelly@example.com

  # Your sessions, filtered (same query string as the journal URL)
  surflog journal --region north --min-swell-height 3
  surflog journal --url '/journal?tab=stats&year=2024'

  # Direct session lookup (shortcut for: surflog sessions show <id>)
  surflog 42
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.APIURL, "api", "", "API base URL (default from config.json, then "+store.DefaultAPIBaseURL+")")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&app.LogFile, "log-file", envOr("SURFLOG_LOG_FILE", ""), "Write logs to this file instead of stderr")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("SURFLOG_FORMAT", "json"), "Output format (json|table|yaml)")
	cmd.PersistentFlags().DurationVar(&app.Timeout, "timeout", 30*time.Second, "Per-command API timeout")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newSignupCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newJournalCmd(app))
	cmd.AddCommand(newFeedCmd(app))
	cmd.AddCommand(newStatsCmd(app))
	cmd.AddCommand(newSessionsCmd(app))
	cmd.AddCommand(newShakaCmd(app))
	cmd.AddCommand(newReactorsCmd(app))
	cmd.AddCommand(newSearchCmd(app))
	cmd.AddCommand(newNotificationsCmd(app))
	cmd.AddCommand(newCommentsCmd(app))
	cmd.AddCommand(newConfigCmd(app))

	return cmd
}

// session is everything a command needs to talk to the API.
type session struct {
	cfg    *store.Config
	log    *zap.Logger
	creds  *store.CredentialStore
	auth   *auth.Service
	api    *apiclient.Client
	closer func()
}

func (s *session) Close() {
	if s == nil {
		return
	}
	_ = s.creds.Close()
	if s.closer != nil {
		s.closer()
	}
}

// openSession loads config, the logger, the stored credential and the API client.
// nav is told when the API rejects the credential.
func openSession(ctx context.Context, app *App, nav apiclient.Navigator, logPath string) (*session, error) {
	cfg, err := store.LoadConfig()
	if err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(app.APIURL); v != "" {
		cfg.APIBaseURL = v
	}
	level := cfg.LogLevel
	if v := strings.TrimSpace(app.LogLevel); v != "" {
		level = v
	}
	if strings.TrimSpace(app.LogFile) != "" {
		logPath = app.LogFile
	}
	log, closer, err := logging.New(logging.Options{Level: level, Path: logPath})
	if err != nil {
		return nil, err
	}

	credPath, err := store.CredentialsPath()
	if err != nil {
		closer()
		return nil, err
	}
	creds, err := store.OpenCredentialStore(ctx, credPath)
	if err != nil {
		closer()
		return nil, fmt.Errorf("open credential store: %w", err)
	}
	svc, err := auth.New(ctx, creds, log.Named("auth"))
	if err != nil {
		_ = creds.Close()
		closer()
		return nil, err
	}
	api, err := apiclient.New(apiclient.Options{
		BaseURL:     cfg.APIBaseURL,
		Credentials: svc,
		Navigator:   nav,
		Logger:      log.Named("api"),
	})
	if err != nil {
		_ = creds.Close()
		closer()
		return nil, err
	}
	return &session{cfg: cfg, log: log, creds: creds, auth: svc, api: api, closer: closer}, nil
}

// cliNavigator is the CLI's login entry point: a hint on stderr.
func cliNavigator(cmd *cobra.Command) apiclient.Navigator {
	return apiclient.NavigatorFunc(func(reason string) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: run `surflog login` to sign in again\n", reason)
	})
}

// withSession runs fn with an open session and a command-scoped timeout.
func withSession(cmd *cobra.Command, app *App, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if app.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, app.Timeout)
		defer cancel()
	}
	s, err := openSession(ctx, app, cliNavigator(cmd), "")
	if err != nil {
		return writeErr(cmd, err)
	}
	defer s.Close()
	return fn(ctx, s)
}

func runTUI(cmd *cobra.Command, app *App) error {
	dir, err := store.ConfigDir()
	if err != nil {
		return err
	}
	// The alt screen owns the terminal; logs go to a file.
	logPath := filepath.Join(dir, "tui.log")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	nav := &tui.LoginNavigator{}
	s, err := openSession(ctx, app, nav, logPath)
	if err != nil {
		return err
	}
	defer s.Close()
	return tui.Run(ctx, tui.Deps{
		API:      s.api,
		Auth:     s.auth,
		Config:   s.cfg,
		Logger:   s.log.Named("tui"),
		Navigate: nav,
		Now:      app.now,
	})
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

// writeErr prints a readable message; technical detail goes to the log.
func writeErr(cmd *cobra.Command, err error) error {
	msg := err.Error()
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) || apiclient.IsUnauthorized(err) {
		msg = apiclient.UserMessage(err)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), msg)
	return err
}
