package cli

import (
	"surflog-cli/internal/store"

	"github.com/spf13/cobra"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Client configuration (~/.surflog/config.json)",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration (file + SURFLOG_* env)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := store.LoadConfig()
			if err != nil {
				return writeErr(cmd, err)
			}
			path, _ := store.ConfigPath()
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"path":             path,
					"apiBaseUrl":       cfg.APIBaseURL,
					"logLevel":         cfg.LogLevel,
					"searchDebounceMs": cfg.SearchDebounce().Milliseconds(),
					"tui":              cfg.TUI,
				},
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config value (apiBaseUrl, logLevel, searchDebounceMs, tui.markdownStyle, tui.defaultView)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := store.SetConfigValue(args[0], args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": cfg})
		},
	})
	return cmd
}
