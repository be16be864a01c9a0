package tui

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"surflog-cli/internal/store"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
)

var (
	mdRendererMu sync.Mutex
	// Cache renderers by wrap width + style. Creating a renderer with WithAutoStyle can trigger
	// terminal capability/background queries that may block on some terminals.
	mdRenderers = map[string]*glamour.TermRenderer{}
	// mdConfigured is the style from the config file, if any.
	mdConfigured string
)

func applyMarkdownPreference(cfg *store.Config) {
	style := ""
	if cfg != nil && cfg.TUI != nil {
		style = cfg.TUI.MarkdownStyle
	}
	mdRendererMu.Lock()
	mdConfigured = strings.ToLower(strings.TrimSpace(style))
	mdRendererMu.Unlock()
}

// renderMarkdown renders session notes and comments. On any renderer error the
// raw text is returned.
func renderMarkdown(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	if width < 10 {
		width = 10
	}

	mdRendererMu.Lock()
	style := markdownStyle()
	key := style + ":" + strconv.Itoa(width)
	r := mdRenderers[key]
	mdRendererMu.Unlock()

	if r == nil {
		opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
		if style == "notty" {
			opts = append(opts, glamour.WithStandardStyle("notty"))
		} else {
			opts = append(opts, glamour.WithStyles(markdownStyleConfig(style)))
		}
		rr, err := glamour.NewTermRenderer(opts...)
		if err != nil {
			return md
		}
		mdRendererMu.Lock()
		// Re-check in case a concurrent goroutine filled it.
		if existing := mdRenderers[key]; existing != nil {
			r = existing
		} else {
			mdRenderers[key] = rr
			r = rr
		}
		mdRendererMu.Unlock()
	}

	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}

func markdownStyleConfig(styleName string) ansi.StyleConfig {
	switch styleName {
	case "light":
		cfg := styles.LightStyleConfig
		applySurflogMarkdownPalette(&cfg, "light")
		return cfg
	default:
		cfg := styles.DarkStyleConfig
		applySurflogMarkdownPalette(&cfg, "dark")
		return cfg
	}
}

// markdownStyle picks "light", "dark" or "notty". Callers hold mdRendererMu.
func markdownStyle() string {
	// Explicit override for debugging / accessibility.
	switch v := strings.ToLower(strings.TrimSpace(os.Getenv("SURFLOG_TUI_MD_STYLE"))); v {
	case "light", "dark", "notty":
		return v
	}
	switch mdConfigured {
	case "light", "dark", "notty":
		return mdConfigured
	}
	// Keep markdown aligned with the TUI theme preference.
	if dark, ok := themeFromEnv(); ok {
		if dark {
			return "dark"
		}
		return "light"
	}
	if lipgloss.HasDarkBackground() {
		return "dark"
	}
	return "light"
}

func applySurflogMarkdownPalette(cfg *ansi.StyleConfig, styleName string) {
	// Headings stay in the normal text color.
	headingColor := mdColor(colorSurfaceFg, styleName)
	cfg.Heading.Color = headingColor
	cfg.H1.Color = headingColor
	cfg.H2.Color = headingColor
	cfg.H3.Color = headingColor

	linkColor := mdColor(colorAccent, styleName)
	cfg.Link.Color = linkColor
	cfg.LinkText.Color = linkColor

	cfg.Text.Color = mdColor(colorSurfaceFg, styleName)
	cfg.BlockQuote.Faint = mdBoolPtr(false)

	// Notes are short; drop the document margin so they align with the detail fields.
	zero := uint(0)
	cfg.Document.Margin = &zero
}

func mdColor(c lipgloss.AdaptiveColor, styleName string) *string {
	if styleName == "light" {
		return mdStrPtr(c.Light)
	}
	return mdStrPtr(c.Dark)
}

func mdStrPtr(s string) *string { return &s }
func mdBoolPtr(b bool) *bool    { return &b }
