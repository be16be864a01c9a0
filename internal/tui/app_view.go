package tui

import (
	"fmt"
	"strconv"
	"strings"

	"surflog-cli/internal/apiclient"
	"surflog-cli/internal/journal"
	"surflog-cli/internal/model"
	"surflog-cli/internal/viewstate"

	"github.com/charmbracelet/lipgloss"
)

func (m appModel) View() string {
	if m.view == viewLogin {
		return placeCentered(m.width, m.height, m.login.view(m.width))
	}

	if m.modal != modalNone {
		return placeCentered(m.width, m.height, m.viewModal())
	}

	var body string
	switch m.view {
	case viewSession:
		body = m.viewSession()
	case viewNotifications:
		body = m.notifications.View()
		if len(m.notifications.Items()) == 0 {
			body = styleMuted().Render("No notifications.")
		}
	default:
		body = m.viewBrowse()
	}

	parts := []string{m.viewHeader(), body, m.viewFooter()}
	out := strings.Join(parts, "\n")
	if m.width > 0 && m.height > 0 {
		out = normalizePane(out, m.width, m.height)
	}
	return out
}

func (m appModel) viewHeader() string {
	title := lipgloss.NewStyle().Bold(true).Render("Surflog")
	snap := m.page.Snapshot()
	switch {
	case m.view == viewNotifications:
		return title + "  " + styleChrome().Render("Notifications")
	case m.state.Location.IsFeed():
		title += "  " + styleChrome().Render("Community")
	case snap.Profile != nil:
		title += "  " + styleChrome().Render(snap.Profile.DisplayName+"'s journal")
	default:
		title += "  " + styleChrome().Render("Journal")
	}
	if m.view == viewSession {
		return title
	}
	return title + "\n" + m.viewTabs()
}

func (m appModel) viewTabs() string {
	tabs := viewstate.JournalTabs
	if m.state.Location.IsFeed() {
		tabs = viewstate.FeedTabs
	}
	var parts []string
	for _, t := range tabs {
		parts = append(parts, styleTab(t == m.state.Tab).Render(tabLabel(t)))
	}
	line := lipgloss.JoinHorizontal(lipgloss.Top, parts...)

	meta := []string{}
	if m.state.Tab == viewstate.TabStats || m.state.Tab == viewstate.TabLeaderboard {
		meta = append(meta, "year "+strconv.Itoa(m.state.Year))
	}
	if m.state.Tab == viewstate.TabLeaderboard {
		meta = append(meta, "by "+m.state.Stat)
	}
	if m.state.Filters.Len() > 0 && m.state.Tab != viewstate.TabStats {
		meta = append(meta, "filters "+m.state.Filters.Encode())
	}
	if len(meta) > 0 {
		line += "  " + styleMuted().Render(strings.Join(meta, "  "))
	}
	return line
}

func tabLabel(t viewstate.Tab) string {
	switch t {
	case viewstate.TabLog:
		return "Log"
	case viewstate.TabStats:
		return "Stats"
	case viewstate.TabFeed:
		return "Feed"
	case viewstate.TabLeaderboard:
		return "Leaderboard"
	}
	return string(t)
}

func (m appModel) viewBrowse() string {
	snap := m.page.Snapshot()
	switch snap.Status {
	case journal.StatusUninitialized, journal.StatusLoading:
		// Keep showing the previous rows while a filter change loads.
		if len(m.rows) == 0 || m.state.Tab == viewstate.TabStats || m.state.Tab == viewstate.TabLeaderboard {
			return styleMuted().Render("Loading…")
		}
	case journal.StatusError:
		if snap.Fatal() {
			return styleError().Render(apiclient.UserMessage(snap.ProfileErr))
		}
		return styleError().Render("Could not load this tab: " + apiclient.UserMessage(snap.PanelErr))
	}

	switch m.state.Tab {
	case viewstate.TabStats:
		return renderStats(snap.Panel.Stats)
	case viewstate.TabLeaderboard:
		if len(m.board.Items()) == 0 {
			return styleMuted().Render("No rankings for " + strconv.Itoa(m.state.Year) + " yet.")
		}
		return m.board.View()
	default:
		if len(m.sessions.Items()) == 0 {
			if m.state.Filters.Len() > 0 {
				return styleMuted().Render("No sessions match these filters. Press x to clear them.")
			}
			return styleMuted().Render("No sessions yet.")
		}
		return m.sessions.View()
	}
}

func renderStats(s *model.Stats) string {
	if s == nil {
		return styleMuted().Render("No stats.")
	}
	lines := []string{
		fmt.Sprintf("Sessions       %d", s.TotalSessions),
		fmt.Sprintf("Hours          %.1f", s.TotalHours),
		fmt.Sprintf("Average stoke  %.2f", s.AverageStoke),
	}
	if len(s.TopLocations) > 0 {
		lines = append(lines, "", styleChrome().Render("Top spots"))
		for _, l := range s.TopLocations {
			lines = append(lines, fmt.Sprintf("  %-24s %d", l.Location, l.Count))
		}
	}
	if b := s.MostFrequentBuddy; b != nil {
		lines = append(lines, "", styleChrome().Render("Most frequent buddy"),
			fmt.Sprintf("  %s (%d sessions)", b.Label(), b.SessionCount))
	}
	if len(s.SessionsByMonth) > 0 {
		lines = append(lines, "", styleChrome().Render("Sessions by month"), monthBars(s.SessionsByMonth))
	}
	return strings.Join(lines, "\n")
}

// monthBars draws one row per month with a bar scaled to the busiest month.
func monthBars(months []model.MonthCount) string {
	peak := 0.0
	for _, mc := range months {
		if mc.Value > peak {
			peak = mc.Value
		}
	}
	const barW = 30
	var b strings.Builder
	for i, mc := range months {
		n := 0
		if peak > 0 {
			n = int(mc.Value / peak * barW)
		}
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "  %2d %s %s", mc.Month, strings.Repeat("█", n), strconv.FormatFloat(mc.Value, 'f', -1, 64))
	}
	return b.String()
}

func (m appModel) viewSession() string {
	if m.detailErr != nil {
		return styleError().Render(apiclient.UserMessage(m.detailErr))
	}
	if m.detail == nil {
		return styleMuted().Render("Loading…")
	}
	s := *m.detail
	w := m.width
	if w <= 0 {
		w = 80
	}

	lines := []string{
		lipgloss.NewStyle().Bold(true).Render(s.Title),
		styleChrome().Render(s.DisplayName + "  " + s.Location + "  " + s.StartedAt.Local().Format("Mon Jan 2 2006 15:04")),
	}
	meta := []string{}
	if s.FunRating.Valid() {
		meta = append(meta, "stoke "+s.FunRating.String())
	}
	if d := s.Duration(); d > 0 {
		meta = append(meta, strconv.FormatFloat(d.Hours(), 'f', 1, 64)+"h")
	}
	if s.SwellHeight != nil {
		meta = append(meta, strconv.FormatFloat(*s.SwellHeight, 'f', 1, 64)+"ft "+s.SwellDirection)
	}
	meta = append(meta, shakaLabel(m.shakas[s.ID], m.shakaInflight[s.ID] > 0))
	lines = append(lines, strings.Join(meta, "  "))

	if len(s.Participants) > 0 {
		names := make([]string, 0, len(s.Participants))
		for _, p := range s.Participants {
			names = append(names, p.Label())
		}
		lines = append(lines, styleMuted().Render("with "+strings.Join(names, ", ")))
	}
	if notes := renderMarkdown(s.Notes, w-2); notes != "" {
		lines = append(lines, "", notes)
	}

	lines = append(lines, "", styleChrome().Render(fmt.Sprintf("Comments (%d)", len(m.detailComments))))
	for _, c := range m.detailComments {
		lines = append(lines,
			styleMuted().Render(c.DisplayName+"  "+c.CreatedAt.Local().Format("Jan 02 15:04")),
			renderMarkdown(c.Text, w-4))
	}

	body := strings.Join(lines, "\n")
	all := strings.Split(body, "\n")
	if m.detailScroll > 0 {
		skip := m.detailScroll
		if skip > len(all)-1 {
			skip = len(all) - 1
		}
		all = all[skip:]
	}
	return strings.Join(all, "\n")
}

func (m appModel) viewModal() string {
	bodyW := modalBodyWidth(m.width)
	switch m.modal {
	case modalSearch:
		lines := []string{renderInputLine(bodyW, m.searchInput.View())}
		if m.searchStatus != "" {
			lines = append(lines, "", styleMuted().Render(m.searchStatus))
		}
		if len(m.searchList.Items()) > 0 {
			lines = append(lines, "", m.searchList.View())
		}
		lines = append(lines, "", styleMuted().Render("type to search   enter: open journal   esc: close"))
		return renderModalBox(m.width, "Find surfers", strings.Join(lines, "\n"))

	case modalReactors:
		lines := []string{m.reactors.View()}
		if m.reactorsNote != "" {
			lines = append(lines, "", styleMuted().Render(m.reactorsNote))
		}
		lines = append(lines, "", styleMuted().Render("enter: open journal   esc: close"))
		return renderModalBox(m.width, "Shakas", strings.Join(lines, "\n"))

	case modalComment:
		lines := []string{
			renderInputLine(bodyW, m.commentInput.View()),
			"",
			styleMuted().Render("enter: post   esc: cancel"),
		}
		return renderModalBox(m.width, "Comment", strings.Join(lines, "\n"))

	case modalFilter:
		lines := []string{
			renderInputLine(bodyW, m.filterInput.View()),
			"",
			styleMuted().Render("keys: " + strings.Join(viewstate.FilterKeys, ", ")),
			styleMuted().Render("enter: apply   esc: cancel"),
		}
		return renderModalBox(m.width, "Filter", strings.Join(lines, "\n"))
	}
	return ""
}

func (m appModel) viewFooter() string {
	var help string
	switch m.view {
	case viewSession:
		help = "space: shaka  w: who  c: comment  j/k: scroll  esc: back  q: quit"
	case viewNotifications:
		help = "enter: open  s: snake  r: reload  esc: back  q: quit"
	default:
		help = "tab: tab  [/]: year  space: shaka  w: who  enter: open  /: search  F: filter  f: feed  n: inbox  b: back  q: quit"
		if m.state.Tab == viewstate.TabLeaderboard {
			help = "s: stat  " + help
		}
	}
	footer := styleMuted().Render(help)
	if m.minibuffer != "" {
		footer = m.minibuffer + "\n" + footer
	}
	return footer
}
