package tui

import (
	"fmt"
	"strconv"
	"strings"

	"surflog-cli/internal/model"
	"surflog-cli/internal/reaction"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"
)

type sessionItem struct {
	session  model.Session
	shakas   reaction.State
	pending  bool
	flashing bool
	// showSurfer is set on the feed, where rows come from many users.
	showSurfer bool
}

func (i sessionItem) FilterValue() string { return i.session.Title }
func (i sessionItem) Flashing() bool      { return i.flashing }
func (i sessionItem) Description() string { return i.session.Location }

func (i sessionItem) Title() string {
	s := i.session
	parts := []string{
		s.StartedAt.Local().Format("Jan 02"),
	}
	if i.showSurfer && s.DisplayName != "" {
		parts = append(parts, s.DisplayName)
	}
	title := strings.TrimSpace(s.Title)
	if title == "" {
		title = s.Location
	}
	parts = append(parts, title)
	if s.FunRating.Valid() {
		parts = append(parts, "stoke "+s.FunRating.String())
	}
	return strings.Join(parts, "  ") + "  " + shakaLabel(i.shakas, i.pending)
}

func shakaLabel(st reaction.State, pending bool) string {
	label := "🤙 " + strconv.Itoa(st.Count)
	if pending {
		label += "…"
	}
	if st.ViewerHasReacted {
		return lipgloss.NewStyle().Foreground(colorShaka).Bold(true).Render(label)
	}
	return styleMuted().Render(label)
}

type leaderboardItem struct {
	rank  int
	entry model.LeaderboardEntry
	stat  string
}

func (i leaderboardItem) FilterValue() string { return i.entry.DisplayName }

func (i leaderboardItem) Title() string {
	e := i.entry
	var value string
	switch i.stat {
	case "time":
		value = strconv.FormatFloat(e.TotalSurfTimeMinutes/60, 'f', 1, 64) + "h"
	case "rating":
		value = "N/A"
		if e.AverageFunRating != nil {
			value = e.AverageFunRating.String()
		}
	default:
		value = strconv.Itoa(e.TotalSessions) + " sessions"
	}
	return fmt.Sprintf("%3d. %-24s %s", i.rank, e.DisplayName, value)
}

type notificationItem struct {
	n model.Notification
}

func (i notificationItem) FilterValue() string { return i.n.SessionTitle }

func (i notificationItem) Title() string {
	mark := "•"
	if i.n.Read {
		mark = " "
	}
	return fmt.Sprintf("%s %s tagged you in %q  %s", mark, i.n.SenderDisplayName, i.n.SessionTitle,
		styleMuted().Render(i.n.CreatedAt.Local().Format("Jan 02 15:04")))
}

type userItem struct {
	user model.UserRef
}

func (i userItem) FilterValue() string { return i.user.Label() }
func (i userItem) Title() string       { return i.user.Label() }

func userItems(users []model.UserRef) []list.Item {
	items := make([]list.Item, 0, len(users))
	for _, u := range users {
		items = append(items, userItem{user: u})
	}
	return items
}
