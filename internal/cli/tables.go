package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"surflog-cli/internal/model"

	"github.com/charmbracelet/x/ansi"
)

// Named slice types keep JSON output unchanged and add a table layout.

const noteWidth = 40

func shortDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}

func hours(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	return strconv.FormatFloat(d.Hours(), 'f', 1, 64) + "h"
}

type sessionsTable []model.Session

func (t sessionsTable) TableHeaders() []string {
	return []string{"ID", "DATE", "SURFER", "LOCATION", "STOKE", "TIME", "SHAKAS"}
}

func (t sessionsTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, s := range t {
		shakas := strconv.Itoa(s.Shakas.Count)
		if s.Shakas.ViewerHasReacted {
			shakas += " (you)"
		}
		rows = append(rows, []string{
			strconv.FormatInt(s.ID, 10),
			shortDate(s.StartedAt),
			s.DisplayName,
			ansi.Truncate(s.Location, 28, "…"),
			s.FunRating.String(),
			hours(s.Duration()),
			shakas,
		})
	}
	return rows
}

type sessionDetail struct {
	model.Session
	Comments []model.Comment `json:"comments,omitempty"`
}

func (d sessionDetail) TableHeaders() []string { return []string{"FIELD", "VALUE"} }

func (d sessionDetail) TableRows() [][]string {
	s := d.Session
	rows := [][]string{
		{"id", strconv.FormatInt(s.ID, 10)},
		{"title", s.Title},
		{"surfer", s.DisplayName},
		{"location", s.Location},
		{"started", shortDate(s.StartedAt)},
		{"time", hours(s.Duration())},
		{"stoke", s.FunRating.String()},
		{"shakas", strconv.Itoa(s.Shakas.Count)},
	}
	if s.SwellHeight != nil {
		rows = append(rows, []string{"swell", fmt.Sprintf("%.1fft @ %s %s", *s.SwellHeight, floatOrEmpty(s.SwellPeriod), s.SwellDirection)})
	}
	if len(s.Participants) > 0 {
		names := make([]string, 0, len(s.Participants))
		for _, p := range s.Participants {
			names = append(names, p.Label())
		}
		rows = append(rows, []string{"with", strings.Join(names, ", ")})
	}
	if s.Notes != "" {
		rows = append(rows, []string{"notes", ansi.Truncate(strings.ReplaceAll(s.Notes, "\n", " "), noteWidth, "…")})
	}
	rows = append(rows, []string{"comments", strconv.Itoa(len(d.Comments))})
	return rows
}

func floatOrEmpty(f *float64) string {
	if f == nil {
		return "?"
	}
	return strconv.FormatFloat(*f, 'f', -1, 64) + "s"
}

type usersTable []model.UserRef

func (t usersTable) TableHeaders() []string { return []string{"USER", "NAME"} }

func (t usersTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, u := range t {
		rows = append(rows, []string{u.UserID, u.Label()})
	}
	return rows
}

type notificationsTable []model.Notification

func (t notificationsTable) TableHeaders() []string {
	return []string{"ID", "WHEN", "FROM", "SESSION", "READ"}
}

func (t notificationsTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, n := range t {
		read := ""
		if n.Read {
			read = "yes"
		}
		rows = append(rows, []string{
			strconv.FormatInt(n.ID, 10),
			shortDate(n.CreatedAt),
			n.SenderDisplayName,
			fmt.Sprintf("%s (#%d)", ansi.Truncate(n.SessionTitle, 30, "…"), n.SessionID),
			read,
		})
	}
	return rows
}

type commentsTable []model.Comment

func (t commentsTable) TableHeaders() []string { return []string{"ID", "WHEN", "WHO", "COMMENT"} }

func (t commentsTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, c := range t {
		rows = append(rows, []string{
			strconv.FormatInt(c.ID, 10),
			shortDate(c.CreatedAt),
			c.DisplayName,
			ansi.Truncate(strings.ReplaceAll(c.Text, "\n", " "), 60, "…"),
		})
	}
	return rows
}

type leaderboardTable []model.LeaderboardEntry

func (t leaderboardTable) TableHeaders() []string {
	return []string{"#", "SURFER", "SESSIONS", "HOURS", "AVG STOKE"}
}

func (t leaderboardTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t))
	for i, e := range t {
		avg := "N/A"
		if e.AverageFunRating != nil {
			avg = e.AverageFunRating.String()
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			e.DisplayName,
			strconv.Itoa(e.TotalSessions),
			strconv.FormatFloat(e.TotalSurfTimeMinutes/60, 'f', 1, 64),
			avg,
		})
	}
	return rows
}

type statsTable struct{ *model.Stats }

func (t statsTable) TableHeaders() []string { return []string{"STAT", "VALUE"} }

func (t statsTable) TableRows() [][]string {
	s := t.Stats
	rows := [][]string{
		{"sessions", strconv.Itoa(s.TotalSessions)},
		{"hours", strconv.FormatFloat(s.TotalHours, 'f', 1, 64)},
		{"average stoke", strconv.FormatFloat(s.AverageStoke, 'f', 2, 64)},
	}
	for i, l := range s.TopLocations {
		rows = append(rows, []string{fmt.Sprintf("top location %d", i+1), fmt.Sprintf("%s (%d)", l.Location, l.Count)})
	}
	if b := s.MostFrequentBuddy; b != nil {
		rows = append(rows, []string{"most frequent buddy", fmt.Sprintf("%s (%d)", b.Label(), b.SessionCount)})
	}
	return rows
}

type reactionOutput struct {
	SessionID        int64  `json:"sessionId"`
	Count            int    `json:"count"`
	ViewerHasReacted bool   `json:"viewerHasReacted"`
	Phase            string `json:"phase"`
}
