package viewstate

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Tab string

const (
	TabLog         Tab = "log"
	TabStats       Tab = "stats"
	TabFeed        Tab = "feed"
	TabLeaderboard Tab = "leaderboard"
)

// JournalTabs and FeedTabs list the tabs of each page in display order.
var (
	JournalTabs = []Tab{TabLog, TabStats}
	FeedTabs    = []Tab{TabFeed, TabLeaderboard}
)

// FloorYear is the first year with data.
const FloorYear = 2023

// Leaderboard ranking stats.
const (
	StatSessions = "sessions"
	StatTime     = "time"
	StatRating   = "rating"
)

var LeaderboardStats = []string{StatSessions, StatTime, StatRating}

func resolveTab(q url.Values, allowed []Tab) Tab {
	raw := Tab(strings.ToLower(strings.TrimSpace(q.Get(KeyTab))))
	for _, t := range allowed {
		if t == raw {
			return t
		}
	}
	return allowed[0]
}

// ResolveActiveTab returns the journal tab; absent or unknown values resolve to "log".
func ResolveActiveTab(q url.Values) Tab { return resolveTab(q, JournalTabs) }

// ResolveFeedTab returns the feed tab; absent or unknown values resolve to "feed".
func ResolveFeedTab(q url.Values) Tab { return resolveTab(q, FeedTabs) }

// ResolveActiveYear returns the selected year. Absent or unparsable values resolve
// to the current year; out-of-range values are clamped to [FloorYear, current year].
func ResolveActiveYear(q url.Values, now time.Time) int {
	y, err := strconv.Atoi(strings.TrimSpace(q.Get(KeyYear)))
	if err != nil {
		y = now.Year()
	}
	return ClampYear(y, now)
}

func ClampYear(y int, now time.Time) int {
	current := now.Year()
	if current < FloorYear {
		current = FloorYear
	}
	switch {
	case y < FloorYear:
		return FloorYear
	case y > current:
		return current
	}
	return y
}

// Years lists the selectable years, newest first.
func Years(now time.Time) []int {
	var out []int
	for y := now.Year(); y >= FloorYear; y-- {
		out = append(out, y)
	}
	if len(out) == 0 {
		out = append(out, FloorYear)
	}
	return out
}

// ResolveLeaderboardStat returns the ranking stat; unknown values resolve to "sessions".
func ResolveLeaderboardStat(q url.Values) string {
	raw := strings.ToLower(strings.TrimSpace(q.Get(KeyStat)))
	for _, s := range LeaderboardStats {
		if s == raw {
			return s
		}
	}
	return StatSessions
}
