package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// UserRef is the minimal user reference embedded in sessions, reaction previews and
// reactor lists.
type UserRef struct {
	UserID      string `json:"user_id,omitempty"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
}

// Label returns the best human label for the user.
func (u UserRef) Label() string {
	if s := strings.TrimSpace(u.DisplayName); s != "" {
		return s
	}
	if s := strings.TrimSpace(u.Email); s != "" {
		return s
	}
	return u.UserID
}

// ReactionSummary is the server's view of the shakas on a session.
//
// Preview is a sample picked by the server. It is display data only and is not
// guaranteed to be a subset of the reactors, nor to be consistent with Count.
type ReactionSummary struct {
	Count            int       `json:"count"`
	ViewerHasReacted bool      `json:"viewer_has_shakaed"`
	Preview          []UserRef `json:"preview,omitempty"`
}

// Stoke is the fun rating of a session, 0..10 in quarter steps.
//
// The API is inconsistent about encoding it (number or numeric string), so it
// unmarshals from both.
type Stoke float64

const (
	StokeMin  Stoke = 0
	StokeMax  Stoke = 10
	StokeStep Stoke = 0.25
)

func (s Stoke) Valid() bool {
	if s < StokeMin || s > StokeMax {
		return false
	}
	q := float64(s / StokeStep)
	return math.Abs(q-math.Round(q)) < 1e-9
}

func (s Stoke) String() string {
	return strconv.FormatFloat(float64(s), 'f', -1, 64)
}

func (s *Stoke) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" || raw == `""` {
		*s = 0
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		raw = strings.TrimSpace(str)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid fun rating %q", raw)
	}
	*s = Stoke(f)
	return nil
}

// Session is a logged surf outing. It is owned by the API; the client never mutates it.
type Session struct {
	ID             int64           `json:"id"`
	Title          string          `json:"session_name"`
	Location       string          `json:"location"`
	Region         string          `json:"region,omitempty"`
	FunRating      Stoke           `json:"fun_rating"`
	StartedAt      time.Time       `json:"session_started_at"`
	EndedAt        time.Time       `json:"session_ended_at"`
	UserID         string          `json:"user_id"`
	DisplayName    string          `json:"display_name"`
	Participants   []UserRef       `json:"participants,omitempty"`
	Notes          string          `json:"session_notes,omitempty"`
	SwellHeight    *float64        `json:"swell_height,omitempty"`
	SwellPeriod    *float64        `json:"swell_period,omitempty"`
	SwellDirection string          `json:"swell_direction,omitempty"`
	Shakas         ReactionSummary `json:"shakas"`
}

// Duration is the time spent in the water, zero when either bound is missing.
func (s Session) Duration() time.Duration {
	if s.StartedAt.IsZero() || s.EndedAt.IsZero() || s.EndedAt.Before(s.StartedAt) {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}

type UserProfile struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
}

func (p UserProfile) Ref() UserRef {
	return UserRef{UserID: p.UserID, DisplayName: p.DisplayName, Email: p.Email}
}

type MonthCount struct {
	Month int     `json:"month"`
	Value float64 `json:"value"`
}

type LocationCount struct {
	Location string `json:"location"`
	Count    int    `json:"count"`
}

type Buddy struct {
	UserRef
	SessionCount int `json:"session_count"`
}

// Stats is the aggregated yearly summary for a user.
type Stats struct {
	TotalSessions     int             `json:"total_sessions"`
	TotalHours        float64         `json:"total_hours"`
	AverageStoke      float64         `json:"average_stoke"`
	SessionsByMonth   []MonthCount    `json:"sessions_by_month,omitempty"`
	StokeByMonth      []MonthCount    `json:"stoke_by_month,omitempty"`
	TopLocations      []LocationCount `json:"top_locations,omitempty"`
	TopSessions       []Session       `json:"top_sessions,omitempty"`
	MostFrequentBuddy *Buddy          `json:"most_frequent_buddy,omitempty"`
}

type Notification struct {
	ID                int64     `json:"id"`
	SessionID         int64     `json:"session_id"`
	SessionTitle      string    `json:"session_title"`
	SenderDisplayName string    `json:"sender_display_name"`
	Read              bool      `json:"read"`
	CreatedAt         time.Time `json:"created_at"`
}

type Comment struct {
	ID          int64     `json:"id"`
	SessionID   int64     `json:"session_id"`
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Text        string    `json:"comment_text"`
	CreatedAt   time.Time `json:"created_at"`
}

type LoginResult struct {
	AccessToken string      `json:"access_token"`
	User        UserProfile `json:"user"`
}

// SessionUpdate edits an existing session. Nil fields are left unchanged;
// TaggedUsers, when non-nil, replaces the tagged friends by user id.
type SessionUpdate struct {
	Title       *string  `json:"session_name,omitempty"`
	Location    *string  `json:"location,omitempty"`
	FunRating   *Stoke   `json:"fun_rating,omitempty"`
	Notes       *string  `json:"session_notes,omitempty"`
	TaggedUsers []string `json:"tagged_users,omitempty"`
}

// Empty reports whether u changes nothing.
func (u SessionUpdate) Empty() bool {
	return u.Title == nil && u.Location == nil && u.FunRating == nil && u.Notes == nil && u.TaggedUsers == nil
}

type SignupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// LeaderboardEntry is one ranked user on the community leaderboard.
type LeaderboardEntry struct {
	UserID               string  `json:"user_id"`
	DisplayName          string  `json:"display_name"`
	TotalSessions        int     `json:"total_sessions"`
	TotalSurfTimeMinutes float64 `json:"total_surf_time_minutes"`
	AverageFunRating     *Stoke  `json:"average_fun_rating,omitempty"`
}
