package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"surflog-cli/internal/model"
)

// MeUserID addresses the authenticated viewer in /users/{id}/... paths.
const MeUserID = "me"

func sessionPath(sessionID int64, rest string) string {
	return "/sessions/" + strconv.FormatInt(sessionID, 10) + rest
}

func userPath(userID, rest string) string {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID = MeUserID
	}
	return "/users/" + url.PathEscape(userID) + rest
}

// ToggleShaka flips the viewer's reaction and returns the authoritative count.
func (c *Client) ToggleShaka(ctx context.Context, sessionID int64) (int, error) {
	var out struct {
		Count int `json:"shaka_count"`
	}
	if err := c.do(ctx, request{method: http.MethodPost, path: sessionPath(sessionID, "/reaction/toggle")}, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// Reactors lists everyone who reacted to a session.
func (c *Client) Reactors(ctx context.Context, sessionID int64) ([]model.UserRef, error) {
	var out []model.UserRef
	if err := c.Get(ctx, sessionPath(sessionID, "/reactors"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Session(ctx context.Context, sessionID int64) (model.Session, error) {
	var out model.Session
	err := c.Get(ctx, sessionPath(sessionID, ""), nil, &out)
	return out, err
}

// UpdateSession edits one of the viewer's sessions and returns it as stored.
func (c *Client) UpdateSession(ctx context.Context, sessionID int64, u model.SessionUpdate) (model.Session, error) {
	var out model.Session
	err := c.do(ctx, request{method: http.MethodPut, path: sessionPath(sessionID, ""), body: u}, &out)
	return out, err
}

// UserSessions lists a user's sessions constrained by filters (already encoded as query params).
func (c *Client) UserSessions(ctx context.Context, userID string, filters url.Values) ([]model.Session, error) {
	var out []model.Session
	if err := c.Get(ctx, userPath(userID, "/sessions"), filters, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Feed lists community sessions constrained by filters.
func (c *Client) Feed(ctx context.Context, filters url.Values) ([]model.Session, error) {
	var out []model.Session
	if err := c.Get(ctx, "/sessions/feed", filters, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Stats(ctx context.Context, userID string, year int) (model.Stats, error) {
	var out model.Stats
	q := url.Values{"year": {strconv.Itoa(year)}}
	err := c.Get(ctx, userPath(userID, "/stats"), q, &out)
	return out, err
}

func (c *Client) Profile(ctx context.Context, userID string) (model.UserProfile, error) {
	var out model.UserProfile
	err := c.Get(ctx, userPath(userID, "/profile"), nil, &out)
	return out, err
}

func (c *Client) SearchUsers(ctx context.Context, query string) ([]model.UserRef, error) {
	var out []model.UserRef
	if err := c.Get(ctx, "/users/search", url.Values{"q": {query}}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Leaderboard ranks users for a year by stat (sessions, time or rating).
func (c *Client) Leaderboard(ctx context.Context, year int, stat string) ([]model.LeaderboardEntry, error) {
	var out []model.LeaderboardEntry
	q := url.Values{"year": {strconv.Itoa(year)}, "stat": {stat}}
	if err := c.Get(ctx, "/leaderboard", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Notifications returns the viewer's notifications, newest first.
func (c *Client) Notifications(ctx context.Context) ([]model.Notification, error) {
	var out []model.Notification
	if err := c.Get(ctx, "/notifications", nil, &out); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, notificationID int64) error {
	path := "/notifications/" + strconv.FormatInt(notificationID, 10) + "/read"
	return c.do(ctx, request{method: http.MethodPost, path: path}, nil)
}

// SnakeSession copies a tagged session's conditions into a new session owned by the
// viewer and returns the new session id.
func (c *Client) SnakeSession(ctx context.Context, sessionID int64) (int64, error) {
	var out struct {
		NewSessionID int64 `json:"new_session_id"`
	}
	if err := c.do(ctx, request{method: http.MethodPost, path: sessionPath(sessionID, "/snake")}, &out); err != nil {
		return 0, err
	}
	return out.NewSessionID, nil
}

func (c *Client) Comments(ctx context.Context, sessionID int64) ([]model.Comment, error) {
	var out struct {
		Comments []model.Comment `json:"comments"`
	}
	if err := c.Get(ctx, sessionPath(sessionID, "/comments"), nil, &out); err != nil {
		return nil, err
	}
	return out.Comments, nil
}

func (c *Client) PostComment(ctx context.Context, sessionID int64, text string) (model.Comment, error) {
	var out model.Comment
	body := map[string]string{"comment_text": text}
	err := c.do(ctx, request{method: http.MethodPost, path: sessionPath(sessionID, "/comments"), body: body}, &out)
	return out, err
}

// Login exchanges credentials for a bearer token. It does not store the token.
func (c *Client) Login(ctx context.Context, email, password string) (model.LoginResult, error) {
	var out model.LoginResult
	body := map[string]string{"email": email, "password": password}
	err := c.do(ctx, request{method: http.MethodPost, path: "/auth/login", body: body, public: true}, &out)
	return out, err
}

// Signup creates an account. Callers log in afterwards to obtain a token.
func (c *Client) Signup(ctx context.Context, req model.SignupRequest) error {
	return c.do(ctx, request{method: http.MethodPost, path: "/auth/signup", body: req, public: true}, nil)
}
