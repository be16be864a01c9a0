package viewstate

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

type RequestKind string

const (
	RequestProfile     RequestKind = "profile"
	RequestSessions    RequestKind = "sessions"
	RequestStats       RequestKind = "stats"
	RequestFeed        RequestKind = "feed"
	RequestLeaderboard RequestKind = "leaderboard"
)

// Request is one API call a view needs.
type Request struct {
	Kind   RequestKind
	UserID string
	Params url.Values
}

// Key is the canonical identity of the request; equal keys fetch equal data.
func (r Request) Key() string {
	var b strings.Builder
	b.WriteString(string(r.Kind))
	if r.UserID != "" {
		b.WriteString(":")
		b.WriteString(r.UserID)
	}
	if enc := r.Params.Encode(); enc != "" {
		b.WriteString("?")
		b.WriteString(enc)
	}
	return b.String()
}

// Year returns the year parameter, 0 when absent.
func (r Request) Year() int {
	y, _ := strconv.Atoi(r.Params.Get(KeyYear))
	return y
}

// QuerySpec is the deterministic set of requests a view issues for its state.
type QuerySpec struct {
	Tab      Tab
	Requests []Request
}

func (s QuerySpec) Key() string {
	keys := make([]string, len(s.Requests))
	for i, r := range s.Requests {
		keys[i] = r.Key()
	}
	return string(s.Tab) + "|" + strings.Join(keys, "|")
}

func (s QuerySpec) Equal(o QuerySpec) bool { return s.Key() == o.Key() }

// Profile returns the profile request, if the view needs one.
func (s QuerySpec) Profile() (Request, bool) {
	for _, r := range s.Requests {
		if r.Kind == RequestProfile {
			return r, true
		}
	}
	return Request{}, false
}

// Panel returns the tab-content request.
func (s QuerySpec) Panel() (Request, bool) {
	for _, r := range s.Requests {
		if r.Kind != RequestProfile {
			return r, true
		}
	}
	return Request{}, false
}

// DeriveQuery returns the requests for a journal view: the profile always, the
// filtered session list on the log tab, the yearly stats on the stats tab.
func DeriveQuery(userID string, tab Tab, year int, filters Filters) QuerySpec {
	userID = strings.TrimSpace(userID)
	spec := QuerySpec{Tab: tab}
	spec.Requests = append(spec.Requests, Request{Kind: RequestProfile, UserID: userID, Params: url.Values{}})
	switch tab {
	case TabStats:
		spec.Requests = append(spec.Requests, Request{
			Kind:   RequestStats,
			UserID: userID,
			Params: url.Values{KeyYear: {strconv.Itoa(year)}},
		})
	default:
		spec.Tab = TabLog
		spec.Requests = append(spec.Requests, Request{Kind: RequestSessions, UserID: userID, Params: filters.Values()})
	}
	return spec
}

// DeriveFeedQuery returns the requests for the community feed page. The feed has
// no profile header.
func DeriveFeedQuery(tab Tab, year int, stat string, filters Filters) QuerySpec {
	if tab == TabLeaderboard {
		return QuerySpec{Tab: tab, Requests: []Request{{
			Kind:   RequestLeaderboard,
			Params: url.Values{KeyYear: {strconv.Itoa(year)}, KeyStat: {stat}},
		}}}
	}
	return QuerySpec{Tab: TabFeed, Requests: []Request{{Kind: RequestFeed, Params: filters.Values()}}}
}

// State is everything a location resolves to.
type State struct {
	Location Location
	UserID   string
	Tab      Tab
	Year     int
	Stat     string
	Filters  Filters
}

// Resolve parses loc into view state. viewerID stands in for the journal owner
// when the path names none.
func Resolve(loc Location, viewerID string, now time.Time) State {
	st := State{
		Location: loc,
		Year:     ResolveActiveYear(loc.Query, now),
		Filters:  ParseFilters(loc.Query),
	}
	if loc.IsFeed() {
		st.Tab = ResolveFeedTab(loc.Query)
		st.Stat = ResolveLeaderboardStat(loc.Query)
		return st
	}
	st.Tab = ResolveActiveTab(loc.Query)
	st.UserID = loc.JournalUser()
	if st.UserID == "" {
		st.UserID = viewerID
	}
	return st
}

// Query derives the request spec for st.
func (st State) Query() QuerySpec {
	if st.Location.IsFeed() {
		return DeriveFeedQuery(st.Tab, st.Year, st.Stat, st.Filters)
	}
	return DeriveQuery(st.UserID, st.Tab, st.Year, st.Filters)
}
