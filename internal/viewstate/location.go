package viewstate

import (
	"net/url"
	"strconv"
	"strings"
)

// Page paths.
const (
	PathJournal = "/journal"
	PathFeed    = "/feed"
	PathLogin   = "/login"
)

// Location is a path plus its query parameters, the terminal analogue of a URL.
type Location struct {
	Path  string
	Query url.Values
}

// ParseLocation splits raw ("/journal/u-1?tab=stats", "tab=stats" or a full URL)
// into a Location. It never fails; a missing path resolves to the journal.
func ParseLocation(raw string) Location {
	raw = strings.TrimSpace(raw)
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" {
		raw = u.Path
		if u.RawQuery != "" {
			raw += "?" + u.RawQuery
		}
	}
	path, query, _ := strings.Cut(raw, "?")
	if query == "" && !strings.HasPrefix(path, "/") && strings.Contains(path, "=") {
		path, query = "", path
	}
	path = strings.TrimRight(strings.TrimSpace(path), "/")
	if path == "" {
		path = PathJournal
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return Location{Path: path, Query: ParseQuery(query)}
}

// JournalLocation is the journal of userID (the viewer when empty).
func JournalLocation(userID string, q url.Values) Location {
	p := PathJournal
	if userID = strings.TrimSpace(userID); userID != "" {
		p += "/" + url.PathEscape(userID)
	}
	return Location{Path: p, Query: cloneValues(q)}
}

func (l Location) String() string {
	if enc := l.Query.Encode(); enc != "" {
		return l.Path + "?" + enc
	}
	return l.Path
}

// IsFeed reports whether l addresses the community feed.
func (l Location) IsFeed() bool { return l.Path == PathFeed }

func (l Location) IsLogin() bool { return l.Path == PathLogin }

// JournalUser returns the user addressed by a journal path, "" for the viewer.
func (l Location) JournalUser() string {
	rest, ok := strings.CutPrefix(l.Path, PathJournal+"/")
	if !ok {
		return ""
	}
	u, err := url.PathUnescape(rest)
	if err != nil {
		return rest
	}
	return u
}

// With returns a copy of l with key set (or removed when value is empty).
func (l Location) With(key, value string) Location {
	return Location{Path: l.Path, Query: ApplyFilterChange(key, value, l.Query)}
}

// Equal compares canonical forms.
func (l Location) Equal(o Location) bool { return l.String() == o.String() }

// History is the navigation stack. Filter edits and year changes replace the
// current entry; tab switches and user navigation push a new one.
type History struct {
	entries []Location
}

func NewHistory(start Location) *History {
	return &History{entries: []Location{start}}
}

func (h *History) Current() Location { return h.entries[len(h.entries)-1] }

func (h *History) Len() int { return len(h.entries) }

// Push adds loc unless it equals the current entry.
func (h *History) Push(loc Location) {
	if h.Current().Equal(loc) {
		return
	}
	h.entries = append(h.entries, loc)
}

func (h *History) Replace(loc Location) {
	h.entries[len(h.entries)-1] = loc
}

// Back pops the current entry. It reports false at the first entry.
func (h *History) Back() (Location, bool) {
	if len(h.entries) <= 1 {
		return h.Current(), false
	}
	h.entries = h.entries[:len(h.entries)-1]
	return h.Current(), true
}

// SetFilter replaces the current entry with the filter applied.
func (h *History) SetFilter(key, value string) Location {
	loc := h.Current().With(key, value)
	h.Replace(loc)
	return loc
}

// SetYear replaces the current entry with the year selected.
func (h *History) SetYear(year int) Location {
	loc := h.Current().With(KeyYear, strconv.Itoa(year))
	h.Replace(loc)
	return loc
}

// SetTab pushes the current location with the tab selected.
func (h *History) SetTab(tab Tab) Location {
	loc := h.Current().With(KeyTab, string(tab))
	h.Push(loc)
	return loc
}

// Navigate pushes a new location.
func (h *History) Navigate(loc Location) Location {
	h.Push(loc)
	return loc
}
