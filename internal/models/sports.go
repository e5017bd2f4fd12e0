package models

// Scope is the temporal/popularity bucket of matches a sports query asks for.
type Scope int

const (
	ScopeAll Scope = iota
	ScopeLive
	ScopeToday
	ScopeTomorrow
	ScopePopular
)

func (s Scope) String() string {
	switch s {
	case ScopeLive:
		return "live"
	case ScopeToday:
		return "today"
	case ScopeTomorrow:
		return "tomorrow"
	case ScopePopular:
		return "popular"
	default:
		return "all"
	}
}

// ParseScope maps a free-text scope value to a Scope; anything unrecognized
// falls back to ScopeAll.
func ParseScope(s string) Scope {
	switch s {
	case "live":
		return ScopeLive
	case "today":
		return ScopeToday
	case "tomorrow":
		return ScopeTomorrow
	case "popular":
		return ScopePopular
	default:
		return ScopeAll
	}
}

// SportsIntent is the structured interpretation of one sports query. It is
// derived per query and never persisted.
type SportsIntent struct {
	Scope    Scope    `json:"scope"`
	Sports   []string `json:"sports"`
	Teams    []string `json:"teams"`
	Keywords []string `json:"keywords"`
}

// SourceRef names one interchangeable streaming provider for a match.
type SourceRef struct {
	Source string `json:"source"`
	ID     string `json:"id"`
}

// TeamInfo is one side of a fixture.
type TeamInfo struct {
	Name  string `json:"name"`
	Badge string `json:"badge,omitempty"`
}

// SportsMatch is one scheduled or live fixture from the schedule provider.
// A match with no sources cannot be opened for playback.
type SportsMatch struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Category string      `json:"category"`
	Date     int64       `json:"date"` // epoch milliseconds
	Poster   string      `json:"poster,omitempty"`
	Popular  bool        `json:"popular"`
	Teams    *MatchTeams `json:"teams,omitempty"`
	Sources  []SourceRef `json:"sources"`
}

type MatchTeams struct {
	Home *TeamInfo `json:"home,omitempty"`
	Away *TeamInfo `json:"away,omitempty"`
}

// Playable reports whether the match has at least one stream source.
func (m *SportsMatch) Playable() bool {
	return len(m.Sources) > 0
}

// Sport is one entry of the schedule provider's sport list.
type Sport struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Stream is one watchable stream for a (source, match) pair.
type Stream struct {
	ID       string `json:"id"`
	StreamNo int    `json:"streamNo"`
	Language string `json:"language"`
	HD       bool   `json:"hd"`
	EmbedURL string `json:"embedUrl"`
	Source   string `json:"source"`
}
