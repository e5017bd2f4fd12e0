package models

// Intent is the classifier's verdict on which domains a query targets.
// At least one of the two is always true; movies is the fallback domain.
type Intent struct {
	WantsMovies bool `json:"wants_movies"`
	WantsSports bool `json:"wants_sports"`
}

func (i Intent) String() string {
	switch {
	case i.WantsMovies && i.WantsSports:
		return "both"
	case i.WantsSports:
		return "sports"
	default:
		return "movies"
	}
}

// SearchRequest is one AI-search invocation.
type SearchRequest struct {
	Query      string `json:"query"`
	MaxMovies  int    `json:"max_movies,omitempty"`
	MaxMatches int    `json:"max_matches,omitempty"`
	ForceFresh bool   `json:"force_fresh,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

// SearchResponse carries the two independent result lists plus the composed
// summary message. The lists are replaced wholesale on the next query.
type SearchResponse struct {
	Message    string           `json:"message"`
	Movies     []CatalogTitle   `json:"movies"`
	Matches    []SportsMatch    `json:"matches"`
	Intent     Intent           `json:"intent"`
	TookMs     int64            `json:"took_ms"`
	Generation uint64           `json:"generation"`
	Metadata   ResponseMetadata `json:"metadata"`
}

type ResponseMetadata struct {
	RequestID string `json:"request_id"`
	CacheHit  bool   `json:"cache_hit"`
	Stale     bool   `json:"stale"`
	Source    string `json:"source"`
}
