package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ardiwinata/nobar/internal/catalog"
	"github.com/ardiwinata/nobar/internal/config"
	"github.com/ardiwinata/nobar/internal/models"
	"github.com/ardiwinata/nobar/internal/orchestrator"
	"github.com/ardiwinata/nobar/internal/player"
	"github.com/ardiwinata/nobar/internal/schedule"
)

func testSearchConfig() config.SearchConfig {
	return config.SearchConfig{
		MaxMovieResults: 5,
		MaxMatchResults: 12,
		QueryTimeout:    5 * time.Second,
		CircuitBreaker: config.CircuitBreakerConfig{
			MaxRequests:      5,
			Interval:         time.Minute,
			Timeout:          time.Minute,
			FailureThreshold: 3,
		},
		Retry: config.RetryConfig{
			MaxAttempts: 1,
			InitialWait: time.Millisecond,
			MaxWait:     time.Millisecond,
			Multiplier:  1,
		},
	}
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	orch := orchestrator.New(nil, nil, nil, nil, nil, nil, testSearchConfig(), zap.NewNop())
	return &Handler{
		orchestrator: orch,
		player:       player.NewBuilder(config.PlayerConfig{MovieEmbedBase: "https://p.example/movie", TVEmbedBase: "https://p.example/tv"}),
		logger:       zap.NewNop(),
	}
}

func catalogBackedHandler(t *testing.T, upstream http.HandlerFunc) *Handler {
	t.Helper()
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	client, err := catalog.NewClient(config.CatalogConfig{
		BaseURL:        srv.URL,
		ImageBaseURL:   "https://img.example/t/p",
		APIKey:         "test-key",
		RequestTimeout: 2 * time.Second,
	}, testSearchConfig(), zap.NewNop())
	if err != nil {
		t.Fatalf("creating catalog client: %v", err)
	}

	h := newTestHandler(t)
	h.catalog = client
	return h
}

func scheduleBackedHandler(t *testing.T, upstream http.HandlerFunc) *Handler {
	t.Helper()
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	client, err := schedule.NewClient(config.ScheduleConfig{
		BaseURL:        srv.URL,
		RequestTimeout: 2 * time.Second,
	}, testSearchConfig(), zap.NewNop())
	if err != nil {
		t.Fatalf("creating schedule client: %v", err)
	}

	h := newTestHandler(t)
	h.schedule = client
	return h
}

// doChi invokes a handler with chi route params injected, the way the router
// would resolve them.
func doChi(t *testing.T, handler http.HandlerFunc, target string, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestParseSearchRequest_GET(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/search?q=horror+indonesia&max_movies=3&max_matches=8&force_fresh=true", nil)

	sr, err := h.parseSearchRequest(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sr.Query != "horror indonesia" {
		t.Errorf("expected query 'horror indonesia', got %q", sr.Query)
	}
	if sr.MaxMovies != 3 {
		t.Errorf("expected max_movies 3, got %d", sr.MaxMovies)
	}
	if sr.MaxMatches != 8 {
		t.Errorf("expected max_matches 8, got %d", sr.MaxMatches)
	}
	if !sr.ForceFresh {
		t.Error("expected ForceFresh true")
	}
}

func TestParseSearchRequest_GET_InvalidNumbers(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/search?q=up&max_movies=abc&max_matches=-2", nil)
	sr, err := h.parseSearchRequest(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sr.MaxMovies != 0 || sr.MaxMatches != 0 {
		t.Errorf("invalid limits should stay 0, got %d/%d", sr.MaxMovies, sr.MaxMatches)
	}
}

func TestParseSearchRequest_POST(t *testing.T) {
	h := newTestHandler(t)

	body := `{"query":"el clasico","max_matches":4}`
	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(body))

	sr, err := h.parseSearchRequest(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sr.Query != "el clasico" {
		t.Errorf("expected query 'el clasico', got %q", sr.Query)
	}
	if sr.MaxMatches != 4 {
		t.Errorf("expected max_matches 4, got %d", sr.MaxMatches)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=++", nil)
	rr := httptest.NewRecorder()
	h.Search(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshaling response: %v", err)
	}
	if resp["code"] != "missing_query" {
		t.Errorf("expected code missing_query, got %q", resp["code"])
	}
}

func TestSearch_NoResolversStillResponds(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=anything", nil)
	rr := httptest.NewRecorder()
	h.Search(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp models.SearchResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshaling response: %v", err)
	}
	if len(resp.Movies) != 0 || len(resp.Matches) != 0 {
		t.Error("expected empty result lists")
	}
	if !strings.Contains(resp.Message, "No results") {
		t.Errorf("expected no-results message, got %q", resp.Message)
	}
}

func TestCatalogSearch_InvalidMedia(t *testing.T) {
	h := newTestHandler(t)

	rr := doChi(t, h.CatalogSearch, "/catalog/music/search?q=abc", map[string]string{"media": "music"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown media, got %d", rr.Code)
	}
}

func TestCatalogSearch_MissingQuery(t *testing.T) {
	h := newTestHandler(t)

	rr := doChi(t, h.CatalogSearch, "/catalog/movie/search", map[string]string{"media": "movie"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without q, got %d", rr.Code)
	}
}

func TestCatalogDetail(t *testing.T) {
	h := catalogBackedHandler(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/603" {
			t.Errorf("unexpected upstream path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id": 603, "title": "The Matrix", "vote_average": 8.2,
		})
	})

	rr := doChi(t, h.CatalogDetail, "/catalog/movie/603", map[string]string{"media": "movie", "id": "603"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var detail models.TitleDetail
	if err := json.Unmarshal(rr.Body.Bytes(), &detail); err != nil {
		t.Fatalf("unmarshaling detail: %v", err)
	}
	if detail.Title != "The Matrix" {
		t.Errorf("expected The Matrix, got %q", detail.Title)
	}
}

func TestCatalogDetail_InvalidID(t *testing.T) {
	h := newTestHandler(t)

	rr := doChi(t, h.CatalogDetail, "/catalog/movie/abc", map[string]string{"media": "movie", "id": "abc"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-numeric id, got %d", rr.Code)
	}
}

func TestCatalogDetail_UpstreamDown(t *testing.T) {
	h := catalogBackedHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	rr := doChi(t, h.CatalogDetail, "/catalog/movie/603", map[string]string{"media": "movie", "id": "603"})
	if rr.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rr.Code)
	}
}

func TestSportsMatches_ScopeRouting(t *testing.T) {
	var gotPath string
	h := scheduleBackedHandler(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode([]models.SportsMatch{{ID: "m1", Title: "Match"}})
	})

	tests := []struct {
		scope    string
		wantPath string
	}{
		{"live", "/api/matches/live"},
		{"today", "/api/matches/all-today"},
		{"popular", "/api/matches/all/popular"},
		{"", "/api/matches/all"},
	}

	for _, tt := range tests {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/sports/matches?scope="+tt.scope, nil)
		h.SportsMatches(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("scope %q: expected 200, got %d", tt.scope, rr.Code)
		}
		if gotPath != tt.wantPath {
			t.Errorf("scope %q: upstream path = %q, want %q", tt.scope, gotPath, tt.wantPath)
		}
	}
}

func TestMoviePlayer(t *testing.T) {
	h := newTestHandler(t)

	rr := doChi(t, h.MoviePlayer, "/player/movie/603", map[string]string{"id": "603"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp map[string]string
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp["url"] != "https://p.example/movie/603" {
		t.Errorf("unexpected url %q", resp["url"])
	}
}

func TestSportsPlayer(t *testing.T) {
	h := newTestHandler(t)

	body := `{"id":"m1","title":"Derby","sources":[{"source":"alpha","id":"a1"}]}`
	req := httptest.NewRequest(http.MethodPost, "/player/sports", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.SportsPlayer(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp map[string]string
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if !strings.HasPrefix(resp["path"], "/sports/alpha/a1/watch?") {
		t.Errorf("unexpected path %q", resp["path"])
	}
}

func TestSportsPlayer_NoSources(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/player/sports", strings.NewReader(`{"id":"m1","title":"Derby"}`))
	rr := httptest.NewRecorder()
	h.SportsPlayer(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for unplayable match, got %d", rr.Code)
	}
}

func TestPageParam(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 1},
		{"0", 1},
		{"-3", 1},
		{"abc", 1},
		{"7", 7},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/?page="+tt.raw, nil)
		if got := pageParam(req); got != tt.want {
			t.Errorf("pageParam(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}
