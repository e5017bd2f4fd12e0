package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ardiwinata/nobar/internal/cache"
	"github.com/ardiwinata/nobar/internal/catalog"
	"github.com/ardiwinata/nobar/internal/models"
	"github.com/ardiwinata/nobar/internal/orchestrator"
	"github.com/ardiwinata/nobar/internal/player"
	"github.com/ardiwinata/nobar/internal/schedule"
)

const maxRequestBodySize = 1 << 20 // 1 MB

type Handler struct {
	orchestrator *orchestrator.Orchestrator
	cache        *cache.RedisCache
	catalog      *catalog.Client
	schedule     *schedule.Client
	player       *player.Builder
	logger       *zap.Logger
}

func NewHandler(
	orch *orchestrator.Orchestrator,
	redisCache *cache.RedisCache,
	catalogClient *catalog.Client,
	scheduleClient *schedule.Client,
	playerBuilder *player.Builder,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		orchestrator: orch,
		cache:        redisCache,
		catalog:      catalogClient,
		schedule:     scheduleClient,
		player:       playerBuilder,
		logger:       logger,
	}
}

// Search runs one AI-search query through the orchestrator.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := RequestIDFromContext(ctx)

	req, err := h.parseSearchRequest(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	req.RequestID = requestID

	resp, err := h.orchestrator.Search(ctx, req)
	if err != nil {
		if errors.Is(err, orchestrator.ErrEmptyQuery) {
			h.writeError(w, http.StatusBadRequest, "missing_query", "Query must not be empty")
			return
		}
		h.logger.Error("search failed",
			zap.String("request_id", requestID),
			zap.String("query", req.Query),
			zap.Error(err),
		)
		h.writeError(w, http.StatusInternalServerError, "search_error", "Search service temporarily unavailable")
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// Trending returns the most frequent recent queries from the analytics
// pipeline's rolling set.
func (h *Handler) Trending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 10
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 50 {
			limit = n
		}
	}

	queries, err := h.cache.TopQueries(ctx, limit)
	if err != nil {
		h.logger.Warn("trending read error", zap.Error(err))
		queries = nil
	}
	if queries == nil {
		queries = []string{}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"trending": queries})
}

// --- catalog pass-throughs ---

func (h *Handler) CatalogSearch(w http.ResponseWriter, r *http.Request) {
	media, ok := h.mediaParam(w, r)
	if !ok {
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "missing_query", "Query parameter 'q' is required")
		return
	}

	page := pageParam(r)
	var (
		result *models.CatalogPage
		err    error
	)
	if media == catalog.MediaTV {
		result, err = h.catalog.SearchTV(r.Context(), query, page)
	} else {
		result, err = h.catalog.SearchMovies(r.Context(), query, page)
	}
	h.writeCatalogPage(w, result, err)
}

func (h *Handler) CatalogTrending(w http.ResponseWriter, r *http.Request) {
	media, ok := h.mediaParam(w, r)
	if !ok {
		return
	}
	result, err := h.catalog.Trending(r.Context(), media, pageParam(r))
	h.writeCatalogPage(w, result, err)
}

func (h *Handler) CatalogPopular(w http.ResponseWriter, r *http.Request) {
	media, ok := h.mediaParam(w, r)
	if !ok {
		return
	}
	result, err := h.catalog.Popular(r.Context(), media, pageParam(r))
	h.writeCatalogPage(w, result, err)
}

func (h *Handler) CatalogTopRated(w http.ResponseWriter, r *http.Request) {
	media, ok := h.mediaParam(w, r)
	if !ok {
		return
	}
	result, err := h.catalog.TopRated(r.Context(), media, pageParam(r))
	h.writeCatalogPage(w, result, err)
}

func (h *Handler) CatalogGenres(w http.ResponseWriter, r *http.Request) {
	media, ok := h.mediaParam(w, r)
	if !ok {
		return
	}
	genres, err := h.catalog.Genres(r.Context(), media)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"genres": genres})
}

func (h *Handler) CatalogDiscover(w http.ResponseWriter, r *http.Request) {
	media, ok := h.mediaParam(w, r)
	if !ok {
		return
	}

	var filters models.DiscoverFilters
	q := r.URL.Query()
	if g := q.Get("genre"); g != "" {
		if id, err := strconv.ParseInt(g, 10, 64); err == nil {
			filters.GenreID = id
		}
	}
	if y := q.Get("year"); y != "" {
		if year, err := strconv.Atoi(y); err == nil {
			filters.Year = year
		}
	}
	if mr := q.Get("min_rating"); mr != "" {
		if rating, err := strconv.ParseFloat(mr, 64); err == nil {
			filters.MinRating = rating
		}
	}
	filters.SortBy = q.Get("sort_by")

	result, err := h.catalog.Discover(r.Context(), media, filters, pageParam(r))
	h.writeCatalogPage(w, result, err)
}

func (h *Handler) CatalogDetail(w http.ResponseWriter, r *http.Request) {
	media, ok := h.mediaParam(w, r)
	if !ok {
		return
	}
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}

	detail, err := h.catalog.Detail(r.Context(), media, id)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) CatalogCredits(w http.ResponseWriter, r *http.Request) {
	media, ok := h.mediaParam(w, r)
	if !ok {
		return
	}
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}

	cast, err := h.catalog.Credits(r.Context(), media, id)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"cast": cast})
}

func (h *Handler) CatalogVideos(w http.ResponseWriter, r *http.Request) {
	media, ok := h.mediaParam(w, r)
	if !ok {
		return
	}
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}

	videos, err := h.catalog.Videos(r.Context(), media, id)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"videos": videos})
}

func (h *Handler) CatalogSimilar(w http.ResponseWriter, r *http.Request) {
	media, ok := h.mediaParam(w, r)
	if !ok {
		return
	}
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}

	result, err := h.catalog.Similar(r.Context(), media, id, pageParam(r))
	h.writeCatalogPage(w, result, err)
}

func (h *Handler) SeasonEpisodes(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	season, err := strconv.Atoi(chi.URLParam(r, "season"))
	if err != nil || season < 0 {
		h.writeError(w, http.StatusBadRequest, "invalid_season", "Season must be a non-negative number")
		return
	}

	episodes, err := h.catalog.SeasonEpisodes(r.Context(), id, season)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"episodes": episodes})
}

// --- player URLs ---

func (h *Handler) MoviePlayer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"url": h.player.MovieEmbedURL(id),
	})
}

func (h *Handler) TVPlayer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	season, err1 := strconv.Atoi(chi.URLParam(r, "season"))
	episode, err2 := strconv.Atoi(chi.URLParam(r, "episode"))
	if err1 != nil || err2 != nil || season < 0 || episode < 1 {
		h.writeError(w, http.StatusBadRequest, "invalid_episode", "Season and episode must be valid numbers")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"url": h.player.TVEmbedURL(id, season, episode),
	})
}

// SportsPlayer builds the in-app watch path for a match posted by the client.
func (h *Handler) SportsPlayer(w http.ResponseWriter, r *http.Request) {
	var match models.SportsMatch
	limited := io.LimitReader(r.Body, maxRequestBodySize)
	if err := json.NewDecoder(limited).Decode(&match); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Request body must be a match object")
		return
	}

	path, ok := h.player.SportsWatchPath(&match)
	if !ok {
		h.writeError(w, http.StatusUnprocessableEntity, "not_playable", "Match has no stream sources")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"path": path})
}

// --- schedule pass-throughs ---

func (h *Handler) SportsList(w http.ResponseWriter, r *http.Request) {
	sports, err := h.schedule.Sports(r.Context())
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"sports": sports})
}

func (h *Handler) SportsMatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		matches []models.SportsMatch
		err     error
	)
	switch models.ParseScope(r.URL.Query().Get("scope")) {
	case models.ScopeLive:
		matches, err = h.schedule.LiveMatches(ctx)
	case models.ScopeToday:
		matches, err = h.schedule.TodayMatches(ctx)
	case models.ScopePopular:
		matches, err = h.schedule.PopularMatches(ctx)
	default:
		matches, err = h.schedule.AllMatches(ctx)
	}
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	if matches == nil {
		matches = []models.SportsMatch{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

func (h *Handler) SportMatches(w http.ResponseWriter, r *http.Request) {
	sportID := chi.URLParam(r, "sport")
	popular := r.URL.Query().Get("popular") == "true"

	matches, err := h.schedule.MatchesBySport(r.Context(), sportID, popular)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	if matches == nil {
		matches = []models.SportsMatch{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

func (h *Handler) MatchStreams(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	id := chi.URLParam(r, "id")

	streams, err := h.schedule.Streams(r.Context(), source, id)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"streams": streams})
}

// --- helpers ---

func (h *Handler) parseSearchRequest(r *http.Request) (*models.SearchRequest, error) {
	if r.Method == http.MethodPost {
		var req models.SearchRequest
		limited := io.LimitReader(r.Body, maxRequestBodySize)
		if err := json.NewDecoder(limited).Decode(&req); err != nil {
			return nil, err
		}
		return &req, nil
	}

	req := &models.SearchRequest{
		Query: r.URL.Query().Get("q"),
	}
	if m := r.URL.Query().Get("max_movies"); m != "" {
		if n, err := strconv.Atoi(m); err == nil && n > 0 {
			req.MaxMovies = n
		}
	}
	if m := r.URL.Query().Get("max_matches"); m != "" {
		if n, err := strconv.Atoi(m); err == nil && n > 0 {
			req.MaxMatches = n
		}
	}
	if r.URL.Query().Get("force_fresh") == "true" {
		req.ForceFresh = true
	}
	return req, nil
}

func (h *Handler) mediaParam(w http.ResponseWriter, r *http.Request) (catalog.MediaType, bool) {
	switch chi.URLParam(r, "media") {
	case "movie":
		return catalog.MediaMovie, true
	case "tv":
		return catalog.MediaTV, true
	default:
		h.writeError(w, http.StatusBadRequest, "invalid_media", "Media must be 'movie' or 'tv'")
		return "", false
	}
}

func (h *Handler) idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "invalid_id", "ID must be a positive number")
		return 0, false
	}
	return id, true
}

func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func (h *Handler) writeCatalogPage(w http.ResponseWriter, page *models.CatalogPage, err error) {
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	if page.Results == nil {
		page.Results = []models.CatalogTitle{}
	}
	h.writeJSON(w, http.StatusOK, page)
}

func (h *Handler) writeUpstreamError(w http.ResponseWriter, err error) {
	h.logger.Warn("upstream request failed", zap.Error(err))
	h.writeError(w, http.StatusBadGateway, "upstream_error", "Upstream provider temporarily unavailable")
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("writing json response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}
