package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ardiwinata/nobar/internal/catalog"
	"github.com/ardiwinata/nobar/internal/models"
	"github.com/ardiwinata/nobar/internal/observability"
)

// Completer is the generative-text dependency of both resolvers.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CatalogSearcher is the slice of the catalog client the movie resolver uses.
type CatalogSearcher interface {
	SearchMovies(ctx context.Context, query string, page int) (*models.CatalogPage, error)
	Detail(ctx context.Context, media catalog.MediaType, id int64) (*models.TitleDetail, error)
}

const moviePromptTemplate = `You are a movie identification assistant.
Given the user's description, respond with STRICT JSON only, no prose and no markdown, in exactly this form:
{"movies":[{"title":"..."},{"title":"..."}]}
List at most %d likely titles, most likely first. If you cannot identify any movie, respond with:
{"error":"not found"}

Description: %s`

// MovieResolver turns a free-text description into catalog titles. Best
// effort end to end: every failure path degrades to an empty list, never an
// error to the caller.
type MovieResolver struct {
	completer  Completer
	catalog    CatalogSearcher
	maxResults int
	logger     *zap.Logger
}

func NewMovieResolver(completer Completer, cat CatalogSearcher, maxResults int, logger *zap.Logger) *MovieResolver {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &MovieResolver{
		completer:  completer,
		catalog:    cat,
		maxResults: maxResults,
		logger:     logger,
	}
}

func (r *MovieResolver) Resolve(ctx context.Context, query string) []models.CatalogTitle {
	ctx, span := observability.StartSpan(ctx, "resolver.movies")
	defer span.End()

	raw, err := r.completer.Complete(ctx, fmt.Sprintf(moviePromptTemplate, r.maxResults, query))
	if err != nil {
		r.logger.Warn("movie interpretation failed", zap.Error(err))
		observability.ResolverFallbackTotal.WithLabelValues("movies_genai_failed").Inc()
		return nil
	}

	titles := parseMovieSuggestions(raw)
	if len(titles) == 0 {
		return nil
	}
	if len(titles) > r.maxResults {
		titles = titles[:r.maxResults]
	}

	// Concurrent first-hit lookups, suggestion order preserved via the slot
	// index. A failed or empty lookup drops that title only.
	slots := make([]*models.CatalogTitle, len(titles))
	var wg sync.WaitGroup
	for i, title := range titles {
		wg.Add(1)
		go func(i int, title string) {
			defer wg.Done()
			slots[i] = r.lookupFirstHit(ctx, title)
		}(i, title)
	}
	wg.Wait()

	out := make([]models.CatalogTitle, 0, len(titles))
	for _, slot := range slots {
		if slot != nil {
			out = append(out, *slot)
		}
	}
	return out
}

func (r *MovieResolver) lookupFirstHit(ctx context.Context, title string) *models.CatalogTitle {
	page, err := r.catalog.SearchMovies(ctx, title, 1)
	if err != nil {
		r.logger.Debug("catalog lookup failed", zap.String("title", title), zap.Error(err))
		return nil
	}
	if page == nil || len(page.Results) == 0 {
		return nil
	}

	hit := page.Results[0]
	if hit.Overview == "" || hit.PosterPath == "" {
		r.hydrate(ctx, &hit)
	}
	return &hit
}

// hydrate backfills sparse search hits from the detail endpoint. Best effort;
// the base hit stands on failure.
func (r *MovieResolver) hydrate(ctx context.Context, hit *models.CatalogTitle) {
	detail, err := r.catalog.Detail(ctx, catalog.MediaMovie, hit.ID)
	if err != nil || detail == nil {
		return
	}
	if hit.Overview == "" {
		hit.Overview = detail.Overview
	}
	if hit.PosterPath == "" {
		hit.PosterPath = detail.PosterPath
	}
	if hit.ReleaseDate == "" {
		hit.ReleaseDate = detail.ReleaseDate
	}
}

func parseMovieSuggestions(raw string) []string {
	obj, ok := extractJSONObject(raw)
	if !ok {
		return nil
	}

	var payload struct {
		Error  string            `json:"error"`
		Movies []json.RawMessage `json:"movies"`
	}
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		return nil
	}
	if payload.Error != "" || payload.Movies == nil {
		return nil
	}

	titles := make([]string, 0, len(payload.Movies))
	for _, m := range payload.Movies {
		var entry struct {
			Title any `json:"title"`
		}
		if err := json.Unmarshal(m, &entry); err != nil {
			continue
		}
		if s, ok := entry.Title.(string); ok && s != "" {
			titles = append(titles, s)
		}
	}
	return titles
}
