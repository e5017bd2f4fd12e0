package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ardiwinata/nobar/internal/cache"
	"github.com/ardiwinata/nobar/internal/config"
	"github.com/ardiwinata/nobar/internal/models"
	"github.com/ardiwinata/nobar/internal/observability"
)

// ErrEmptyQuery rejects blank searches before any network call is made.
var ErrEmptyQuery = errors.New("query must not be empty")

// ActivityPublisher receives best-effort activity events for the analytics
// pipeline. May be nil in degraded deployments.
type ActivityPublisher interface {
	Publish(ctx context.Context, event *models.ActivityEvent) error
}

// Orchestrator runs the movie and sports resolvers for one query and merges
// their independent results into a single response.
type Orchestrator struct {
	classifier Classifier
	movies     *MovieResolver
	sports     *SportsResolver
	cache      *cache.RedisCache
	publisher  ActivityPublisher
	slowQuery  *observability.SlowQueryDetector
	cfg        config.SearchConfig
	logger     *zap.Logger

	// generation increments per query so callers can discard responses
	// superseded by a newer search.
	generation atomic.Uint64
}

func New(
	classifier Classifier,
	movies *MovieResolver,
	sports *SportsResolver,
	redisCache *cache.RedisCache,
	publisher ActivityPublisher,
	slowQuery *observability.SlowQueryDetector,
	cfg config.SearchConfig,
	logger *zap.Logger,
) *Orchestrator {
	if classifier == nil {
		classifier = NewKeywordClassifier()
	}
	return &Orchestrator{
		classifier: classifier,
		movies:     movies,
		sports:     sports,
		cache:      redisCache,
		publisher:  publisher,
		slowQuery:  slowQuery,
		cfg:        cfg,
		logger:     logger,
	}
}

func (o *Orchestrator) Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "orchestrator.search",
		attribute.String("query", req.Query),
	)
	defer span.End()

	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return nil, ErrEmptyQuery
	}

	gen := o.generation.Add(1)

	if req.MaxMovies <= 0 || req.MaxMovies > o.cfg.MaxMovieResults {
		req.MaxMovies = o.cfg.MaxMovieResults
	}
	if req.MaxMatches <= 0 || req.MaxMatches > o.cfg.MaxMatchResults {
		req.MaxMatches = o.cfg.MaxMatchResults
	}

	intent := o.classifier.Classify(req.Query)
	o.logger.Debug("query classified",
		zap.String("query", req.Query),
		zap.String("intent", intent.String()),
	)

	if o.cache != nil && !req.ForceFresh {
		cached, err := o.cache.GetSearchResults(ctx, req)
		if err != nil {
			o.logger.Warn("cache lookup error", zap.Error(err))
		}
		if cached != nil {
			cached.Generation = gen
			cached.TookMs = time.Since(start).Milliseconds()
			cached.Metadata.CacheHit = true
			cached.Metadata.RequestID = req.RequestID
			observability.SearchRequestsTotal.WithLabelValues(intent.String(), "cache_hit").Inc()
			return cached, nil
		}
	}

	resp := o.resolve(ctx, req, intent)
	resp.Generation = gen
	resp.TookMs = time.Since(start).Milliseconds()
	resp.Metadata.RequestID = req.RequestID

	// Both resolvers degrade to empty on upstream trouble; a completely dry
	// response is the one case worth trading freshness for.
	if len(resp.Movies) == 0 && len(resp.Matches) == 0 && o.cache != nil {
		if stale, err := o.cache.GetStaleResults(ctx, req); err == nil && stale != nil {
			stale.Generation = gen
			stale.TookMs = time.Since(start).Milliseconds()
			stale.Metadata.RequestID = req.RequestID
			stale.Metadata.Stale = true
			stale.Metadata.Source = "stale_cache"
			observability.ResolverFallbackTotal.WithLabelValues("stale_cache").Inc()
			observability.SearchRequestsTotal.WithLabelValues(intent.String(), "stale").Inc()
			return stale, nil
		}
	}

	if o.cache != nil {
		if err := o.cache.SetSearchResults(ctx, req, resp); err != nil {
			o.logger.Warn("cache set error", zap.Error(err))
		}
	}

	observability.SearchRequestsTotal.WithLabelValues(intent.String(), "success").Inc()
	observability.SearchRequestDuration.WithLabelValues(intent.String(), "success").Observe(time.Since(start).Seconds())

	if o.slowQuery != nil {
		o.slowQuery.Intercept(ctx, req.Query, intent.String(),
			time.Since(start), len(resp.Movies), len(resp.Matches))
	}

	o.emitActivity(ctx, req, resp, intent, time.Since(start))

	return resp, nil
}

// resolve fans the two resolvers out concurrently. They are independent: a
// failure or empty result in one never affects the other.
func (o *Orchestrator) resolve(ctx context.Context, req *models.SearchRequest, intent models.Intent) *models.SearchResponse {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.QueryTimeout)
	defer cancel()

	var (
		wg      sync.WaitGroup
		movies  []models.CatalogTitle
		matches []models.SportsMatch
	)

	if intent.WantsMovies && o.movies != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			movies = o.movies.Resolve(ctx, req.Query)
		}()
	}
	if intent.WantsSports && o.sports != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			matches = o.sports.Resolve(ctx, req.Query)
		}()
	}
	wg.Wait()

	if len(movies) > req.MaxMovies {
		movies = movies[:req.MaxMovies]
	}
	if len(matches) > req.MaxMatches {
		matches = matches[:req.MaxMatches]
	}

	return &models.SearchResponse{
		Message: composeMessage(req.Query, len(movies), len(matches)),
		Movies:  movies,
		Matches: matches,
		Intent:  intent,
		Metadata: models.ResponseMetadata{
			Source: "live",
		},
	}
}

// composeMessage picks one of the four summary variants keyed on which lists
// came back non-empty.
func composeMessage(query string, movieCount, matchCount int) string {
	switch {
	case movieCount > 0 && matchCount > 0:
		return fmt.Sprintf("Found %d movies and %d matches for you.", movieCount, matchCount)
	case movieCount > 0:
		return fmt.Sprintf("Found %d movies for you.", movieCount)
	case matchCount > 0:
		return fmt.Sprintf("Found %d live and upcoming matches for you.", matchCount)
	default:
		return fmt.Sprintf("No results for %q. Try different wording.", query)
	}
}

// emitActivity ships a search event to the analytics pipeline. Best effort:
// a dead broker never delays or fails the user's request.
func (o *Orchestrator) emitActivity(ctx context.Context, req *models.SearchRequest, resp *models.SearchResponse, intent models.Intent, took time.Duration) {
	if o.publisher == nil {
		return
	}

	event := &models.ActivityEvent{
		Type:       "search",
		RequestID:  req.RequestID,
		Query:      req.Query,
		Intent:     intent.String(),
		MovieCount: len(resp.Movies),
		MatchCount: len(resp.Matches),
		DurationMs: float64(took.Milliseconds()),
		CacheHit:   resp.Metadata.CacheHit,
		Timestamp:  time.Now().UTC(),
	}

	go func() {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := o.publisher.Publish(pubCtx, event); err != nil {
			o.logger.Warn("activity publish failed", zap.Error(err))
		}
	}()
}
