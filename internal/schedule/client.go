package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ardiwinata/nobar/internal/config"
	"github.com/ardiwinata/nobar/internal/models"
	"github.com/ardiwinata/nobar/internal/observability"
	"github.com/ardiwinata/nobar/internal/resilience"
)

// Client is the live sports schedule provider client. Endpoints are cheap
// list reads; the sports resolver may fan several of them out per query, so
// failures here must stay isolated behind the provider's breaker.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	retryCfg   resilience.RetryConfig
	logger     *zap.Logger
}

func NewClient(cfg config.ScheduleConfig, searchCfg config.SearchConfig, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("schedule: base url is required")
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		cb:         resilience.NewCircuitBreaker("schedule", searchCfg.CircuitBreaker, logger),
		retryCfg: resilience.RetryConfig{
			MaxAttempts: searchCfg.Retry.MaxAttempts,
			InitialWait: searchCfg.Retry.InitialWait,
			MaxWait:     searchCfg.Retry.MaxWait,
			Multiplier:  searchCfg.Retry.Multiplier,
		},
		logger: logger,
	}, nil
}

// Sports lists the provider's sport categories.
func (c *Client) Sports(ctx context.Context) ([]models.Sport, error) {
	var sports []models.Sport
	if err := c.fetchJSON(ctx, "sports", "/api/sports", &sports); err != nil {
		return nil, err
	}
	return sports, nil
}

// AllMatches returns the full schedule across every sport.
func (c *Client) AllMatches(ctx context.Context) ([]models.SportsMatch, error) {
	return c.fetchMatches(ctx, "all_matches", "/api/matches/all")
}

// PopularMatches returns the provider's popularity-flagged schedule.
func (c *Client) PopularMatches(ctx context.Context) ([]models.SportsMatch, error) {
	return c.fetchMatches(ctx, "popular_matches", "/api/matches/all/popular")
}

// LiveMatches returns matches currently in play.
func (c *Client) LiveMatches(ctx context.Context) ([]models.SportsMatch, error) {
	return c.fetchMatches(ctx, "live_matches", "/api/matches/live")
}

// TodayMatches returns matches scheduled for the current day.
func (c *Client) TodayMatches(ctx context.Context) ([]models.SportsMatch, error) {
	return c.fetchMatches(ctx, "today_matches", "/api/matches/all-today")
}

// MatchesBySport returns the schedule for one sport category, optionally
// narrowed to the popular subset.
func (c *Client) MatchesBySport(ctx context.Context, sportID string, popular bool) ([]models.SportsMatch, error) {
	path := fmt.Sprintf("/api/matches/%s", url.PathEscape(sportID))
	if popular {
		path += "/popular"
	}
	return c.fetchMatches(ctx, "matches_by_sport", path)
}

// Streams lists the watchable streams for one (source, match id) pair.
func (c *Client) Streams(ctx context.Context, source, id string) ([]models.Stream, error) {
	path := fmt.Sprintf("/api/stream/%s/%s", url.PathEscape(source), url.PathEscape(id))
	var streams []models.Stream
	if err := c.fetchJSON(ctx, "streams", path, &streams); err != nil {
		return nil, err
	}
	return streams, nil
}

// BadgeURL builds the team badge image URL for a badge id.
func (c *Client) BadgeURL(badgeID string) string {
	if badgeID == "" {
		return ""
	}
	return fmt.Sprintf("%s/api/images/badge/%s.webp", c.baseURL, badgeID)
}

// PosterURL resolves a match poster path to a full URL. The provider returns
// posters as absolute URLs or site-relative paths.
func (c *Client) PosterURL(poster string) string {
	if poster == "" {
		return ""
	}
	if strings.HasPrefix(poster, "http://") || strings.HasPrefix(poster, "https://") {
		return poster
	}
	return c.baseURL + "/" + strings.TrimPrefix(poster, "/")
}

func (c *Client) fetchMatches(ctx context.Context, operation, path string) ([]models.SportsMatch, error) {
	var matches []models.SportsMatch
	if err := c.fetchJSON(ctx, operation, path, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

func (c *Client) fetchJSON(ctx context.Context, operation, path string, out any) error {
	ctx, span := observability.StartSpan(ctx, "schedule."+operation,
		attribute.String("schedule.path", path),
	)
	defer span.End()

	start := time.Now()

	_, err := c.cb.Execute(func() (any, error) {
		retryErr := resilience.Retry(ctx, c.retryCfg, func() error {
			return c.executeGet(ctx, path, out)
		})
		return nil, retryErr
	})

	duration := time.Since(start)
	status := "success"
	if err != nil {
		status = "error"
	}
	observability.UpstreamRequestDuration.WithLabelValues("schedule", operation, status).Observe(duration.Seconds())

	if err != nil {
		return fmt.Errorf("schedule %s: %w", operation, err)
	}
	return nil
}

func (c *Client) executeGet(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building schedule request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing schedule request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("schedule error status=%d body=%s", res.StatusCode, string(bodyBytes))
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding schedule response: %w", err)
	}
	return nil
}
