package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
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

// MediaType selects which catalog namespace an operation targets.
type MediaType string

const (
	MediaMovie MediaType = "movie"
	MediaTV    MediaType = "tv"
)

// Client is the movie/TV catalog provider client. All read paths share one
// circuit breaker: the provider rate-limits per key, so an outage on one
// endpoint means the whole provider is in trouble.
type Client struct {
	httpClient *http.Client
	baseURL    string
	imageBase  string
	apiKey     string
	cb         *gobreaker.CircuitBreaker
	retryCfg   resilience.RetryConfig
	logger     *zap.Logger
}

func NewClient(cfg config.CatalogConfig, searchCfg config.SearchConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("catalog: api key is required")
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		imageBase:  strings.TrimRight(cfg.ImageBaseURL, "/"),
		apiKey:     cfg.APIKey,
		cb:         resilience.NewCircuitBreaker("catalog", searchCfg.CircuitBreaker, logger),
		retryCfg: resilience.RetryConfig{
			MaxAttempts: searchCfg.Retry.MaxAttempts,
			InitialWait: searchCfg.Retry.InitialWait,
			MaxWait:     searchCfg.Retry.MaxWait,
			Multiplier:  searchCfg.Retry.Multiplier,
		},
		logger: logger,
	}, nil
}

// titlePayload covers both movie and TV records; TV uses name/first_air_date
// where movies use title/release_date.
type titlePayload struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	VoteAverage  float64 `json:"vote_average"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
}

func (p titlePayload) toCatalogTitle() models.CatalogTitle {
	title := p.Title
	if title == "" {
		title = p.Name
	}
	release := p.ReleaseDate
	if release == "" {
		release = p.FirstAirDate
	}
	return models.CatalogTitle{
		ID:           p.ID,
		Title:        title,
		Overview:     p.Overview,
		PosterPath:   p.PosterPath,
		BackdropPath: p.BackdropPath,
		VoteAverage:  p.VoteAverage,
		ReleaseDate:  release,
	}
}

type pagePayload struct {
	Page       int            `json:"page"`
	Results    []titlePayload `json:"results"`
	TotalPages int            `json:"total_pages"`
}

func (p *pagePayload) toCatalogPage() *models.CatalogPage {
	results := make([]models.CatalogTitle, 0, len(p.Results))
	for _, r := range p.Results {
		results = append(results, r.toCatalogTitle())
	}
	return &models.CatalogPage{
		Page:       p.Page,
		Results:    results,
		TotalPages: p.TotalPages,
	}
}

// SearchMovies runs a free-text movie search.
func (c *Client) SearchMovies(ctx context.Context, query string, page int) (*models.CatalogPage, error) {
	return c.fetchPage(ctx, "search_movies", "/search/movie", url.Values{
		"query": {query},
		"page":  {pageParam(page)},
	})
}

// SearchTV runs a free-text TV show search.
func (c *Client) SearchTV(ctx context.Context, query string, page int) (*models.CatalogPage, error) {
	return c.fetchPage(ctx, "search_tv", "/search/tv", url.Values{
		"query": {query},
		"page":  {pageParam(page)},
	})
}

// Trending returns the day's trending titles for the media type.
func (c *Client) Trending(ctx context.Context, media MediaType, page int) (*models.CatalogPage, error) {
	path := fmt.Sprintf("/trending/%s/day", media)
	return c.fetchPage(ctx, "trending", path, url.Values{"page": {pageParam(page)}})
}

// Popular returns the provider's popularity-ranked list.
func (c *Client) Popular(ctx context.Context, media MediaType, page int) (*models.CatalogPage, error) {
	path := fmt.Sprintf("/%s/popular", media)
	return c.fetchPage(ctx, "popular", path, url.Values{"page": {pageParam(page)}})
}

// TopRated returns the provider's rating-ranked list.
func (c *Client) TopRated(ctx context.Context, media MediaType, page int) (*models.CatalogPage, error) {
	path := fmt.Sprintf("/%s/top_rated", media)
	return c.fetchPage(ctx, "top_rated", path, url.Values{"page": {pageParam(page)}})
}

// Similar returns titles the provider considers similar to the given one.
func (c *Client) Similar(ctx context.Context, media MediaType, id int64, page int) (*models.CatalogPage, error) {
	path := fmt.Sprintf("/%s/%d/similar", media, id)
	return c.fetchPage(ctx, "similar", path, url.Values{"page": {pageParam(page)}})
}

// Discover runs a filtered discover query.
func (c *Client) Discover(ctx context.Context, media MediaType, filters models.DiscoverFilters, page int) (*models.CatalogPage, error) {
	params := url.Values{"page": {pageParam(page)}}
	if filters.GenreID > 0 {
		params.Set("with_genres", strconv.FormatInt(filters.GenreID, 10))
	}
	if filters.Year > 0 {
		if media == MediaTV {
			params.Set("first_air_date_year", strconv.Itoa(filters.Year))
		} else {
			params.Set("primary_release_year", strconv.Itoa(filters.Year))
		}
	}
	if filters.MinRating > 0 {
		params.Set("vote_average.gte", strconv.FormatFloat(filters.MinRating, 'f', 1, 64))
	}
	if filters.SortBy != "" {
		params.Set("sort_by", filters.SortBy)
	}
	path := fmt.Sprintf("/discover/%s", media)
	return c.fetchPage(ctx, "discover", path, params)
}

// Detail fetches the full record for one title.
func (c *Client) Detail(ctx context.Context, media MediaType, id int64) (*models.TitleDetail, error) {
	path := fmt.Sprintf("/%s/%d", media, id)

	var payload struct {
		titlePayload
		Genres  []models.Genre `json:"genres"`
		Runtime int            `json:"runtime"`
	}
	if err := c.fetchJSON(ctx, "detail", path, nil, &payload); err != nil {
		return nil, err
	}

	t := payload.toCatalogTitle()
	return &models.TitleDetail{
		ID:           t.ID,
		Title:        t.Title,
		Overview:     t.Overview,
		VoteAverage:  t.VoteAverage,
		Genres:       payload.Genres,
		ReleaseDate:  t.ReleaseDate,
		Runtime:      payload.Runtime,
		PosterPath:   t.PosterPath,
		BackdropPath: t.BackdropPath,
	}, nil
}

// Credits returns the cast list for a title.
func (c *Client) Credits(ctx context.Context, media MediaType, id int64) ([]models.CastMember, error) {
	path := fmt.Sprintf("/%s/%d/credits", media, id)

	var payload struct {
		Cast []models.CastMember `json:"cast"`
	}
	if err := c.fetchJSON(ctx, "credits", path, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Cast, nil
}

// Videos returns the trailer/teaser references for a title.
func (c *Client) Videos(ctx context.Context, media MediaType, id int64) ([]models.Video, error) {
	path := fmt.Sprintf("/%s/%d/videos", media, id)

	var payload struct {
		Results []models.Video `json:"results"`
	}
	if err := c.fetchJSON(ctx, "videos", path, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Results, nil
}

// Genres returns the provider's genre list for the media type.
func (c *Client) Genres(ctx context.Context, media MediaType) ([]models.Genre, error) {
	path := fmt.Sprintf("/genre/%s/list", media)

	var payload struct {
		Genres []models.Genre `json:"genres"`
	}
	if err := c.fetchJSON(ctx, "genres", path, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Genres, nil
}

// SeasonEpisodes returns the episodes of one TV season.
func (c *Client) SeasonEpisodes(ctx context.Context, tvID int64, season int) ([]models.Episode, error) {
	path := fmt.Sprintf("/tv/%d/season/%d", tvID, season)

	var payload struct {
		Episodes []models.Episode `json:"episodes"`
	}
	if err := c.fetchJSON(ctx, "season_episodes", path, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Episodes, nil
}

// ImageURL builds a full image URL from a catalog path like "/abc.jpg".
// Size is a provider size slug such as "w342" or "original".
func (c *Client) ImageURL(path, size string) string {
	if path == "" {
		return ""
	}
	if size == "" {
		size = "original"
	}
	return fmt.Sprintf("%s/%s%s", c.imageBase, size, path)
}

func (c *Client) fetchPage(ctx context.Context, operation, path string, params url.Values) (*models.CatalogPage, error) {
	var payload pagePayload
	if err := c.fetchJSON(ctx, operation, path, params, &payload); err != nil {
		return nil, err
	}
	return payload.toCatalogPage(), nil
}

func (c *Client) fetchJSON(ctx context.Context, operation, path string, params url.Values, out any) error {
	ctx, span := observability.StartSpan(ctx, "catalog."+operation,
		attribute.String("catalog.path", path),
	)
	defer span.End()

	start := time.Now()

	_, err := c.cb.Execute(func() (any, error) {
		retryErr := resilience.Retry(ctx, c.retryCfg, func() error {
			return c.executeGet(ctx, path, params, out)
		})
		return nil, retryErr
	})

	duration := time.Since(start)
	status := "success"
	if err != nil {
		status = "error"
	}
	observability.UpstreamRequestDuration.WithLabelValues("catalog", operation, status).Observe(duration.Seconds())

	if err != nil {
		return fmt.Errorf("catalog %s: %w", operation, err)
	}
	return nil
}

func (c *Client) executeGet(ctx context.Context, path string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("building catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing catalog request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("catalog error status=%d body=%s", res.StatusCode, string(bodyBytes))
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding catalog response: %w", err)
	}
	return nil
}

func pageParam(page int) string {
	if page < 1 {
		page = 1
	}
	return strconv.Itoa(page)
}
