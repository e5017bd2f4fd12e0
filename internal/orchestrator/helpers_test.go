package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/ardiwinata/nobar/internal/catalog"
	"github.com/ardiwinata/nobar/internal/models"
)

// fakeCompleter routes on prompt content so one fake can serve both the
// movie and the sports prompt in merger tests.
type fakeCompleter struct {
	movieResponse  string
	sportsResponse string
	err            error
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if strings.Contains(prompt, "movie identification") {
		return f.movieResponse, nil
	}
	return f.sportsResponse, nil
}

type fakeCatalog struct {
	pages map[string]*models.CatalogPage
	err   error
}

func (f *fakeCatalog) SearchMovies(ctx context.Context, query string, page int) (*models.CatalogPage, error) {
	if f.err != nil {
		return nil, f.err
	}
	if p, ok := f.pages[query]; ok {
		return p, nil
	}
	return &models.CatalogPage{Page: 1, TotalPages: 1}, nil
}

func (f *fakeCatalog) Detail(ctx context.Context, media catalog.MediaType, id int64) (*models.TitleDetail, error) {
	return nil, context.Canceled
}

type fakeSchedule struct {
	live    []models.SportsMatch
	today   []models.SportsMatch
	all     []models.SportsMatch
	popular []models.SportsMatch
	bySport map[string][]models.SportsMatch

	err         error
	errPerSport map[string]error
}

func (f *fakeSchedule) LiveMatches(ctx context.Context) ([]models.SportsMatch, error) {
	return f.live, f.err
}

func (f *fakeSchedule) TodayMatches(ctx context.Context) ([]models.SportsMatch, error) {
	return f.today, f.err
}

func (f *fakeSchedule) AllMatches(ctx context.Context) ([]models.SportsMatch, error) {
	return f.all, f.err
}

func (f *fakeSchedule) PopularMatches(ctx context.Context) ([]models.SportsMatch, error) {
	return f.popular, f.err
}

func (f *fakeSchedule) MatchesBySport(ctx context.Context, sportID string, popular bool) ([]models.SportsMatch, error) {
	if err, ok := f.errPerSport[sportID]; ok {
		return nil, err
	}
	return f.bySport[sportID], f.err
}

func match(id, title, category string, date time.Time) models.SportsMatch {
	return models.SportsMatch{
		ID:       id,
		Title:    title,
		Category: category,
		Date:     date.UnixMilli(),
		Sources:  []models.SourceRef{{Source: "alpha", ID: id}},
	}
}

func matchIDs(matches []models.SportsMatch) []string {
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
	}
	return ids
}

func sameIDs(got []models.SportsMatch, want ...string) bool {
	ids := matchIDs(got)
	if len(ids) != len(want) {
		return false
	}
	for i := range ids {
		if ids[i] != want[i] {
			return false
		}
	}
	return true
}
