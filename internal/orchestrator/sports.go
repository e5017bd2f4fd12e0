package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ardiwinata/nobar/internal/models"
	"github.com/ardiwinata/nobar/internal/observability"
)

// ScheduleFeed is the slice of the schedule client the sports resolver uses.
type ScheduleFeed interface {
	LiveMatches(ctx context.Context) ([]models.SportsMatch, error)
	TodayMatches(ctx context.Context) ([]models.SportsMatch, error)
	AllMatches(ctx context.Context) ([]models.SportsMatch, error)
	PopularMatches(ctx context.Context) ([]models.SportsMatch, error)
	MatchesBySport(ctx context.Context, sportID string, popular bool) ([]models.SportsMatch, error)
}

const sportsPromptTemplate = `You are a sports query interpreter.
Respond with STRICT JSON only, no prose and no markdown, in exactly this form:
{"scope":"live|today|tomorrow|popular|all","sports":["..."],"teams":["..."],"keywords":["..."]}
Use lowercase English sport names. Teams are club or country names mentioned in the query. Keywords are any other filter terms. Use empty arrays when nothing applies and "all" when no time scope is stated.

Query: %s`

// SportsResolver turns a free-text description into scheduled/live fixtures.
// Like the movie resolver it degrades instead of erroring: a dead generative
// service means scope=all with no filters, and any single feed failure is an
// empty list for that feed only.
type SportsResolver struct {
	completer  Completer
	schedule   ScheduleFeed
	vocab      *SportsVocab
	maxResults int
	logger     *zap.Logger

	// now is replaced in tests to pin the tomorrow window.
	now func() time.Time
}

func NewSportsResolver(completer Completer, schedule ScheduleFeed, vocab *SportsVocab, maxResults int, logger *zap.Logger) *SportsResolver {
	if vocab == nil {
		vocab = DefaultSportsVocab()
	}
	if maxResults <= 0 {
		maxResults = 12
	}
	return &SportsResolver{
		completer:  completer,
		schedule:   schedule,
		vocab:      vocab,
		maxResults: maxResults,
		logger:     logger,
		now:        time.Now,
	}
}

func (r *SportsResolver) Resolve(ctx context.Context, query string) []models.SportsMatch {
	ctx, span := observability.StartSpan(ctx, "resolver.sports")
	defer span.End()

	intent := r.interpret(ctx, query)

	// The generative interpretation over-indexes on today vs tomorrow; an
	// explicit "tomorrow" in the raw text always wins.
	if r.vocab.TomorrowPattern.MatchString(query) {
		intent.Scope = models.ScopeTomorrow
	}

	sports := r.normalizeSports(intent.Sports)
	keywords := r.stripStopKeywords(intent.Keywords)

	base := dedupByID(r.fetchBase(ctx, intent.Scope, sports))
	base = r.filterSubDiscipline(base, sports, keywords, query)

	filtered := filterByTeamsAndKeywords(base, intent.Teams, keywords)
	if len(filtered) == 0 && len(base) > 0 {
		// Precision loses to non-emptiness: a filter that matched nothing
		// returns the unfiltered candidates instead of a blank panel.
		observability.ResolverFallbackTotal.WithLabelValues("sports_unfiltered").Inc()
		filtered = base
	}

	if len(filtered) > r.maxResults {
		filtered = filtered[:r.maxResults]
	}
	return filtered
}

func (r *SportsResolver) interpret(ctx context.Context, query string) models.SportsIntent {
	raw, err := r.completer.Complete(ctx, fmt.Sprintf(sportsPromptTemplate, query))
	if err != nil {
		r.logger.Warn("sports interpretation failed", zap.Error(err))
		observability.ResolverFallbackTotal.WithLabelValues("sports_genai_failed").Inc()
		return models.SportsIntent{}
	}

	obj, ok := extractJSONObject(raw)
	if !ok {
		return models.SportsIntent{}
	}

	var payload struct {
		Scope    string   `json:"scope"`
		Sports   []string `json:"sports"`
		Teams    []string `json:"teams"`
		Keywords []string `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		return models.SportsIntent{}
	}

	return models.SportsIntent{
		Scope:    models.ParseScope(strings.ToLower(strings.TrimSpace(payload.Scope))),
		Sports:   payload.Sports,
		Teams:    payload.Teams,
		Keywords: payload.Keywords,
	}
}

// normalizeSports maps free-text sport names to canonical ids; unknown names
// pass through as already-canonical. Output is deduplicated, order preserved.
func (r *SportsResolver) normalizeSports(sports []string) []string {
	seen := make(map[string]bool, len(sports))
	out := make([]string, 0, len(sports))
	for _, s := range sports {
		name := strings.ToLower(strings.TrimSpace(s))
		if name == "" {
			continue
		}
		if canonical, ok := r.vocab.Synonyms[name]; ok {
			name = canonical
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

func (r *SportsResolver) stripStopKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		k := strings.ToLower(strings.TrimSpace(kw))
		if k == "" || r.vocab.StopKeywords[k] {
			continue
		}
		out = append(out, k)
	}
	return out
}

func (r *SportsResolver) fetchBase(ctx context.Context, scope models.Scope, sports []string) []models.SportsMatch {
	switch scope {
	case models.ScopeLive:
		return filterBySports(r.fetchFeed(ctx, "live", r.schedule.LiveMatches), sports)

	case models.ScopeToday:
		matches := filterBySports(r.fetchFeed(ctx, "today", r.schedule.TodayMatches), sports)
		// The provider's "today" drifts across timezones; re-validate
		// against the local calendar date.
		return filterByLocalDate(matches, r.now())

	case models.ScopeTomorrow:
		return r.fetchTomorrow(ctx, sports)

	case models.ScopePopular:
		if len(sports) > 0 {
			return r.fetchPerSport(ctx, sports, true)
		}
		return r.fetchFeed(ctx, "popular", r.schedule.PopularMatches)

	default:
		if len(sports) > 0 {
			return r.fetchPerSport(ctx, sports, false)
		}
		return r.fetchFeed(ctx, "all", r.schedule.AllMatches)
	}
}

// fetchTomorrow resolves the local midnight-to-midnight window for tomorrow,
// widening to a week ahead and finally to today's matches so the panel is
// never blank just because tomorrow's schedule is thin.
func (r *SportsResolver) fetchTomorrow(ctx context.Context, sports []string) []models.SportsMatch {
	now := r.now()
	year, month, day := now.Date()
	start := time.Date(year, month, day, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	end := start.AddDate(0, 0, 1)

	var candidates []models.SportsMatch
	if len(sports) > 0 {
		candidates = r.fetchPerSport(ctx, sports, false)
	} else {
		candidates = r.fetchFeed(ctx, "all", r.schedule.AllMatches)
	}
	candidates = filterBySports(candidates, sports)

	if window := filterByWindow(candidates, start, end); len(window) > 0 {
		return window
	}

	if week := filterByWindow(candidates, start, start.AddDate(0, 0, 7)); len(week) > 0 {
		observability.ResolverFallbackTotal.WithLabelValues("tomorrow_week").Inc()
		return week
	}

	observability.ResolverFallbackTotal.WithLabelValues("tomorrow_today").Inc()
	today := r.fetchFeed(ctx, "today", r.schedule.TodayMatches)
	return filterBySports(today, sports)
}

// fetchPerSport fans one feed request out per sport id and flattens the
// results in sport order. A failed fetch contributes an empty list without
// aborting the siblings.
func (r *SportsResolver) fetchPerSport(ctx context.Context, sports []string, popular bool) []models.SportsMatch {
	slots := make([][]models.SportsMatch, len(sports))
	var wg sync.WaitGroup
	for i, sport := range sports {
		wg.Add(1)
		go func(i int, sport string) {
			defer wg.Done()
			matches, err := r.schedule.MatchesBySport(ctx, sport, popular)
			if err != nil {
				r.logger.Debug("per-sport fetch failed",
					zap.String("sport", sport),
					zap.Error(err),
				)
				return
			}
			slots[i] = matches
		}(i, sport)
	}
	wg.Wait()

	var out []models.SportsMatch
	for _, slot := range slots {
		out = append(out, slot...)
	}
	return out
}

func (r *SportsResolver) fetchFeed(ctx context.Context, name string, fetch func(context.Context) ([]models.SportsMatch, error)) []models.SportsMatch {
	matches, err := fetch(ctx)
	if err != nil {
		r.logger.Debug("schedule feed failed", zap.String("feed", name), zap.Error(err))
		return nil
	}
	return matches
}

// filterSubDiscipline narrows motor-sports candidates to one racing series
// when the query pins it down (F1, MotoGP, WEC, WRC).
func (r *SportsResolver) filterSubDiscipline(matches []models.SportsMatch, sports, keywords []string, rawQuery string) []models.SportsMatch {
	if !containsString(sports, "motor-sports") {
		return matches
	}

	probe := strings.Join(sports, " ") + " " + strings.Join(keywords, " ") + " " + rawQuery
	var discipline *SubDiscipline
	for i := range r.vocab.SubDisciplines {
		if r.vocab.SubDisciplines[i].Pattern.MatchString(probe) {
			discipline = &r.vocab.SubDisciplines[i]
			break
		}
	}
	if discipline == nil {
		return matches
	}

	out := make([]models.SportsMatch, 0, len(matches))
	for _, m := range matches {
		if discipline.Pattern.MatchString(m.Title) || discipline.Pattern.MatchString(m.Category) {
			out = append(out, m)
		}
	}
	return out
}

func filterBySports(matches []models.SportsMatch, sports []string) []models.SportsMatch {
	if len(sports) == 0 {
		return matches
	}
	want := make(map[string]bool, len(sports))
	for _, s := range sports {
		want[s] = true
	}
	out := make([]models.SportsMatch, 0, len(matches))
	for _, m := range matches {
		if want[strings.ToLower(m.Category)] {
			out = append(out, m)
		}
	}
	return out
}

func filterByLocalDate(matches []models.SportsMatch, day time.Time) []models.SportsMatch {
	wantYear, wantMonth, wantDay := day.Date()
	out := make([]models.SportsMatch, 0, len(matches))
	for _, m := range matches {
		y, mo, d := time.UnixMilli(m.Date).In(day.Location()).Date()
		if y == wantYear && mo == wantMonth && d == wantDay {
			out = append(out, m)
		}
	}
	return out
}

func filterByWindow(matches []models.SportsMatch, start, end time.Time) []models.SportsMatch {
	out := make([]models.SportsMatch, 0, len(matches))
	for _, m := range matches {
		ts := time.UnixMilli(m.Date)
		if !ts.Before(start) && ts.Before(end) {
			out = append(out, m)
		}
	}
	return out
}

func filterByTeamsAndKeywords(matches []models.SportsMatch, teams, keywords []string) []models.SportsMatch {
	if len(teams) == 0 && len(keywords) == 0 {
		return matches
	}

	foldedTeams := foldAll(teams)
	foldedKeywords := foldAll(keywords)

	out := make([]models.SportsMatch, 0, len(matches))
	for _, m := range matches {
		title := foldText(m.Title)
		category := foldText(m.Category)
		var home, away string
		if m.Teams != nil {
			if m.Teams.Home != nil {
				home = foldText(m.Teams.Home.Name)
			}
			if m.Teams.Away != nil {
				away = foldText(m.Teams.Away.Name)
			}
		}

		teamOK := len(foldedTeams) == 0
		for _, t := range foldedTeams {
			if strings.Contains(home, t) || strings.Contains(away, t) || strings.Contains(title, t) {
				teamOK = true
				break
			}
		}

		keywordOK := len(foldedKeywords) == 0
		for _, k := range foldedKeywords {
			if strings.Contains(title, k) || strings.Contains(category, k) {
				keywordOK = true
				break
			}
		}

		if teamOK && keywordOK {
			out = append(out, m)
		}
	}
	return out
}

func dedupByID(matches []models.SportsMatch) []models.SportsMatch {
	seen := make(map[string]bool, len(matches))
	out := make([]models.SportsMatch, 0, len(matches))
	for _, m := range matches {
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		out = append(out, m)
	}
	return out
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func foldAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if f := foldText(v); f != "" {
			out = append(out, f)
		}
	}
	return out
}

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldText lower-cases and strips diacritics so "Atlético" matches "atletico".
func foldText(s string) string {
	stripped, _, err := transform.String(diacriticStripper, s)
	if err != nil {
		stripped = s
	}
	return strings.ToLower(strings.TrimSpace(stripped))
}
