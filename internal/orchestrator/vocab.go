package orchestrator

import "regexp"

// SportsVocab bundles the static lookup tables the sports resolver matches
// against. The tables are data, not code, so tuning the vocabulary never
// touches the pipeline logic.
type SportsVocab struct {
	// Synonyms maps free-text sport names (English and Indonesian) to the
	// schedule provider's canonical sport ids. Unknown names pass through
	// unchanged.
	Synonyms map[string]string

	// StopKeywords are dropped from the keyword filter list. They describe
	// the query, not the fixture, and never appear in match titles.
	StopKeywords map[string]bool

	// TomorrowPattern detects an explicit "tomorrow" in the raw query text.
	// It overrides whatever scope the generative interpretation returned.
	TomorrowPattern *regexp.Regexp

	// SubDisciplines narrow motor-sports queries to one racing series.
	// Checked in order; the first pattern that matches wins.
	SubDisciplines []SubDiscipline
}

type SubDiscipline struct {
	ID      string
	Pattern *regexp.Regexp
}

func DefaultSportsVocab() *SportsVocab {
	return &SportsVocab{
		Synonyms: map[string]string{
			"sepak bola":   "football",
			"sepakbola":    "football",
			"bola":         "football",
			"soccer":       "football",
			"football":     "football",
			"futsal":       "football",
			"basket":       "basketball",
			"bola basket":  "basketball",
			"basketball":   "basketball",
			"nba":          "basketball",
			"f1":           "motor-sports",
			"formula 1":    "motor-sports",
			"formula one":  "motor-sports",
			"motogp":       "motor-sports",
			"moto gp":      "motor-sports",
			"balap":        "motor-sports",
			"racing":       "motor-sports",
			"tenis":        "tennis",
			"tennis":       "tennis",
			"bulu tangkis": "badminton",
			"bulutangkis":  "badminton",
			"badminton":    "badminton",
			"tinju":        "fight",
			"boxing":       "fight",
			"ufc":          "fight",
			"mma":          "fight",
			"kriket":       "cricket",
			"cricket":      "cricket",
			"hoki":         "hockey",
			"hockey":       "hockey",
			"bisbol":       "baseball",
			"baseball":     "baseball",
			"rugbi":        "rugby",
			"rugby":        "rugby",
			"bola voli":    "volleyball",
			"voli":         "volleyball",
			"volleyball":   "volleyball",
			"golf":         "golf",
			"esports":      "esports",
			"e-sports":     "esports",
		},
		StopKeywords: map[string]bool{
			"live":         true,
			"today":        true,
			"tomorrow":     true,
			"tonight":      true,
			"now":          true,
			"hari":         true,
			"ini":          true,
			"hari ini":     true,
			"besok":        true,
			"malam":        true,
			"sekarang":     true,
			"jadwal":       true,
			"schedule":     true,
			"match":        true,
			"matches":      true,
			"pertandingan": true,
			"streaming":    true,
			"stream":       true,
			"nonton":       true,
			"watch":        true,
			"gratis":       true,
			"free":         true,
			"seru":         true,
			"best":         true,
			"terbaik":      true,
			"big":          true,
		},
		TomorrowPattern: regexp.MustCompile(`(?i)\b(besok|tomorrow|esok)\b`),
		SubDisciplines: []SubDiscipline{
			{ID: "f1", Pattern: regexp.MustCompile(`(?i)\b(f1|formula\s*1|formula\s*one|grand\s*prix)\b`)},
			{ID: "motogp", Pattern: regexp.MustCompile(`(?i)\bmoto\s*gp\b`)},
			{ID: "wec", Pattern: regexp.MustCompile(`(?i)\b(wec|endurance|le\s*mans)\b`)},
			{ID: "wrc", Pattern: regexp.MustCompile(`(?i)\b(wrc|rally)\b`)},
		},
	}
}

// sportsKeywords trips the sports half of the intent classifier. Sport names
// in both languages plus league/fixture/temporal words.
var sportsKeywords = []string{
	"sepak bola", "sepakbola", "bola", "soccer", "football", "futsal",
	"basket", "basketball", "nba",
	"f1", "formula 1", "formula one", "motogp", "moto gp", "balap",
	"tenis", "tennis", "badminton", "bulu tangkis", "bulutangkis",
	"tinju", "boxing", "ufc", "mma", "kriket", "cricket",
	"hoki", "hockey", "bisbol", "baseball", "rugby", "voli", "volleyball",
	"golf", "esports",
	"liga", "league", "champions", "piala", "cup", "turnamen", "tournament",
	"pertandingan", "match", "fixture", "vs", "versus",
	"tim", "team", "klub", "club",
	"live", "skor", "score", "jadwal",
}

// movieKeywords trips the movies half. Sparse on purpose: movies is already
// the fallback domain whenever no sports keyword fires.
var movieKeywords = []string{
	"film", "movie", "movies", "bioskop", "cinema", "sinema",
	"series", "serial", "episode", "season", "anime",
	"horror", "horor", "komedi", "comedy", "drama", "romantis", "romance",
	"action", "aksi", "thriller", "dokumenter", "documentary", "sci-fi",
	"aktor", "actor", "aktris", "actress", "sutradara", "director",
	"trailer", "netflix",
}
