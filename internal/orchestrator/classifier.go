package orchestrator

import (
	"strings"
	"unicode"

	"github.com/ardiwinata/nobar/internal/models"
)

// Classifier decides which resolvers run for a query.
type Classifier interface {
	Classify(query string) models.Intent
}

// KeywordClassifier is the default Classifier: plain keyword presence over
// fixed two-language vocabularies. Movies is the fallback domain, so the
// result is never both false.
type KeywordClassifier struct {
	sportsVocab []string
	movieVocab  []string
}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		sportsVocab: sportsKeywords,
		movieVocab:  movieKeywords,
	}
}

func (c *KeywordClassifier) Classify(query string) models.Intent {
	text := strings.ToLower(query)

	var intent models.Intent
	for _, kw := range c.sportsVocab {
		if containsTerm(text, kw) {
			intent.WantsSports = true
			break
		}
	}
	for _, kw := range c.movieVocab {
		if containsTerm(text, kw) {
			intent.WantsMovies = true
			break
		}
	}

	if !intent.WantsSports {
		intent.WantsMovies = true
	}
	return intent
}

// containsTerm matches single-word terms on token boundaries so "bola" does
// not fire inside "diabolical"; multi-word terms match as substrings.
func containsTerm(text, term string) bool {
	if strings.ContainsRune(term, ' ') {
		return strings.Contains(text, term)
	}
	for _, tok := range tokenize(text) {
		if tok == term {
			return true
		}
	}
	return false
}

func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '-'
	})
}
