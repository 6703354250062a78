package intent

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/warungkas/warungkas/internal/model"
)

// Confidence levels assigned by the non-fuzzy match steps.
const (
	confidenceExact        = 1.0
	confidenceAbbreviation = 0.95
	confidenceSynonym      = 0.90
)

// Config tunes the classifier. Zero values fall back to the defaults below.
type Config struct {
	// MaxDistance is the largest normalized edit distance a fuzzy match may
	// have (default 0.4); confidence is 1 − distance.
	MaxDistance float64
	// MinFragmentLen is the shortest input (in runes) eligible for fuzzy
	// matching (default 2).
	MinFragmentLen int
	// AutoExecuteThreshold is the confidence at or above which a recognized
	// command may run without confirmation (default 0.7).
	AutoExecuteThreshold float64
	// SuggestionFloor is the minimum confidence for a ranked suggestion
	// (default 0.3).
	SuggestionFloor float64
}

func (c Config) withDefaults() Config {
	if c.MaxDistance <= 0 {
		c.MaxDistance = 0.4
	}
	if c.MinFragmentLen <= 0 {
		c.MinFragmentLen = 2
	}
	if c.AutoExecuteThreshold <= 0 {
		c.AutoExecuteThreshold = 0.7
	}
	if c.SuggestionFloor <= 0 {
		c.SuggestionFloor = 0.3
	}
	return c
}

type candidate struct {
	intent    model.Intent
	text      string
	canonical bool
}

// Classifier turns raw chat text into a recognized intent with a confidence
// score. It is purely computational: no store access, no side effects, and
// malformed input yields "no match" rather than an error.
//
// The candidate list is built once at construction; if the catalog changes at
// runtime a new Classifier must be built.
type Classifier struct {
	scorer        Scorer
	abbreviations map[string]model.Intent
	synonyms      map[string]model.Intent
	descriptions  map[model.Intent]string
	candidates    []candidate
	cfg           Config
}

// New builds a classifier over the given catalog.
func New(catalog Catalog, scorer Scorer, cfg Config) *Classifier {
	c := &Classifier{
		scorer:        scorer,
		abbreviations: make(map[string]model.Intent, len(catalog.Abbreviations)),
		synonyms:      make(map[string]model.Intent, len(catalog.Synonyms)),
		descriptions:  make(map[model.Intent]string, len(catalog.Descriptions)),
		cfg:           cfg.withDefaults(),
	}

	for _, in := range catalog.Intents {
		c.candidates = append(c.candidates, candidate{
			intent:    in,
			text:      strings.ToLower(in.CanonicalText()),
			canonical: true,
		})
	}
	// Sorted insertion keeps fuzzy tie-breaking deterministic across runs.
	for _, text := range sortedKeys(catalog.Synonyms) {
		in := catalog.Synonyms[text]
		c.synonyms[strings.ToLower(text)] = in
		c.candidates = append(c.candidates, candidate{intent: in, text: strings.ToLower(text)})
	}
	for _, code := range sortedKeys(catalog.Abbreviations) {
		in := catalog.Abbreviations[code]
		c.abbreviations[strings.ToLower(code)] = in
		c.candidates = append(c.candidates, candidate{intent: in, text: strings.ToLower(code)})
	}
	for in, desc := range catalog.Descriptions {
		c.descriptions[in] = desc
	}

	return c
}

// Classify maps raw text to a recognized command, or nil when nothing matches.
// Match steps run in strict precedence order: exact canonical text, then
// abbreviation, then synonym, then fuzzy against every candidate phrase.
func (c *Classifier) Classify(rawText string) *model.ParsedCommand {
	text := strings.ToLower(strings.TrimSpace(rawText))
	if text == "" {
		return nil
	}

	result := func(in model.Intent, confidence float64, alias string) *model.ParsedCommand {
		return &model.ParsedCommand{
			RawText:      rawText,
			Intent:       in,
			Confidence:   confidence,
			MatchedAlias: alias,
			Timestamp:    time.Now(),
		}
	}

	for _, cand := range c.candidates {
		if cand.canonical && cand.text == text {
			return result(cand.intent, confidenceExact, "")
		}
	}

	if in, ok := c.abbreviations[text]; ok {
		return result(in, confidenceAbbreviation, text)
	}

	if in, ok := c.synonyms[text]; ok {
		return result(in, confidenceSynonym, text)
	}

	if utf8.RuneCountInString(text) < c.cfg.MinFragmentLen {
		return nil
	}

	best, score := c.bestFuzzy(text)
	if best == nil || score < 1-c.cfg.MaxDistance {
		return nil
	}
	return result(best.intent, score, "")
}

// ShouldAutoExecute reports whether a recognized command is confident enough to
// run without asking the user first.
func (c *Classifier) ShouldAutoExecute(confidence float64) bool {
	return confidence >= c.cfg.AutoExecuteThreshold
}

// Suggest returns up to n ranked alternatives for text, best first, each above
// the suggestion confidence floor. One entry per intent: when several candidate
// phrases for the same intent clear the floor, only the best is kept.
func (c *Classifier) Suggest(rawText string, n int) []model.Suggestion {
	text := strings.ToLower(strings.TrimSpace(rawText))
	if text == "" || n <= 0 {
		return nil
	}

	bestPerIntent := make(map[model.Intent]model.Suggestion)
	for _, cand := range c.candidates {
		score := c.scorer.Score(text, cand.text)
		if score <= c.cfg.SuggestionFloor {
			continue
		}
		if prev, ok := bestPerIntent[cand.intent]; ok && prev.Confidence >= score {
			continue
		}
		bestPerIntent[cand.intent] = model.Suggestion{
			Intent:      cand.intent,
			Text:        cand.intent.CanonicalText(),
			Description: c.descriptions[cand.intent],
			Confidence:  score,
		}
	}

	suggestions := make([]model.Suggestion, 0, len(bestPerIntent))
	for _, s := range bestPerIntent {
		suggestions = append(suggestions, s)
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Confidence > suggestions[j].Confidence
	})

	if len(suggestions) > n {
		suggestions = suggestions[:n]
	}
	return suggestions
}

func sortedKeys(m map[string]model.Intent) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *Classifier) bestFuzzy(text string) (*candidate, float64) {
	var best *candidate
	var bestScore float64

	for i := range c.candidates {
		score := c.scorer.Score(text, c.candidates[i].text)
		if score > bestScore {
			best = &c.candidates[i]
			bestScore = score
		}
	}
	return best, bestScore
}
