// Package country maps free-text country strings to canonical country
// names using a controlled vocabulary with a fuzzy fallback.
package country

import (
	_ "embed"
	"sort"

	"github.com/agext/levenshtein"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/swellmap/surfatlas/internal/model"
	"github.com/swellmap/surfatlas/internal/normalize"
)

//go:embed countries.yaml
var countriesYAML []byte

// Config tunes the fuzzy fallback.
type Config struct {
	// FuzzyThreshold is the minimum similarity for a fuzzy match.
	FuzzyThreshold float64 `yaml:"fuzzy_threshold" mapstructure:"fuzzy_threshold"`
	// FuzzyMargin is how much better the best candidate must score than
	// the runner-up from a different country.
	FuzzyMargin float64 `yaml:"fuzzy_margin" mapstructure:"fuzzy_margin"`
}

// DefaultConfig returns the standard fuzzy acceptance settings.
func DefaultConfig() Config {
	return Config{FuzzyThreshold: 0.85, FuzzyMargin: 0.05}
}

// Result is the outcome of standardizing one raw country string.
type Result struct {
	// Canonical is the confidently resolved country name. Empty when
	// Confidence is unresolved.
	Canonical string
	// Guess is the best-effort candidate when unresolved. Kept separate
	// so callers never mistake a guess for a confident value.
	Guess      string
	Confidence model.Confidence
}

type vocabulary struct {
	Countries []struct {
		Name       string   `yaml:"name"`
		Alternates []string `yaml:"alternates"`
		Aliases    []string `yaml:"aliases"`
	} `yaml:"countries"`
}

type vocabEntry struct {
	key       string // normalized lookup key
	canonical string
}

// Standardizer resolves raw country strings against the embedded
// vocabulary. Loaded once, read-only for the run.
type Standardizer struct {
	cfg     Config
	exact   map[string]string // normalized key -> canonical
	entries []vocabEntry      // stable-ordered, for the fuzzy scan
}

// NewStandardizer parses the embedded vocabulary. Zero-valued config
// fields fall back to DefaultConfig.
func NewStandardizer(cfg Config) (*Standardizer, error) {
	def := DefaultConfig()
	if cfg.FuzzyThreshold <= 0 {
		cfg.FuzzyThreshold = def.FuzzyThreshold
	}
	if cfg.FuzzyMargin <= 0 {
		cfg.FuzzyMargin = def.FuzzyMargin
	}

	var vocab vocabulary
	if err := yaml.Unmarshal(countriesYAML, &vocab); err != nil {
		return nil, eris.Wrap(err, "country: parse vocabulary")
	}

	s := &Standardizer{
		cfg:   cfg,
		exact: make(map[string]string, len(vocab.Countries)*2),
	}
	for _, c := range vocab.Countries {
		names := make([]string, 0, 1+len(c.Alternates)+len(c.Aliases))
		names = append(names, c.Name)
		names = append(names, c.Alternates...)
		names = append(names, c.Aliases...)
		for _, n := range names {
			key := normalize.Key(n)
			if key == "" {
				continue
			}
			if _, dup := s.exact[key]; dup {
				continue
			}
			s.exact[key] = c.Name
			s.entries = append(s.entries, vocabEntry{key: key, canonical: c.Name})
		}
	}

	// Deterministic fuzzy scan order regardless of YAML edits.
	sort.Slice(s.entries, func(i, j int) bool { return s.entries[i].key < s.entries[j].key })

	return s, nil
}

// Standardize resolves one raw country string.
//
// The exact path matches the normalized input against canonical names,
// official alternates, and known aliases. When that misses, the fuzzy
// path scores the input against every vocabulary key and accepts the
// best candidate only if it clears the threshold and beats the
// runner-up country by the configured margin. Anything else comes back
// unresolved with the best guess carried separately.
func (s *Standardizer) Standardize(raw string) Result {
	key := normalize.Key(raw)
	if key == "" {
		return Result{Confidence: model.ConfidenceUnresolved}
	}

	if canonical, ok := s.exact[key]; ok {
		return Result{Canonical: canonical, Confidence: model.ConfidenceExact}
	}

	var (
		best       float64
		bestEntry  vocabEntry
		runnerUp   float64 // best score among other countries
		haveSecond bool
	)
	for _, e := range s.entries {
		sim := levenshtein.Similarity(key, e.key, nil)
		switch {
		case sim > best:
			if bestEntry.canonical != e.canonical {
				runnerUp, haveSecond = best, best > 0
			}
			best, bestEntry = sim, e
		case sim > runnerUp && e.canonical != bestEntry.canonical:
			runnerUp, haveSecond = sim, true
		}
	}

	if best >= s.cfg.FuzzyThreshold && (!haveSecond || best-runnerUp >= s.cfg.FuzzyMargin) {
		return Result{Canonical: bestEntry.canonical, Confidence: model.ConfidenceFuzzy}
	}

	return Result{Guess: bestEntry.canonical, Confidence: model.ConfidenceUnresolved}
}

// Apply standardizes a record's raw country in place, populating
// CountryStd, CountryGuess and CountryConfidence. Original fields are
// never touched.
func (s *Standardizer) Apply(b *model.Break) {
	res := s.Standardize(b.CountryRaw)
	b.CountryStd = res.Canonical
	b.CountryGuess = res.Guess
	b.CountryConfidence = res.Confidence
}
