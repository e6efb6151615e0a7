package reconcile

import (
	"github.com/agext/levenshtein"
	"github.com/rotisserie/eris"

	"github.com/swellmap/surfatlas/internal/model"
	"github.com/swellmap/surfatlas/internal/normalize"
)

// neutralRegionScore is used when either side has no region text, so a
// missing region neither helps nor hurts a pair.
const neutralRegionScore = 0.5

// Config tunes scoring and acceptance. Weights are relative; the
// composite score is normalized by their sum.
type Config struct {
	// ScoreThreshold is the minimum composite score for a pair to
	// survive into ranking.
	ScoreThreshold float64 `yaml:"score_threshold" mapstructure:"score_threshold"`
	NameWeight     float64 `yaml:"name_weight" mapstructure:"name_weight"`
	RegionWeight   float64 `yaml:"region_weight" mapstructure:"region_weight"`
}

// DefaultConfig returns the standard matching weights.
func DefaultConfig() Config {
	return Config{
		ScoreThreshold: 0.75,
		NameWeight:     0.7,
		RegionWeight:   0.3,
	}
}

// Validate checks that a Config can produce meaningful scores.
func (c Config) Validate() error {
	if c.NameWeight < 0 || c.RegionWeight < 0 {
		return eris.New("reconcile: weights must be >= 0")
	}
	if c.NameWeight+c.RegionWeight <= 0 {
		return eris.New("reconcile: weights must sum to a positive number")
	}
	if c.ScoreThreshold < 0 || c.ScoreThreshold > 1 {
		return eris.New("reconcile: score_threshold must be in [0,1]")
	}
	return nil
}

// similarity is a normalized edit-distance similarity in [0,1] over
// already-normalized keys.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	return levenshtein.Similarity(a, b, nil)
}

// Score computes the composite similarity for one (primary, secondary)
// pair: the name-key similarity carries the dominant weight, region
// similarity the rest. Pure and deterministic; callers always pass
// (primary, secondary) so logged pairs read consistently.
func (c Config) Score(primary, secondary *model.Break) float64 {
	nameSim := similarity(normalize.Key(primary.Name), normalize.Key(secondary.Name))

	regionSim := neutralRegionScore
	pRegion, sRegion := normalize.Key(primary.Region), normalize.Key(secondary.Region)
	if pRegion != "" && sRegion != "" {
		regionSim = similarity(pRegion, sRegion)
	}

	return (c.NameWeight*nameSim + c.RegionWeight*regionSim) / (c.NameWeight + c.RegionWeight)
}
