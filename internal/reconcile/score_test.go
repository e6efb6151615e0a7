package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/swellmap/surfatlas/internal/model"
)

func TestScore_IdenticalNames(t *testing.T) {
	cfg := DefaultConfig()
	p := primaryBreak(0, "Pipeline", "United States")
	s := secondaryBreak(0, "Pipeline", "United States")

	// Full name similarity, neutral region: (0.7*1 + 0.3*0.5) / 1.0.
	assert.InDelta(t, 0.85, cfg.Score(&p, &s), 0.001)
}

func TestScore_RegionContributes(t *testing.T) {
	cfg := DefaultConfig()
	p := primaryBreak(0, "Pipeline", "United States")
	p.Region = "Oahu"
	s := secondaryBreak(0, "Pipeline", "United States")
	s.Region = "Oahu"

	assert.InDelta(t, 1.0, cfg.Score(&p, &s), 0.001)

	s.Region = "Maui"
	assert.Less(t, cfg.Score(&p, &s), 1.0)
}

func TestScore_EmptyRegionIsNeutralNotPenalized(t *testing.T) {
	cfg := DefaultConfig()
	p := primaryBreak(0, "Jeffreys Bay", "South Africa")
	p.Region = "Eastern Cape"
	s := secondaryBreak(0, "Jeffreys Bay", "South Africa")
	// s.Region empty.

	withEmpty := cfg.Score(&p, &s)
	s.Region = "Totally Different Province"
	withMismatch := cfg.Score(&p, &s)

	assert.Greater(t, withEmpty, withMismatch)
}

func TestScore_NormalizedNameComparison(t *testing.T) {
	cfg := DefaultConfig()
	p := primaryBreak(0, "Teahupo'o", "French Polynesia")
	s := secondaryBreak(0, "teahupoo", "French Polynesia")

	assert.InDelta(t, 0.85, cfg.Score(&p, &s), 0.001)
}

func TestScore_Range(t *testing.T) {
	cfg := DefaultConfig()
	pairs := [][2]string{
		{"Pipeline", "Pipeline"},
		{"Pipeline", "Backdoor"},
		{"A", "Zed"},
		{"", "Anything"},
	}
	for _, pr := range pairs {
		p := primaryBreak(0, pr[0], "X")
		s := secondaryBreak(0, pr[1], "X")
		score := cfg.Score(&p, &s)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{NameWeight: -1, RegionWeight: 0.3, ScoreThreshold: 0.5}.Validate())
	assert.Error(t, Config{NameWeight: 0, RegionWeight: 0, ScoreThreshold: 0.5}.Validate())
	assert.Error(t, Config{NameWeight: 0.7, RegionWeight: 0.3, ScoreThreshold: 1.5}.Validate())
}

func TestIndex_BlocksByCountry(t *testing.T) {
	breaks := []model.Break{
		primaryBreak(0, "Pipeline", "United States"),
		primaryBreak(1, "Mavericks", "United States"),
		primaryBreak(2, "Supertubes", "Portugal"),
	}
	recs := make([]*model.Break, len(breaks))
	for i := range breaks {
		recs[i] = &breaks[i]
	}

	ix := NewIndex(recs)
	assert.Equal(t, 2, ix.Countries())

	sec := secondaryBreak(0, "Pipe", "United States")
	assert.Len(t, ix.Candidates(&sec), 2)

	other := secondaryBreak(1, "Anchor Point", "Morocco")
	assert.Empty(t, ix.Candidates(&other))
}

func TestIndex_UnresolvedYieldsNoCandidates(t *testing.T) {
	p := primaryBreak(0, "Uluwatu", "Indonesia")
	ix := NewIndex([]*model.Break{&p})

	sec := secondaryBreak(0, "Ulu Watu", "Bali")
	sec.CountryStd = ""
	assert.Nil(t, ix.Candidates(&sec))
}

func TestIndex_SkipsIncompleteAndUnresolvedPrimaries(t *testing.T) {
	incomplete := model.Break{Name: "", CountryRaw: "Portugal", CountryStd: "Portugal", Source: model.SourcePrimary}
	unresolved := model.Break{Name: "Ghost", CountryRaw: "???", Source: model.SourcePrimary}
	ok := primaryBreak(2, "Coxos", "Portugal")

	ix := NewIndex([]*model.Break{&incomplete, &unresolved, &ok})
	sec := secondaryBreak(0, "Coxos", "Portugal")
	assert.Len(t, ix.Candidates(&sec), 1)
}
