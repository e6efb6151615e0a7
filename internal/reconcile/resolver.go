// Package reconcile joins two surf break snapshots on an approximate
// (name, country) key: blocking by standardized country, composite
// fuzzy scoring, then a globally ranked exclusive assignment.
package reconcile

import (
	"runtime"
	"sort"

	"github.com/agext/levenshtein"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/swellmap/surfatlas/internal/model"
)

// Result holds the three output tables of one reconciliation run.
// Every input record appears in exactly one of them.
type Result struct {
	Merged             []model.MergedBreak
	PrimaryUnmatched   []model.UnmatchedBreak
	SecondaryUnmatched []model.UnmatchedBreak
	Stats              model.MergeStats
}

// pair is an ephemeral scored candidate pairing. Created during
// scoring, consumed during assignment, never persisted.
type pair struct {
	p, s    int // positions in the input slices
	score   float64
	exact   int // how many of the two sides resolved their country exactly
	rawDist int // edit distance between the raw names
}

// Resolver runs the reconciliation. Safe for reuse across runs; all
// per-run state lives on the stack of Reconcile.
type Resolver struct {
	cfg Config
}

// NewResolver creates a Resolver, falling back to DefaultConfig for
// zero-valued fields.
func NewResolver(cfg Config) *Resolver {
	def := DefaultConfig()
	if cfg.ScoreThreshold <= 0 {
		cfg.ScoreThreshold = def.ScoreThreshold
	}
	if cfg.NameWeight <= 0 && cfg.RegionWeight <= 0 {
		cfg.NameWeight, cfg.RegionWeight = def.NameWeight, def.RegionWeight
	}
	return &Resolver{cfg: cfg}
}

// Reconcile matches secondary records against primary records and
// returns the merged and unmatched tables.
//
// The run has four phases: per-secondary candidate scoring (parallel,
// collected in input order), a global ranking of surviving pairs,
// greedy exclusive assignment over that ranking, and finalization.
// It is total: it never fails on malformed rows (those are routed to
// unmatched with a reason code) and identical inputs produce
// identical outputs, byte for byte.
func (r *Resolver) Reconcile(primary, secondary []model.Break) Result {
	pRecs := make([]*model.Break, len(primary))
	for i := range primary {
		pRecs[i] = &primary[i]
	}
	sRecs := make([]*model.Break, len(secondary))
	for i := range secondary {
		sRecs[i] = &secondary[i]
	}

	ix := NewIndex(pRecs)

	// Position of each indexed primary record, for consumed tracking.
	pPos := make(map[*model.Break]int, len(pRecs))
	for i, p := range pRecs {
		pPos[p] = i
	}

	// Phase 1: score candidates for every secondary record. Scoring a
	// pair is independent of every other pair, so this fans out; the
	// per-secondary slots keep collection order deterministic.
	sReason := make([]model.Reason, len(sRecs))
	scored := make([][]pair, len(sRecs))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, sec := range sRecs {
		switch {
		case sec.Incomplete():
			sReason[i] = model.ReasonIncompleteRecord
			continue
		case sec.CountryStd == "":
			sReason[i] = model.ReasonUnresolvedCountry
			continue
		}

		cands := ix.Candidates(sec)
		if len(cands) == 0 {
			sReason[i] = model.ReasonNoCandidates
			continue
		}

		i, sec := i, sec
		g.Go(func() error {
			var pairs []pair
			for _, prim := range cands {
				score := r.cfg.Score(prim, sec)
				if score < r.cfg.ScoreThreshold {
					continue
				}
				pairs = append(pairs, pair{
					p:       pPos[prim],
					s:       i,
					score:   score,
					exact:   exactSides(prim, sec),
					rawDist: levenshtein.Distance(prim.Name, sec.Name, nil),
				})
			}
			scored[i] = pairs
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	var ranked []pair
	for i, pairs := range scored {
		if sReason[i] == "" && len(pairs) == 0 {
			sReason[i] = model.ReasonBelowThreshold
		}
		ranked = append(ranked, pairs...)
	}

	// Phase 2: global ranking. Score descending; ties broken by exact
	// country confidence, then raw name distance, then original input
	// order. The comparator is total, so the order is reproducible.
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.exact != b.exact {
			return a.exact > b.exact
		}
		if a.rawDist != b.rawDist {
			return a.rawDist < b.rawDist
		}
		if a.s != b.s {
			return a.s < b.s
		}
		return a.p < b.p
	})

	// Phase 3: greedy exclusive assignment. A pair is accepted only if
	// neither side was consumed by a higher-ranked pair.
	consumedP := make([]bool, len(pRecs))
	consumedS := make([]bool, len(sRecs))
	chosen := make([]*pair, len(sRecs))
	for i := range ranked {
		pr := &ranked[i]
		if consumedP[pr.p] || consumedS[pr.s] {
			continue
		}
		consumedP[pr.p] = true
		consumedS[pr.s] = true
		chosen[pr.s] = pr
	}

	// Phase 4: finalization, in input order on both sides.
	var res Result
	for i, sec := range sRecs {
		if ch := chosen[i]; ch != nil {
			res.Merged = append(res.Merged, mergePair(pRecs[ch.p], sec, ch.score))
			continue
		}
		reason := sReason[i]
		if reason == "" {
			// Had qualifying pairs, but every candidate was claimed
			// by a higher-ranked secondary.
			reason = model.ReasonNotClaimed
		}
		res.SecondaryUnmatched = append(res.SecondaryUnmatched, model.UnmatchedBreak{Break: *sec, Reason: reason})
	}
	for i, prim := range pRecs {
		if consumedP[i] {
			continue
		}
		reason := model.ReasonNotClaimed
		switch {
		case prim.Incomplete():
			reason = model.ReasonIncompleteRecord
		case prim.CountryStd == "":
			reason = model.ReasonUnresolvedCountry
		}
		res.PrimaryUnmatched = append(res.PrimaryUnmatched, model.UnmatchedBreak{Break: *prim, Reason: reason})
	}

	res.Stats = r.stats(pRecs, sRecs, &res)

	zap.L().Info("reconciliation complete",
		zap.Int("primary", len(pRecs)),
		zap.Int("secondary", len(sRecs)),
		zap.Int("merged", len(res.Merged)),
		zap.Int("primary_unmatched", len(res.PrimaryUnmatched)),
		zap.Int("secondary_unmatched", len(res.SecondaryUnmatched)),
	)

	return res
}

// exactSides counts how many of the pair's countries resolved with
// exact confidence. Ranked 2 > 1 > 0 during tie-breaks.
func exactSides(p, s *model.Break) int {
	n := 0
	if p.CountryConfidence == model.ConfidenceExact {
		n++
	}
	if s.CountryConfidence == model.ConfidenceExact {
		n++
	}
	return n
}

func (r *Resolver) stats(pRecs, sRecs []*model.Break, res *Result) model.MergeStats {
	stats := model.MergeStats{
		PrimaryTotal:       len(pRecs),
		SecondaryTotal:     len(sRecs),
		Merged:             len(res.Merged),
		PrimaryUnmatched:   len(res.PrimaryUnmatched),
		SecondaryUnmatched: len(res.SecondaryUnmatched),
	}
	for _, u := range res.PrimaryUnmatched {
		switch u.Reason {
		case model.ReasonUnresolvedCountry:
			stats.UnresolvedCountry++
		case model.ReasonIncompleteRecord:
			stats.Incomplete++
		}
	}
	for _, u := range res.SecondaryUnmatched {
		switch u.Reason {
		case model.ReasonUnresolvedCountry:
			stats.UnresolvedCountry++
		case model.ReasonIncompleteRecord:
			stats.Incomplete++
		}
	}
	return stats
}
