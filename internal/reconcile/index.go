package reconcile

import "github.com/swellmap/surfatlas/internal/model"

// Index blocks primary records by standardized country so candidate
// generation never pays the full cross-product. Built once per run,
// read-only afterwards.
type Index struct {
	byCountry map[string][]*model.Break
}

// NewIndex builds the blocking index from primary records. Records
// without a confidently standardized country are not indexed; they can
// never be claimed and fall out as unmatched.
func NewIndex(primary []*model.Break) *Index {
	ix := &Index{byCountry: make(map[string][]*model.Break)}
	for _, b := range primary {
		if b.Incomplete() || b.CountryStd == "" {
			continue
		}
		ix.byCountry[b.CountryStd] = append(ix.byCountry[b.CountryStd], b)
	}
	return ix
}

// Candidates returns every indexed primary record sharing the secondary
// record's standardized country, in primary input order. An unresolved
// country on the secondary side yields no candidates: the policy is to
// never guess across countries.
func (ix *Index) Candidates(secondary *model.Break) []*model.Break {
	if secondary.CountryStd == "" {
		return nil
	}
	return ix.byCountry[secondary.CountryStd]
}

// Countries returns the number of distinct blocked countries.
func (ix *Index) Countries() int { return len(ix.byCountry) }
