package reconcile

import "github.com/swellmap/surfatlas/internal/model"

// mergePair builds the merged row for an accepted pair. Primary values
// win on overlapping fields; secondary fills the gaps. The secondary's
// name is kept as the alternative name, and both input positions are
// carried for audit.
func mergePair(primary, secondary *model.Break, score float64) model.MergedBreak {
	region := primary.Region
	if region == "" {
		region = secondary.Region
	}

	attrs := primary.Attributes.Clone()
	for _, attr := range secondary.Attributes {
		if existing, ok := attrs.Get(attr.Key); !ok || existing == "" {
			attrs.Set(attr.Key, attr.Value)
		}
	}

	return model.MergedBreak{
		Name:            primary.Name,
		AlternativeName: secondary.Name,
		Region:          region,
		Country:         primary.CountryStd,
		Attributes:      attrs,
		PrimaryIndex:    primary.Index,
		SecondaryIndex:  secondary.Index,
		PrimaryName:     primary.Name,
		SecondaryName:   secondary.Name,
		Score:           score,
	}
}
