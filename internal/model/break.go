package model

import "strings"

// Source identifies which dataset produced a record. Set at ingestion,
// never mutated afterwards.
type Source string

const (
	SourcePrimary   Source = "primary"
	SourceSecondary Source = "secondary"
)

// Confidence grades how a country string was resolved to its canonical form.
type Confidence string

const (
	ConfidenceExact      Confidence = "exact"
	ConfidenceFuzzy      Confidence = "fuzzy"
	ConfidenceUnresolved Confidence = "unresolved"
)

// Break is a single surf break row from either source dataset.
//
// Name, Region and CountryRaw arrive as free text with source-specific
// formatting. CountryStd is empty until the standardizer runs; when the
// standardizer cannot resolve the country confidently, CountryStd stays
// empty and CountryGuess holds the best-effort candidate.
type Break struct {
	Name              string     `json:"name"`
	Link              string     `json:"link,omitempty"`
	Region            string     `json:"region,omitempty"`
	CountryRaw        string     `json:"country_raw"`
	CountryStd        string     `json:"country_std,omitempty"`
	CountryGuess      string     `json:"country_guess,omitempty"`
	CountryConfidence Confidence `json:"country_confidence,omitempty"`
	Attributes        Attributes `json:"attributes,omitempty"`
	Source            Source     `json:"source"`
	Index             int        `json:"index"`
}

// Incomplete reports whether the record lacks a field required for matching.
// Incomplete records are routed to unmatched before scoring.
func (b *Break) Incomplete() bool {
	return strings.TrimSpace(b.Name) == "" || strings.TrimSpace(b.CountryRaw) == ""
}

// Country returns the value matching should block on: the confidently
// standardized country, or empty when unresolved.
func (b *Break) Country() string {
	return b.CountryStd
}
