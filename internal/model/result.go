package model

import "time"

// Reason explains why a record ended up unmatched. These are expected
// dispositions, not errors.
type Reason string

const (
	ReasonIncompleteRecord  Reason = "incomplete-record"
	ReasonUnresolvedCountry Reason = "unresolved-country"
	ReasonNoCandidates      Reason = "no-candidates"
	ReasonBelowThreshold    Reason = "below-threshold"
	ReasonNotClaimed        Reason = "not-claimed"
)

// MergedBreak is the union of a matched primary+secondary pair. Primary
// values win on conflicting fields; secondary fills gaps. Both source
// indices are carried for audit.
type MergedBreak struct {
	Name            string     `json:"name"`
	AlternativeName string     `json:"alternative_name,omitempty"`
	Region          string     `json:"region,omitempty"`
	Country         string     `json:"country"`
	Attributes      Attributes `json:"attributes,omitempty"`
	PrimaryIndex    int        `json:"primary_index"`
	SecondaryIndex  int        `json:"secondary_index"`
	PrimaryName     string     `json:"primary_name"`
	SecondaryName   string     `json:"secondary_name"`
	Score           float64    `json:"score"`
}

// UnmatchedBreak is a record that received no accepted match, passed
// through unchanged with its reason code.
type UnmatchedBreak struct {
	Break  Break  `json:"break"`
	Reason Reason `json:"reason"`
}

// RunStatus tracks a pipeline run's lifecycle in the store.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run records one pipeline invocation.
type Run struct {
	ID        string      `json:"id"`
	Status    RunStatus   `json:"status"`
	Stats     *MergeStats `json:"stats,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// MergeStats summarizes a reconciliation run.
type MergeStats struct {
	PrimaryTotal       int `json:"primary_total"`
	SecondaryTotal     int `json:"secondary_total"`
	Merged             int `json:"merged"`
	PrimaryUnmatched   int `json:"primary_unmatched"`
	SecondaryUnmatched int `json:"secondary_unmatched"`
	UnresolvedCountry  int `json:"unresolved_country"`
	Incomplete         int `json:"incomplete"`
}
