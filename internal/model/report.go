package model

import (
	"encoding/json"
	"time"
)

// RiskTier classifies a suspicious company by accumulated fraud score.
type RiskTier string

const (
	RiskHigh   RiskTier = "high"
	RiskMedium RiskTier = "medium"
)

// DuplicateGroup is a cluster of records judged to represent the same
// real-world company. Records[0] is the seed the rest matched against.
type DuplicateGroup struct {
	Records    []CompanyRecord `json:"records"`
	Confidence float64         `json:"confidence"`
}

// DuplicateReport is the output of a duplicate scan.
type DuplicateReport struct {
	DuplicateGroups     []DuplicateGroup `json:"duplicate_groups"`
	TotalCompanies      int              `json:"total_companies"`
	UniqueCompanies     int              `json:"unique_companies"`
	PotentialDuplicates int              `json:"potential_duplicates"`
	AverageConfidence   float64          `json:"average_confidence"`
	Success             bool             `json:"success"`
}

// ScoredCompany is a company flagged by the fraud scanner, with the
// human-readable indicators that fired.
type ScoredCompany struct {
	Company        CompanyRecord `json:"company"`
	SuspicionScore int           `json:"suspicion_score"`
	RiskTier       RiskTier      `json:"risk_tier"`
	Indicators     []string      `json:"indicators"`
}

// FraudReport is the output of a fraud scan.
type FraudReport struct {
	SuspiciousCompanies []ScoredCompany `json:"suspicious_companies"`
	TotalCompanies      int             `json:"total_companies"`
	CleanCompanies      int             `json:"clean_companies"`
	HighRiskCount       int             `json:"high_risk_count"`
	MediumRiskCount     int             `json:"medium_risk_count"`
	Success             bool            `json:"success"`
}

// DeleteFailure records a group member that could not be deleted during
// merge cleanup. The rest of the batch continues past it.
type DeleteFailure struct {
	ID    int64  `json:"id"`
	Error string `json:"error"`
}

// MergeOutcome describes how one duplicate group was folded together.
type MergeOutcome struct {
	Name          string          `json:"name"`
	KeptID        int64           `json:"kept_id"`
	DeletedIDs    []int64         `json:"deleted_ids"`
	MergedFields  []string        `json:"merged_fields,omitempty"`
	FailedDeletes []DeleteFailure `json:"failed_deletes,omitempty"`
}

// MergeFailure records a duplicate group whose survivor update failed.
// The group is left untouched in storage.
type MergeFailure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// MergeReport is the output of a merge batch. Deleted ids are surfaced
// so the caller can fix up references held by other entities; this
// engine does not re-point them.
type MergeReport struct {
	MergedGroups     int            `json:"merged_groups"`
	DeletedCompanies int            `json:"deleted_companies"`
	Results          []MergeOutcome `json:"results"`
	FailedGroups     []MergeFailure `json:"failed_groups,omitempty"`
}

// ScanKind identifies what kind of analysis a scan run performed.
type ScanKind string

const (
	ScanDuplicates ScanKind = "duplicates"
	ScanFraud      ScanKind = "fraud"
	ScanMerge      ScanKind = "merge"
)

// ScanRun is a persisted audit record of one engine invocation.
type ScanRun struct {
	ID             string          `json:"id"`
	Kind           ScanKind        `json:"kind"`
	TotalCompanies int             `json:"total_companies"`
	Report         json.RawMessage `json:"report"`
	CreatedAt      time.Time       `json:"created_at"`
}
