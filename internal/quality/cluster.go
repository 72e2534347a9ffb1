package quality

import (
	"go.uber.org/zap"

	"github.com/gigboard/directory-cli/internal/model"
)

// DefaultDuplicateThreshold is the similarity score at or above which
// two records are considered duplicates.
const DefaultDuplicateThreshold = 0.8

// fallbackConfidence is reported for a group whose seed-to-second-member
// similarity cannot be computed.
const fallbackConfidence = 0.8

// Clusterer groups company records into duplicate sets by pairwise
// similarity against each group's seed record.
type Clusterer struct {
	threshold float64
}

// NewClusterer creates a Clusterer. A non-positive threshold falls back
// to DefaultDuplicateThreshold.
func NewClusterer(threshold float64) *Clusterer {
	if threshold <= 0 {
		threshold = DefaultDuplicateThreshold
	}
	return &Clusterer{threshold: threshold}
}

// Threshold returns the similarity threshold in effect.
func (c *Clusterer) Threshold() float64 {
	return c.threshold
}

// Cluster runs a single-pass greedy scan over the records: each
// unprocessed record seeds a group, and every remaining unprocessed
// record scoring at or above the threshold against that seed joins it.
// Members are matched against the seed only, never against each other,
// so grouping is seed-based rather than transitive. Results depend on
// input order; callers should supply records ordered by id ascending
// for reproducible output.
//
// Groups of size 1 are dropped. An empty input yields a zero report.
func (c *Clusterer) Cluster(records []model.CompanyRecord) *model.DuplicateReport {
	report := &model.DuplicateReport{
		TotalCompanies: len(records),
		Success:        true,
	}
	if len(records) == 0 {
		report.UniqueCompanies = 0
		return report
	}

	processed := make(map[int64]bool, len(records))
	for i := range records {
		seed := &records[i]
		if processed[seed.ID] {
			continue
		}
		processed[seed.ID] = true

		group := []model.CompanyRecord{*seed}
		for j := i + 1; j < len(records); j++ {
			other := &records[j]
			if processed[other.ID] {
				continue
			}
			if Similarity(seed, other) >= c.threshold {
				group = append(group, *other)
				processed[other.ID] = true
			}
		}

		if len(group) < 2 {
			continue
		}

		confidence := Similarity(&group[0], &group[1])
		if confidence <= 0 {
			confidence = fallbackConfidence
		}
		for k := range group {
			group[k].HasDuplicates = true
		}
		report.DuplicateGroups = append(report.DuplicateGroups, model.DuplicateGroup{
			Records:    group,
			Confidence: confidence,
		})
	}

	duplicates := 0
	confidenceSum := 0.0
	for _, g := range report.DuplicateGroups {
		duplicates += len(g.Records) - 1
		confidenceSum += g.Confidence
	}
	report.PotentialDuplicates = duplicates
	report.UniqueCompanies = report.TotalCompanies - duplicates
	if n := len(report.DuplicateGroups); n > 0 {
		report.AverageConfidence = confidenceSum / float64(n)
	}

	zap.L().Debug("cluster: duplicate scan complete",
		zap.Int("total", report.TotalCompanies),
		zap.Int("groups", len(report.DuplicateGroups)),
		zap.Int("potential_duplicates", report.PotentialDuplicates),
		zap.Float64("threshold", c.threshold),
	)

	return report
}
