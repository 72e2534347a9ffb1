package quality

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gigboard/directory-cli/internal/model"
)

// recentCreationWindow is how far back a record's created_at earns the
// completeness recency bonus.
const recentCreationWindow = 30 * 24 * time.Hour

// MergeStore is the slice of the directory store the merger needs.
type MergeStore interface {
	UpdateCompanyFields(ctx context.Context, id int64, fields map[string]any) error
	DeleteCompany(ctx context.Context, id int64) (bool, error)
}

// Merger folds duplicate groups into a single surviving record. A
// mutex serializes merge batches so two invocations never interleave
// deletes against the same dataset.
type Merger struct {
	store MergeStore
	mu    sync.Mutex
	now   func() time.Time
}

// NewMerger creates a Merger backed by the given store.
func NewMerger(store MergeStore) *Merger {
	return &Merger{store: store, now: time.Now}
}

// MergeAll merges every group in a duplicate report. Groups with fewer
// than two records are logged and skipped. Storage failures — a failed
// survivor update as much as a failed delete — are collected into the
// report rather than aborting the batch, so one broken group never
// blocks the rest.
func (m *Merger) MergeAll(ctx context.Context, groups []model.DuplicateGroup) *model.MergeReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	report := &model.MergeReport{}
	for _, g := range groups {
		if len(g.Records) < 2 {
			zap.L().Warn("merge: skipping undersized group",
				zap.Int("size", len(g.Records)),
			)
			continue
		}
		outcome, err := m.mergeGroup(ctx, g.Records)
		if err != nil {
			zap.L().Warn("merge: group failed",
				zap.String("name", g.Records[0].Name),
				zap.Error(err),
			)
			report.FailedGroups = append(report.FailedGroups, model.MergeFailure{
				Name:  g.Records[0].Name,
				Error: err.Error(),
			})
			continue
		}
		report.MergedGroups++
		report.DeletedCompanies += len(outcome.DeletedIDs)
		report.Results = append(report.Results, *outcome)
	}
	return report
}

// MergeGroup merges a single duplicate group: the most complete record
// survives, missing fields are backfilled from the other members, and
// the rest are deleted. Deleted ids are returned for the caller to fix
// up any references held elsewhere.
func (m *Merger) MergeGroup(ctx context.Context, group []model.CompanyRecord) (*model.MergeOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(group) < 2 {
		return nil, eris.Errorf("merge: group needs at least 2 records, got %d", len(group))
	}
	return m.mergeGroup(ctx, group)
}

func (m *Merger) mergeGroup(ctx context.Context, group []model.CompanyRecord) (*model.MergeOutcome, error) {
	now := m.now()

	survivorIdx := 0
	bestScore := completenessScore(&group[0], now)
	for i := 1; i < len(group); i++ {
		if score := completenessScore(&group[i], now); score > bestScore {
			bestScore = score
			survivorIdx = i
		}
	}
	survivor := &group[survivorIdx]

	fields, mergedFields := backfillFields(survivor, group, survivorIdx)
	// The survivor is no longer a known duplicate once the rest of the
	// group is gone.
	fields["has_duplicates"] = false

	if err := m.store.UpdateCompanyFields(ctx, survivor.ID, fields); err != nil {
		return nil, eris.Wrapf(err, "merge: update survivor %d", survivor.ID)
	}

	outcome := &model.MergeOutcome{
		Name:         survivor.Name,
		KeptID:       survivor.ID,
		MergedFields: mergedFields,
	}

	for i := range group {
		if i == survivorIdx {
			continue
		}
		id := group[i].ID
		ok, err := m.store.DeleteCompany(ctx, id)
		switch {
		case err != nil:
			zap.L().Warn("merge: delete failed",
				zap.Int64("company_id", id),
				zap.Error(err),
			)
			outcome.FailedDeletes = append(outcome.FailedDeletes, model.DeleteFailure{ID: id, Error: err.Error()})
		case !ok:
			outcome.FailedDeletes = append(outcome.FailedDeletes, model.DeleteFailure{ID: id, Error: "not found"})
		default:
			outcome.DeletedIDs = append(outcome.DeletedIDs, id)
		}
	}

	zap.L().Info("merge: group merged",
		zap.String("name", survivor.Name),
		zap.Int64("kept_id", survivor.ID),
		zap.Int("deleted", len(outcome.DeletedIDs)),
		zap.Int("failed_deletes", len(outcome.FailedDeletes)),
	)

	return outcome, nil
}

// completenessScore counts populated informative fields, with a half
// point bonus for recently created records as a tie-breaker.
func completenessScore(c *model.CompanyRecord, now time.Time) float64 {
	score := 0.0
	if model.StrVal(c.Website) != "" {
		score++
	}
	if c.Description != "" {
		score++
	}
	if model.StrVal(c.ContactEmail) != "" {
		score++
	}
	if model.StrVal(c.ContactPhone) != "" {
		score++
	}
	if model.StrVal(c.AveragePay) != "" {
		score++
	}
	if len(c.VehicleTypes) > 0 {
		score++
	}
	if len(c.AreasServed) > 0 {
		score++
	}
	if c.ServiceVertical != "" {
		score++
	}
	if c.ContractType != "" {
		score++
	}
	if c.YearEstablished != 0 {
		score++
	}
	if c.Headquarters != "" {
		score++
	}
	if c.CreatedAt != nil && now.Sub(*c.CreatedAt) <= recentCreationWindow {
		score += 0.5
	}
	return score
}

// backfillFields builds the update set for the survivor: scalar fields
// empty on the survivor take the first non-empty value in group order,
// and array fields take the union across all members when the union is
// strictly larger than what the survivor already has.
func backfillFields(survivor *model.CompanyRecord, group []model.CompanyRecord, survivorIdx int) (map[string]any, []string) {
	fields := make(map[string]any)
	var merged []string

	scalar := func(key string, current string, pick func(*model.CompanyRecord) string) {
		if current != "" {
			return
		}
		for i := range group {
			if i == survivorIdx {
				continue
			}
			if v := pick(&group[i]); v != "" {
				fields[key] = v
				merged = append(merged, key)
				return
			}
		}
	}

	scalar("website", model.StrVal(survivor.Website), func(c *model.CompanyRecord) string { return model.StrVal(c.Website) })
	scalar("description", survivor.Description, func(c *model.CompanyRecord) string { return c.Description })
	scalar("contact_email", model.StrVal(survivor.ContactEmail), func(c *model.CompanyRecord) string { return model.StrVal(c.ContactEmail) })
	scalar("contact_phone", model.StrVal(survivor.ContactPhone), func(c *model.CompanyRecord) string { return model.StrVal(c.ContactPhone) })
	scalar("average_pay", model.StrVal(survivor.AveragePay), func(c *model.CompanyRecord) string { return model.StrVal(c.AveragePay) })
	scalar("insurance_requirements", model.StrVal(survivor.InsuranceRequirements), func(c *model.CompanyRecord) string { return model.StrVal(c.InsuranceRequirements) })
	scalar("license_requirements", model.StrVal(survivor.LicenseRequirements), func(c *model.CompanyRecord) string { return model.StrVal(c.LicenseRequirements) })
	scalar("service_vertical", survivor.ServiceVertical, func(c *model.CompanyRecord) string { return c.ServiceVertical })
	scalar("contract_type", survivor.ContractType, func(c *model.CompanyRecord) string { return c.ContractType })
	scalar("headquarters", survivor.Headquarters, func(c *model.CompanyRecord) string { return c.Headquarters })

	if survivor.YearEstablished == 0 {
		for i := range group {
			if i == survivorIdx {
				continue
			}
			if y := group[i].YearEstablished; y != 0 {
				fields["year_established"] = y
				merged = append(merged, "year_established")
				break
			}
		}
	}

	array := func(key string, current []string, pick func(*model.CompanyRecord) []string) {
		union := unionValues(group, pick)
		if len(union) > len(uniqueValues(current)) {
			fields[key] = union
			merged = append(merged, key)
		}
	}

	array("vehicle_types", survivor.VehicleTypes, func(c *model.CompanyRecord) []string { return c.VehicleTypes })
	array("areas_served", survivor.AreasServed, func(c *model.CompanyRecord) []string { return c.AreasServed })
	array("certifications_required", survivor.CertificationsRequired, func(c *model.CompanyRecord) []string { return c.CertificationsRequired })

	return fields, merged
}

// unionValues collects the unique values of an array field across all
// group members, preserving first-seen order.
func unionValues(group []model.CompanyRecord, pick func(*model.CompanyRecord) []string) []string {
	seen := make(map[string]bool)
	var union []string
	for i := range group {
		for _, v := range pick(&group[i]) {
			k := normalizeSetValue(v)
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			union = append(union, v)
		}
	}
	return union
}

func uniqueValues(values []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range values {
		k := normalizeSetValue(v)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}
