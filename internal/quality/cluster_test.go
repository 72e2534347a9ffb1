package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigboard/directory-cli/internal/model"
)

func TestCluster_EmptyInput(t *testing.T) {
	report := NewClusterer(0).Cluster(nil)

	assert.True(t, report.Success)
	assert.Zero(t, report.TotalCompanies)
	assert.Zero(t, report.UniqueCompanies)
	assert.Empty(t, report.DuplicateGroups)
}

func TestCluster_NoDuplicates(t *testing.T) {
	records := []model.CompanyRecord{
		{ID: 1, Name: "Quick Delivery LLC"},
		{ID: 2, Name: "Metro Movers"},
		{ID: 3, Name: "Sunshine Rideshare"},
	}

	report := NewClusterer(0.8).Cluster(records)

	assert.True(t, report.Success)
	assert.Empty(t, report.DuplicateGroups)
	assert.Equal(t, 3, report.TotalCompanies)
	assert.Equal(t, 3, report.UniqueCompanies)
	assert.Zero(t, report.PotentialDuplicates)
}

func TestCluster_GroupsNearDuplicates(t *testing.T) {
	records := []model.CompanyRecord{
		{ID: 1, Name: "Quick Delivery LLC"},
		{ID: 2, Name: "Quik Delivery LLC"},
		{ID: 3, Name: "Metro Movers"},
	}

	report := NewClusterer(0.8).Cluster(records)

	require.Len(t, report.DuplicateGroups, 1)
	group := report.DuplicateGroups[0]
	require.Len(t, group.Records, 2)
	assert.Equal(t, int64(1), group.Records[0].ID)
	assert.Equal(t, int64(2), group.Records[1].ID)
	assert.Greater(t, group.Confidence, 0.8)

	for _, r := range group.Records {
		assert.True(t, r.HasDuplicates)
	}

	assert.Equal(t, 3, report.TotalCompanies)
	assert.Equal(t, 1, report.PotentialDuplicates)
	assert.Equal(t, 2, report.UniqueCompanies)
	assert.InDelta(t, group.Confidence, report.AverageConfidence, 0.0001)
}

func TestCluster_DoesNotMutateInput(t *testing.T) {
	records := []model.CompanyRecord{
		{ID: 1, Name: "Quick Delivery LLC"},
		{ID: 2, Name: "Quick Delivery LLC"},
	}

	_ = NewClusterer(0.8).Cluster(records)

	assert.False(t, records[0].HasDuplicates)
	assert.False(t, records[1].HasDuplicates)
}

func TestCluster_HigherThresholdGroupsLess(t *testing.T) {
	records := []model.CompanyRecord{
		{ID: 1, Name: "Quick Delivery LLC"},
		{ID: 2, Name: "Quik Delivery LLC"},
	}

	loose := NewClusterer(0.8).Cluster(records)
	strict := NewClusterer(0.99).Cluster(records)

	assert.Len(t, loose.DuplicateGroups, 1)
	assert.Empty(t, strict.DuplicateGroups)
}

func TestCluster_SeedBasedNotTransitive(t *testing.T) {
	// B matches the seed A; C might match B but is only ever compared
	// against A, so a weak A-C score keeps C out of the group.
	records := []model.CompanyRecord{
		{ID: 1, Name: "Quick Delivery LLC"},
		{ID: 2, Name: "Quick Delivery"},
		{ID: 3, Name: "Metro Freight Lines"},
	}

	report := NewClusterer(0.8).Cluster(records)

	require.Len(t, report.DuplicateGroups, 1)
	assert.Len(t, report.DuplicateGroups[0].Records, 2)
}

func TestNewClusterer_DefaultThreshold(t *testing.T) {
	assert.InDelta(t, DefaultDuplicateThreshold, NewClusterer(0).Threshold(), 0.0001)
	assert.InDelta(t, DefaultDuplicateThreshold, NewClusterer(-1).Threshold(), 0.0001)
	assert.InDelta(t, 0.9, NewClusterer(0.9).Threshold(), 0.0001)
}
