package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigboard/directory-cli/internal/model"
)

func TestParseLeadingDollars(t *testing.T) {
	tests := []struct {
		in     string
		want   Dollars
		wantOK bool
	}{
		{"$500/week", 500, true},
		{"up to $25 per hour", 25, true},
		{"$ 12.50", 12.5, true},
		{"competitive", 0, false},
		{"", 0, false},
		{"25 per hour", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseLeadingDollars(tt.in)
		assert.Equal(t, tt.wantOK, ok, "input %q", tt.in)
		assert.InDelta(t, float64(tt.want), float64(got), 0.0001, "input %q", tt.in)
	}
}

func TestScan_CleanDirectory(t *testing.T) {
	records := []model.CompanyRecord{
		{
			ID:      1,
			Name:    "Acme Logistics",
			Website: model.StrPtr("https://acme.com"),
		},
		{
			ID:           2,
			Name:         "Metro Movers",
			ContactEmail: model.StrPtr("ops@metromovers.com"),
		},
	}

	report := NewScanner().Scan(records)

	assert.True(t, report.Success)
	assert.Empty(t, report.SuspiciousCompanies)
	assert.Equal(t, 2, report.TotalCompanies)
	assert.Equal(t, 2, report.CleanCompanies)
	assert.Zero(t, report.HighRiskCount)
	assert.Zero(t, report.MediumRiskCount)
}

func TestScan_HighRiskListing(t *testing.T) {
	records := []model.CompanyRecord{
		{
			ID:         1,
			Name:       "EasyMoney Driver Co",
			AveragePay: model.StrPtr("$500/day"),
			// No website, phone, or email.
		},
	}

	report := NewScanner().Scan(records)

	require.Len(t, report.SuspiciousCompanies, 1)
	sc := report.SuspiciousCompanies[0]
	// Unrealistic pay (30) + no contact (25) + promotional name (20).
	assert.Equal(t, 75, sc.SuspicionScore)
	assert.Equal(t, model.RiskHigh, sc.RiskTier)
	assert.Len(t, sc.Indicators, 3)
	assert.Equal(t, 1, report.HighRiskCount)
	assert.Zero(t, report.CleanCompanies)
}

func TestScan_PromotionalNameWithoutSpaces(t *testing.T) {
	records := []model.CompanyRecord{
		{
			ID:      1,
			Name:    "Fast-Cash Couriers",
			Website: model.StrPtr("https://fastcash.example"),
			// Promo name alone (20) is below the suspicion cut.
		},
		{
			ID:   2,
			Name: "GuaranteedPay Delivery",
			// Promo name (20) + no contact (25) = 45, medium.
		},
	}

	report := NewScanner().Scan(records)

	require.Len(t, report.SuspiciousCompanies, 1)
	sc := report.SuspiciousCompanies[0]
	assert.Equal(t, int64(2), sc.Company.ID)
	assert.Equal(t, 45, sc.SuspicionScore)
	assert.Equal(t, model.RiskMedium, sc.RiskTier)
}

func TestScan_NoLicenseClaim(t *testing.T) {
	records := []model.CompanyRecord{
		{
			ID:                  1,
			Name:                "Metro Hauling",
			LicenseRequirements: model.StrPtr("No license needed, start today"),
			// No license claim (15) + no contact (25) = 40.
		},
	}

	report := NewScanner().Scan(records)

	require.Len(t, report.SuspiciousCompanies, 1)
	sc := report.SuspiciousCompanies[0]
	assert.Equal(t, 40, sc.SuspicionScore)
	assert.Equal(t, model.RiskMedium, sc.RiskTier)
}

func TestScan_HighPayNoInsurance(t *testing.T) {
	records := []model.CompanyRecord{
		{
			ID:                    1,
			Name:                  "Swift Freight",
			Website:               model.StrPtr("https://swiftfreight.example"),
			AveragePay:            model.StrPtr("$60 per hour"),
			InsuranceRequirements: model.StrPtr("None"),
			// High pay with no insurance (25); pay is below the
			// unrealistic ceiling so that heuristic stays quiet.
		},
	}

	report := NewScanner().Scan(records)

	require.Len(t, report.SuspiciousCompanies, 1)
	sc := report.SuspiciousCompanies[0]
	assert.Equal(t, 25, sc.SuspicionScore)
	assert.Equal(t, model.RiskMedium, sc.RiskTier)
}

func TestScan_WorldwideCoverage(t *testing.T) {
	records := []model.CompanyRecord{
		{
			ID:          1,
			Name:        "Global Gigs",
			AreasServed: []string{"Worldwide"},
			// Worldwide with no license info (20) + no contact (25).
		},
	}

	report := NewScanner().Scan(records)

	require.Len(t, report.SuspiciousCompanies, 1)
	assert.Equal(t, 45, report.SuspiciousCompanies[0].SuspicionScore)
}

func TestScan_SortsByScoreDescending(t *testing.T) {
	records := []model.CompanyRecord{
		{ID: 1, Name: "Metro Hauling"}, // no contact: 25
		{ID: 2, Name: "EasyMoney Driver Co", AveragePay: model.StrPtr("$500/day")}, // 75
	}

	report := NewScanner().Scan(records)

	require.Len(t, report.SuspiciousCompanies, 2)
	assert.Equal(t, int64(2), report.SuspiciousCompanies[0].Company.ID)
	assert.Equal(t, int64(1), report.SuspiciousCompanies[1].Company.ID)
	assert.Equal(t, 1, report.HighRiskCount)
	assert.Equal(t, 1, report.MediumRiskCount)
}

func TestScan_Idempotent(t *testing.T) {
	records := []model.CompanyRecord{
		{ID: 1, Name: "EasyMoney Driver Co", AveragePay: model.StrPtr("$500/day")},
	}

	first := NewScanner().Scan(records)
	second := NewScanner().Scan(records)

	assert.Equal(t, first.SuspiciousCompanies[0].SuspicionScore, second.SuspiciousCompanies[0].SuspicionScore)
	assert.Equal(t, first.HighRiskCount, second.HighRiskCount)
}
