package quality

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/gigboard/directory-cli/internal/model"
)

// Suspicion score boundaries. Heuristic points accumulate without an
// upper bound; tiers are cut at these values.
const (
	suspicionThreshold = 25
	highRiskThreshold  = 50
)

// Heuristic point values.
const (
	pointsUnrealisticPay    = 30
	pointsNoContact         = 25
	pointsPromotionalName   = 20
	pointsNoLicenseClaim    = 15
	pointsHighPayNoInsure   = 25
	pointsUnboundedCoverage = 20
)

// realisticHourlyCeiling is the advertised leading pay figure above
// which a listing is treated as too good to be true.
const realisticHourlyCeiling = 100

// promotionalWords are marketing buzzwords that legitimate courier and
// delivery companies do not put in their own names.
var promotionalWords = []string{
	"best", "easy money", "fast cash", "guaranteed", "unlimited",
	"get rich", "no experience", "instant pay",
}

// Scanner evaluates each company record against a fixed set of fraud
// heuristics. It never mutates its input.
type Scanner struct{}

// NewScanner creates a fraud Scanner.
func NewScanner() *Scanner {
	return &Scanner{}
}

// Scan scores every record independently and returns the suspicious
// ones sorted by score descending. A record is suspicious at 25+
// points and high risk at 50+.
func (s *Scanner) Scan(records []model.CompanyRecord) *model.FraudReport {
	report := &model.FraudReport{
		TotalCompanies: len(records),
		Success:        true,
	}

	for i := range records {
		score, indicators := scoreRecord(&records[i])
		if score < suspicionThreshold {
			continue
		}
		tier := model.RiskMedium
		if score >= highRiskThreshold {
			tier = model.RiskHigh
		}
		report.SuspiciousCompanies = append(report.SuspiciousCompanies, model.ScoredCompany{
			Company:        records[i],
			SuspicionScore: score,
			RiskTier:       tier,
			Indicators:     indicators,
		})
	}

	sort.SliceStable(report.SuspiciousCompanies, func(i, j int) bool {
		return report.SuspiciousCompanies[i].SuspicionScore > report.SuspiciousCompanies[j].SuspicionScore
	})

	for _, sc := range report.SuspiciousCompanies {
		switch sc.RiskTier {
		case model.RiskHigh:
			report.HighRiskCount++
		case model.RiskMedium:
			report.MediumRiskCount++
		}
	}
	report.CleanCompanies = report.TotalCompanies - len(report.SuspiciousCompanies)

	zap.L().Debug("fraud: scan complete",
		zap.Int("total", report.TotalCompanies),
		zap.Int("suspicious", len(report.SuspiciousCompanies)),
		zap.Int("high_risk", report.HighRiskCount),
	)

	return report
}

// scoreRecord applies every heuristic to a single record and returns
// the accumulated score with one indicator string per fired heuristic.
func scoreRecord(c *model.CompanyRecord) (int, []string) {
	score := 0
	var indicators []string

	pay, hasPay := Dollars(0), false
	if c.AveragePay != nil {
		pay, hasPay = ParseLeadingDollars(*c.AveragePay)
	}

	if hasPay && pay > realisticHourlyCeiling {
		score += pointsUnrealisticPay
		indicators = append(indicators,
			fmt.Sprintf("advertised pay $%.0f exceeds realistic ceiling of $%d", float64(pay), realisticHourlyCeiling))
	}

	if c.Website == nil && c.ContactPhone == nil && c.ContactEmail == nil {
		score += pointsNoContact
		indicators = append(indicators, "no website, phone, or email on file")
	}

	// Compare against the alphanumeric-normalized name so spacing and
	// punctuation tricks ("EasyMoney", "Fast-Cash") still match.
	normName := normalizeName(c.Name)
	for _, w := range promotionalWords {
		if strings.Contains(normName, normalizeName(w)) {
			score += pointsPromotionalName
			indicators = append(indicators,
				fmt.Sprintf("promotional language in company name: %q", w))
			break
		}
	}

	license := model.StrVal(c.LicenseRequirements)
	if strings.Contains(strings.ToLower(license), "no license") {
		score += pointsNoLicenseClaim
		indicators = append(indicators, "claims no license is required")
	}

	insurance := model.StrVal(c.InsuranceRequirements)
	if hasPay && pay > 50 && strings.Contains(strings.ToLower(insurance), "none") {
		score += pointsHighPayNoInsure
		indicators = append(indicators, "high advertised pay with no insurance requirement")
	}

	if coversWorldwide(c.AreasServed) && (license == "" || strings.EqualFold(license, "none")) {
		score += pointsUnboundedCoverage
		indicators = append(indicators, "worldwide coverage with minimal requirements")
	}

	return score, indicators
}

func coversWorldwide(areas []string) bool {
	for _, a := range areas {
		if strings.EqualFold(strings.TrimSpace(a), "worldwide") {
			return true
		}
	}
	return false
}
