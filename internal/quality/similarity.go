// Package quality implements the directory quality engine: weighted
// company similarity scoring, greedy duplicate clustering, heuristic
// fraud scanning, and duplicate-group merge/cleanup.
package quality

import (
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
	"golang.org/x/text/unicode/norm"

	"github.com/gigboard/directory-cli/internal/model"
)

// Factor weights for the similarity score. A factor only participates
// when both records carry data for it; the final score is normalized by
// the sum of the weights that applied.
const (
	weightName     = 0.40
	weightVertical = 0.20
	weightVehicles = 0.15
	weightAreas    = 0.10
	weightDomain   = 0.15

	// minDenominator guards the normalization against a division by
	// zero when no factor applies at all.
	minDenominator = 1e-9
)

// Similarity computes a weighted similarity score between two company
// records in [0, 1]. It is symmetric and pure.
func Similarity(a, b *model.CompanyRecord) float64 {
	var sum, denom float64

	na, nb := normalizeName(a.Name), normalizeName(b.Name)
	if na != "" && nb != "" {
		score := 1.0
		if na != nb {
			score = levenshtein.Similarity(na, nb, nil)
		}
		sum += weightName * score
		denom += weightName
	}

	if a.ServiceVertical != "" && b.ServiceVertical != "" {
		if strings.EqualFold(a.ServiceVertical, b.ServiceVertical) {
			sum += weightVertical
		}
		denom += weightVertical
	}

	if len(a.VehicleTypes) > 0 && len(b.VehicleTypes) > 0 {
		sum += weightVehicles * jaccard(a.VehicleTypes, b.VehicleTypes)
		denom += weightVehicles
	}

	if len(a.AreasServed) > 0 && len(b.AreasServed) > 0 {
		sum += weightAreas * jaccard(a.AreasServed, b.AreasServed)
		denom += weightAreas
	}

	da, db := registrableDomain(model.StrVal(a.Website)), registrableDomain(model.StrVal(b.Website))
	if da != "" && db != "" {
		if da == db {
			sum += weightDomain
		}
		denom += weightDomain
	}

	if denom < minDenominator {
		return 0
	}
	return clamp01(sum / denom)
}

// normalizeName lowercases a company name and strips everything that is
// not a letter or digit. Unicode is NFKD-decomposed first so accented
// characters compare equal to their base form.
func normalizeName(s string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// registrableDomain strips scheme, www prefix, port, and path from a
// URL, leaving the bare host for exact comparison.
func registrableDomain(rawURL string) string {
	d := strings.ToLower(strings.TrimSpace(rawURL))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	if i := strings.IndexByte(d, ':'); i >= 0 {
		d = d[:i]
	}
	return d
}

// jaccard computes |A∩B| / |A∪B| over two string sets, comparing
// case-insensitively with surrounding whitespace ignored.
func jaccard(a, b []string) float64 {
	union := make(map[string]bool, len(a)+len(b))
	setA := make(map[string]bool, len(a))
	for _, v := range a {
		k := normalizeSetValue(v)
		if k == "" {
			continue
		}
		setA[k] = true
		union[k] = true
	}
	inter := 0
	for _, v := range b {
		k := normalizeSetValue(v)
		if k == "" {
			continue
		}
		if setA[k] {
			// Count each intersecting value once.
			delete(setA, k)
			inter++
		}
		union[k] = true
	}
	if len(union) == 0 {
		return 0
	}
	return float64(inter) / float64(len(union))
}

func normalizeSetValue(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
