package directory

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/gigboard/directory-cli/internal/model"
)

// setFieldSeparator splits multi-value CSV cells (vehicle_types etc.).
const setFieldSeparator = ";"

// ParseCSV reads company listings from a header-mapped CSV file. The
// only required column is "name"; rows without one are skipped. A
// source_key column drives upsert identity on re-import; rows without
// one get a key derived from the name.
func ParseCSV(path string) ([]model.CompanyRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "directory: open csv %s", path)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "directory: read csv")
	}

	if len(records) < 2 {
		return nil, nil // header only or empty
	}

	headers := records[0]
	var companies []model.CompanyRecord
	for _, row := range records[1:] {
		mapped := mapRow(headers, row)

		name := strings.TrimSpace(mapped["name"])
		if name == "" {
			continue
		}

		c := model.CompanyRecord{
			Name:            name,
			ServiceVertical: strings.TrimSpace(mapped["service_vertical"]),
			Description:     strings.TrimSpace(mapped["description"]),
			ContractType:    strings.TrimSpace(mapped["contract_type"]),
			Headquarters:    strings.TrimSpace(mapped["headquarters"]),

			VehicleTypes:           splitSetField(mapped["vehicle_types"]),
			AreasServed:            splitSetField(mapped["areas_served"]),
			CertificationsRequired: splitSetField(mapped["certifications_required"]),

			Website:               optionalField(mapped["website"]),
			AveragePay:            optionalField(mapped["average_pay"]),
			InsuranceRequirements: optionalField(mapped["insurance_requirements"]),
			LicenseRequirements:   optionalField(mapped["license_requirements"]),
			ContactPhone:          optionalField(mapped["contact_phone"]),
			ContactEmail:          optionalField(mapped["contact_email"]),
		}

		if y := strings.TrimSpace(mapped["year_established"]); y != "" {
			year, err := strconv.Atoi(y)
			if err != nil {
				return nil, eris.Wrapf(err, "directory: bad year_established for %q", name)
			}
			c.YearEstablished = year
		}

		c.SourceKey = strings.TrimSpace(mapped["source_key"])
		if c.SourceKey == "" {
			c.SourceKey = "csv:" + slugify(name)
		}

		companies = append(companies, c)
	}

	return companies, nil
}

// mapRow pairs each header with the corresponding value in the row.
// Headers are lowercased so column order and casing don't matter.
func mapRow(headers []string, row []string) map[string]string {
	result := make(map[string]string, len(headers))
	for i, h := range headers {
		key := strings.ToLower(strings.TrimSpace(h))
		if i < len(row) {
			result[key] = row[i]
		} else {
			result[key] = ""
		}
	}
	return result
}

func splitSetField(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, setFieldSeparator) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func optionalField(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// slugify lowercases a name and collapses non-alphanumerics to dashes.
func slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
