// Package model defines the data types shared across the directory
// quality engine: company records and the reports it produces.
package model

import (
	"time"
)

// CompanyRecord is a single gig-economy company listing in the directory.
//
// ID and Name are always present. Every other field is optional, and
// absence is meaningful: the fraud scanner and completeness scorer treat
// a missing field differently from a present-but-empty one, so the
// fields that carry that distinction are pointers. Slice fields use nil
// for absent and an empty slice for present-but-empty.
type CompanyRecord struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`

	ServiceVertical string `json:"service_vertical,omitempty" db:"service_vertical"`
	Description     string `json:"description,omitempty" db:"description"`
	ContractType    string `json:"contract_type,omitempty" db:"contract_type"`
	Headquarters    string `json:"headquarters,omitempty" db:"headquarters"`
	YearEstablished int    `json:"year_established,omitempty" db:"year_established"`

	VehicleTypes           []string `json:"vehicle_types,omitempty" db:"vehicle_types"`
	AreasServed            []string `json:"areas_served,omitempty" db:"areas_served"`
	CertificationsRequired []string `json:"certifications_required,omitempty" db:"certifications_required"`

	Website               *string `json:"website,omitempty" db:"website"`
	AveragePay            *string `json:"average_pay,omitempty" db:"average_pay"`
	InsuranceRequirements *string `json:"insurance_requirements,omitempty" db:"insurance_requirements"`
	LicenseRequirements   *string `json:"license_requirements,omitempty" db:"license_requirements"`
	ContactPhone          *string `json:"contact_phone,omitempty" db:"contact_phone"`
	ContactEmail          *string `json:"contact_email,omitempty" db:"contact_email"`

	HasDuplicates bool `json:"has_duplicates" db:"has_duplicates"`

	// SourceKey identifies the external row a bulk import created this
	// record from, so re-importing the same file updates in place.
	SourceKey string `json:"source_key,omitempty" db:"source_key"`

	CreatedAt *time.Time `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// StrVal dereferences an optional string field, returning "" for absent.
func StrVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// StrPtr wraps a string as an optional field value.
func StrPtr(s string) *string {
	return &s
}
