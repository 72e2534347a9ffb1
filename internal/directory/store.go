// Package directory persists company records and scan-run audit
// entries. Two backends are provided: Postgres via pgx and SQLite via
// modernc.org/sqlite, selected by store.driver in config.
package directory

import (
	"context"

	"github.com/gigboard/directory-cli/internal/model"
)

// Store defines the persistence operations the quality engine and CLI
// need. ListCompanies must return records ordered by id ascending so
// clustering output is reproducible across runs.
type Store interface {
	// Companies
	ListCompanies(ctx context.Context) ([]model.CompanyRecord, error)
	GetCompany(ctx context.Context, id int64) (*model.CompanyRecord, error)
	CreateCompany(ctx context.Context, c *model.CompanyRecord) error
	UpdateCompanyFields(ctx context.Context, id int64, fields map[string]any) error
	DeleteCompany(ctx context.Context, id int64) (bool, error)
	CountCompanies(ctx context.Context) (int, error)
	ImportCompanies(ctx context.Context, companies []model.CompanyRecord) (int64, error)

	// Scan runs
	SaveScanRun(ctx context.Context, run *model.ScanRun) error
	GetScanRun(ctx context.Context, id string) (*model.ScanRun, error)
	ListScanRuns(ctx context.Context, kind model.ScanKind, limit int) ([]model.ScanRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// updatableColumns is the allowlist for UpdateCompanyFields. Keys not
// present here are rejected before any SQL is built.
var updatableColumns = map[string]bool{
	"name":                    true,
	"service_vertical":        true,
	"description":             true,
	"contract_type":           true,
	"headquarters":            true,
	"year_established":        true,
	"vehicle_types":           true,
	"areas_served":            true,
	"certifications_required": true,
	"website":                 true,
	"average_pay":             true,
	"insurance_requirements":  true,
	"license_requirements":    true,
	"contact_phone":           true,
	"contact_email":           true,
	"has_duplicates":          true,
}
