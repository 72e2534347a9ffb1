package directory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/gigboard/directory-cli/internal/db"
	"github.com/gigboard/directory-cli/internal/model"
)

// PostgresStore implements Store using pgx.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id                      BIGSERIAL PRIMARY KEY,
	name                    TEXT NOT NULL,
	service_vertical        TEXT NOT NULL DEFAULT '',
	description             TEXT NOT NULL DEFAULT '',
	contract_type           TEXT NOT NULL DEFAULT '',
	headquarters            TEXT NOT NULL DEFAULT '',
	year_established        INTEGER NOT NULL DEFAULT 0,
	vehicle_types           TEXT[],
	areas_served            TEXT[],
	certifications_required TEXT[],
	website                 TEXT,
	average_pay             TEXT,
	insurance_requirements  TEXT,
	license_requirements    TEXT,
	contact_phone           TEXT,
	contact_email           TEXT,
	has_duplicates          BOOLEAN NOT NULL DEFAULT false,
	source_key              TEXT UNIQUE,
	created_at              TIMESTAMPTZ DEFAULT now(),
	updated_at              TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_companies_name ON companies(name);
CREATE INDEX IF NOT EXISTS idx_companies_service_vertical ON companies(service_vertical);

CREATE TABLE IF NOT EXISTS scan_runs (
	id              TEXT PRIMARY KEY,
	kind            TEXT NOT NULL,
	total_companies INTEGER NOT NULL DEFAULT 0,
	report          JSONB NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_scan_runs_kind ON scan_runs(kind);
CREATE INDEX IF NOT EXISTS idx_scan_runs_created_at ON scan_runs(created_at DESC);
`

// Migrate applies the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Ping verifies connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// companyColumns is the standard column list for company queries.
const companyColumns = `id, name, service_vertical, description, contract_type, headquarters,
	year_established, vehicle_types, areas_served, certifications_required,
	website, average_pay, insurance_requirements, license_requirements,
	contact_phone, contact_email, has_duplicates, COALESCE(source_key, ''), created_at, updated_at`

// companyDests returns scan destinations matching companyColumns.
func companyDests(c *model.CompanyRecord) []any {
	return []any{
		&c.ID, &c.Name, &c.ServiceVertical, &c.Description, &c.ContractType, &c.Headquarters,
		&c.YearEstablished, &c.VehicleTypes, &c.AreasServed, &c.CertificationsRequired,
		&c.Website, &c.AveragePay, &c.InsuranceRequirements, &c.LicenseRequirements,
		&c.ContactPhone, &c.ContactEmail, &c.HasDuplicates, &c.SourceKey, &c.CreatedAt, &c.UpdatedAt,
	}
}

// ListCompanies returns the full directory ordered by id ascending.
func (s *PostgresStore) ListCompanies(ctx context.Context) ([]model.CompanyRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+companyColumns+` FROM companies ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list companies")
	}
	defer rows.Close()

	var companies []model.CompanyRecord
	for rows.Next() {
		var c model.CompanyRecord
		if err := rows.Scan(companyDests(&c)...); err != nil {
			return nil, eris.Wrap(err, "postgres: scan company")
		}
		companies = append(companies, c)
	}
	return companies, eris.Wrap(rows.Err(), "postgres: list companies iterate")
}

// GetCompany fetches a company by id, returning nil when absent.
func (s *PostgresStore) GetCompany(ctx context.Context, id int64) (*model.CompanyRecord, error) {
	c := &model.CompanyRecord{}
	err := s.pool.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id=$1`, id).
		Scan(companyDests(c)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get company %d", id)
	}
	return c, nil
}

// CreateCompany inserts a new record and sets its id and timestamps.
func (s *PostgresStore) CreateCompany(ctx context.Context, c *model.CompanyRecord) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO companies (
			name, service_vertical, description, contract_type, headquarters,
			year_established, vehicle_types, areas_served, certifications_required,
			website, average_pay, insurance_requirements, license_requirements,
			contact_phone, contact_email, has_duplicates, source_key
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13,
			$14, $15, $16, $17
		) RETURNING id, created_at, updated_at`,
		c.Name, c.ServiceVertical, c.Description, c.ContractType, c.Headquarters,
		c.YearEstablished, c.VehicleTypes, c.AreasServed, c.CertificationsRequired,
		c.Website, c.AveragePay, c.InsuranceRequirements, c.LicenseRequirements,
		c.ContactPhone, c.ContactEmail, c.HasDuplicates, nilIfEmpty(c.SourceKey),
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return eris.Wrap(err, "postgres: create company")
	}
	return nil
}

// UpdateCompanyFields applies a partial update. Field keys must appear
// in the updatable-column allowlist; the SET clause is built in sorted
// key order so generated SQL is deterministic.
func (s *PostgresStore) UpdateCompanyFields(ctx context.Context, id int64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if !updatableColumns[k] {
			return eris.Errorf("postgres: update company: unknown column %q", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	query := `UPDATE companies SET updated_at = now()`
	args := []any{id}
	argIdx := 2
	for _, k := range keys {
		query += fmt.Sprintf(`, %s = $%d`, k, argIdx)
		args = append(args, fields[k])
		argIdx++
	}
	query += ` WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update company %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: company not found: %d", id)
	}
	return nil
}

// DeleteCompany removes a record, reporting whether it existed.
func (s *PostgresStore) DeleteCompany(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM companies WHERE id=$1`, id)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: delete company %d", id)
	}
	return tag.RowsAffected() > 0, nil
}

// CountCompanies returns the directory size.
func (s *PostgresStore) CountCompanies(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM companies`).Scan(&count)
	return count, eris.Wrap(err, "postgres: count companies")
}

// importColumns is the column set for bulk CSV import.
var importColumns = []string{
	"name", "service_vertical", "description", "contract_type", "headquarters",
	"year_established", "vehicle_types", "areas_served", "certifications_required",
	"website", "average_pay", "insurance_requirements", "license_requirements",
	"contact_phone", "contact_email", "source_key",
}

// ImportCompanies bulk-loads records keyed by source_key, updating rows
// from a previous import of the same file instead of duplicating them.
func (s *PostgresStore) ImportCompanies(ctx context.Context, companies []model.CompanyRecord) (int64, error) {
	rows := make([][]any, 0, len(companies))
	for i := range companies {
		c := &companies[i]
		if c.SourceKey == "" {
			return 0, eris.Errorf("postgres: import: record %q has no source key", c.Name)
		}
		rows = append(rows, []any{
			c.Name, c.ServiceVertical, c.Description, c.ContractType, c.Headquarters,
			c.YearEstablished, c.VehicleTypes, c.AreasServed, c.CertificationsRequired,
			c.Website, c.AveragePay, c.InsuranceRequirements, c.LicenseRequirements,
			c.ContactPhone, c.ContactEmail, c.SourceKey,
		})
	}
	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "companies",
		Columns:      importColumns,
		ConflictKeys: []string{"source_key"},
	}, rows)
}

// SaveScanRun persists an audit record of one engine invocation.
func (s *PostgresStore) SaveScanRun(ctx context.Context, run *model.ScanRun) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO scan_runs (id, kind, total_companies, report, created_at) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, string(run.Kind), run.TotalCompanies, []byte(run.Report), run.CreatedAt,
	)
	return eris.Wrap(err, "postgres: save scan run")
}

// GetScanRun fetches a scan run by id, returning nil when absent.
func (s *PostgresStore) GetScanRun(ctx context.Context, id string) (*model.ScanRun, error) {
	var run model.ScanRun
	var report []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, kind, total_companies, report, created_at FROM scan_runs WHERE id=$1`, id).
		Scan(&run.ID, &run.Kind, &run.TotalCompanies, &report, &run.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get scan run %s", id)
	}
	run.Report = report
	return &run, nil
}

// ListScanRuns returns recent scan runs, optionally filtered by kind.
func (s *PostgresStore) ListScanRuns(ctx context.Context, kind model.ScanKind, limit int) ([]model.ScanRun, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, kind, total_companies, report, created_at FROM scan_runs`
	args := []any{}
	argIdx := 1
	if kind != "" {
		query += fmt.Sprintf(` WHERE kind = $%d`, argIdx)
		args = append(args, string(kind))
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list scan runs")
	}
	defer rows.Close()

	var runs []model.ScanRun
	for rows.Next() {
		var run model.ScanRun
		var report []byte
		if err := rows.Scan(&run.ID, &run.Kind, &run.TotalCompanies, &report, &run.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan scan run")
		}
		run.Report = report
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list scan runs iterate")
}

func nilIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
