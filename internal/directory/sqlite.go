package directory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/gigboard/directory-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Set fields are
// stored as JSON text columns; NULL keeps the absent/empty distinction.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures
// WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: sqlDB}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id                      INTEGER PRIMARY KEY AUTOINCREMENT,
	name                    TEXT NOT NULL,
	service_vertical        TEXT NOT NULL DEFAULT '',
	description             TEXT NOT NULL DEFAULT '',
	contract_type           TEXT NOT NULL DEFAULT '',
	headquarters            TEXT NOT NULL DEFAULT '',
	year_established        INTEGER NOT NULL DEFAULT 0,
	vehicle_types           TEXT,
	areas_served            TEXT,
	certifications_required TEXT,
	website                 TEXT,
	average_pay             TEXT,
	insurance_requirements  TEXT,
	license_requirements    TEXT,
	contact_phone           TEXT,
	contact_email           TEXT,
	has_duplicates          INTEGER NOT NULL DEFAULT 0,
	source_key              TEXT UNIQUE,
	created_at              DATETIME DEFAULT (datetime('now')),
	updated_at              DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_companies_name ON companies(name);
CREATE INDEX IF NOT EXISTS idx_companies_service_vertical ON companies(service_vertical);

CREATE TABLE IF NOT EXISTS scan_runs (
	id              TEXT PRIMARY KEY,
	kind            TEXT NOT NULL,
	total_companies INTEGER NOT NULL DEFAULT 0,
	report          TEXT NOT NULL,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_scan_runs_kind ON scan_runs(kind);
CREATE INDEX IF NOT EXISTS idx_scan_runs_created_at ON scan_runs(created_at);
`

// Migrate applies the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Ping verifies connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteCompanyColumns = `id, name, service_vertical, description, contract_type, headquarters,
	year_established, vehicle_types, areas_served, certifications_required,
	website, average_pay, insurance_requirements, license_requirements,
	contact_phone, contact_email, has_duplicates, COALESCE(source_key, ''), created_at, updated_at`

// ListCompanies returns the full directory ordered by id ascending.
func (s *SQLiteStore) ListCompanies(ctx context.Context) ([]model.CompanyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteCompanyColumns+` FROM companies ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list companies")
	}
	defer rows.Close()

	var companies []model.CompanyRecord
	for rows.Next() {
		c, err := scanSQLiteCompany(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, *c)
	}
	return companies, eris.Wrap(rows.Err(), "sqlite: list companies iterate")
}

// GetCompany fetches a company by id, returning nil when absent.
func (s *SQLiteStore) GetCompany(ctx context.Context, id int64) (*model.CompanyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteCompanyColumns+` FROM companies WHERE id=?`, id)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get company %d", id)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, eris.Wrap(rows.Err(), "sqlite: get company iterate")
	}
	return scanSQLiteCompany(rows)
}

// CreateCompany inserts a new record and sets its id.
func (s *SQLiteStore) CreateCompany(ctx context.Context, c *model.CompanyRecord) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO companies (
			name, service_vertical, description, contract_type, headquarters,
			year_established, vehicle_types, areas_served, certifications_required,
			website, average_pay, insurance_requirements, license_requirements,
			contact_phone, contact_email, has_duplicates, source_key, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.ServiceVertical, c.Description, c.ContractType, c.Headquarters,
		c.YearEstablished, jsonOrNull(c.VehicleTypes), jsonOrNull(c.AreasServed), jsonOrNull(c.CertificationsRequired),
		c.Website, c.AveragePay, c.InsuranceRequirements, c.LicenseRequirements,
		c.ContactPhone, c.ContactEmail, c.HasDuplicates, nilIfEmpty(c.SourceKey), now, now,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: create company")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return eris.Wrap(err, "sqlite: create company id")
	}
	c.ID = id
	c.CreatedAt = &now
	c.UpdatedAt = now
	return nil
}

// UpdateCompanyFields applies a partial update using the same column
// allowlist as the Postgres store.
func (s *SQLiteStore) UpdateCompanyFields(ctx context.Context, id int64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if !updatableColumns[k] {
			return eris.Errorf("sqlite: update company: unknown column %q", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	query := `UPDATE companies SET updated_at = datetime('now')`
	var args []any
	for _, k := range keys {
		query += fmt.Sprintf(`, %s = ?`, k)
		v := fields[k]
		if ss, ok := v.([]string); ok {
			v = jsonOrNull(ss)
		}
		args = append(args, v)
	}
	query += ` WHERE id = ?`
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update company %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: update company rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: company not found: %d", id)
	}
	return nil
}

// DeleteCompany removes a record, reporting whether it existed.
func (s *SQLiteStore) DeleteCompany(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM companies WHERE id=?`, id)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: delete company %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: delete company rows affected")
	}
	return n > 0, nil
}

// CountCompanies returns the directory size.
func (s *SQLiteStore) CountCompanies(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM companies`).Scan(&count)
	return count, eris.Wrap(err, "sqlite: count companies")
}

// ImportCompanies upserts records keyed by source_key inside a single
// transaction.
func (s *SQLiteStore) ImportCompanies(ctx context.Context, companies []model.CompanyRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: import begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	var imported int64
	for i := range companies {
		c := &companies[i]
		if c.SourceKey == "" {
			return imported, eris.Errorf("sqlite: import: record %q has no source key", c.Name)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO companies (
				name, service_vertical, description, contract_type, headquarters,
				year_established, vehicle_types, areas_served, certifications_required,
				website, average_pay, insurance_requirements, license_requirements,
				contact_phone, contact_email, source_key
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(source_key) DO UPDATE SET
				name=excluded.name, service_vertical=excluded.service_vertical,
				description=excluded.description, contract_type=excluded.contract_type,
				headquarters=excluded.headquarters, year_established=excluded.year_established,
				vehicle_types=excluded.vehicle_types, areas_served=excluded.areas_served,
				certifications_required=excluded.certifications_required,
				website=excluded.website, average_pay=excluded.average_pay,
				insurance_requirements=excluded.insurance_requirements,
				license_requirements=excluded.license_requirements,
				contact_phone=excluded.contact_phone, contact_email=excluded.contact_email,
				updated_at=datetime('now')`,
			c.Name, c.ServiceVertical, c.Description, c.ContractType, c.Headquarters,
			c.YearEstablished, jsonOrNull(c.VehicleTypes), jsonOrNull(c.AreasServed), jsonOrNull(c.CertificationsRequired),
			c.Website, c.AveragePay, c.InsuranceRequirements, c.LicenseRequirements,
			c.ContactPhone, c.ContactEmail, c.SourceKey,
		)
		if err != nil {
			return imported, eris.Wrapf(err, "sqlite: import %q", c.Name)
		}
		imported++
	}

	if err := tx.Commit(); err != nil {
		return imported, eris.Wrap(err, "sqlite: import commit")
	}
	return imported, nil
}

// SaveScanRun persists an audit record of one engine invocation.
func (s *SQLiteStore) SaveScanRun(ctx context.Context, run *model.ScanRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scan_runs (id, kind, total_companies, report, created_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, string(run.Kind), run.TotalCompanies, string(run.Report), run.CreatedAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: save scan run")
}

// GetScanRun fetches a scan run by id, returning nil when absent.
func (s *SQLiteStore) GetScanRun(ctx context.Context, id string) (*model.ScanRun, error) {
	var run model.ScanRun
	var report string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, kind, total_companies, report, created_at FROM scan_runs WHERE id=?`, id).
		Scan(&run.ID, &run.Kind, &run.TotalCompanies, &report, &run.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get scan run %s", id)
	}
	run.Report = json.RawMessage(report)
	return &run, nil
}

// ListScanRuns returns recent scan runs, optionally filtered by kind.
func (s *SQLiteStore) ListScanRuns(ctx context.Context, kind model.ScanKind, limit int) ([]model.ScanRun, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, kind, total_companies, report, created_at FROM scan_runs`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list scan runs")
	}
	defer rows.Close()

	var runs []model.ScanRun
	for rows.Next() {
		var run model.ScanRun
		var report string
		if err := rows.Scan(&run.ID, &run.Kind, &run.TotalCompanies, &report, &run.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan scan run")
		}
		run.Report = json.RawMessage(report)
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list scan runs iterate")
}

// scanSQLiteCompany reads one company row from a *sql.Rows positioned
// on a valid row.
func scanSQLiteCompany(rows *sql.Rows) (*model.CompanyRecord, error) {
	var c model.CompanyRecord
	var vehicles, areas, certs sql.NullString
	var createdAt sql.NullTime
	if err := rows.Scan(
		&c.ID, &c.Name, &c.ServiceVertical, &c.Description, &c.ContractType, &c.Headquarters,
		&c.YearEstablished, &vehicles, &areas, &certs,
		&c.Website, &c.AveragePay, &c.InsuranceRequirements, &c.LicenseRequirements,
		&c.ContactPhone, &c.ContactEmail, &c.HasDuplicates, &c.SourceKey, &createdAt, &c.UpdatedAt,
	); err != nil {
		return nil, eris.Wrap(err, "sqlite: scan company")
	}
	var err error
	if c.VehicleTypes, err = decodeStringList(vehicles); err != nil {
		return nil, err
	}
	if c.AreasServed, err = decodeStringList(areas); err != nil {
		return nil, err
	}
	if c.CertificationsRequired, err = decodeStringList(certs); err != nil {
		return nil, err
	}
	if createdAt.Valid {
		t := createdAt.Time
		c.CreatedAt = &t
	}
	return &c, nil
}

// jsonOrNull encodes a set field as JSON text, keeping nil as SQL NULL
// so a missing set stays distinguishable from a present-but-empty one.
func jsonOrNull(values []string) any {
	if values == nil {
		return nil
	}
	b, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return string(b)
}

func decodeStringList(v sql.NullString) ([]string, error) {
	if !v.Valid {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(v.String), &out); err != nil {
		return nil, eris.Wrap(err, "sqlite: decode string list")
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}
