package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsert_EmptyRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "companies",
		Columns:      []string{"name", "source_key"},
		ConflictKeys: []string{"source_key"},
	}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_MissingConfig(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := [][]any{{"Quick Delivery", "csv:qd"}}

	_, err = BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "companies",
		ConflictKeys: []string{"source_key"},
	}, rows)
	assert.Error(t, err)

	_, err = BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:   "companies",
		Columns: []string{"name", "source_key"},
	}, rows)
	assert.Error(t, err)
}

func TestBulkUpsert_HappyPath(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cfg := UpsertConfig{
		Table:        "companies",
		Columns:      []string{"name", "service_vertical", "source_key"},
		ConflictKeys: []string{"source_key"},
	}
	rows := [][]any{
		{"Quick Delivery", "courier", "csv:qd"},
		{"Metro Movers", "moving", "csv:mm"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_companies" \(LIKE "companies" INCLUDING DEFAULTS\) ON COMMIT DROP`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_companies"}, cfg.Columns).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "companies" \("name", "service_vertical", "source_key"\) SELECT (.+) FROM "_tmp_upsert_companies" ON CONFLICT \("source_key"\) DO UPDATE SET "name" = EXCLUDED."name", "service_vertical" = EXCLUDED."service_vertical"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, cfg, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_CopyFailureRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cfg := UpsertConfig{
		Table:        "companies",
		Columns:      []string{"name", "source_key"},
		ConflictKeys: []string{"source_key"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_companies"}, cfg.Columns).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, cfg, [][]any{{"Quick Delivery", "csv:qd"}})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
