package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var leadSpec = UpsertSpec{
	Table:   "leads",
	Columns: []string{"contact_id", "profile", "updated_at"},
	Key:     []string{"contact_id"},
}

func TestBulkUpsert_EmptyRowsSkipsDatabase(t *testing.T) {
	n, err := BulkUpsert(context.Background(), nil, leadSpec, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBulkUpsert_Validation(t *testing.T) {
	rows := [][]any{{"c-1", []byte("{}"), nil}}

	_, err := BulkUpsert(context.Background(), nil, UpsertSpec{Columns: []string{"a"}, Key: []string{"a"}}, rows)
	assert.ErrorContains(t, err, "table is required")

	_, err = BulkUpsert(context.Background(), nil, UpsertSpec{Table: "leads", Key: []string{"a"}}, rows)
	assert.ErrorContains(t, err, "no columns")

	_, err = BulkUpsert(context.Background(), nil, UpsertSpec{Table: "leads", Columns: []string{"a"}}, rows)
	assert.ErrorContains(t, err, "no key columns")
}

func TestBulkUpsert_StagesCopiesAndMerges(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := [][]any{
		{"c-1", []byte(`{"contact_id":"c-1"}`), nil},
		{"c-2", []byte(`{"contact_id":"c-2"}`), nil},
	}

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_leads"}, leadSpec.Columns).WillReturnResult(2)
	mock.ExpectExec("INSERT INTO").WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, leadSpec, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_CopyFailureRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_leads"}, leadSpec.Columns).WillReturnError(errors.New("copy failed"))
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, leadSpec, [][]any{{"c-1", []byte("{}"), nil}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy into stage for leads")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSpec_MergeSQL(t *testing.T) {
	assert.Equal(t,
		`INSERT INTO "leads" ("contact_id", "profile", "updated_at") SELECT "contact_id", "profile", "updated_at" FROM "_stage_leads" ON CONFLICT ("contact_id") DO UPDATE SET "profile" = EXCLUDED."profile", "updated_at" = EXCLUDED."updated_at"`,
		leadSpec.mergeSQL())

	keyOnly := UpsertSpec{Table: "scoring.seen", Columns: []string{"id"}, Key: []string{"id"}}
	assert.Equal(t,
		`INSERT INTO "scoring"."seen" ("id") SELECT "id" FROM "_stage_scoring_seen" ON CONFLICT ("id") DO NOTHING`,
		keyOnly.mergeSQL())
}
