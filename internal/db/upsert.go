package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertSpec describes a bulk upsert into one table.
type UpsertSpec struct {
	Table     string   // may be schema-qualified
	Columns   []string // column order of each row
	Key       []string // unique constraint columns
	Overwrite []string // columns replaced on conflict; nil means every non-key column
}

func (s UpsertSpec) validate() error {
	if s.Table == "" {
		return eris.New("db: upsert: table is required")
	}
	if len(s.Columns) == 0 {
		return eris.New("db: upsert: no columns")
	}
	if len(s.Key) == 0 {
		return eris.New("db: upsert: no key columns")
	}
	return nil
}

func (s UpsertSpec) overwriteColumns() []string {
	if s.Overwrite != nil {
		return s.Overwrite
	}
	key := make(map[string]struct{}, len(s.Key))
	for _, k := range s.Key {
		key[k] = struct{}{}
	}
	var cols []string
	for _, c := range s.Columns {
		if _, ok := key[c]; !ok {
			cols = append(cols, c)
		}
	}
	return cols
}

// stagingTable is the temp table rows are copied into before the merge.
func (s UpsertSpec) stagingTable() string {
	return "_stage_" + strings.ReplaceAll(s.Table, ".", "_")
}

// mergeSQL is the INSERT ... SELECT ... ON CONFLICT statement that moves
// staged rows into the target.
func (s UpsertSpec) mergeSQL() string {
	cols := identList(s.Columns)
	overwrite := s.overwriteColumns()

	action := "DO NOTHING"
	if len(overwrite) > 0 {
		sets := make([]string, len(overwrite))
		for i, c := range overwrite {
			id := pgx.Identifier{c}.Sanitize()
			sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", id, id)
		}
		action = "DO UPDATE SET " + strings.Join(sets, ", ")
	}

	return fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) %s",
		tableIdent(s.Table), cols, cols,
		pgx.Identifier{s.stagingTable()}.Sanitize(),
		identList(s.Key), action)
}

// BulkUpsert stages rows in a temp table with COPY and merges them into the
// target in one transaction. It returns the number of rows merged.
func BulkUpsert(ctx context.Context, pool Pool, spec UpsertSpec, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := spec.validate(); err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	stage := pgx.Identifier{spec.stagingTable()}
	create := fmt.Sprintf("CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		stage.Sanitize(), tableIdent(spec.Table))
	if _, err := tx.Exec(ctx, create); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: stage %s", spec.Table)
	}

	if _, err := tx.CopyFrom(ctx, stage, spec.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: copy into stage for %s", spec.Table)
	}

	tag, err := tx.Exec(ctx, spec.mergeSQL())
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: merge %s", spec.Table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit")
	}
	return tag.RowsAffected(), nil
}

func tableIdent(table string) string {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return pgx.Identifier{schema, name}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

func identList(cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(out, ", ")
}
