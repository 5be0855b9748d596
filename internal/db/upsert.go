package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig describes one bulk merge target.
type UpsertConfig struct {
	Table        string   // optionally schema-qualified
	Columns      []string // column order must match the row values
	ConflictKeys []string // unique constraint columns
	UpdateCols   []string // defaults to every non-key column
}

// BulkUpsert merges rows into cfg.Table in a single transaction: COPY into a
// session temp table, then INSERT ... ON CONFLICT DO UPDATE from it. Ingest
// and staging batches arrive hundreds of rows at a time, which COPY handles
// far better than row-wise inserts. Returns the number of rows merged.
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := cfg.validate(); err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx)

	staging := "_load_" + strings.ReplaceAll(cfg.Table, ".", "_")
	createSQL := "CREATE TEMP TABLE " + pgx.Identifier{staging}.Sanitize() +
		" (LIKE " + tableIdent(cfg.Table) + " INCLUDING DEFAULTS) ON COMMIT DROP"
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: create temp table for %s", cfg.Table)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{staging}, cfg.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: copy into temp table for %s", cfg.Table)
	}

	tag, err := tx.Exec(ctx, cfg.mergeSQL(staging))
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: merge into %s", cfg.Table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}
	return tag.RowsAffected(), nil
}

func (c UpsertConfig) validate() error {
	if c.Table == "" {
		return eris.New("db: upsert: no table specified")
	}
	if len(c.Columns) == 0 {
		return eris.New("db: upsert: no columns specified")
	}
	if len(c.ConflictKeys) == 0 {
		return eris.New("db: upsert: no conflict keys specified")
	}
	return nil
}

// mergeSQL builds the INSERT ... ON CONFLICT DO UPDATE that moves rows from
// the temp table into the target.
func (c UpsertConfig) mergeSQL(staging string) string {
	cols := identList(c.Columns)

	updates := c.UpdateCols
	if updates == nil {
		keys := make(map[string]bool, len(c.ConflictKeys))
		for _, k := range c.ConflictKeys {
			keys[k] = true
		}
		for _, col := range c.Columns {
			if !keys[col] {
				updates = append(updates, col)
			}
		}
	}
	assignments := make([]string, len(updates))
	for i, col := range updates {
		ident := pgx.Identifier{col}.Sanitize()
		assignments[i] = ident + " = EXCLUDED." + ident
	}

	var b strings.Builder
	b.WriteString("INSERT INTO " + tableIdent(c.Table) + " (" + cols + ")")
	b.WriteString(" SELECT " + cols + " FROM " + pgx.Identifier{staging}.Sanitize())
	b.WriteString(" ON CONFLICT (" + identList(c.ConflictKeys) + ")")
	b.WriteString(" DO UPDATE SET " + strings.Join(assignments, ", "))
	return b.String()
}

// tableIdent quotes a table name, keeping any schema qualifier intact.
func tableIdent(table string) string {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return pgx.Identifier{schema, name}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

func identList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
