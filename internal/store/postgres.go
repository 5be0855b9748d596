package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/FrankSpooren/HolidaiButler/internal/db"
	"github.com/FrankSpooren/HolidaiButler/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_fact_sheet":  `SELECT poi_id, data, updated_at FROM poi_fact_sheets WHERE poi_id = $1`,
	"get_staging":     `SELECT ` + stagingColumns + ` FROM poi_content_staging WHERE poi_id = $1 AND run_id = $2`,
	"get_production":  `SELECT poi_id, field_name, content, updated_at FROM poi_production WHERE poi_id = $1 AND field_name = $2`,
	"save_checkpoint": `INSERT INTO pipeline_checkpoints (run_id, data, updated_at) VALUES ($1, $2, $3) ON CONFLICT (run_id) DO UPDATE SET data = $2, updated_at = $3`,
	"load_checkpoint": `SELECT data FROM pipeline_checkpoints WHERE run_id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
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

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. The caller keeps ownership;
// Close becomes a no-op.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that need
// transactional access (promotion and rollback).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS poi_fact_sheets (
	poi_id      TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	destination TEXT NOT NULL DEFAULT '',
	tier        TEXT NOT NULL DEFAULT 'none',
	data        JSONB NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_fact_sheets_destination ON poi_fact_sheets(destination);
CREATE INDEX IF NOT EXISTS idx_fact_sheets_tier ON poi_fact_sheets(tier);

CREATE TABLE IF NOT EXISTS poi_production (
	poi_id     TEXT NOT NULL,
	field_name TEXT NOT NULL,
	content    TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (poi_id, field_name)
);

CREATE TABLE IF NOT EXISTS poi_content_staging (
	id                   BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	poi_id               TEXT NOT NULL,
	run_id               TEXT NOT NULL,
	field_name           TEXT NOT NULL DEFAULT 'description',
	tier                 TEXT NOT NULL DEFAULT 'none',
	candidate_text       TEXT NOT NULL,
	word_count           INTEGER NOT NULL DEFAULT 0,
	word_target_min      INTEGER NOT NULL DEFAULT 0,
	word_target_max      INTEGER NOT NULL DEFAULT 0,
	word_count_ok        BOOLEAN NOT NULL DEFAULT true,
	verification         JSONB,
	status               TEXT NOT NULL DEFAULT 'pending',
	recommendation       TEXT NOT NULL DEFAULT 'manual-review',
	rationale            TEXT NOT NULL DEFAULT '',
	old_content_snapshot TEXT NOT NULL DEFAULT '',
	reviewed_by          TEXT NOT NULL DEFAULT '',
	review_notes         TEXT NOT NULL DEFAULT '',
	reviewed_at          TIMESTAMPTZ,
	applied_at           TIMESTAMPTZ,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (poi_id, run_id)
);

CREATE INDEX IF NOT EXISTS idx_staging_run_id ON poi_content_staging(run_id);
CREATE INDEX IF NOT EXISTS idx_staging_status ON poi_content_staging(status);

CREATE TABLE IF NOT EXISTS poi_content_history (
	id            BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	poi_id        TEXT NOT NULL,
	field_name    TEXT NOT NULL,
	old_content   TEXT NOT NULL DEFAULT '',
	new_content   TEXT NOT NULL DEFAULT '',
	change_source TEXT NOT NULL,
	run_id        TEXT NOT NULL DEFAULT '',
	staging_id    BIGINT,
	changed_by    TEXT NOT NULL DEFAULT '',
	changed_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_history_poi_field ON poi_content_history(poi_id, field_name, changed_at DESC);

CREATE TABLE IF NOT EXISTS pipeline_checkpoints (
	run_id     TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// stagingColumns is the column list shared by every staging SELECT so scans
// stay in one place.
const stagingColumns = `id, poi_id, run_id, field_name, tier, candidate_text, word_count, word_target_min, word_target_max, word_count_ok, verification, status, recommendation, rationale, old_content_snapshot, reviewed_by, review_notes, reviewed_at, applied_at, created_at, updated_at`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertFactSheets(ctx context.Context, sheets []model.FactSheet) (int64, error) {
	if len(sheets) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(sheets))
	now := time.Now().UTC()
	for i := range sheets {
		fs := &sheets[i]
		data, err := json.Marshal(fs)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: marshal fact sheet %s", fs.POIID)
		}
		rows = append(rows, []any{fs.POIID, fs.Name, fs.Category, fs.Destination, string(fs.Tier), data, now})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "poi_fact_sheets",
		Columns:      []string{"poi_id", "name", "category", "destination", "tier", "data", "updated_at"},
		ConflictKeys: []string{"poi_id"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert fact sheets")
	}
	return n, nil
}

func (s *PostgresStore) GetFactSheet(ctx context.Context, poiID string) (*model.FactSheet, error) {
	var data []byte
	var updatedAt time.Time
	var id string

	err := s.pool.QueryRow(ctx,
		`SELECT poi_id, data, updated_at FROM poi_fact_sheets WHERE poi_id = $1`,
		poiID,
	).Scan(&id, &data, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get fact sheet %s", poiID)
	}

	var fs model.FactSheet
	if err := json.Unmarshal(data, &fs); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal fact sheet")
	}
	fs.POIID = id
	fs.UpdatedAt = updatedAt
	return &fs, nil
}

func (s *PostgresStore) ListFactSheets(ctx context.Context, filter FactSheetFilter) ([]model.FactSheet, error) {
	query := `SELECT poi_id, data, updated_at FROM poi_fact_sheets WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Destination != "" {
		query += fmt.Sprintf(` AND destination = $%d`, argIdx)
		args = append(args, filter.Destination)
		argIdx++
	}
	if filter.Tier != "" {
		query += fmt.Sprintf(` AND tier = $%d`, argIdx)
		args = append(args, string(filter.Tier))
		argIdx++
	}
	query += ` ORDER BY poi_id`

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list fact sheets")
	}
	defer rows.Close()

	var sheets []model.FactSheet
	for rows.Next() {
		var id string
		var data []byte
		var updatedAt time.Time
		if err := rows.Scan(&id, &data, &updatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan fact sheet")
		}
		var fs model.FactSheet
		if err := json.Unmarshal(data, &fs); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal fact sheet")
		}
		fs.POIID = id
		fs.UpdatedAt = updatedAt
		sheets = append(sheets, fs)
	}
	return sheets, eris.Wrap(rows.Err(), "postgres: list fact sheets iterate")
}

func (s *PostgresStore) CountFactSheetsByTier(ctx context.Context) (map[model.Tier]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT tier, COUNT(*) FROM poi_fact_sheets GROUP BY tier`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count fact sheets by tier")
	}
	defer rows.Close()

	counts := make(map[model.Tier]int)
	for rows.Next() {
		var tier string
		var n int
		if err := rows.Scan(&tier, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan tier count")
		}
		counts[model.Tier(tier)] = n
	}
	return counts, eris.Wrap(rows.Err(), "postgres: count fact sheets iterate")
}

func (s *PostgresStore) UpsertStaging(ctx context.Context, row *model.StagingRow) (int64, error) {
	verJSON, err := marshalVerification(row.Verification)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: marshal verification %s", row.POIID)
	}

	now := time.Now().UTC()
	var id int64
	err = s.pool.QueryRow(ctx,
		`INSERT INTO poi_content_staging
		 (poi_id, run_id, field_name, tier, candidate_text, word_count, word_target_min, word_target_max,
		  word_count_ok, verification, status, recommendation, rationale, old_content_snapshot, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
		 ON CONFLICT (poi_id, run_id) DO UPDATE SET
		   field_name = $3, tier = $4, candidate_text = $5, word_count = $6,
		   word_target_min = $7, word_target_max = $8, word_count_ok = $9,
		   verification = $10, status = $11, recommendation = $12, rationale = $13,
		   old_content_snapshot = $14, updated_at = $15
		 RETURNING id`,
		row.POIID, row.RunID, row.FieldName, string(row.Tier), row.CandidateText,
		row.WordCount, row.WordTargetMin, row.WordTargetMax, row.WordCountOK,
		verJSON, string(row.Status), string(row.Recommendation), row.Rationale,
		row.OldContentSnapshot, now,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: upsert staging %s", row.POIID)
	}
	return id, nil
}

func (s *PostgresStore) GetStaging(ctx context.Context, poiID, runID string) (*model.StagingRow, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+stagingColumns+` FROM poi_content_staging WHERE poi_id = $1 AND run_id = $2`,
		poiID, runID,
	)
	sr, err := scanStaging(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get staging %s/%s", poiID, runID)
	}
	return sr, nil
}

func (s *PostgresStore) GetStagingByID(ctx context.Context, id int64) (*model.StagingRow, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+stagingColumns+` FROM poi_content_staging WHERE id = $1`,
		id,
	)
	sr, err := scanStaging(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get staging id %d", id)
	}
	return sr, nil
}

func (s *PostgresStore) ListStaging(ctx context.Context, filter StagingFilter) ([]model.StagingRow, error) {
	query := `SELECT ` + stagingColumns + ` FROM poi_content_staging WHERE true`
	args := []any{}
	argIdx := 1

	if filter.RunID != "" {
		query += fmt.Sprintf(` AND run_id = $%d`, argIdx)
		args = append(args, filter.RunID)
		argIdx++
	}
	if filter.POIID != "" {
		query += fmt.Sprintf(` AND poi_id = $%d`, argIdx)
		args = append(args, filter.POIID)
		argIdx++
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		query += fmt.Sprintf(` AND status = ANY($%d)`, argIdx)
		args = append(args, statuses)
		argIdx++
	}
	query += ` ORDER BY poi_id`

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list staging")
	}
	defer rows.Close()

	var result []model.StagingRow
	for rows.Next() {
		sr, err := scanStaging(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan staging")
		}
		result = append(result, *sr)
	}
	return result, eris.Wrap(rows.Err(), "postgres: list staging iterate")
}

func (s *PostgresStore) UpdateStagingStatus(ctx context.Context, id int64, status model.StagingStatus, reviewedBy, notes string) error {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE poi_content_staging
		 SET status = $1, reviewed_by = $2, review_notes = $3, reviewed_at = $4, updated_at = $4
		 WHERE id = $5`,
		string(status), reviewedBy, notes, now, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update staging status %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("staging row not found: %d", id)
	}
	return nil
}

func (s *PostgresStore) UpdateStagingCandidate(ctx context.Context, id int64, candidateText string, wordCount int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE poi_content_staging SET candidate_text = $1, word_count = $2, updated_at = $3 WHERE id = $4`,
		candidateText, wordCount, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update staging candidate %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("staging row not found: %d", id)
	}
	return nil
}

func (s *PostgresStore) ClearStagingRun(ctx context.Context, runID string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM poi_content_staging WHERE run_id = $1 AND status NOT IN ('applied')`,
		runID,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: clear staging run %s", runID)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) CountStagingByStatus(ctx context.Context, runID string) (map[model.StagingStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM poi_content_staging`
	args := []any{}
	if runID != "" {
		query += ` WHERE run_id = $1`
		args = append(args, runID)
	}
	query += ` GROUP BY status`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count staging by status")
	}
	defer rows.Close()

	counts := make(map[model.StagingStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan status count")
		}
		counts[model.StagingStatus(status)] = n
	}
	return counts, eris.Wrap(rows.Err(), "postgres: count staging iterate")
}

func (s *PostgresStore) GetProduction(ctx context.Context, poiID, fieldName string) (*model.ProductionContent, error) {
	var pc model.ProductionContent
	err := s.pool.QueryRow(ctx,
		`SELECT poi_id, field_name, content, updated_at FROM poi_production WHERE poi_id = $1 AND field_name = $2`,
		poiID, fieldName,
	).Scan(&pc.POIID, &pc.FieldName, &pc.Content, &pc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get production %s/%s", poiID, fieldName)
	}
	return &pc, nil
}

func (s *PostgresStore) UpsertProduction(ctx context.Context, pc *model.ProductionContent) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO poi_production (poi_id, field_name, content, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (poi_id, field_name) DO UPDATE SET content = $3, updated_at = $4`,
		pc.POIID, pc.FieldName, pc.Content, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: upsert production %s/%s", pc.POIID, pc.FieldName)
}

func (s *PostgresStore) ListAuditEntries(ctx context.Context, poiID, fieldName string, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, poi_id, field_name, old_content, new_content, change_source, run_id, COALESCE(staging_id, 0), changed_by, changed_at
		 FROM poi_content_history
		 WHERE poi_id = $1 AND field_name = $2
		 ORDER BY changed_at DESC LIMIT $3`,
		poiID, fieldName, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list audit entries")
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var source string
		if err := rows.Scan(&e.ID, &e.POIID, &e.FieldName, &e.OldContent, &e.NewContent,
			&source, &e.RunID, &e.StagingID, &e.ChangedBy, &e.ChangedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan audit entry")
		}
		e.ChangeSource = model.ChangeSource(source)
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list audit entries iterate")
}

func (s *PostgresStore) SaveCheckpoint(ctx context.Context, runID string, data []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO pipeline_checkpoints (run_id, data, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (run_id) DO UPDATE SET data = $2, updated_at = $3`,
		runID, data, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: save checkpoint")
}

func (s *PostgresStore) LoadCheckpoint(ctx context.Context, runID string) ([]byte, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM pipeline_checkpoints WHERE run_id = $1`,
		runID,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: load checkpoint")
	}
	return data, nil
}

func (s *PostgresStore) DeleteCheckpoint(ctx context.Context, runID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM pipeline_checkpoints WHERE run_id = $1`,
		runID,
	)
	return eris.Wrap(err, "postgres: delete checkpoint")
}

func marshalVerification(v *model.Verification) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// scanStaging reads one staging row. It works for both QueryRow and Query
// results via the pgx.Row interface.
func scanStaging(row pgx.Row) (*model.StagingRow, error) {
	var sr model.StagingRow
	var tier, status, recommendation string
	var verJSON []byte

	err := row.Scan(&sr.ID, &sr.POIID, &sr.RunID, &sr.FieldName, &tier,
		&sr.CandidateText, &sr.WordCount, &sr.WordTargetMin, &sr.WordTargetMax,
		&sr.WordCountOK, &verJSON, &status, &recommendation, &sr.Rationale,
		&sr.OldContentSnapshot, &sr.ReviewedBy, &sr.ReviewNotes,
		&sr.ReviewedAt, &sr.AppliedAt, &sr.CreatedAt, &sr.UpdatedAt)
	if err != nil {
		return nil, err
	}

	sr.Tier = model.Tier(tier)
	sr.Status = model.StagingStatus(status)
	sr.Recommendation = model.Recommendation(recommendation)
	if len(verJSON) > 0 {
		sr.Verification = &model.Verification{}
		if err := json.Unmarshal(verJSON, sr.Verification); err != nil {
			return nil, eris.Wrap(err, "unmarshal verification")
		}
	}
	return &sr, nil
}
