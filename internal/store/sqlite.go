package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/FrankSpooren/HolidaiButler/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It backs offline
// and development runs; promotion requires the Postgres store.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS poi_fact_sheets (
	poi_id      TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	destination TEXT NOT NULL DEFAULT '',
	tier        TEXT NOT NULL DEFAULT 'none',
	data        TEXT NOT NULL,
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_fact_sheets_destination ON poi_fact_sheets(destination);
CREATE INDEX IF NOT EXISTS idx_fact_sheets_tier ON poi_fact_sheets(tier);

CREATE TABLE IF NOT EXISTS poi_production (
	poi_id     TEXT NOT NULL,
	field_name TEXT NOT NULL,
	content    TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (poi_id, field_name)
);

CREATE TABLE IF NOT EXISTS poi_content_staging (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	poi_id               TEXT NOT NULL,
	run_id               TEXT NOT NULL,
	field_name           TEXT NOT NULL DEFAULT 'description',
	tier                 TEXT NOT NULL DEFAULT 'none',
	candidate_text       TEXT NOT NULL,
	word_count           INTEGER NOT NULL DEFAULT 0,
	word_target_min      INTEGER NOT NULL DEFAULT 0,
	word_target_max      INTEGER NOT NULL DEFAULT 0,
	word_count_ok        INTEGER NOT NULL DEFAULT 1,
	verification         TEXT,
	status               TEXT NOT NULL DEFAULT 'pending',
	recommendation       TEXT NOT NULL DEFAULT 'manual-review',
	rationale            TEXT NOT NULL DEFAULT '',
	old_content_snapshot TEXT NOT NULL DEFAULT '',
	reviewed_by          TEXT NOT NULL DEFAULT '',
	review_notes         TEXT NOT NULL DEFAULT '',
	reviewed_at          DATETIME,
	applied_at           DATETIME,
	created_at           DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at           DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (poi_id, run_id)
);

CREATE INDEX IF NOT EXISTS idx_staging_run_id ON poi_content_staging(run_id);
CREATE INDEX IF NOT EXISTS idx_staging_status ON poi_content_staging(status);

CREATE TABLE IF NOT EXISTS poi_content_history (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	poi_id        TEXT NOT NULL,
	field_name    TEXT NOT NULL,
	old_content   TEXT NOT NULL DEFAULT '',
	new_content   TEXT NOT NULL DEFAULT '',
	change_source TEXT NOT NULL,
	run_id        TEXT NOT NULL DEFAULT '',
	staging_id    INTEGER,
	changed_by    TEXT NOT NULL DEFAULT '',
	changed_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_history_poi_field ON poi_content_history(poi_id, field_name, changed_at DESC);

CREATE TABLE IF NOT EXISTS pipeline_checkpoints (
	run_id     TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertFactSheets(ctx context.Context, sheets []model.FactSheet) (int64, error) {
	if len(sheets) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var n int64
	for i := range sheets {
		fs := &sheets[i]
		data, err := json.Marshal(fs)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: marshal fact sheet %s", fs.POIID)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO poi_fact_sheets (poi_id, name, category, destination, tier, data, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (poi_id) DO UPDATE SET
			   name = excluded.name, category = excluded.category, destination = excluded.destination,
			   tier = excluded.tier, data = excluded.data, updated_at = excluded.updated_at`,
			fs.POIID, fs.Name, fs.Category, fs.Destination, string(fs.Tier), string(data), now,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert fact sheet %s", fs.POIID)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit fact sheets")
	}
	return n, nil
}

func (s *SQLiteStore) GetFactSheet(ctx context.Context, poiID string) (*model.FactSheet, error) {
	var id, data string
	var updatedAt time.Time

	err := s.db.QueryRowContext(ctx,
		`SELECT poi_id, data, updated_at FROM poi_fact_sheets WHERE poi_id = ?`,
		poiID,
	).Scan(&id, &data, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get fact sheet %s", poiID)
	}

	var fs model.FactSheet
	if err := json.Unmarshal([]byte(data), &fs); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal fact sheet")
	}
	fs.POIID = id
	fs.UpdatedAt = updatedAt
	return &fs, nil
}

func (s *SQLiteStore) ListFactSheets(ctx context.Context, filter FactSheetFilter) ([]model.FactSheet, error) {
	query := `SELECT poi_id, data, updated_at FROM poi_fact_sheets WHERE 1=1`
	var args []any

	if filter.Destination != "" {
		query += ` AND destination = ?`
		args = append(args, filter.Destination)
	}
	if filter.Tier != "" {
		query += ` AND tier = ?`
		args = append(args, string(filter.Tier))
	}
	query += ` ORDER BY poi_id`

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list fact sheets")
	}
	defer rows.Close()

	var sheets []model.FactSheet
	for rows.Next() {
		var id, data string
		var updatedAt time.Time
		if err := rows.Scan(&id, &data, &updatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan fact sheet")
		}
		var fs model.FactSheet
		if err := json.Unmarshal([]byte(data), &fs); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal fact sheet")
		}
		fs.POIID = id
		fs.UpdatedAt = updatedAt
		sheets = append(sheets, fs)
	}
	return sheets, eris.Wrap(rows.Err(), "sqlite: list fact sheets iterate")
}

func (s *SQLiteStore) CountFactSheetsByTier(ctx context.Context) (map[model.Tier]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tier, COUNT(*) FROM poi_fact_sheets GROUP BY tier`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count fact sheets by tier")
	}
	defer rows.Close()

	counts := make(map[model.Tier]int)
	for rows.Next() {
		var tier string
		var n int
		if err := rows.Scan(&tier, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan tier count")
		}
		counts[model.Tier(tier)] = n
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: count fact sheets iterate")
}

func (s *SQLiteStore) UpsertStaging(ctx context.Context, row *model.StagingRow) (int64, error) {
	verJSON, err := marshalVerification(row.Verification)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: marshal verification %s", row.POIID)
	}
	var ver any
	if verJSON != nil {
		ver = string(verJSON)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO poi_content_staging
		 (poi_id, run_id, field_name, tier, candidate_text, word_count, word_target_min, word_target_max,
		  word_count_ok, verification, status, recommendation, rationale, old_content_snapshot, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (poi_id, run_id) DO UPDATE SET
		   field_name = excluded.field_name, tier = excluded.tier,
		   candidate_text = excluded.candidate_text, word_count = excluded.word_count,
		   word_target_min = excluded.word_target_min, word_target_max = excluded.word_target_max,
		   word_count_ok = excluded.word_count_ok, verification = excluded.verification,
		   status = excluded.status, recommendation = excluded.recommendation,
		   rationale = excluded.rationale, old_content_snapshot = excluded.old_content_snapshot,
		   updated_at = excluded.updated_at`,
		row.POIID, row.RunID, row.FieldName, string(row.Tier), row.CandidateText,
		row.WordCount, row.WordTargetMin, row.WordTargetMax, row.WordCountOK,
		ver, string(row.Status), string(row.Recommendation), row.Rationale,
		row.OldContentSnapshot, now, now,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: upsert staging %s", row.POIID)
	}

	var id int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM poi_content_staging WHERE poi_id = ? AND run_id = ?`,
		row.POIID, row.RunID,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: staging id %s", row.POIID)
	}
	return id, nil
}

func (s *SQLiteStore) GetStaging(ctx context.Context, poiID, runID string) (*model.StagingRow, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+stagingColumns+` FROM poi_content_staging WHERE poi_id = ? AND run_id = ?`,
		poiID, runID,
	)
	sr, err := scanStagingSQLite(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get staging %s/%s", poiID, runID)
	}
	return sr, nil
}

func (s *SQLiteStore) GetStagingByID(ctx context.Context, id int64) (*model.StagingRow, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+stagingColumns+` FROM poi_content_staging WHERE id = ?`,
		id,
	)
	sr, err := scanStagingSQLite(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get staging id %d", id)
	}
	return sr, nil
}

func (s *SQLiteStore) ListStaging(ctx context.Context, filter StagingFilter) ([]model.StagingRow, error) {
	query := `SELECT ` + stagingColumns + ` FROM poi_content_staging WHERE 1=1`
	var args []any

	if filter.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, filter.RunID)
	}
	if filter.POIID != "" {
		query += ` AND poi_id = ?`
		args = append(args, filter.POIID)
	}
	if len(filter.Statuses) > 0 {
		query += ` AND status IN (`
		for i, st := range filter.Statuses {
			if i > 0 {
				query += `, `
			}
			query += `?`
			args = append(args, string(st))
		}
		query += `)`
	}
	query += ` ORDER BY poi_id`

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list staging")
	}
	defer rows.Close()

	var result []model.StagingRow
	for rows.Next() {
		sr, err := scanStagingSQLite(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan staging")
		}
		result = append(result, *sr)
	}
	return result, eris.Wrap(rows.Err(), "sqlite: list staging iterate")
}

func (s *SQLiteStore) UpdateStagingStatus(ctx context.Context, id int64, status model.StagingStatus, reviewedBy, notes string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE poi_content_staging
		 SET status = ?, reviewed_by = ?, review_notes = ?, reviewed_at = ?, updated_at = ?
		 WHERE id = ?`,
		string(status), reviewedBy, notes, now, now, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update staging status %d", id)
	}
	return checkRowsAffected(res, "staging row", id)
}

func (s *SQLiteStore) UpdateStagingCandidate(ctx context.Context, id int64, candidateText string, wordCount int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE poi_content_staging SET candidate_text = ?, word_count = ?, updated_at = ? WHERE id = ?`,
		candidateText, wordCount, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update staging candidate %d", id)
	}
	return checkRowsAffected(res, "staging row", id)
}

func (s *SQLiteStore) ClearStagingRun(ctx context.Context, runID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM poi_content_staging WHERE run_id = ? AND status != 'applied'`,
		runID,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: clear staging run %s", runID)
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) CountStagingByStatus(ctx context.Context, runID string) (map[model.StagingStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM poi_content_staging`
	var args []any
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` GROUP BY status`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count staging by status")
	}
	defer rows.Close()

	counts := make(map[model.StagingStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan status count")
		}
		counts[model.StagingStatus(status)] = n
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: count staging iterate")
}

func (s *SQLiteStore) GetProduction(ctx context.Context, poiID, fieldName string) (*model.ProductionContent, error) {
	var pc model.ProductionContent
	err := s.db.QueryRowContext(ctx,
		`SELECT poi_id, field_name, content, updated_at FROM poi_production WHERE poi_id = ? AND field_name = ?`,
		poiID, fieldName,
	).Scan(&pc.POIID, &pc.FieldName, &pc.Content, &pc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get production %s/%s", poiID, fieldName)
	}
	return &pc, nil
}

func (s *SQLiteStore) UpsertProduction(ctx context.Context, pc *model.ProductionContent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO poi_production (poi_id, field_name, content, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (poi_id, field_name) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`,
		pc.POIID, pc.FieldName, pc.Content, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert production %s/%s", pc.POIID, pc.FieldName)
}

func (s *SQLiteStore) ListAuditEntries(ctx context.Context, poiID, fieldName string, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, poi_id, field_name, old_content, new_content, change_source, run_id, COALESCE(staging_id, 0), changed_by, changed_at
		 FROM poi_content_history
		 WHERE poi_id = ? AND field_name = ?
		 ORDER BY changed_at DESC LIMIT ?`,
		poiID, fieldName, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list audit entries")
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var source string
		if err := rows.Scan(&e.ID, &e.POIID, &e.FieldName, &e.OldContent, &e.NewContent,
			&source, &e.RunID, &e.StagingID, &e.ChangedBy, &e.ChangedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan audit entry")
		}
		e.ChangeSource = model.ChangeSource(source)
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list audit entries iterate")
}

func (s *SQLiteStore) SaveCheckpoint(ctx context.Context, runID string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pipeline_checkpoints (run_id, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (run_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		runID, string(data), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: save checkpoint")
}

func (s *SQLiteStore) LoadCheckpoint(ctx context.Context, runID string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM pipeline_checkpoints WHERE run_id = ?`,
		runID,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load checkpoint")
	}
	return []byte(data), nil
}

func (s *SQLiteStore) DeleteCheckpoint(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM pipeline_checkpoints WHERE run_id = ?`,
		runID,
	)
	return eris.Wrap(err, "sqlite: delete checkpoint")
}

// helpers

func checkRowsAffected(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %d", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanStagingSQLite(row scannable) (*model.StagingRow, error) {
	var sr model.StagingRow
	var tier, status, recommendation string
	var verJSON sql.NullString
	var reviewedAt, appliedAt sql.NullTime

	err := row.Scan(&sr.ID, &sr.POIID, &sr.RunID, &sr.FieldName, &tier,
		&sr.CandidateText, &sr.WordCount, &sr.WordTargetMin, &sr.WordTargetMax,
		&sr.WordCountOK, &verJSON, &status, &recommendation, &sr.Rationale,
		&sr.OldContentSnapshot, &sr.ReviewedBy, &sr.ReviewNotes,
		&reviewedAt, &appliedAt, &sr.CreatedAt, &sr.UpdatedAt)
	if err != nil {
		return nil, err
	}

	sr.Tier = model.Tier(tier)
	sr.Status = model.StagingStatus(status)
	sr.Recommendation = model.Recommendation(recommendation)
	if reviewedAt.Valid {
		t := reviewedAt.Time
		sr.ReviewedAt = &t
	}
	if appliedAt.Valid {
		t := appliedAt.Time
		sr.AppliedAt = &t
	}
	if verJSON.Valid && verJSON.String != "" {
		sr.Verification = &model.Verification{}
		if err := json.Unmarshal([]byte(verJSON.String), sr.Verification); err != nil {
			return nil, eris.Wrap(err, "unmarshal verification")
		}
	}
	return &sr, nil
}
