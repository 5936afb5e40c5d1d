package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/leadscore/internal/model"
)

// SQLiteStore implements Store on modernc.org/sqlite for local runs and
// tests.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens the database at dsn in WAL mode.
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
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	contact_id     TEXT PRIMARY KEY,
	profile        TEXT NOT NULL,
	lead_score     INTEGER,
	last_result    TEXT,
	last_scored_at DATETIME,
	created_at     DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f', 'now')),
	updated_at     DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f', 'now'))
);

CREATE TABLE IF NOT EXISTS lead_scores (
	id           TEXT PRIMARY KEY,
	contact_id   TEXT NOT NULL,
	score        INTEGER NOT NULL,
	total        REAL NOT NULL,
	service_plan TEXT NOT NULL,
	priority     TEXT NOT NULL,
	fallback     INTEGER NOT NULL DEFAULT 0,
	version      TEXT NOT NULL,
	result       TEXT NOT NULL,
	scored_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_lead_scores_contact ON lead_scores(contact_id, scored_at);
CREATE INDEX IF NOT EXISTS idx_lead_scores_scored_at ON lead_scores(scored_at);

CREATE TABLE IF NOT EXISTS learning_patterns (
	id               TEXT PRIMARY KEY,
	contact_id       TEXT NOT NULL,
	score            INTEGER NOT NULL,
	recommended_tier TEXT NOT NULL,
	lead_source      TEXT,
	credit_score     INTEGER,
	monthly_income   REAL,
	converted        INTEGER NOT NULL DEFAULT 0,
	created_at       DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_learning_patterns_contact ON learning_patterns(contact_id, created_at);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetLead(ctx context.Context, contactID string) (*model.LeadProfile, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT profile FROM leads WHERE contact_id = ?`, contactID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get lead %s", contactID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get lead %s", contactID)
	}
	return decodeProfile([]byte(raw), contactID)
}

const sqlUpsertLeadLite = `INSERT INTO leads (contact_id, profile, updated_at) VALUES (?, ?, ?)
ON CONFLICT (contact_id) DO UPDATE SET profile = excluded.profile, updated_at = excluded.updated_at`

func (s *SQLiteStore) UpsertLead(ctx context.Context, p *model.LeadProfile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal lead")
	}
	_, err = s.db.ExecContext(ctx, sqlUpsertLeadLite, p.ContactID, string(raw), time.Now().UTC())
	return eris.Wrapf(err, "sqlite: upsert lead %s", p.ContactID)
}

// UpsertLeads writes all profiles in one transaction.
func (s *SQLiteStore) UpsertLeads(ctx context.Context, leads []model.LeadProfile) (int64, error) {
	if len(leads) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert leads")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqlUpsertLeadLite)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert lead")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	var n int64
	for i := range leads {
		raw, err := json.Marshal(&leads[i])
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: marshal lead %s", leads[i].ContactID)
		}
		if _, err := stmt.ExecContext(ctx, leads[i].ContactID, string(raw), now); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert lead %s", leads[i].ContactID)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert leads")
	}
	return n, nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.LeadProfile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT contact_id, profile FROM leads ORDER BY created_at, contact_id LIMIT ? OFFSET ?`,
		limitOrDefault(filter.Limit), filter.Offset)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.LeadProfile
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		p, err := decodeProfile([]byte(raw), id)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate leads")
}

func (s *SQLiteStore) SaveScore(ctx context.Context, p *model.LeadProfile, r *model.ScoringResult) error {
	profile, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal lead")
	}
	result, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}
	rec := newScoreRecord(uuid.NewString(), r)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save score")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO leads (contact_id, profile, lead_score, last_result, last_scored_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (contact_id) DO UPDATE SET lead_score = excluded.lead_score, last_result = excluded.last_result,
			last_scored_at = excluded.last_scored_at, updated_at = excluded.updated_at`,
		r.ContactID, string(profile), r.Score, string(result), rec.ScoredAt, rec.ScoredAt,
	); err != nil {
		return eris.Wrapf(err, "sqlite: record score for %s", r.ContactID)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO lead_scores (id, contact_id, score, total, service_plan, priority, fallback, version, result, scored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ContactID, rec.Score, rec.Total, rec.ServicePlan, rec.Priority,
		rec.Fallback, rec.Version, string(result), rec.ScoredAt,
	); err != nil {
		return eris.Wrapf(err, "sqlite: insert score history for %s", r.ContactID)
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit save score")
}

func (s *SQLiteStore) ListScores(ctx context.Context, filter ScoreFilter) ([]ScoreRecord, error) {
	query := `SELECT id, contact_id, score, total, service_plan, priority, fallback, version, scored_at
		FROM lead_scores WHERE scored_at >= ?`
	args := []any{filter.Since.UTC()}
	if filter.ContactID != "" {
		query += ` AND contact_id = ?`
		args = append(args, filter.ContactID)
	}
	query += ` ORDER BY scored_at DESC LIMIT ?`
	args = append(args, limitOrDefault(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list scores")
	}
	defer rows.Close() //nolint:errcheck

	var out []ScoreRecord
	for rows.Next() {
		var rec ScoreRecord
		if err := rows.Scan(&rec.ID, &rec.ContactID, &rec.Score, &rec.Total, &rec.ServicePlan,
			&rec.Priority, &rec.Fallback, &rec.Version, &rec.ScoredAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan score")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate scores")
}

func (s *SQLiteStore) AppendPattern(ctx context.Context, lp model.LearningPattern) error {
	var credit sql.NullInt64
	if lp.CreditScore != nil {
		credit = sql.NullInt64{Int64: int64(*lp.CreditScore), Valid: true}
	}
	var income sql.NullFloat64
	if lp.MonthlyIncome != nil {
		income = sql.NullFloat64{Float64: *lp.MonthlyIncome, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO learning_patterns (id, contact_id, score, recommended_tier, lead_source, credit_score, monthly_income, converted, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), lp.ContactID, lp.Score, lp.RecommendedTier, lp.LeadSource,
		credit, income, lp.Converted, lp.CreatedAt.UTC())
	return eris.Wrapf(err, "sqlite: append pattern for %s", lp.ContactID)
}

func (s *SQLiteStore) LatestPattern(ctx context.Context, contactID string) (*model.LearningPattern, error) {
	var (
		lp     model.LearningPattern
		source sql.NullString
		credit sql.NullInt64
		income sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT contact_id, score, recommended_tier, lead_source, credit_score, monthly_income, converted, created_at
		FROM learning_patterns WHERE contact_id = ?
		ORDER BY created_at DESC LIMIT 1`, contactID).
		Scan(&lp.ContactID, &lp.Score, &lp.RecommendedTier, &source, &credit, &income, &lp.Converted, &lp.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: latest pattern %s", contactID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: latest pattern %s", contactID)
	}

	lp.LeadSource = source.String
	if credit.Valid {
		v := int(credit.Int64)
		lp.CreditScore = &v
	}
	if income.Valid {
		v := income.Float64
		lp.MonthlyIncome = &v
	}
	return &lp, nil
}
