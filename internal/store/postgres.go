package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscore/internal/db"
	"github.com/sells-group/leadscore/internal/model"
)

// PostgresStore implements Store on a pgx pool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool sizing.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// Statements prepared on every new connection.
var preparedStatements = map[string]string{
	"get_lead":       `SELECT profile FROM leads WHERE contact_id = $1`,
	"upsert_lead":    sqlUpsertLeadPG,
	"record_score":   sqlRecordScorePG,
	"insert_history": sqlInsertHistoryPG,
	"insert_pattern": sqlInsertPatternPG,
}

const (
	sqlUpsertLeadPG = `INSERT INTO leads (contact_id, profile, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (contact_id) DO UPDATE SET profile = EXCLUDED.profile, updated_at = EXCLUDED.updated_at`

	sqlRecordScorePG = `INSERT INTO leads (contact_id, profile, lead_score, last_result, last_scored_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (contact_id) DO UPDATE SET lead_score = EXCLUDED.lead_score, last_result = EXCLUDED.last_result,
	last_scored_at = EXCLUDED.last_scored_at, updated_at = EXCLUDED.updated_at`

	sqlInsertHistoryPG = `INSERT INTO lead_scores (id, contact_id, score, total, service_plan, priority, fallback, version, result, scored_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	sqlInsertPatternPG = `INSERT INTO learning_patterns (id, contact_id, score, recommended_tier, lead_source, credit_score, monthly_income, converted, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
)

// NewPostgres connects a pool and verifies it with a ping.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 1
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			pgxCfg.MaxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			pgxCfg.MinConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

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
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	contact_id     TEXT PRIMARY KEY,
	profile        JSONB NOT NULL,
	lead_score     INTEGER,
	last_result    JSONB,
	last_scored_at TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS lead_scores (
	id           TEXT PRIMARY KEY,
	contact_id   TEXT NOT NULL,
	score        INTEGER NOT NULL,
	total        DOUBLE PRECISION NOT NULL,
	service_plan TEXT NOT NULL,
	priority     TEXT NOT NULL,
	fallback     BOOLEAN NOT NULL DEFAULT false,
	version      TEXT NOT NULL,
	result       JSONB NOT NULL,
	scored_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_lead_scores_contact ON lead_scores(contact_id, scored_at DESC);
CREATE INDEX IF NOT EXISTS idx_lead_scores_scored_at ON lead_scores(scored_at DESC);

CREATE TABLE IF NOT EXISTS learning_patterns (
	id               TEXT PRIMARY KEY,
	contact_id       TEXT NOT NULL,
	score            INTEGER NOT NULL,
	recommended_tier TEXT NOT NULL,
	lead_source      TEXT,
	credit_score     INTEGER,
	monthly_income   DOUBLE PRECISION,
	converted        BOOLEAN NOT NULL DEFAULT false,
	created_at       TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_learning_patterns_contact ON learning_patterns(contact_id, created_at DESC);
`

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetLead(ctx context.Context, contactID string) (*model.LeadProfile, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT profile FROM leads WHERE contact_id = $1`, contactID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get lead %s", contactID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get lead %s", contactID)
	}
	return decodeProfile(raw, contactID)
}

func (s *PostgresStore) UpsertLead(ctx context.Context, p *model.LeadProfile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal lead")
	}
	_, err = s.pool.Exec(ctx, sqlUpsertLeadPG, p.ContactID, raw, time.Now().UTC())
	return eris.Wrapf(err, "postgres: upsert lead %s", p.ContactID)
}

// UpsertLeads bulk-loads profiles through a staging table.
func (s *PostgresStore) UpsertLeads(ctx context.Context, leads []model.LeadProfile) (int64, error) {
	now := time.Now().UTC()
	rows := make([][]any, 0, len(leads))
	for i := range leads {
		raw, err := json.Marshal(&leads[i])
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: marshal lead %s", leads[i].ContactID)
		}
		rows = append(rows, []any{leads[i].ContactID, raw, now})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertSpec{
		Table:   "leads",
		Columns: []string{"contact_id", "profile", "updated_at"},
		Key:     []string{"contact_id"},
	}, rows)
	return n, eris.Wrap(err, "postgres: bulk upsert leads")
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.LeadProfile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT contact_id, profile FROM leads ORDER BY created_at, contact_id LIMIT $1 OFFSET $2`,
		limitOrDefault(filter.Limit), filter.Offset)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var out []model.LeadProfile
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		p, err := decodeProfile(raw, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate leads")
}

// SaveScore writes the latest result onto the lead row and appends a
// history row, in one transaction.
func (s *PostgresStore) SaveScore(ctx context.Context, p *model.LeadProfile, r *model.ScoringResult) error {
	profile, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal lead")
	}
	result, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}
	rec := newScoreRecord(uuid.NewString(), r)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save score")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, sqlRecordScorePG, r.ContactID, profile, r.Score, result, rec.ScoredAt); err != nil {
		return eris.Wrapf(err, "postgres: record score for %s", r.ContactID)
	}
	if _, err := tx.Exec(ctx, sqlInsertHistoryPG,
		rec.ID, rec.ContactID, rec.Score, rec.Total, rec.ServicePlan, rec.Priority,
		rec.Fallback, rec.Version, result, rec.ScoredAt,
	); err != nil {
		return eris.Wrapf(err, "postgres: insert score history for %s", r.ContactID)
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit save score")
}

func (s *PostgresStore) ListScores(ctx context.Context, filter ScoreFilter) ([]ScoreRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, contact_id, score, total, service_plan, priority, fallback, version, scored_at
		FROM lead_scores
		WHERE ($1 = '' OR contact_id = $1) AND scored_at >= $2
		ORDER BY scored_at DESC
		LIMIT $3`,
		filter.ContactID, filter.Since.UTC(), limitOrDefault(filter.Limit))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list scores")
	}
	defer rows.Close()

	var out []ScoreRecord
	for rows.Next() {
		var rec ScoreRecord
		if err := rows.Scan(&rec.ID, &rec.ContactID, &rec.Score, &rec.Total, &rec.ServicePlan,
			&rec.Priority, &rec.Fallback, &rec.Version, &rec.ScoredAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan score")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate scores")
}

func (s *PostgresStore) AppendPattern(ctx context.Context, lp model.LearningPattern) error {
	_, err := s.pool.Exec(ctx, sqlInsertPatternPG,
		uuid.NewString(), lp.ContactID, lp.Score, lp.RecommendedTier, lp.LeadSource,
		lp.CreditScore, lp.MonthlyIncome, lp.Converted, lp.CreatedAt.UTC())
	return eris.Wrapf(err, "postgres: append pattern for %s", lp.ContactID)
}

func (s *PostgresStore) LatestPattern(ctx context.Context, contactID string) (*model.LearningPattern, error) {
	var lp model.LearningPattern
	err := s.pool.QueryRow(ctx, `
		SELECT contact_id, score, recommended_tier, COALESCE(lead_source, ''), credit_score, monthly_income, converted, created_at
		FROM learning_patterns WHERE contact_id = $1
		ORDER BY created_at DESC LIMIT 1`, contactID).
		Scan(&lp.ContactID, &lp.Score, &lp.RecommendedTier, &lp.LeadSource,
			&lp.CreditScore, &lp.MonthlyIncome, &lp.Converted, &lp.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: latest pattern %s", contactID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: latest pattern %s", contactID)
	}
	return &lp, nil
}

func decodeProfile(raw []byte, contactID string) (*model.LeadProfile, error) {
	var p model.LeadProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, eris.Wrapf(err, "store: decode lead %s", contactID)
	}
	if p.ContactID == "" {
		p.ContactID = contactID
	}
	return &p, nil
}
