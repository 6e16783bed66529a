package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var ErrResultNotFound = errors.New("result not found")

const postgresSchema = `
CREATE TABLE IF NOT EXISTS assessment_results (
	assessment_id   TEXT PRIMARY KEY,
	user_id         TEXT,
	catalog_version TEXT NOT NULL,
	overall_score   INTEGER NOT NULL,
	risk_level      TEXT NOT NULL,
	payload         JSONB NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_assessment_results_user ON assessment_results (user_id);
CREATE INDEX IF NOT EXISTS idx_assessment_results_risk ON assessment_results (risk_level)`

const upsertResult = `
	INSERT INTO assessment_results
		(assessment_id, user_id, catalog_version, overall_score, risk_level, payload, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (assessment_id) DO UPDATE SET
		user_id = EXCLUDED.user_id,
		catalog_version = EXCLUDED.catalog_version,
		overall_score = EXCLUDED.overall_score,
		risk_level = EXCLUDED.risk_level,
		payload = EXCLUDED.payload,
		updated_at = NOW()`

const selectResult = `
	SELECT user_id, payload FROM assessment_results WHERE assessment_id = $1`

// PostgresRepository writes results as JSONB rows keyed by assessment id.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create assessment_results: %w", err)
	}
	return nil
}

// Save upserts rec. Saving the same assessment twice overwrites the row.
func (r *PostgresRepository) Save(ctx context.Context, rec Record) error {
	if err := rec.validate(); err != nil {
		return err
	}
	payload, err := rec.payload()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, upsertResult,
		rec.AssessmentID,
		sql.NullString{String: rec.UserID, Valid: rec.UserID != ""},
		rec.Result.CatalogVersion,
		rec.Result.OverallScore,
		string(rec.Result.RiskLevel),
		payload,
		rec.Result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save result %s: %w", rec.AssessmentID, err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, assessmentID string) (*Record, error) {
	var (
		userID  sql.NullString
		payload []byte
	)
	err := r.db.QueryRowContext(ctx, selectResult, assessmentID).Scan(&userID, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load result %s: %w", assessmentID, err)
	}
	res, err := decodeResult(assessmentID, payload)
	if err != nil {
		return nil, err
	}
	return &Record{AssessmentID: assessmentID, UserID: userID.String, Result: res}, nil
}
