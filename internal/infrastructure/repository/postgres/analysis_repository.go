package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func (r *AnalysisRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101701)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS report_analyses (
	id TEXT PRIMARY KEY,
	request_id TEXT NOT NULL DEFAULT '',
	disease_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	method TEXT NOT NULL DEFAULT '',
	text_chars INTEGER NOT NULL DEFAULT 0,
	risk_level TEXT NOT NULL,
	reason TEXT NOT NULL,
	outcome JSONB,
	error_message TEXT NOT NULL DEFAULT '',
	duration_ms BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_report_analyses_disease ON report_analyses(disease_id);
CREATE INDEX IF NOT EXISTS idx_report_analyses_created_at ON report_analyses(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Save inserts a record. Redelivered events with a known id are ignored.
func (r *AnalysisRepository) Save(ctx context.Context, rec domain.AnalysisRecord) error {
	var outcome []byte
	if rec.Outcome != nil {
		b, err := json.Marshal(rec.Outcome)
		if err != nil {
			return fmt.Errorf("marshal outcome: %w", err)
		}
		outcome = b
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO report_analyses (
	id, request_id, disease_id, filename, method, text_chars, risk_level, reason, outcome, error_message, duration_ms, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO NOTHING
`,
		rec.ID, rec.RequestID, rec.DiseaseID.String(), rec.Filename, rec.Method, rec.TextChars,
		string(rec.RiskLevel), rec.Reason, outcome, rec.Error, rec.Duration.Milliseconds(), rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, request_id, disease_id, filename, method, text_chars, risk_level, reason, outcome, error_message, duration_ms, created_at
FROM report_analyses`

func (r *AnalysisRepository) GetByID(ctx context.Context, id string) (*domain.AnalysisRecord, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+`
WHERE id = $1
`, id)

	rec, err := scanAnalysis(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrAnalysisNotFound, "get analysis", fmt.Errorf("analysis not found: %s", id))
		}
		return nil, fmt.Errorf("scan analysis: %w", err)
	}
	return &rec, nil
}

func (r *AnalysisRepository) List(ctx context.Context, filter domain.AnalysisFilter) ([]domain.AnalysisRecord, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if filter.DiseaseID != "" {
		rows, err = r.db.QueryContext(ctx, selectColumns+`
WHERE disease_id = $1
ORDER BY created_at DESC
LIMIT $2
`, filter.DiseaseID.String(), filter.Limit)
	} else {
		rows, err = r.db.QueryContext(ctx, selectColumns+`
ORDER BY created_at DESC
LIMIT $1
`, filter.Limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	out := make([]domain.AnalysisRecord, 0)
	for rows.Next() {
		rec, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analyses: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(s rowScanner) (domain.AnalysisRecord, error) {
	var (
		rec        domain.AnalysisRecord
		diseaseID  string
		riskLevel  string
		outcomeRaw []byte
		durationMS int64
	)
	err := s.Scan(
		&rec.ID, &rec.RequestID, &diseaseID, &rec.Filename, &rec.Method, &rec.TextChars,
		&riskLevel, &rec.Reason, &outcomeRaw, &rec.Error, &durationMS, &rec.CreatedAt,
	)
	if err != nil {
		return domain.AnalysisRecord{}, err
	}
	rec.DiseaseID = domain.DiseaseID(diseaseID)
	rec.RiskLevel = domain.RiskLevel(riskLevel)
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	if len(outcomeRaw) > 0 {
		var outcome domain.Outcome
		if err := json.Unmarshal(outcomeRaw, &outcome); err != nil {
			return domain.AnalysisRecord{}, fmt.Errorf("unmarshal outcome: %w", err)
		}
		rec.Outcome = &outcome
	}
	return rec, nil
}
