package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/seo-optimizer/monitor/report"
)

// RawData wraps report.RawData for JSONB storage.
type RawData report.RawData

func (d RawData) Value() (driver.Value, error) {
	return json.Marshal(report.RawData(d))
}

func (d *RawData) Scan(value any) error {
	var b []byte
	switch v := value.(type) {
	case nil:
		*d = RawData{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported raw_data type %T", value)
	}
	var rd report.RawData
	if err := json.Unmarshal(b, &rd); err != nil {
		return fmt.Errorf("failed to decode raw_data: %w", err)
	}
	*d = RawData(rd)
	return nil
}

// Analysis is a persisted report.Record.
type Analysis struct {
	ID            uuid.UUID `db:"id" json:"id"`
	URLID         uuid.UUID `db:"url_id" json:"urlId"`
	Performance   *int      `db:"performance" json:"performance"`
	Accessibility *int      `db:"accessibility" json:"accessibility"`
	SEO           *int      `db:"seo" json:"seo"`
	BestPractices *int      `db:"best_practices" json:"bestPractices"`
	RawData       RawData   `db:"raw_data" json:"rawData"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// NewAnalysis builds an unsaved analysis of urlID from rec.
func NewAnalysis(urlID uuid.UUID, rec report.Record) *Analysis {
	return &Analysis{
		URLID:         urlID,
		Performance:   rec.Performance,
		Accessibility: rec.Accessibility,
		SEO:           rec.SEO,
		BestPractices: rec.BestPractices,
		RawData:       RawData(rec.RawData),
	}
}

// Record converts the row back into the form insights are derived from.
func (a *Analysis) Record() report.Record {
	return report.Record{
		Performance:   a.Performance,
		Accessibility: a.Accessibility,
		SEO:           a.SEO,
		BestPractices: a.BestPractices,
		RawData:       report.RawData(a.RawData),
	}
}

// Summary aggregates an owner's analyses. Averages are nil when no analysis
// carries that score.
type Summary struct {
	Performance    *float64   `db:"performance" json:"performance"`
	Accessibility  *float64   `db:"accessibility" json:"accessibility"`
	SEO            *float64   `db:"seo" json:"seo"`
	BestPractices  *float64   `db:"best_practices" json:"bestPractices"`
	LatestAnalysis *time.Time `db:"latest" json:"-"`
}

const analysisColumns = `id, url_id, performance, accessibility, seo, best_practices, raw_data, created_at`

type AnalysisRepository struct {
	db *sqlx.DB
}

func NewAnalysisRepository(db *sqlx.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Create inserts a, assigning its ID and creation time when unset.
func (r *AnalysisRepository) Create(ctx context.Context, a *Analysis) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO analyses (id, url_id, performance, accessibility, seo, best_practices, raw_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.URLID, a.Performance, a.Accessibility, a.SEO, a.BestPractices, a.RawData, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create analysis: %w", err)
	}
	return nil
}

// Latest returns the most recent analysis of urlID or ErrNotFound.
func (r *AnalysisRepository) Latest(ctx context.Context, urlID uuid.UUID) (*Analysis, error) {
	var a Analysis
	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE url_id = $1 ORDER BY created_at DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &a, query, urlID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest analysis: %w", err)
	}
	return &a, nil
}

// List pages through the analyses of urlID, most recent first.
func (r *AnalysisRepository) List(ctx context.Context, urlID uuid.UUID, limit, offset int) ([]Analysis, error) {
	analyses := []Analysis{}
	query := `SELECT ` + analysisColumns + `
		FROM analyses WHERE url_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &analyses, query, urlID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	return analyses, nil
}

func (r *AnalysisRepository) Count(ctx context.Context, urlID uuid.UUID) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM analyses WHERE url_id = $1`, urlID); err != nil {
		return 0, fmt.Errorf("failed to count analyses: %w", err)
	}
	return n, nil
}

// OwnerSummary averages the four scores over every analysis of the owner's URLs.
func (r *AnalysisRepository) OwnerSummary(ctx context.Context, ownerID string) (*Summary, error) {
	var s Summary
	query := `
		SELECT AVG(a.performance)::float8    AS performance,
		       AVG(a.accessibility)::float8  AS accessibility,
		       AVG(a.seo)::float8            AS seo,
		       AVG(a.best_practices)::float8 AS best_practices,
		       MAX(a.created_at)             AS latest
		FROM analyses a
		JOIN urls u ON u.id = a.url_id
		WHERE u.owner_id = $1`
	if err := r.db.GetContext(ctx, &s, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to summarize analyses: %w", err)
	}
	return &s, nil
}
