package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// URL is a monitored address registered by an owner.
type URL struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	OwnerID       string     `db:"owner_id" json:"userId"`
	URL           string     `db:"url" json:"url"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updatedAt"`
	LastScannedAt *time.Time `db:"last_scanned_at" json:"lastScannedAt"`
}

const urlColumns = `id, owner_id, url, created_at, updated_at, last_scanned_at`

// ValidateURL accepts absolute http and https URLs only.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid URL format: %q", raw)
	}
	return nil
}

type URLRepository struct {
	db *sqlx.DB
}

func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{db: db}
}

// Create inserts u, assigning its ID and timestamps. A second registration of
// the same address by the same owner fails with ErrDuplicateURL.
func (r *URLRepository) Create(ctx context.Context, u *URL) error {
	if err := ValidateURL(u.URL); err != nil {
		return err
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	query := `
		INSERT INTO urls (id, owner_id, url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + urlColumns

	err := r.db.QueryRowxContext(ctx, query, u.ID, u.OwnerID, u.URL, u.CreatedAt, u.UpdatedAt).StructScan(u)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateURL
		}
		return fmt.Errorf("failed to create url: %w", err)
	}
	return nil
}

func (r *URLRepository) GetByID(ctx context.Context, id uuid.UUID) (*URL, error) {
	var u URL
	query := `SELECT ` + urlColumns + ` FROM urls WHERE id = $1`
	if err := r.db.GetContext(ctx, &u, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get url: %w", err)
	}
	return &u, nil
}

// ListByOwner returns the owner's URLs, newest first.
func (r *URLRepository) ListByOwner(ctx context.Context, ownerID string) ([]URL, error) {
	urls := []URL{}
	query := `SELECT ` + urlColumns + ` FROM urls WHERE owner_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &urls, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to list urls: %w", err)
	}
	return urls, nil
}

func (r *URLRepository) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM urls WHERE owner_id = $1`, ownerID); err != nil {
		return 0, fmt.Errorf("failed to count urls: %w", err)
	}
	return n, nil
}

// Delete removes the URL; its analyses go with it through the cascade.
func (r *URLRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM urls WHERE id = $1`, id)
	return execRequireRows(result, err, ErrNotFound)
}

func (r *URLRepository) MarkScanned(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE urls SET last_scanned_at = $2, updated_at = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, at)
	return execRequireRows(result, err, ErrNotFound)
}
