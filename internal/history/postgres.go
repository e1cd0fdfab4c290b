package history

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/oncosaferx/phenotype-server/internal/domain"
)

// PostgresStore implements Store backed by PostgreSQL for shared
// multi-user deployments.
type PostgresStore struct {
	db     *sql.DB
	logger *logrus.Logger
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS reviews (
	id BIGSERIAL PRIMARY KEY,
	report_id TEXT NOT NULL,
	gene TEXT NOT NULL,
	suggested_phenotype TEXT NOT NULL,
	reviewer_phenotype TEXT NOT NULL,
	reviewer_agreed BOOLEAN NOT NULL DEFAULT FALSE,
	source_text TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	UNIQUE(report_id, gene)
);
CREATE INDEX IF NOT EXISTS idx_reviews_report ON reviews(report_id);
CREATE INDEX IF NOT EXISTS idx_reviews_gene ON reviews(gene);
`

// NewPostgresStore connects to PostgreSQL and ensures the reviews schema.
func NewPostgresStore(connString string, logger *logrus.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = logrus.New()
	}

	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logger.Debug("PostgreSQL review store connected")
	return &PostgresStore{db: db, logger: logger}, nil
}

// newPostgresStoreWithDB wraps an existing connection, used by tests.
func newPostgresStoreWithDB(db *sql.DB, logger *logrus.Logger) *PostgresStore {
	if logger == nil {
		logger = logrus.New()
	}
	return &PostgresStore{db: db, logger: logger}
}

func (s *PostgresStore) Save(ctx context.Context, review *Review) error {
	if err := validateReview(review); err != nil {
		return err
	}

	now := time.Now().UTC()
	if review.CreatedAt.IsZero() {
		review.CreatedAt = now
	}
	review.UpdatedAt = now

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO reviews (report_id, gene, suggested_phenotype, reviewer_phenotype,
			reviewer_agreed, source_text, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (report_id, gene) DO UPDATE SET
			suggested_phenotype = EXCLUDED.suggested_phenotype,
			reviewer_phenotype = EXCLUDED.reviewer_phenotype,
			reviewer_agreed = EXCLUDED.reviewer_agreed,
			source_text = EXCLUDED.source_text,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
		RETURNING id`,
		review.ReportID, string(review.Gene), string(review.SuggestedPhenotype),
		string(review.ReviewerPhenotype), review.ReviewerAgreed,
		review.SourceText, review.Notes, review.CreatedAt, review.UpdatedAt).Scan(&review.ID)
	if err != nil {
		return fmt.Errorf("failed to save review: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"report_id": review.ReportID,
		"gene":      review.Gene,
		"agreed":    review.ReviewerAgreed,
	}).Debug("Review saved")
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, reportID string, gene domain.Gene) (*Review, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, report_id, gene, suggested_phenotype, reviewer_phenotype,
			reviewer_agreed, source_text, notes, created_at, updated_at
		FROM reviews WHERE report_id = $1 AND gene = $2`, reportID, string(gene))

	review, err := scanPostgresReview(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return review, nil
}

func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Review, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, report_id, gene, suggested_phenotype, reviewer_phenotype,
			reviewer_agreed, source_text, notes, created_at, updated_at
		FROM reviews ORDER BY updated_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]*Review, 0)
	for rows.Next() {
		r, err := scanPostgresReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reviews: %w", err)
	}
	return reviews, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reviews").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM reviews WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	reviews, err := s.List(ctx, 100000, 0)
	if err != nil {
		return fmt.Errorf("failed to read reviews for export: %w", err)
	}
	return writeExport(writer, reviews)
}

func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (int, int, error) {
	return importReviews(ctx, reader, s)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func scanPostgresReview(row rowScanner) (*Review, error) {
	var r Review
	var gene, suggested, reviewer string
	err := row.Scan(&r.ID, &r.ReportID, &gene, &suggested, &reviewer,
		&r.ReviewerAgreed, &r.SourceText, &r.Notes, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.Gene = domain.Gene(gene)
	r.SuggestedPhenotype = domain.Phenotype(suggested)
	r.ReviewerPhenotype = domain.Phenotype(reviewer)
	return &r, nil
}
