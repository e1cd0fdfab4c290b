package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/oncosaferx/phenotype-server/internal/domain"
)

// SQLiteStore implements Store backed by a local SQLite database.
// It is the default backend for single-user and MCP deployments.
type SQLiteStore struct {
	db     *sql.DB
	logger *logrus.Logger
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS reviews (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	report_id TEXT NOT NULL,
	gene TEXT NOT NULL,
	suggested_phenotype TEXT NOT NULL,
	reviewer_phenotype TEXT NOT NULL,
	reviewer_agreed INTEGER NOT NULL DEFAULT 0,
	source_text TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	UNIQUE(report_id, gene)
);
CREATE INDEX IF NOT EXISTS idx_reviews_report ON reviews(report_id);
CREATE INDEX IF NOT EXISTS idx_reviews_gene ON reviews(gene);
`

// NewSQLiteStore opens (creating if needed) a SQLite review store at path.
func NewSQLiteStore(path string, logger *logrus.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = logrus.New()
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// Single writer; WAL keeps readers unblocked during saves.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logger.WithField("path", path).Debug("SQLite review store opened")
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, review *Review) error {
	if err := validateReview(review); err != nil {
		return err
	}

	now := time.Now().UTC()
	if review.CreatedAt.IsZero() {
		review.CreatedAt = now
	}
	review.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO reviews (report_id, gene, suggested_phenotype, reviewer_phenotype,
			reviewer_agreed, source_text, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(report_id, gene) DO UPDATE SET
			suggested_phenotype = excluded.suggested_phenotype,
			reviewer_phenotype = excluded.reviewer_phenotype,
			reviewer_agreed = excluded.reviewer_agreed,
			source_text = excluded.source_text,
			notes = excluded.notes,
			updated_at = excluded.updated_at`,
		review.ReportID, string(review.Gene), string(review.SuggestedPhenotype),
		string(review.ReviewerPhenotype), boolToInt(review.ReviewerAgreed),
		review.SourceText, review.Notes, review.CreatedAt, review.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save review: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil && id > 0 {
		review.ID = id
	}

	s.logger.WithFields(logrus.Fields{
		"report_id": review.ReportID,
		"gene":      review.Gene,
		"agreed":    review.ReviewerAgreed,
	}).Debug("Review saved")
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, reportID string, gene domain.Gene) (*Review, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, report_id, gene, suggested_phenotype, reviewer_phenotype,
			reviewer_agreed, source_text, notes, created_at, updated_at
		FROM reviews WHERE report_id = ? AND gene = ?`, reportID, string(gene))

	review, err := scanReview(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return review, nil
}

func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Review, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, report_id, gene, suggested_phenotype, reviewer_phenotype,
			reviewer_agreed, source_text, notes, created_at, updated_at
		FROM reviews ORDER BY updated_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	return collectReviews(rows)
}

func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reviews").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM reviews WHERE id = ?", id)
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

func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	reviews, err := s.List(ctx, 100000, 0)
	if err != nil {
		return fmt.Errorf("failed to read reviews for export: %w", err)
	}
	return writeExport(writer, reviews)
}

func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (int, int, error) {
	return importReviews(ctx, reader, s)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// rowScanner abstracts sql.Row and sql.Rows for shared scan logic.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanReview(row rowScanner) (*Review, error) {
	var r Review
	var gene, suggested, reviewer string
	var agreed int
	err := row.Scan(&r.ID, &r.ReportID, &gene, &suggested, &reviewer,
		&agreed, &r.SourceText, &r.Notes, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.Gene = domain.Gene(gene)
	r.SuggestedPhenotype = domain.Phenotype(suggested)
	r.ReviewerPhenotype = domain.Phenotype(reviewer)
	r.ReviewerAgreed = agreed != 0
	return &r, nil
}

func collectReviews(rows *sql.Rows) ([]*Review, error) {
	reviews := make([]*Review, 0)
	for rows.Next() {
		r, err := scanReview(rows)
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

func validateReview(review *Review) error {
	if review == nil {
		return fmt.Errorf("review is nil")
	}
	if review.ReportID == "" {
		return domain.NewValidationError("report_id", "report_id is required", "")
	}
	if !review.Gene.IsValid() {
		return domain.NewValidationError("gene", "unknown gene", string(review.Gene))
	}
	if !review.ReviewerPhenotype.IsValid() {
		return domain.NewValidationError("reviewer_phenotype", "unknown phenotype", string(review.ReviewerPhenotype))
	}
	return nil
}

func writeExport(writer io.Writer, reviews []*Review) error {
	export := ReviewExport{
		Version:    "1.0",
		ExportedAt: time.Now().UTC(),
		Count:      len(reviews),
		Reviews:    reviews,
	}
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(export); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}

// importReviews reads an export document and saves each valid entry,
// skipping entries that fail validation instead of aborting the import.
func importReviews(ctx context.Context, reader io.Reader, store Store) (int, int, error) {
	var export ReviewExport
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode import: %w", err)
	}

	imported, skipped := 0, 0
	for _, review := range export.Reviews {
		review.ID = 0
		if err := store.Save(ctx, review); err != nil {
			skipped++
			continue
		}
		imported++
	}
	return imported, skipped, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
