// Package repository persists phenotype mapping reports to PostgreSQL.
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/oncosaferx/phenotype-server/internal/domain"
)

// ReportRepository handles mapping report persistence
type ReportRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *pgxpool.Pool, logger *logrus.Logger) *ReportRepository {
	return &ReportRepository{
		db:  db,
		log: logger,
	}
}

// Create inserts a new mapping report into the database.
// Phenotypes and HLA findings are stored as JSONB columns.
func (r *ReportRepository) Create(ctx context.Context, report *domain.MappingReport) error {
	phenotypes, err := json.Marshal(report.Phenotypes)
	if err != nil {
		return fmt.Errorf("encoding phenotypes: %w", err)
	}
	findings, err := json.Marshal(report.HLAFindings)
	if err != nil {
		return fmt.Errorf("encoding hla findings: %w", err)
	}

	query := `
		INSERT INTO mapping_reports (
			id, observation_count, phenotypes, hla_findings, processing_time_ms, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)`

	_, err = r.db.Exec(ctx, query,
		report.ID,
		report.ObservationCount,
		phenotypes,
		findings,
		report.ProcessingTimeMs,
		report.CreatedAt,
	)

	if err != nil {
		r.log.WithFields(logrus.Fields{
			"report_id": report.ID,
			"error":     err,
		}).Error("Failed to create mapping report")
		return fmt.Errorf("creating mapping report: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"report_id":    report.ID,
		"observations": report.ObservationCount,
		"phenotypes":   len(report.Phenotypes),
		"hla_findings": len(report.HLAFindings),
	}).Info("Mapping report created successfully")

	return nil
}

// GetByID retrieves a mapping report by its ID
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*domain.MappingReport, error) {
	query := `
		SELECT id, observation_count, phenotypes, hla_findings, processing_time_ms, created_at
		FROM mapping_reports
		WHERE id = $1`

	report, err := scanReport(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("mapping report not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"report_id": id,
			"error":     err,
		}).Error("Failed to get mapping report by ID")
		return nil, fmt.Errorf("getting mapping report by ID: %w", err)
	}

	return report, nil
}

// ListRecent retrieves the most recent mapping reports with pagination
func (r *ReportRepository) ListRecent(ctx context.Context, limit, offset int) ([]*domain.MappingReport, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, observation_count, phenotypes, hla_findings, processing_time_ms, created_at
		FROM mapping_reports
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		r.log.WithError(err).Error("Failed to list mapping reports")
		return nil, fmt.Errorf("listing mapping reports: %w", err)
	}
	defer rows.Close()

	reports := make([]*domain.MappingReport, 0)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			r.log.WithError(err).Error("Failed to scan mapping report row")
			return nil, fmt.Errorf("scanning mapping report row: %w", err)
		}
		reports = append(reports, report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating mapping report rows: %w", err)
	}

	return reports, nil
}

// Delete removes a mapping report from the database
func (r *ReportRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM mapping_reports WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"report_id": id,
			"error":     err,
		}).Error("Failed to delete mapping report")
		return fmt.Errorf("deleting mapping report: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("mapping report not found: %w", domain.ErrNotFound)
	}

	r.log.WithField("report_id", id).Info("Mapping report deleted successfully")
	return nil
}

func scanReport(row pgx.Row) (*domain.MappingReport, error) {
	var report domain.MappingReport
	var phenotypes, findings []byte

	err := row.Scan(
		&report.ID,
		&report.ObservationCount,
		&phenotypes,
		&findings,
		&report.ProcessingTimeMs,
		&report.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(phenotypes, &report.Phenotypes); err != nil {
		return nil, fmt.Errorf("decoding phenotypes: %w", err)
	}
	if err := json.Unmarshal(findings, &report.HLAFindings); err != nil {
		return nil, fmt.Errorf("decoding hla findings: %w", err)
	}
	if report.Phenotypes == nil {
		report.Phenotypes = make([]domain.PhenotypeResult, 0)
	}
	if report.HLAFindings == nil {
		report.HLAFindings = make([]domain.HLAFinding, 0)
	}

	return &report, nil
}
