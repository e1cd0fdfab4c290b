// Package history provides clinician review storage for phenotype mappings.
// It stores agreements and overrides so curators can audit how often the
// rule tables match clinical judgment.
package history

import (
	"context"
	"io"
	"time"

	"github.com/oncosaferx/phenotype-server/internal/domain"
)

// Review represents a clinician's review of one mapped phenotype.
type Review struct {
	ID                 int64            `json:"id,omitempty"`
	ReportID           string           `json:"report_id"`           // Mapping report the review belongs to
	Gene               domain.Gene      `json:"gene"`                // Reviewed pharmacogene
	SuggestedPhenotype domain.Phenotype `json:"suggested_phenotype"` // Engine's classification
	ReviewerPhenotype  domain.Phenotype `json:"reviewer_phenotype"`  // Clinician's decision
	ReviewerAgreed     bool             `json:"reviewer_agreed"`     // Did the clinician agree?
	SourceText         string           `json:"source_text,omitempty"`
	Notes              string           `json:"notes,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// Store defines the interface for review storage operations.
type Store interface {
	// Save stores or updates a review. If a review for the same
	// report_id+gene exists, it will be updated.
	Save(ctx context.Context, review *Review) error

	// Get retrieves the review for a report/gene pair, or nil if none.
	Get(ctx context.Context, reportID string, gene domain.Gene) (*Review, error)

	// List returns reviews with pagination, newest first.
	List(ctx context.Context, limit, offset int) ([]*Review, error)

	// Count returns the total number of review entries.
	Count(ctx context.Context) (int64, error)

	// Delete removes a review entry by ID.
	Delete(ctx context.Context, id int64) error

	// ExportJSON exports all reviews to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports reviews from a JSON reader.
	// Returns the number of imported and skipped entries.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// ReviewExport represents the JSON export format.
type ReviewExport struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Reviews    []*Review `json:"reviews"`
}
