// Package domain contains core business entities and types for pharmacogenomic
// (PGx) phenotype mapping following CPIC (Clinical Pharmacogenetics
// Implementation Consortium) guideline terminology.
//
// Reference: Caudle et al. (2017) Standardizing terms for clinical
// pharmacogenetic test results. Genet Med. 19(2):215-223. doi: 10.1038/gim.2016.87
package domain

import (
	"errors"
	"fmt"
	"time"
)

// Gene identifies a pharmacogene supported by the phenotype mapper.
type Gene string

const (
	GeneCYP2D6  Gene = "CYP2D6"
	GeneCYP2C19 Gene = "CYP2C19"
	GeneUGT1A1  Gene = "UGT1A1"
	GeneTPMT    Gene = "TPMT"
	GeneDPYD    Gene = "DPYD"
	GeneSLCO1B1 Gene = "SLCO1B1"
	GeneVKORC1  Gene = "VKORC1"
	GeneNUDT15  Gene = "NUDT15"

	// HLA loci are presence/absence risk markers, not metabolizer genes.
	GeneHLAA Gene = "HLA-A"
	GeneHLAB Gene = "HLA-B"
)

// MetabolizerGenes lists the genes evaluated by the first-match phenotype
// path, in the order their matchers run.
var MetabolizerGenes = []Gene{
	GeneCYP2D6, GeneCYP2C19, GeneUGT1A1, GeneTPMT,
	GeneDPYD, GeneSLCO1B1, GeneVKORC1, GeneNUDT15,
}

// Phenotype is a CPIC-style phenotype classification label.
type Phenotype string

const (
	PhenotypePoorMetabolizer         Phenotype = "Poor metabolizer"
	PhenotypeIntermediateMetabolizer Phenotype = "Intermediate metabolizer"
	PhenotypeNormalMetabolizer       Phenotype = "Normal metabolizer"
	PhenotypeRapidMetabolizer        Phenotype = "Rapid metabolizer"
	PhenotypeUltrarapidMetabolizer   Phenotype = "Ultra-rapid metabolizer"

	// SLCO1B1 is a transporter, classified by function rather than
	// metabolism rate.
	PhenotypeDecreasedFunction Phenotype = "Decreased function"
	PhenotypeNormalFunction    Phenotype = "Normal function"

	// VKORC1 variants alter warfarin sensitivity.
	PhenotypeSensitive         Phenotype = "Sensitive (lower dose)"
	PhenotypeNormalSensitivity Phenotype = "Normal sensitivity"

	// HLA findings are binary presence flags.
	PhenotypePositive Phenotype = "Positive"
)

// Validation errors for clinical data integrity.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidGene      = errors.New("unsupported pharmacogene")
	ErrInvalidPhenotype = errors.New("invalid phenotype classification")
)

// IsValid reports whether the gene is one the mapper supports.
func (g Gene) IsValid() bool {
	switch g {
	case GeneCYP2D6, GeneCYP2C19, GeneUGT1A1, GeneTPMT,
		GeneDPYD, GeneSLCO1B1, GeneVKORC1, GeneNUDT15,
		GeneHLAA, GeneHLAB:
		return true
	default:
		return false
	}
}

// String returns the HGNC gene symbol.
func (g Gene) String() string {
	return string(g)
}

// IsValid reports whether the phenotype label is one the mapper can emit.
func (p Phenotype) IsValid() bool {
	switch p {
	case PhenotypePoorMetabolizer, PhenotypeIntermediateMetabolizer,
		PhenotypeNormalMetabolizer, PhenotypeRapidMetabolizer,
		PhenotypeUltrarapidMetabolizer, PhenotypeDecreasedFunction,
		PhenotypeNormalFunction, PhenotypeSensitive,
		PhenotypeNormalSensitivity, PhenotypePositive:
		return true
	default:
		return false
	}
}

// String returns the string representation of the phenotype.
// Required for proper logging and audit trails in clinical software.
func (p Phenotype) String() string {
	return string(p)
}

// RequiresDoseAdjustment reports whether the phenotype typically triggers a
// CPIC dosing recommendation other than "use standard dosing".
// Conservative default for labels outside the known set.
func (p Phenotype) RequiresDoseAdjustment() bool {
	switch p {
	case PhenotypeNormalMetabolizer, PhenotypeNormalFunction, PhenotypeNormalSensitivity:
		return false
	default:
		return true
	}
}

// LogFields returns structured logging fields for audit trails.
func (p Phenotype) LogFields() map[string]any {
	return map[string]any{
		"phenotype":       string(p),
		"is_valid":        p.IsValid(),
		"dose_adjustment": p.RequiresDoseAdjustment(),
	}
}

// PhenotypeResult is a single gene-to-phenotype classification produced by the
// metabolizer matching path. Genes with no recognized pattern are omitted from
// results entirely rather than emitted with an empty phenotype.
type PhenotypeResult struct {
	Gene      Gene      `json:"gene"`
	Phenotype Phenotype `json:"phenotype"`
}

// Validate ensures the result carries a supported gene and label.
func (r *PhenotypeResult) Validate() error {
	if !r.Gene.IsValid() {
		return fmt.Errorf("phenotype result validation: %w: %s", ErrInvalidGene, r.Gene)
	}
	if !r.Phenotype.IsValid() {
		return fmt.Errorf("phenotype result validation: %w: %s", ErrInvalidPhenotype, r.Phenotype)
	}
	return nil
}

// HLAFinding is a presence-based risk-allele detection. Unlike metabolizer
// results, multiple findings can coexist for the same patient (e.g. both
// B*57:01 and B*15:02 in one result set).
type HLAFinding struct {
	Gene      Gene      `json:"gene"`
	Allele    string    `json:"allele"`
	Phenotype Phenotype `json:"phenotype"`
	Note      string    `json:"note"`
}

// MappingReport is a persisted record of one mapping run.
type MappingReport struct {
	ID               string            `json:"id"`
	ObservationCount int               `json:"observation_count"`
	Phenotypes       []PhenotypeResult `json:"phenotypes"`
	HLAFindings      []HLAFinding      `json:"hla_findings"`
	ProcessingTimeMs int64             `json:"processing_time_ms"`
	CreatedAt        time.Time         `json:"created_at"`
}
