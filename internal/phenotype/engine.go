// Package phenotype implements the deterministic PGx phenotype mapping
// engine: rule tables of (pattern, label) pairs per pharmacogene applied to
// free-text clinical observations, plus a presence-based HLA risk-allele
// detector.
package phenotype

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/oncosaferx/phenotype-server/internal/domain"
)

// Engine maps clinical observation text to phenotype classifications. It is
// immutable after construction and safe for concurrent use; mapping is a
// pure, synchronous function of its input with no I/O.
type Engine struct {
	logger    *logrus.Logger
	matchers  []geneMatcher
	hlaChecks []hlaRule
}

// NewEngine creates a phenotype mapping engine.
func NewEngine(logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{
		logger:    logger,
		matchers:  metabolizerMatchers,
		hlaChecks: hlaRiskAlleles,
	}
}

// MapObservations runs every metabolizer matcher against the combined text
// of all observations and returns one result per gene that matched. Genes
// with no recognizable pattern are omitted. The result is never nil; empty
// or missing input yields an empty slice.
//
// Text from ALL observations is concatenated before matching, so a
// diplotype in one record and a gene mention in another can combine into a
// match. That is the documented single-patient panel behavior, kept as-is
// pending product-owner clarification.
func (e *Engine) MapObservations(observations []domain.Observation) []domain.PhenotypeResult {
	text := strings.ToUpper(domain.CollectText(observations))

	results := make([]domain.PhenotypeResult, 0, len(e.matchers))
	for i := range e.matchers {
		matcher := &e.matchers[i]
		label, ok := matcher.match(text)
		if !ok {
			continue
		}
		e.logger.WithFields(logrus.Fields{
			"gene":      matcher.gene.String(),
			"phenotype": label.String(),
		}).Debug("Phenotype pattern matched")
		results = append(results, domain.PhenotypeResult{
			Gene:      matcher.gene,
			Phenotype: label,
		})
	}

	e.logger.WithFields(logrus.Fields{
		"observations": len(observations),
		"genes_mapped": len(results),
	}).Info("Completed phenotype mapping")

	return results
}

// DetectHLA scans the raw joined observation text for every known HLA risk
// allele and returns a finding per matching allele. Checks are independent:
// all matches are reported, in rule-table order, though callers must not
// rely on ordering beyond "all matches present". Never returns nil.
func (e *Engine) DetectHLA(observations []domain.Observation) []domain.HLAFinding {
	text := domain.CollectText(observations)

	findings := make([]domain.HLAFinding, 0, len(e.hlaChecks))
	for i := range e.hlaChecks {
		check := &e.hlaChecks[i]
		if !check.pattern.MatchString(text) {
			continue
		}
		e.logger.WithFields(logrus.Fields{
			"gene":   check.gene.String(),
			"allele": check.allele,
		}).Debug("HLA risk allele detected")
		findings = append(findings, domain.HLAFinding{
			Gene:      check.gene,
			Allele:    check.allele,
			Phenotype: domain.PhenotypePositive,
			Note:      check.note,
		})
	}

	e.logger.WithFields(logrus.Fields{
		"observations": len(observations),
		"findings":     len(findings),
	}).Info("Completed HLA risk-allele scan")

	return findings
}

// SupportedGenes returns the metabolizer genes the engine evaluates, in
// matcher order.
func (e *Engine) SupportedGenes() []domain.Gene {
	genes := make([]domain.Gene, 0, len(e.matchers))
	for i := range e.matchers {
		genes = append(genes, e.matchers[i].gene)
	}
	return genes
}
