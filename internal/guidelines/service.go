package guidelines

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/oncosaferx/phenotype-server/internal/domain"
)

// Cache defaults used when the caller passes zero values. The key space is
// small (gene x phenotype) so the default size is effectively "cache
// everything".
const (
	defaultCacheSize = 128
	defaultCacheTTL  = 24 * time.Hour
)

type lookupKey struct {
	gene      domain.Gene
	phenotype domain.Phenotype
}

// Service answers guideline lookups from the curated CPIC table, caching
// per-key result slices in an expiring LRU so repeated lookups (the common
// case: the same handful of phenotypes over and over) skip the table scan.
type Service struct {
	logger *logrus.Logger
	table  []Guideline
	cache  *expirable.LRU[lookupKey, []Guideline]
}

// NewService creates a guideline lookup service over the curated table.
// maxItems and ttl bound the lookup cache; zero values select defaults.
func NewService(logger *logrus.Logger, maxItems int, ttl time.Duration) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	if maxItems <= 0 {
		maxItems = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	svc := &Service{
		logger: logger,
		table:  cpicGuidelines,
		cache:  expirable.NewLRU[lookupKey, []Guideline](maxItems, nil, ttl),
	}

	logger.WithFields(logrus.Fields{
		"guideline_count": len(svc.table),
		"cache_max_items": maxItems,
		"cache_ttl":       ttl,
	}).Info("Loaded CPIC guideline table")
	return svc
}

// Lookup returns every guideline for the gene/phenotype pair. The result is
// never nil; unknown pairs yield an empty slice.
func (s *Service) Lookup(gene domain.Gene, phenotype domain.Phenotype) []Guideline {
	key := lookupKey{gene: gene, phenotype: phenotype}
	if cached, ok := s.cache.Get(key); ok {
		return cached
	}

	matches := make([]Guideline, 0, 2)
	for _, g := range s.table {
		if g.Gene == gene && g.Phenotype == phenotype {
			matches = append(matches, g)
		}
	}

	s.cache.Add(key, matches)
	s.logger.WithFields(logrus.Fields{
		"gene":      gene.String(),
		"phenotype": phenotype.String(),
		"matches":   len(matches),
	}).Debug("Guideline lookup")

	return matches
}

// ForGene returns every guideline for a gene regardless of phenotype.
func (s *Service) ForGene(gene domain.Gene) []Guideline {
	matches := make([]Guideline, 0, 4)
	for _, g := range s.table {
		if g.Gene == gene {
			matches = append(matches, g)
		}
	}
	return matches
}

// ForAllele returns guidelines for an HLA risk allele.
func (s *Service) ForAllele(allele string) []Guideline {
	matches := make([]Guideline, 0, 1)
	for _, g := range s.table {
		if g.Allele == allele {
			matches = append(matches, g)
		}
	}
	return matches
}

// All returns the full curated table.
func (s *Service) All() []Guideline {
	out := make([]Guideline, len(s.table))
	copy(out, s.table)
	return out
}

// Annotate returns guidelines applicable to a set of mapping results, used
// by the API layer to attach dosing recommendations to a report.
func (s *Service) Annotate(results []domain.PhenotypeResult, findings []domain.HLAFinding) []Guideline {
	out := make([]Guideline, 0, len(results)+len(findings))
	for _, r := range results {
		out = append(out, s.Lookup(r.Gene, r.Phenotype)...)
	}
	for _, f := range findings {
		out = append(out, s.ForAllele(f.Allele)...)
	}
	return out
}
