package phenotype

import (
	"regexp"

	"github.com/oncosaferx/phenotype-server/internal/domain"
)

// matchRule pairs a diplotype/variant pattern with the phenotype it implies.
// Patterns are written in uppercase and applied to the normalized
// (uppercased) observation text.
type matchRule struct {
	pattern   *regexp.Regexp
	phenotype domain.Phenotype
}

// geneMatcher is the ordered rule table for one pharmacogene. A matcher only
// fires when the gene symbol itself is mentioned in the text; its rules are
// then evaluated in declaration order and the FIRST match wins. The order is
// a clinical-safety default: the most severe phenotype is listed first, so
// ambiguous text that could satisfy several patterns resolves to the worse
// classification. Do not reorder without CPIC review.
type geneMatcher struct {
	gene    domain.Gene
	mention *regexp.Regexp
	rules   []matchRule
}

// match returns the phenotype for the first rule matching the normalized
// text, or false when the gene is not mentioned or no pattern applies.
func (m *geneMatcher) match(text string) (domain.Phenotype, bool) {
	if !m.mention.MatchString(text) {
		return "", false
	}
	for _, rule := range m.rules {
		if rule.pattern.MatchString(text) {
			return rule.phenotype, true
		}
	}
	return "", false
}

// metabolizerMatchers holds the rule tables for the eight supported
// pharmacogenes. Each gene contributes at most one result per mapping run.
var metabolizerMatchers = []geneMatcher{
	{
		gene:    domain.GeneCYP2D6,
		mention: regexp.MustCompile(`\bCYP2D6\b`),
		rules: []matchRule{
			{regexp.MustCompile(`\*4\s*/\s*\*4|\*5\s*/\s*\*5`), domain.PhenotypePoorMetabolizer},
			{regexp.MustCompile(`\*(?:1|2)\s*X\s*N`), domain.PhenotypeUltrarapidMetabolizer},
			{regexp.MustCompile(`\*1\s*/\s*\*4|\*1\s*/\s*\*5|\*2\s*/\s*\*4|\*2\s*/\s*\*5|\*1\s*/\s*\*10|\*1\s*/\s*\*41|\*2\s*/\s*\*10|\*2\s*/\s*\*41|\*10\s*/\s*\*10|\*41\s*/\s*\*41`), domain.PhenotypeIntermediateMetabolizer},
			{regexp.MustCompile(`\*1\s*/\s*\*1|\*1\s*/\s*\*2|\*2\s*/\s*\*2`), domain.PhenotypeNormalMetabolizer},
		},
	},
	{
		gene:    domain.GeneCYP2C19,
		mention: regexp.MustCompile(`\bCYP2C19\b`),
		rules: []matchRule{
			{regexp.MustCompile(`\*2\s*/\s*\*2|\*2\s*/\s*\*3|\*3\s*/\s*\*3`), domain.PhenotypePoorMetabolizer},
			{regexp.MustCompile(`\*1\s*/\s*\*2|\*1\s*/\s*\*3`), domain.PhenotypeIntermediateMetabolizer},
			{regexp.MustCompile(`\*1\s*/\s*\*17`), domain.PhenotypeRapidMetabolizer},
			{regexp.MustCompile(`\*17\s*/\s*\*17`), domain.PhenotypeUltrarapidMetabolizer},
			{regexp.MustCompile(`\*1\s*/\s*\*1`), domain.PhenotypeNormalMetabolizer},
		},
	},
	{
		gene:    domain.GeneUGT1A1,
		mention: regexp.MustCompile(`\bUGT1A1\b`),
		rules: []matchRule{
			{regexp.MustCompile(`\*28\s*/\s*\*28`), domain.PhenotypePoorMetabolizer},
			{regexp.MustCompile(`\*1\s*/\s*\*28`), domain.PhenotypeIntermediateMetabolizer},
			{regexp.MustCompile(`\*1\s*/\s*\*1`), domain.PhenotypeNormalMetabolizer},
		},
	},
	{
		gene:    domain.GeneTPMT,
		mention: regexp.MustCompile(`\bTPMT\b`),
		rules: []matchRule{
			{regexp.MustCompile(`\*(?:2|3A|3C)\s*/\s*\*(?:2|3A|3C)`), domain.PhenotypePoorMetabolizer},
			{regexp.MustCompile(`\*1\s*/\s*\*(?:2|3A|3C)`), domain.PhenotypeIntermediateMetabolizer},
			{regexp.MustCompile(`\*1\s*/\s*\*1`), domain.PhenotypeNormalMetabolizer},
		},
	},
	{
		gene:    domain.GeneDPYD,
		mention: regexp.MustCompile(`\bDPYD\b`),
		rules: []matchRule{
			{regexp.MustCompile(`\*2A|C\.1905\+1G\s*>\s*A|C\.2846A\s*>\s*T|HAPB3|C\.1679T\s*>\s*G|\*13|C\.1236G\s*>\s*A`), domain.PhenotypeIntermediateMetabolizer},
			{regexp.MustCompile(`NO\s+VARIANT|WILD[\s-]?TYPE`), domain.PhenotypeNormalMetabolizer},
		},
	},
	{
		gene:    domain.GeneSLCO1B1,
		mention: regexp.MustCompile(`\bSLCO1B1\b`),
		rules: []matchRule{
			{regexp.MustCompile(`C\.521\s*T\s*>\s*C|\b521\s*C\b|\*5\b`), domain.PhenotypeDecreasedFunction},
			{regexp.MustCompile(`\bWT\b|WILD[\s-]?TYPE|NO\s+VARIANT`), domain.PhenotypeNormalFunction},
		},
	},
	{
		gene:    domain.GeneVKORC1,
		mention: regexp.MustCompile(`\bVKORC1\b`),
		rules: []matchRule{
			{regexp.MustCompile(`(?:C\.)?-?\s*1639\s*G\s*>\s*A|\bA\s*/\s*A\b|\bAA\b`), domain.PhenotypeSensitive},
			{regexp.MustCompile(`\bG\s*/\s*G\b|\bGG\b`), domain.PhenotypeNormalSensitivity},
		},
	},
	{
		gene:    domain.GeneNUDT15,
		mention: regexp.MustCompile(`\bNUDT15\b`),
		rules: []matchRule{
			{regexp.MustCompile(`\*2\s*/\s*\*2|\*2\s*/\s*\*3|\*3\s*/\s*\*3`), domain.PhenotypePoorMetabolizer},
			{regexp.MustCompile(`\*1\s*/\s*\*2|\*1\s*/\s*\*3`), domain.PhenotypeIntermediateMetabolizer},
			{regexp.MustCompile(`\*1\s*/\s*\*1`), domain.PhenotypeNormalMetabolizer},
		},
	},
}

// hlaRule is a presence check for one HLA risk allele. Unlike metabolizer
// rules these are evaluated independently: a patient can carry any
// combination of risk alleles, so every matching rule produces a finding.
type hlaRule struct {
	gene    domain.Gene
	allele  string
	pattern *regexp.Regexp
	note    string
}

// hlaRiskAlleles are checked against the raw joined text with
// case-insensitive patterns. The patterns tolerate separator variation:
// optional hyphen or space between locus and gene, optional asterisk, and
// optional colon between allele group and protein ("HLA-B*57:01",
// "HLA B*5701" and "HLAB5701" all match).
var hlaRiskAlleles = []hlaRule{
	{
		gene:    domain.GeneHLAB,
		allele:  "HLA-B*57:01",
		pattern: regexp.MustCompile(`(?i)HLA[-\s]?B\s*\*?\s*57\s*:?\s*01`),
		note:    "Risk of abacavir hypersensitivity",
	},
	{
		gene:    domain.GeneHLAB,
		allele:  "HLA-B*15:02",
		pattern: regexp.MustCompile(`(?i)HLA[-\s]?B\s*\*?\s*15\s*:?\s*02`),
		note:    "Risk of Stevens-Johnson syndrome/toxic epidermal necrolysis with carbamazepine",
	},
	{
		gene:    domain.GeneHLAA,
		allele:  "HLA-A*31:01",
		pattern: regexp.MustCompile(`(?i)HLA[-\s]?A\s*\*?\s*31\s*:?\s*01`),
		note:    "Risk of hypersensitivity reactions with carbamazepine",
	},
	{
		gene:    domain.GeneHLAB,
		allele:  "HLA-B*58:01",
		pattern: regexp.MustCompile(`(?i)HLA[-\s]?B\s*\*?\s*58\s*:?\s*01`),
		note:    "Risk of severe cutaneous adverse reactions with allopurinol",
	},
}
