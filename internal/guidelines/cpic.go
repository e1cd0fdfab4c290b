// Package guidelines provides the curated CPIC dosing guideline reference
// table and a cached lookup service over it.
package guidelines

import (
	"github.com/oncosaferx/phenotype-server/internal/domain"
)

// Guideline is one curated CPIC dosing recommendation for a gene/phenotype
// pair. Allele is set only for HLA presence findings.
type Guideline struct {
	Gene           domain.Gene      `json:"gene"`
	Phenotype      domain.Phenotype `json:"phenotype"`
	Allele         string           `json:"allele,omitempty"`
	Drug           string           `json:"drug"`
	Recommendation string           `json:"recommendation"`
	EvidenceLevel  string           `json:"evidence_level"`
	Source         string           `json:"source"`
}

// cpicGuidelines is the static reference table. Entries are curated from
// published CPIC guidelines; the external CPIC API client can refresh
// annotations but this table is always the fallback.
var cpicGuidelines = []Guideline{
	{
		Gene: domain.GeneCYP2D6, Phenotype: domain.PhenotypePoorMetabolizer,
		Drug:           "codeine",
		Recommendation: "Avoid codeine; greatly reduced morphine formation. Use a non-tramadol alternative analgesic.",
		EvidenceLevel:  "A",
		Source:         "https://cpicpgx.org/guidelines/guideline-for-codeine-and-cyp2d6/",
	},
	{
		Gene: domain.GeneCYP2D6, Phenotype: domain.PhenotypeUltrarapidMetabolizer,
		Drug:           "codeine",
		Recommendation: "Avoid codeine; risk of morphine toxicity from ultra-rapid conversion.",
		EvidenceLevel:  "A",
		Source:         "https://cpicpgx.org/guidelines/guideline-for-codeine-and-cyp2d6/",
	},
	{
		Gene: domain.GeneCYP2D6, Phenotype: domain.PhenotypePoorMetabolizer,
		Drug:           "tamoxifen",
		Recommendation: "Consider an alternative endocrine therapy (aromatase inhibitor); reduced endoxifen exposure.",
		EvidenceLevel:  "A",
		Source:         "https://cpicpgx.org/guidelines/cpic-guideline-for-tamoxifen-based-on-cyp2d6-genotype/",
	},
	{
		Gene: domain.GeneCYP2C19, Phenotype: domain.PhenotypePoorMetabolizer,
		Drug:           "clopidogrel",
		Recommendation: "Use an alternative antiplatelet agent (prasugrel or ticagrelor) if no contraindication.",
		EvidenceLevel:  "A",
		Source:         "https://cpicpgx.org/guidelines/guideline-for-clopidogrel-and-cyp2c19/",
	},
	{
		Gene: domain.GeneCYP2C19, Phenotype: domain.PhenotypeIntermediateMetabolizer,
		Drug:           "clopidogrel",
		Recommendation: "Consider an alternative antiplatelet agent; reduced platelet inhibition.",
		EvidenceLevel:  "A",
		Source:         "https://cpicpgx.org/guidelines/guideline-for-clopidogrel-and-cyp2c19/",
	},
	{
		Gene: domain.GeneCYP2C19, Phenotype: domain.PhenotypeUltrarapidMetabolizer,
		Drug:           "voriconazole",
		Recommendation: "Choose an alternative azole; subtherapeutic voriconazole exposure likely.",
		EvidenceLevel:  "A",
		Source:         "https://cpicpgx.org/guidelines/guideline-for-voriconazole-and-cyp2c19/",
	},
	{
		Gene: domain.GeneUGT1A1, Phenotype: domain.PhenotypePoorMetabolizer,
		Drug:           "irinotecan",
		Recommendation: "Reduce starting dose by at least 30%; increased risk of neutropenia.",
		EvidenceLevel:  "A",
		Source:         "https://cpicpgx.org/guidelines/",
	},
	{
		Gene: domain.GeneTPMT, Phenotype: domain.PhenotypePoorMetabolizer,
		Drug:           "azathioprine",
		Recommendation: "Drastically reduce dose (10-fold) and dose thrice weekly, or use an alternative agent.",
		EvidenceLevel:  "A",
		Source:         "https://cpicpgx.org/guidelines/guideline-for-thiopurines-and-tpmt/",
	},
	{
		Gene: domain.GeneTPMT, Phenotype: domain.PhenotypeIntermediateMetabolizer,
		Drug:           "azathioprine",
		Recommendation: "Start at 30-80% of target dose; titrate by tolerance and myelosuppression.",
		EvidenceLevel:  "A",
		Source:         "https://cpicpgx.org/guidelines/guideline-for-thiopurines-and-tpmt/",
	},
	{
		Gene: domain.GeneDPYD, Phenotype: domain.PhenotypeIntermediateMetabolizer,
		Drug:           "fluorouracil",
		Recommendation: "Reduce starting dose by 50%; titrate by toxicity or DPD activity if available.",
		EvidenceLevel:  "A",
		Source:         "https://cpicpgx.org/guidelines/guideline-for-fluoropyrimidines-and-dpyd/",
	},
	{
		Gene: domain.GeneDPYD, Phenotype: domain.PhenotypeIntermediateMetabolizer,
		Drug:           "capecitabine",
		Recommendation: "Reduce starting dose by 50%; titrate by toxicity.",
		EvidenceLevel:  "A",
		Source:         "https://cpicpgx.org/guidelines/guideline-for-fluoropyrimidines-and-dpyd/",
	},
	{
		Gene: domain.GeneSLCO1B1, Phenotype: domain.PhenotypeDecreasedFunction,
		Drug:           "simvastatin",
		Recommendation: "Prescribe a lower dose or an alternative statin (rosuvastatin, pravastatin); myopathy risk.",
		EvidenceLevel:  "A",
		Source:         "https://cpicpgx.org/guidelines/cpic-guideline-for-statins/",
	},
	{
		Gene: domain.GeneVKORC1, Phenotype: domain.PhenotypeSensitive,
		Drug:           "warfarin",
		Recommendation: "Lower initial dose; use a validated pharmacogenetic dosing algorithm.",
		EvidenceLevel:  "A",
		Source:         "https://cpicpgx.org/guidelines/guideline-for-warfarin-and-cyp2c9-and-vkorc1/",
	},
	{
		Gene: domain.GeneNUDT15, Phenotype: domain.PhenotypePoorMetabolizer,
		Drug:           "mercaptopurine",
		Recommendation: "Drastically reduce dose (10-fold) or use an alternative agent; severe myelosuppression risk.",
		EvidenceLevel:  "A",
		Source:         "https://cpicpgx.org/guidelines/guideline-for-thiopurines-and-nudt15/",
	},
	{
		Gene: domain.GeneNUDT15, Phenotype: domain.PhenotypeIntermediateMetabolizer,
		Drug:           "mercaptopurine",
		Recommendation: "Start at 30-80% of target dose; titrate by myelosuppression.",
		EvidenceLevel:  "A",
		Source:         "https://cpicpgx.org/guidelines/guideline-for-thiopurines-and-nudt15/",
	},
	{
		Gene: domain.GeneHLAB, Phenotype: domain.PhenotypePositive, Allele: "HLA-B*57:01",
		Drug:           "abacavir",
		Recommendation: "Abacavir is contraindicated; document the allele in the medical record.",
		EvidenceLevel:  "A",
		Source:         "https://cpicpgx.org/guidelines/guideline-for-abacavir-and-hla-b/",
	},
	{
		Gene: domain.GeneHLAB, Phenotype: domain.PhenotypePositive, Allele: "HLA-B*15:02",
		Drug:           "carbamazepine",
		Recommendation: "Avoid carbamazepine and oxcarbazepine if carbamazepine-naive; SJS/TEN risk.",
		EvidenceLevel:  "A",
		Source:         "https://cpicpgx.org/guidelines/guideline-for-carbamazepine-and-hla-b/",
	},
	{
		Gene: domain.GeneHLAA, Phenotype: domain.PhenotypePositive, Allele: "HLA-A*31:01",
		Drug:           "carbamazepine",
		Recommendation: "Consider an alternative anticonvulsant; hypersensitivity reaction risk.",
		EvidenceLevel:  "A",
		Source:         "https://cpicpgx.org/guidelines/guideline-for-carbamazepine-and-hla-b/",
	},
	{
		Gene: domain.GeneHLAB, Phenotype: domain.PhenotypePositive, Allele: "HLA-B*58:01",
		Drug:           "allopurinol",
		Recommendation: "Avoid allopurinol; severe cutaneous adverse reaction risk. Consider febuxostat.",
		EvidenceLevel:  "A",
		Source:         "https://cpicpgx.org/guidelines/guideline-for-allopurinol-and-hla-b/",
	},
}
