package phenotype

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oncosaferx/phenotype-server/internal/domain"
)

func newTestEngine() *Engine {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewEngine(logger)
}

func obsWithValue(code, value string) domain.Observation {
	return domain.Observation{
		Code:        &domain.CodeableConcept{Text: code},
		ValueString: value,
	}
}

func TestMapObservations_EmptyInput(t *testing.T) {
	engine := newTestEngine()

	// Act
	results := engine.MapObservations(nil)
	findings := engine.DetectHLA(nil)

	// Assert: empty slices, never nil
	require.NotNil(t, results)
	require.NotNil(t, findings)
	assert.Empty(t, results)
	assert.Empty(t, findings)

	assert.Empty(t, engine.MapObservations([]domain.Observation{}))
	assert.Empty(t, engine.DetectHLA([]domain.Observation{}))
}

func TestMapObservations_CYP2D6PoorMetabolizer(t *testing.T) {
	engine := newTestEngine()

	// Arrange: the canonical genotype panel shape, gene in code, diplotype in value
	observations := []domain.Observation{obsWithValue("CYP2D6", "*4/*4")}

	// Act
	results := engine.MapObservations(observations)

	// Assert
	require.Len(t, results, 1)
	assert.Equal(t, domain.GeneCYP2D6, results[0].Gene)
	assert.Equal(t, domain.PhenotypePoorMetabolizer, results[0].Phenotype)
}

func TestMapObservations_FirstMatchPriority(t *testing.T) {
	engine := newTestEngine()

	// Text satisfies both the poor and the normal pattern; the more severe
	// classification must win regardless of token order.
	observations := []domain.Observation{
		obsWithValue("CYP2D6", "*1/*1 reported previously, current result *4/*4"),
	}

	results := engine.MapObservations(observations)

	require.Len(t, results, 1)
	assert.Equal(t, domain.PhenotypePoorMetabolizer, results[0].Phenotype)
}

func TestMapObservations_CaseInsensitive(t *testing.T) {
	engine := newTestEngine()

	for _, text := range []string{"cyp2d6 *4/*4", "CYP2D6 *4/*4", "Cyp2D6 *4/*4"} {
		results := engine.MapObservations([]domain.Observation{{ValueString: text}})
		require.Len(t, results, 1, "input %q", text)
		assert.Equal(t, domain.PhenotypePoorMetabolizer, results[0].Phenotype, "input %q", text)
	}
}

func TestMapObservations_UnmatchedGeneOmitted(t *testing.T) {
	engine := newTestEngine()

	// DPYD is mentioned but carries no recognizable variant or wildtype marker.
	results := engine.MapObservations([]domain.Observation{
		obsWithValue("DPYD", "specimen unsatisfactory, repeat requested"),
	})

	for _, r := range results {
		assert.NotEqual(t, domain.GeneDPYD, r.Gene)
	}
	assert.Empty(t, results)
}

func TestMapObservations_ComponentFieldsScanned(t *testing.T) {
	engine := newTestEngine()

	// Gene and variant live only in a nested component; top level is empty.
	observations := []domain.Observation{
		{
			Component: []domain.ObservationComponent{
				{ValueString: "VKORC1 -1639 G>A"},
			},
		},
	}

	results := engine.MapObservations(observations)

	require.Len(t, results, 1)
	assert.Equal(t, domain.GeneVKORC1, results[0].Gene)
	assert.Equal(t, domain.PhenotypeSensitive, results[0].Phenotype)
}

func TestMapObservations_CrossObservationConcatenation(t *testing.T) {
	engine := newTestEngine()

	// The diplotype and an unrelated second record are joined before
	// matching; the UGT1A1 result must still be produced.
	observations := []domain.Observation{
		obsWithValue("UGT1A1", "*28/*28"),
		obsWithValue("Blood pressure", "120/80 mmHg"),
	}

	results := engine.MapObservations(observations)

	require.Len(t, results, 1)
	assert.Equal(t, domain.GeneUGT1A1, results[0].Gene)
	assert.Equal(t, domain.PhenotypePoorMetabolizer, results[0].Phenotype)
}

func TestMapObservations_Deterministic(t *testing.T) {
	engine := newTestEngine()
	observations := []domain.Observation{
		obsWithValue("CYP2C19", "*2/*17 with prior *1/*2 comment"),
		obsWithValue("TPMT", "*1/*3A"),
	}

	first := engine.MapObservations(observations)
	second := engine.MapObservations(observations)

	assert.Equal(t, first, second)
}

func TestMapObservations_NonStringValueDoesNotPanic(t *testing.T) {
	engine := newTestEngine()

	observations := []domain.Observation{
		{Value: 42.5},
		{Value: map[string]any{"nested": true}},
		{Value: nil},
	}

	assert.NotPanics(t, func() {
		engine.MapObservations(observations)
		engine.DetectHLA(observations)
	})
}

func TestMapObservations_GeneRuleTables(t *testing.T) {
	engine := newTestEngine()

	tests := []struct {
		name string
		text string
		gene domain.Gene
		want domain.Phenotype
	}{
		{"CYP2D6 poor *5/*5", "CYP2D6 *5/*5", domain.GeneCYP2D6, domain.PhenotypePoorMetabolizer},
		{"CYP2D6 ultrarapid duplication", "CYP2D6 *1xN detected", domain.GeneCYP2D6, domain.PhenotypeUltrarapidMetabolizer},
		{"CYP2D6 intermediate *1/*41", "CYP2D6 genotype *1/*41", domain.GeneCYP2D6, domain.PhenotypeIntermediateMetabolizer},
		{"CYP2D6 normal *1/*2", "CYP2D6 genotype *1/*2", domain.GeneCYP2D6, domain.PhenotypeNormalMetabolizer},
		{"CYP2C19 poor *2/*3", "CYP2C19 *2/*3", domain.GeneCYP2C19, domain.PhenotypePoorMetabolizer},
		{"CYP2C19 intermediate *1/*2", "CYP2C19 *1/*2", domain.GeneCYP2C19, domain.PhenotypeIntermediateMetabolizer},
		{"CYP2C19 rapid *1/*17", "CYP2C19 *1/*17", domain.GeneCYP2C19, domain.PhenotypeRapidMetabolizer},
		{"CYP2C19 ultrarapid *17/*17", "CYP2C19 *17/*17", domain.GeneCYP2C19, domain.PhenotypeUltrarapidMetabolizer},
		{"CYP2C19 normal *1/*1", "CYP2C19 *1/*1", domain.GeneCYP2C19, domain.PhenotypeNormalMetabolizer},
		{"UGT1A1 intermediate", "UGT1A1 *1/*28", domain.GeneUGT1A1, domain.PhenotypeIntermediateMetabolizer},
		{"TPMT poor compound", "TPMT *3A/*3C", domain.GeneTPMT, domain.PhenotypePoorMetabolizer},
		{"TPMT intermediate", "TPMT *1/*3C", domain.GeneTPMT, domain.PhenotypeIntermediateMetabolizer},
		{"TPMT normal", "TPMT *1/*1", domain.GeneTPMT, domain.PhenotypeNormalMetabolizer},
		{"DPYD intermediate *2A", "DPYD *2A heterozygous", domain.GeneDPYD, domain.PhenotypeIntermediateMetabolizer},
		{"DPYD intermediate c.2846A>T", "DPYD c.2846A>T", domain.GeneDPYD, domain.PhenotypeIntermediateMetabolizer},
		{"DPYD intermediate HapB3", "DPYD HapB3 haplotype", domain.GeneDPYD, domain.PhenotypeIntermediateMetabolizer},
		{"DPYD normal wildtype", "DPYD wildtype", domain.GeneDPYD, domain.PhenotypeNormalMetabolizer},
		{"DPYD normal no variant", "DPYD no variant detected", domain.GeneDPYD, domain.PhenotypeNormalMetabolizer},
		{"SLCO1B1 decreased c.521T>C", "SLCO1B1 c.521T>C", domain.GeneSLCO1B1, domain.PhenotypeDecreasedFunction},
		{"SLCO1B1 decreased *5", "SLCO1B1 *5 allele present", domain.GeneSLCO1B1, domain.PhenotypeDecreasedFunction},
		{"SLCO1B1 normal WT", "SLCO1B1 WT", domain.GeneSLCO1B1, domain.PhenotypeNormalFunction},
		{"VKORC1 sensitive -1639G>A", "VKORC1 -1639G>A", domain.GeneVKORC1, domain.PhenotypeSensitive},
		{"VKORC1 sensitive A/A", "VKORC1 genotype A/A", domain.GeneVKORC1, domain.PhenotypeSensitive},
		{"VKORC1 normal G/G", "VKORC1 genotype G/G", domain.GeneVKORC1, domain.PhenotypeNormalSensitivity},
		{"NUDT15 poor *3/*3", "NUDT15 *3/*3", domain.GeneNUDT15, domain.PhenotypePoorMetabolizer},
		{"NUDT15 intermediate *1/*3", "NUDT15 *1/*3", domain.GeneNUDT15, domain.PhenotypeIntermediateMetabolizer},
		{"NUDT15 normal *1/*1", "NUDT15 *1/*1", domain.GeneNUDT15, domain.PhenotypeNormalMetabolizer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := engine.MapObservations([]domain.Observation{{ValueString: tt.text}})

			require.Len(t, results, 1)
			assert.Equal(t, tt.gene, results[0].Gene)
			assert.Equal(t, tt.want, results[0].Phenotype)
		})
	}
}

func TestMapObservations_GeneMentionRequired(t *testing.T) {
	engine := newTestEngine()

	// A bare diplotype with no gene symbol must not produce a result.
	results := engine.MapObservations([]domain.Observation{{ValueString: "*4/*4"}})

	assert.Empty(t, results)
}

func TestSupportedGenes(t *testing.T) {
	engine := newTestEngine()

	assert.Equal(t, domain.MetabolizerGenes, engine.SupportedGenes())
}
