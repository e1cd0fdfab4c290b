package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchText_AllFields(t *testing.T) {
	obs := Observation{
		Code: &CodeableConcept{
			Text:   "CYP2D6 genotype",
			Coding: []Coding{{Display: "CYP2D6 gene analysis"}},
		},
		ValueString:          "*4/*4",
		ValueCodeableConcept: &CodeableConcept{Text: "Poor metabolizer"},
		Value:                "homozygous",
		Interpretation:       &CodeableConcept{Text: "Abnormal"},
		Component: []ObservationComponent{
			{
				Code:                 &CodeableConcept{Text: "allele 1"},
				ValueString:          "*4",
				ValueCodeableConcept: &CodeableConcept{Text: "no function"},
			},
		},
	}

	text := obs.SearchText()

	assert.Equal(t,
		"CYP2D6 genotype CYP2D6 gene analysis *4/*4 Poor metabolizer homozygous Abnormal allele 1 *4 no function",
		text)
}

func TestSearchText_EmptyAndNil(t *testing.T) {
	var nilObs *Observation
	assert.Equal(t, "", nilObs.SearchText())
	assert.Equal(t, "", (&Observation{}).SearchText())
}

func TestSearchText_NonStringValue(t *testing.T) {
	// Loosely typed value fields must degrade to omission, never panic.
	tests := []struct {
		name  string
		value any
	}{
		{"number", 7.5},
		{"bool", true},
		{"map", map[string]any{"k": "v"}},
		{"slice", []string{"a"}},
		{"nil", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := Observation{Value: tt.value, ValueString: "kept"}
			assert.Equal(t, "kept", obs.SearchText())
		})
	}
}

func TestSearchText_MissingNestedFields(t *testing.T) {
	obs := Observation{
		Code: &CodeableConcept{}, // no text, no codings
		Component: []ObservationComponent{
			{}, // fully empty component
			{ValueString: "  VKORC1 -1639 G>A  "},
		},
	}

	assert.Equal(t, "VKORC1 -1639 G>A", obs.SearchText())
}

func TestCollectText_JoinsObservations(t *testing.T) {
	observations := []Observation{
		{ValueString: "UGT1A1"},
		{},
		{ValueString: "*28/*28"},
	}

	assert.Equal(t, "UGT1A1 *28/*28", CollectText(observations))
	assert.Equal(t, "", CollectText(nil))
}
