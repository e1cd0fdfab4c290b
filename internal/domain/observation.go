package domain

import "strings"

// Coding is a single FHIR coding entry. Only the fields the text extractor
// reads are modeled; unknown JSON keys are ignored on decode.
type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

// CodeableConcept is a FHIR codeable concept with free text and codings.
type CodeableConcept struct {
	Text   string   `json:"text,omitempty"`
	Coding []Coding `json:"coding,omitempty"`
}

// ObservationComponent is a nested sub-record of an Observation. Genotype
// panels commonly report per-gene results as components.
type ObservationComponent struct {
	Code                 *CodeableConcept `json:"code,omitempty"`
	ValueString          string           `json:"valueString,omitempty"`
	ValueCodeableConcept *CodeableConcept `json:"valueCodeableConcept,omitempty"`
}

// Observation is a loosely structured, FHIR-Observation-like clinical record.
// Every field is optional: upstream lab integrations produce wildly uneven
// shapes, so the extractor must tolerate any combination of missing fields
// without error. The record is read-only input, never mutated or persisted
// by the mapping engine.
type Observation struct {
	Code                 *CodeableConcept       `json:"code,omitempty"`
	ValueString          string                 `json:"valueString,omitempty"`
	ValueCodeableConcept *CodeableConcept       `json:"valueCodeableConcept,omitempty"`
	Value                any                    `json:"value,omitempty"`
	Interpretation       *CodeableConcept       `json:"interpretation,omitempty"`
	Component            []ObservationComponent `json:"component,omitempty"`
}

// coerceText returns the trimmed string form of a loosely typed value.
// Non-string values degrade to the empty string rather than an error.
func coerceText(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// conceptText extracts the free-text field of a codeable concept, null-safe.
func conceptText(c *CodeableConcept) string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Text)
}

// codingDisplay extracts the display of the first coding entry, null-safe.
func codingDisplay(c *CodeableConcept) string {
	if c == nil || len(c.Coding) == 0 {
		return ""
	}
	return strings.TrimSpace(c.Coding[0].Display)
}

// SearchText concatenates every text-bearing field of the observation,
// including all component sub-fields, into one space-joined string. The
// field order is fixed: code.text, code.coding[0].display, valueString,
// valueCodeableConcept.text, value, interpretation.text, then per component
// code.text, valueString, valueCodeableConcept.text. Missing or malformed
// fields are simply omitted; the function is total and never fails.
func (o *Observation) SearchText() string {
	if o == nil {
		return ""
	}

	parts := make([]string, 0, 6+3*len(o.Component))
	appendPart := func(s string) {
		if s != "" {
			parts = append(parts, s)
		}
	}

	appendPart(conceptText(o.Code))
	appendPart(codingDisplay(o.Code))
	appendPart(strings.TrimSpace(o.ValueString))
	appendPart(conceptText(o.ValueCodeableConcept))
	appendPart(coerceText(o.Value))
	appendPart(conceptText(o.Interpretation))

	for i := range o.Component {
		comp := &o.Component[i]
		appendPart(conceptText(comp.Code))
		appendPart(strings.TrimSpace(comp.ValueString))
		appendPart(conceptText(comp.ValueCodeableConcept))
	}

	return strings.Join(parts, " ")
}

// CollectText joins the search text of all observations into a single
// string. Matching deliberately runs over this combined text rather than
// per observation, so tokens contributed by separate records can satisfy
// one pattern together (single-patient, single-panel assumption).
func CollectText(observations []Observation) string {
	parts := make([]string, 0, len(observations))
	for i := range observations {
		if text := observations[i].SearchText(); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
