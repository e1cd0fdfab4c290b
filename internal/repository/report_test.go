package repository

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oncosaferx/phenotype-server/internal/domain"
)

// fakeRow implements pgx.Row over a fixed set of column values.
type fakeRow struct {
	values []any
	err    error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("expected %d destinations, got %d", len(r.values), len(dest))
	}
	for i, v := range r.values {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *int:
			*d = v.(int)
		case *int64:
			*d = v.(int64)
		case *[]byte:
			*d = v.([]byte)
		case *time.Time:
			*d = v.(time.Time)
		default:
			return fmt.Errorf("unsupported destination type %T", dest[i])
		}
	}
	return nil
}

func TestScanReport_DecodesJSONColumns(t *testing.T) {
	created := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	phenotypes, err := json.Marshal([]domain.PhenotypeResult{
		{Gene: domain.GeneCYP2D6, Phenotype: domain.PhenotypePoorMetabolizer},
	})
	require.NoError(t, err)
	findings, err := json.Marshal([]domain.HLAFinding{
		{Gene: domain.GeneHLAB, Allele: "HLA-B*57:01", Phenotype: domain.PhenotypePositive, Note: "Risk of abacavir hypersensitivity"},
	})
	require.NoError(t, err)

	row := &fakeRow{values: []any{
		"report-1", 3, phenotypes, findings, int64(12), created,
	}}

	report, err := scanReport(row)
	require.NoError(t, err)
	assert.Equal(t, "report-1", report.ID)
	assert.Equal(t, 3, report.ObservationCount)
	require.Len(t, report.Phenotypes, 1)
	assert.Equal(t, domain.GeneCYP2D6, report.Phenotypes[0].Gene)
	require.Len(t, report.HLAFindings, 1)
	assert.Equal(t, "HLA-B*57:01", report.HLAFindings[0].Allele)
	assert.Equal(t, int64(12), report.ProcessingTimeMs)
	assert.Equal(t, created, report.CreatedAt)
}

func TestScanReport_NullJSONBecomesEmptySlices(t *testing.T) {
	row := &fakeRow{values: []any{
		"report-2", 0, []byte("null"), []byte("null"), int64(0), time.Now().UTC(),
	}}

	report, err := scanReport(row)
	require.NoError(t, err)
	assert.NotNil(t, report.Phenotypes)
	assert.Empty(t, report.Phenotypes)
	assert.NotNil(t, report.HLAFindings)
	assert.Empty(t, report.HLAFindings)
}

func TestScanReport_InvalidJSONFails(t *testing.T) {
	row := &fakeRow{values: []any{
		"report-3", 1, []byte("{not json"), []byte("[]"), int64(0), time.Now().UTC(),
	}}

	_, err := scanReport(row)
	assert.Error(t, err)
}
