package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oncosaferx/phenotype-server/internal/domain"
)

func newTestCPICClient(handler http.HandlerFunc) (*CPICClient, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewCPICClient(domain.CPICAPIConfig{
		BaseURL:   server.URL,
		Timeout:   5 * time.Second,
		RateLimit: 100,
	})
	return client, server
}

func newTestRxNormClient(handler http.HandlerFunc) (*RxNormClient, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewRxNormClient(domain.RxNormAPIConfig{
		BaseURL:   server.URL,
		Timeout:   5 * time.Second,
		RateLimit: 100,
	})
	return client, server
}

func TestCPICClient_GetRecommendations(t *testing.T) {
	client, server := newTestCPICClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/recommendation", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("phenotypes"), "CYP2D6")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"drugname": "codeine", "drugrecommendation": "Avoid codeine use", "classification": "Strong", "implications": "Greatly reduced morphine formation"}
		]`))
	})
	defer server.Close()

	recs, err := client.GetRecommendations(context.Background(), domain.GeneCYP2D6, domain.PhenotypePoorMetabolizer)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "codeine", recs[0].DrugName)
	assert.Equal(t, "Avoid codeine use", recs[0].Recommendation)
	assert.Equal(t, "Strong", recs[0].Classification)
}

func TestCPICClient_GetRecommendationsRejectsUnknownGene(t *testing.T) {
	client, server := newTestCPICClient(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the API")
	})
	defer server.Close()

	_, err := client.GetRecommendations(context.Background(), "BRCA1", domain.PhenotypePoorMetabolizer)
	assert.ErrorIs(t, err, domain.ErrInvalidGene)
}

func TestCPICClient_ServerErrorPropagates(t *testing.T) {
	client, server := newTestCPICClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})
	defer server.Close()

	_, err := client.GetGeneResults(context.Background(), domain.GeneTPMT)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestRxNormClient_NormalizeDrug(t *testing.T) {
	client, server := newTestRxNormClient(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/rxcui.json":
			assert.Equal(t, "codeine", r.URL.Query().Get("name"))
			w.Write([]byte(`{"idGroup": {"name": "codeine", "rxnormId": ["2670"]}}`))
		case "/rxcui/2670/properties.json":
			w.Write([]byte(`{"properties": {"rxcui": "2670", "name": "codeine", "tty": "IN"}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	defer server.Close()

	concept, err := client.NormalizeDrug(context.Background(), "codeine")
	require.NoError(t, err)
	assert.Equal(t, "2670", concept.RxCUI)
	assert.Equal(t, "codeine", concept.Name)
	assert.Equal(t, "IN", concept.TermType)
}

func TestRxNormClient_UnknownDrugReturnsNotFound(t *testing.T) {
	client, server := newTestRxNormClient(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"idGroup": {"name": "notadrug"}}`))
	})
	defer server.Close()

	_, err := client.FindRxCUI(context.Background(), "notadrug")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRxNormClient_EmptyNameRejected(t *testing.T) {
	client, server := newTestRxNormClient(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the API")
	})
	defer server.Close()

	_, err := client.FindRxCUI(context.Background(), "   ")
	assert.Error(t, err)
}

func TestResilientClient_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	failures := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		failures++
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewResilientClient(domain.ExternalAPIConfig{
		CPIC:   domain.CPICAPIConfig{BaseURL: server.URL, Timeout: time.Second, RateLimit: 100},
		RxNorm: domain.RxNormAPIConfig{BaseURL: server.URL, Timeout: time.Second, RateLimit: 100},
	}, domain.CacheConfig{}, nil)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := client.GetGeneResults(ctx, domain.GeneCYP2D6)
		assert.Error(t, err)
	}

	// The breaker trips, so later calls fail fast without reaching the API.
	requestsBefore := failures
	_, err = client.GetGeneResults(ctx, domain.GeneCYP2D6)
	assert.Error(t, err)
	assert.Equal(t, requestsBefore, failures)
	assert.Equal(t, "open", client.BreakerStates()["cpic"])
}
