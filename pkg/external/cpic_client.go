// Package external provides clients for external pharmacogenomic and
// drug vocabulary APIs with rate limiting, caching, and circuit breaking.
package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/oncosaferx/phenotype-server/internal/domain"
)

// CPICClient handles interactions with the CPIC (Clinical Pharmacogenetics
// Implementation Consortium) REST API.
type CPICClient struct {
	baseURL    string
	httpClient *http.Client
	rateLimit  *rate.Limiter
}

// CPICRecommendation represents one dosing recommendation row from the
// CPIC API.
type CPICRecommendation struct {
	DrugName       string `json:"drugname"`
	Recommendation string `json:"drugrecommendation"`
	Classification string `json:"classification"`
	Implication    string `json:"implications"`
	Comments       string `json:"comments,omitempty"`
}

// CPICGeneResult represents a gene/phenotype lookup result from the CPIC API.
type CPICGeneResult struct {
	GeneSymbol     string `json:"genesymbol"`
	Result         string `json:"result"`
	ActivityScore  string `json:"activityscore,omitempty"`
	EHRPriority    string `json:"ehrpriority,omitempty"`
	ConsultationID int64  `json:"consultationtextid,omitempty"`
}

// NewCPICClient creates a new CPIC API client
func NewCPICClient(cfg domain.CPICAPIConfig) *CPICClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.cpicpgx.org/v1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 5
	}

	return &CPICClient{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
	}
}

// GetRecommendations retrieves dosing recommendations for a gene phenotype.
// The CPIC API is PostgREST-backed, so filters use the eq./cs. operators.
func (c *CPICClient) GetRecommendations(ctx context.Context, gene domain.Gene, phenotype domain.Phenotype) ([]CPICRecommendation, error) {
	if !gene.IsValid() {
		return nil, fmt.Errorf("unknown gene %q: %w", gene, domain.ErrInvalidGene)
	}

	if err := c.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	params := url.Values{
		"select":     {"drugname,drugrecommendation,classification,implications,comments"},
		"phenotypes": {fmt.Sprintf(`cs.{"%s": "%s"}`, gene, phenotype)},
	}

	var recommendations []CPICRecommendation
	if err := c.getJSON(ctx, "/recommendation", params, &recommendations); err != nil {
		return nil, fmt.Errorf("failed to get recommendations for %s: %w", gene, err)
	}
	return recommendations, nil
}

// GetGeneResults retrieves the known phenotype results for a gene symbol
func (c *CPICClient) GetGeneResults(ctx context.Context, gene domain.Gene) ([]CPICGeneResult, error) {
	if !gene.IsValid() {
		return nil, fmt.Errorf("unknown gene %q: %w", gene, domain.ErrInvalidGene)
	}

	if err := c.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	params := url.Values{
		"genesymbol": {fmt.Sprintf("eq.%s", gene)},
	}

	var results []CPICGeneResult
	if err := c.getJSON(ctx, "/gene_result", params, &results); err != nil {
		return nil, fmt.Errorf("failed to get gene results for %s: %w", gene, err)
	}
	return results, nil
}

func (c *CPICClient) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	requestURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "OncoSafeRx-Phenotype-Server/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("CPIC API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return nil
}
