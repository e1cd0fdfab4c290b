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

// RxNormClient handles interactions with the NLM RxNorm REST API for
// normalizing drug names referenced by guideline recommendations.
type RxNormClient struct {
	baseURL    string
	httpClient *http.Client
	rateLimit  *rate.Limiter
}

// DrugConcept represents a normalized RxNorm drug concept
type DrugConcept struct {
	RxCUI    string `json:"rxcui"`
	Name     string `json:"name"`
	Synonym  string `json:"synonym,omitempty"`
	TermType string `json:"tty,omitempty"`
}

// rxcuiResponse mirrors the /rxcui.json response envelope
type rxcuiResponse struct {
	IDGroup struct {
		Name     string   `json:"name"`
		RxNormID []string `json:"rxnormId"`
	} `json:"idGroup"`
}

// propertiesResponse mirrors the /rxcui/{id}/properties.json envelope
type propertiesResponse struct {
	Properties struct {
		RxCUI    string `json:"rxcui"`
		Name     string `json:"name"`
		Synonym  string `json:"synonym"`
		TermType string `json:"tty"`
	} `json:"properties"`
}

// NewRxNormClient creates a new RxNorm API client
func NewRxNormClient(cfg domain.RxNormAPIConfig) *RxNormClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://rxnav.nlm.nih.gov/REST"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit == 0 {
		// NLM asks for at most 20 requests per second per IP.
		cfg.RateLimit = 10
	}

	return &RxNormClient{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
	}
}

// FindRxCUI resolves a drug name to its RxNorm concept identifier.
// Returns domain.ErrNotFound when RxNorm has no concept for the name.
func (r *RxNormClient) FindRxCUI(ctx context.Context, drugName string) (string, error) {
	drugName = strings.TrimSpace(drugName)
	if drugName == "" {
		return "", fmt.Errorf("drug name cannot be empty")
	}

	if err := r.rateLimit.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait failed: %w", err)
	}

	params := url.Values{
		"name":   {drugName},
		"search": {"2"}, // normalized search
	}

	var resp rxcuiResponse
	if err := r.getJSON(ctx, "/rxcui.json", params, &resp); err != nil {
		return "", fmt.Errorf("failed to resolve drug %q: %w", drugName, err)
	}

	if len(resp.IDGroup.RxNormID) == 0 {
		return "", fmt.Errorf("drug %q not found in RxNorm: %w", drugName, domain.ErrNotFound)
	}
	return resp.IDGroup.RxNormID[0], nil
}

// GetDrugProperties retrieves the concept properties for an RxCUI
func (r *RxNormClient) GetDrugProperties(ctx context.Context, rxcui string) (*DrugConcept, error) {
	rxcui = strings.TrimSpace(rxcui)
	if rxcui == "" {
		return nil, fmt.Errorf("rxcui cannot be empty")
	}

	if err := r.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	var resp propertiesResponse
	path := fmt.Sprintf("/rxcui/%s/properties.json", url.PathEscape(rxcui))
	if err := r.getJSON(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get properties for rxcui %s: %w", rxcui, err)
	}

	if resp.Properties.RxCUI == "" {
		return nil, fmt.Errorf("rxcui %s not found in RxNorm: %w", rxcui, domain.ErrNotFound)
	}

	return &DrugConcept{
		RxCUI:    resp.Properties.RxCUI,
		Name:     resp.Properties.Name,
		Synonym:  resp.Properties.Synonym,
		TermType: resp.Properties.TermType,
	}, nil
}

// NormalizeDrug resolves a free-text drug name to its RxNorm concept
func (r *RxNormClient) NormalizeDrug(ctx context.Context, drugName string) (*DrugConcept, error) {
	rxcui, err := r.FindRxCUI(ctx, drugName)
	if err != nil {
		return nil, err
	}
	return r.GetDrugProperties(ctx, rxcui)
}

func (r *RxNormClient) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	requestURL := r.baseURL + path
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "OncoSafeRx-Phenotype-Server/1.0")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("RxNorm API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return nil
}
