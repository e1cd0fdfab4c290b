package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/oncosaferx/phenotype-server/internal/domain"
	"github.com/oncosaferx/phenotype-server/internal/guidelines"
	"github.com/oncosaferx/phenotype-server/internal/history"
)

// MapPhenotypesParams defines parameters for the map_phenotypes tool
type MapPhenotypesParams struct {
	Observations []domain.Observation `json:"observations"`
}

// MapPhenotypesResult defines the result structure for map_phenotypes
type MapPhenotypesResult struct {
	ReportID         string                   `json:"report_id"`
	Phenotypes       []domain.PhenotypeResult `json:"phenotypes"`
	HLAFindings      []domain.HLAFinding      `json:"hla_findings"`
	ObservationCount int                      `json:"observation_count"`
}

// GetGuidelineParams defines parameters for the get_cpic_guideline tool
type GetGuidelineParams struct {
	Gene      string `json:"gene"`
	Phenotype string `json:"phenotype,omitempty"`
}

// SaveReviewParams defines parameters for the save_review tool
type SaveReviewParams struct {
	ReportID           string `json:"report_id"`
	Gene               string `json:"gene"`
	SuggestedPhenotype string `json:"suggested_phenotype"`
	ReviewerPhenotype  string `json:"reviewer_phenotype"`
	ReviewerAgreed     bool   `json:"reviewer_agreed"`
	Notes              string `json:"notes,omitempty"`
}

// ExportReviewsParams defines parameters for the export_reviews tool
type ExportReviewsParams struct {
	Filename string `json:"filename,omitempty"`
}

// handleMapPhenotypes handles the map_phenotypes tool invocation
func (s *Server) handleMapPhenotypes(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.WithField("tool", "map_phenotypes").Info("Tool invoked")

	var params MapPhenotypesParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return s.createErrorResult("Invalid parameters", err), nil
	}

	result := MapPhenotypesResult{
		ReportID:         uuid.New().String(),
		Phenotypes:       s.engine.MapObservations(params.Observations),
		HLAFindings:      s.engine.DetectHLA(params.Observations),
		ObservationCount: len(params.Observations),
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("Mapped %d observation(s): %d phenotype(s), %d HLA finding(s)",
					result.ObservationCount, len(result.Phenotypes), len(result.HLAFindings)),
			},
		},
		Meta: map[string]interface{}{
			"result": result,
		},
	}, nil
}

// handleDetectHLARisk handles the detect_hla_risk tool invocation
func (s *Server) handleDetectHLARisk(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.WithField("tool", "detect_hla_risk").Info("Tool invoked")

	var params MapPhenotypesParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return s.createErrorResult("Invalid parameters", err), nil
	}

	findings := s.engine.DetectHLA(params.Observations)

	text := fmt.Sprintf("Detected %d HLA risk allele(s)", len(findings))
	for _, finding := range findings {
		text += fmt.Sprintf("\n- %s: %s", finding.Allele, finding.Note)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		Meta: map[string]interface{}{
			"result": findings,
		},
	}, nil
}

// handleGetGuideline handles the get_cpic_guideline tool invocation
func (s *Server) handleGetGuideline(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.WithField("tool", "get_cpic_guideline").Info("Tool invoked")

	var params GetGuidelineParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return s.createErrorResult("Invalid parameters", err), nil
	}

	gene := domain.Gene(params.Gene)
	if !gene.IsValid() {
		return s.createErrorResult("Unknown gene", fmt.Errorf("%q is not a supported pharmacogene", params.Gene)), nil
	}

	var results []guidelines.Guideline
	if params.Phenotype != "" {
		results = s.guidelines.Lookup(gene, domain.Phenotype(params.Phenotype))
	} else {
		results = s.guidelines.ForGene(gene)
	}

	text := fmt.Sprintf("Found %d guideline(s) for %s", len(results), gene)
	for _, g := range results {
		text += fmt.Sprintf("\n- %s: %s", g.Drug, g.Recommendation)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		Meta: map[string]interface{}{
			"result": results,
		},
	}, nil
}

// handleSaveReview handles the save_review tool invocation
func (s *Server) handleSaveReview(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.WithField("tool", "save_review").Info("Tool invoked")

	var params SaveReviewParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return s.createErrorResult("Invalid parameters", err), nil
	}

	review := &history.Review{
		ReportID:           params.ReportID,
		Gene:               domain.Gene(params.Gene),
		SuggestedPhenotype: domain.Phenotype(params.SuggestedPhenotype),
		ReviewerPhenotype:  domain.Phenotype(params.ReviewerPhenotype),
		ReviewerAgreed:     params.ReviewerAgreed,
		Notes:              params.Notes,
	}

	if err := s.reviewStore.Save(ctx, review); err != nil {
		return s.createErrorResult("Failed to save review", err), nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("Review saved for %s on report %s (id %d)", review.Gene, review.ReportID, review.ID),
			},
		},
	}, nil
}

// handleExportReviews handles the export_reviews tool invocation
func (s *Server) handleExportReviews(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.WithField("tool", "export_reviews").Info("Tool invoked")

	var params ExportReviewsParams
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return s.createErrorResult("Invalid parameters", err), nil
		}
	}

	filename := params.Filename
	if filename == "" {
		filename = fmt.Sprintf("reviews-%s.json", time.Now().UTC().Format("20060102-150405"))
	}

	exportDir := s.config.ExportDir()
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		return s.createErrorResult("Failed to create export directory", err), nil
	}

	path := filepath.Join(exportDir, filename)
	file, err := os.Create(path)
	if err != nil {
		return s.createErrorResult("Failed to create export file", err), nil
	}
	defer file.Close()

	if err := s.reviewStore.ExportJSON(ctx, file); err != nil {
		return s.createErrorResult("Failed to export reviews", err), nil
	}

	count, err := s.reviewStore.Count(ctx)
	if err != nil {
		count = -1
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("Exported %d review(s) to %s", count, path),
			},
		},
	}, nil
}

// createErrorResult creates a standardized error result for tool calls
func (s *Server) createErrorResult(message string, err error) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s", message)
	if err != nil {
		errorText += fmt.Sprintf(" - %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: errorText},
		},
		IsError: true,
	}
}
