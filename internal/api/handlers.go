package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oncosaferx/phenotype-server/internal/domain"
	"github.com/oncosaferx/phenotype-server/internal/guidelines"
	"github.com/oncosaferx/phenotype-server/internal/history"
	"github.com/oncosaferx/phenotype-server/pkg/external"
)

// MapRequest is the request body for phenotype mapping and HLA detection.
// Observation fields are all optional; missing data yields empty results
// rather than errors.
type MapRequest struct {
	Observations []domain.Observation `json:"observations"`
}

// MapResponse is the phenotype mapping response body. Guidelines carries the
// curated dosing recommendations matching the mapped phenotypes and findings.
type MapResponse struct {
	ReportID         string                   `json:"report_id"`
	Phenotypes       []domain.PhenotypeResult `json:"phenotypes"`
	HLAFindings      []domain.HLAFinding      `json:"hla_findings"`
	Guidelines       []guidelines.Guideline   `json:"guidelines"`
	ObservationCount int                      `json:"observation_count"`
	ProcessingTimeMs int64                    `json:"processing_time_ms"`
}

// handleMapPhenotypes runs the full mapping pipeline over the submitted
// observations and persists a report when a repository is configured.
func (s *Server) handleMapPhenotypes(c *gin.Context) {
	var req MapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body", err.Error())
		return
	}

	start := time.Now()
	phenotypes := s.deps.Engine.MapObservations(req.Observations)
	findings := s.deps.Engine.DetectHLA(req.Observations)
	elapsed := time.Since(start)

	report := &domain.MappingReport{
		ID:               uuid.New().String(),
		ObservationCount: len(req.Observations),
		Phenotypes:       phenotypes,
		HLAFindings:      findings,
		ProcessingTimeMs: elapsed.Milliseconds(),
		CreatedAt:        time.Now().UTC(),
	}

	if s.deps.Reports != nil {
		if err := s.deps.Reports.Create(c.Request.Context(), report); err != nil {
			// Persistence failure must not block the mapping response.
			s.log.WithError(err).Error("Failed to persist mapping report")
		}
	}

	c.JSON(http.StatusOK, MapResponse{
		ReportID:         report.ID,
		Phenotypes:       phenotypes,
		HLAFindings:      findings,
		Guidelines:       s.deps.Guidelines.Annotate(phenotypes, findings),
		ObservationCount: report.ObservationCount,
		ProcessingTimeMs: report.ProcessingTimeMs,
	})
}

// handleDetectHLA runs only the HLA risk allele detector
func (s *Server) handleDetectHLA(c *gin.Context) {
	var req MapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body", err.Error())
		return
	}

	findings := s.deps.Engine.DetectHLA(req.Observations)
	c.JSON(http.StatusOK, gin.H{
		"hla_findings":      findings,
		"observation_count": len(req.Observations),
	})
}

// handleListGenes lists the supported metabolizer genes
func (s *Server) handleListGenes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"genes": s.deps.Engine.SupportedGenes(),
	})
}

// handleListGuidelines returns the full curated guideline table
func (s *Server) handleListGuidelines(c *gin.Context) {
	all := s.deps.Guidelines.All()
	c.JSON(http.StatusOK, gin.H{
		"guidelines": all,
		"count":      len(all),
	})
}

// handleGuidelinesForGene returns the curated guidelines for one gene,
// along with the phenotype results CPIC knows for it when the live API is
// reachable.
func (s *Server) handleGuidelinesForGene(c *gin.Context) {
	gene := domain.Gene(c.Param("gene"))
	if !gene.IsValid() {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, "unknown gene", string(gene))
		return
	}

	response := gin.H{
		"gene":       gene,
		"guidelines": s.deps.Guidelines.ForGene(gene),
	}

	if s.deps.External != nil {
		known, err := s.deps.External.GetGeneResults(c.Request.Context(), gene)
		if err != nil {
			s.log.WithError(err).WithField("gene", gene).Warn("CPIC gene result lookup failed")
		} else {
			response["cpic_gene_results"] = known
		}
	}

	c.JSON(http.StatusOK, response)
}

// handleNormalizeDrug resolves a free-text drug name to its RxNorm concept
func (s *Server) handleNormalizeDrug(c *gin.Context) {
	name := c.Param("name")

	concept, err := s.deps.External.NormalizeDrug(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respondError(c, http.StatusNotFound, domain.ErrCodeDrugMiss, "drug not found in RxNorm", name)
			return
		}
		s.log.WithError(err).WithField("drug", name).Error("RxNorm normalization failed")
		s.respondError(c, http.StatusBadGateway, domain.ErrCodeExternalAPI, "drug vocabulary lookup failed", "")
		return
	}

	c.JSON(http.StatusOK, concept)
}

// handleGuidelineLookup returns guidelines for a gene/phenotype pair. The
// live CPIC API is consulted first when an external client is configured;
// on failure the response degrades to the curated table alone.
func (s *Server) handleGuidelineLookup(c *gin.Context) {
	gene := domain.Gene(c.Param("gene"))
	if !gene.IsValid() {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, "unknown gene", string(gene))
		return
	}
	phenotype := domain.Phenotype(c.Param("phenotype"))

	source := "curated"
	var recommendations []external.CPICRecommendation
	if s.deps.External != nil {
		recs, err := s.deps.External.GetRecommendations(c.Request.Context(), gene, phenotype)
		if err != nil {
			s.log.WithError(err).WithField("gene", gene).Warn("CPIC API lookup failed, serving curated table")
		} else if len(recs) > 0 {
			source = "cpic_api"
			recommendations = recs
		}
	}

	results := s.deps.Guidelines.Lookup(gene, phenotype)
	if len(results) == 0 && len(recommendations) == 0 {
		s.respondError(c, http.StatusNotFound, domain.ErrCodeGuidelineMiss, "no guidelines for gene and phenotype", "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"gene":                 gene,
		"phenotype":            phenotype,
		"source":               source,
		"guidelines":           results,
		"cpic_recommendations": recommendations,
	})
}

// handleGetReport retrieves a persisted mapping report by ID
func (s *Server) handleGetReport(c *gin.Context) {
	id := c.Param("id")

	report, err := s.deps.Reports.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respondError(c, http.StatusNotFound, domain.ErrCodeReportMiss, "mapping report not found", id)
			return
		}
		s.log.WithError(err).Error("Failed to get mapping report")
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError, "failed to retrieve report", "")
		return
	}

	c.JSON(http.StatusOK, report)
}

// handleListReports lists recent mapping reports with pagination
func (s *Server) handleListReports(c *gin.Context) {
	limit := queryInt(c, "limit", 20)
	offset := queryInt(c, "offset", 0)

	reports, err := s.deps.Reports.ListRecent(c.Request.Context(), limit, offset)
	if err != nil {
		s.log.WithError(err).Error("Failed to list mapping reports")
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError, "failed to list reports", "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reports": reports,
		"limit":   limit,
		"offset":  offset,
	})
}

// handleSaveReview stores a clinician review of a mapped phenotype
func (s *Server) handleSaveReview(c *gin.Context) {
	var review history.Review
	if err := c.ShouldBindJSON(&review); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body", err.Error())
		return
	}

	if err := s.deps.Reviews.Save(c.Request.Context(), &review); err != nil {
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			s.respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, validationErr.Message, validationErr.Field)
			return
		}
		s.log.WithError(err).Error("Failed to save review")
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError, "failed to save review", "")
		return
	}

	s.log.WithFields(logrus.Fields{
		"report_id": review.ReportID,
		"gene":      review.Gene,
	}).Info("Review saved")

	c.JSON(http.StatusCreated, review)
}

// handleListReviews lists clinician reviews with pagination
func (s *Server) handleListReviews(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	reviews, err := s.deps.Reviews.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.log.WithError(err).Error("Failed to list reviews")
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError, "failed to list reviews", "")
		return
	}

	total, err := s.deps.Reviews.Count(c.Request.Context())
	if err != nil {
		s.log.WithError(err).Error("Failed to count reviews")
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError, "failed to count reviews", "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reviews": reviews,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

func (s *Server) respondError(c *gin.Context, status int, code, message, details string) {
	c.JSON(status, domain.NewAPIError(code, message, details, c.GetString("correlation_id")))
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
