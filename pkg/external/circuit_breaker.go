package external

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/oncosaferx/phenotype-server/internal/domain"
)

// ResilientClient wraps the external API clients with circuit breakers
// and an optional Redis cache. A nil cache disables caching.
type ResilientClient struct {
	cpicClient   *CPICClient
	rxnormClient *RxNormClient
	cacheClient  *CacheClient

	cpicBreaker   *gobreaker.CircuitBreaker
	rxnormBreaker *gobreaker.CircuitBreaker

	log *logrus.Logger
}

// NewResilientClient creates a resilient external client with circuit breakers
func NewResilientClient(cfg domain.ExternalAPIConfig, cacheCfg domain.CacheConfig, logger *logrus.Logger) (*ResilientClient, error) {
	if logger == nil {
		logger = logrus.New()
	}

	cpicClient := NewCPICClient(cfg.CPIC)
	rxnormClient := NewRxNormClient(cfg.RxNorm)

	var cacheClient *CacheClient
	if cacheCfg.RedisURL != "" {
		var err error
		cacheClient, err = NewCacheClient(cacheCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create cache client: %w", err)
		}
	}

	onStateChange := func(name string, from gobreaker.State, to gobreaker.State) {
		logger.WithFields(logrus.Fields{
			"breaker": name,
			"from":    from.String(),
			"to":      to.String(),
		}).Warn("Circuit breaker state changed")
	}

	cpicBreaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "CPIC",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: onStateChange,
	})

	rxnormBreaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "RxNorm",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: onStateChange,
	})

	return &ResilientClient{
		cpicClient:    cpicClient,
		rxnormClient:  rxnormClient,
		cacheClient:   cacheClient,
		cpicBreaker:   cpicBreaker,
		rxnormBreaker: rxnormBreaker,
		log:           logger,
	}, nil
}

// GetRecommendations fetches CPIC recommendations, serving from cache when
// possible and recording failures against the CPIC circuit breaker.
func (rc *ResilientClient) GetRecommendations(ctx context.Context, gene domain.Gene, phenotype domain.Phenotype) ([]CPICRecommendation, error) {
	if rc.cacheClient != nil {
		if cached, hit, err := rc.cacheClient.GetRecommendations(ctx, gene, phenotype); err == nil && hit {
			rc.log.WithField("gene", gene).Debug("CPIC recommendations served from cache")
			return cached, nil
		}
	}

	result, err := rc.cpicBreaker.Execute(func() (any, error) {
		return rc.cpicClient.GetRecommendations(ctx, gene, phenotype)
	})
	if err != nil {
		return nil, fmt.Errorf("CPIC request failed: %w", err)
	}

	recommendations := result.([]CPICRecommendation)

	if rc.cacheClient != nil {
		if err := rc.cacheClient.SetRecommendations(ctx, gene, phenotype, recommendations, 0); err != nil {
			rc.log.WithError(err).Warn("Failed to cache CPIC recommendations")
		}
	}

	return recommendations, nil
}

// GetGeneResults fetches the known phenotype results for a gene from CPIC
func (rc *ResilientClient) GetGeneResults(ctx context.Context, gene domain.Gene) ([]CPICGeneResult, error) {
	result, err := rc.cpicBreaker.Execute(func() (any, error) {
		return rc.cpicClient.GetGeneResults(ctx, gene)
	})
	if err != nil {
		return nil, fmt.Errorf("CPIC request failed: %w", err)
	}
	return result.([]CPICGeneResult), nil
}

// NormalizeDrug resolves a drug name via RxNorm with cache and breaker
func (rc *ResilientClient) NormalizeDrug(ctx context.Context, drugName string) (*DrugConcept, error) {
	if rc.cacheClient != nil {
		if cached, hit, err := rc.cacheClient.GetDrugConcept(ctx, drugName); err == nil && hit {
			rc.log.WithField("drug", drugName).Debug("Drug concept served from cache")
			return cached, nil
		}
	}

	result, err := rc.rxnormBreaker.Execute(func() (any, error) {
		return rc.rxnormClient.NormalizeDrug(ctx, drugName)
	})
	if err != nil {
		return nil, fmt.Errorf("RxNorm request failed: %w", err)
	}

	concept := result.(*DrugConcept)

	if rc.cacheClient != nil {
		if err := rc.cacheClient.SetDrugConcept(ctx, drugName, concept, 0); err != nil {
			rc.log.WithError(err).Warn("Failed to cache drug concept")
		}
	}

	return concept, nil
}

// BreakerStates reports the current circuit breaker states for health checks
func (rc *ResilientClient) BreakerStates() map[string]string {
	return map[string]string{
		"cpic":   rc.cpicBreaker.State().String(),
		"rxnorm": rc.rxnormBreaker.State().String(),
	}
}

// Close releases the cache connection if one was configured
func (rc *ResilientClient) Close() error {
	if rc.cacheClient != nil {
		return rc.cacheClient.Close()
	}
	return nil
}
