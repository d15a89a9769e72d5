package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cbmdev/refopt/internal/cache"
	"github.com/cbmdev/refopt/internal/domain"
	"github.com/cbmdev/refopt/internal/optimize"
	"github.com/cbmdev/refopt/internal/repository"
)

// OptimizationService ties identifier resolution, caching, data access and
// the evaluation pipeline into the per-request flow.
type OptimizationService struct {
	products  repository.ProductRepository
	cache     cache.OptimizationCache
	evaluator *optimize.Evaluator
}

func NewOptimizationService(
	products repository.ProductRepository,
	resultCache cache.OptimizationCache,
	evaluator *optimize.Evaluator,
) *OptimizationService {
	if resultCache == nil {
		resultCache = cache.NewNoopOptimizationCache()
	}
	return &OptimizationService{
		products:  products,
		cache:     resultCache,
		evaluator: evaluator,
	}
}

// EvaluateGroups resolves the request, serves from cache when possible and
// otherwise runs the full evaluation. Infrastructure failures on the cache
// path are logged and ignored; an empty response is returned when nothing
// resolves.
func (s *OptimizationService) EvaluateGroups(ctx context.Context, req *domain.OptimizationRequest) (*domain.OptimizationResponse, error) {
	empty := &domain.OptimizationResponse{Items: []domain.GroupOptimization{}}

	if req.IsEmpty() {
		log.Warn().Msg("optimization request carries no identifier")
		return empty, nil
	}

	start := time.Now()
	productIDs, err := s.products.ResolveProductIDs(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(productIDs) == 0 {
		log.Warn().Msg("no products resolved from request")
		return empty, nil
	}
	log.Debug().
		Int("count", len(productIDs)).
		Dur("elapsed", time.Since(start)).
		Msg("product ids resolved")

	if cached, ok, err := s.cache.GetResult(ctx, req); err != nil {
		log.Warn().Err(err).Msg("optimization cache read failed")
	} else if ok {
		log.Debug().Msg("optimization cache hit")
		return cached, nil
	}

	summaries, err := s.products.GetProductSummaries(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	facts, err := s.products.GetMonthlyFacts(ctx, productIDs, s.evaluator.FactWindow())
	if err != nil {
		return nil, err
	}

	items := s.evaluator.Evaluate(summaries, facts, time.Now())
	resp := &domain.OptimizationResponse{Items: items}

	if err := s.cache.SetResult(ctx, req, resp); err != nil {
		log.Warn().Err(err).Msg("optimization cache write failed")
	}

	log.Info().
		Int("groups", len(items)).
		Dur("elapsed", time.Since(start)).
		Msg("optimization evaluated")
	return resp, nil
}
