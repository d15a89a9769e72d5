package batch

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/cbmdev/refopt/internal/domain"
	"github.com/cbmdev/refopt/internal/repository"
	"github.com/cbmdev/refopt/internal/service"
)

// Policy selects which groups a run touches.
type Policy string

const (
	// PolicyAll re-evaluates every eligible group.
	PolicyAll Policy = "all"
	// PolicyMissing only evaluates groups without a monitoring row yet.
	PolicyMissing Policy = "missing"

	defaultWorkers = 4
)

// Runner walks the eligible groups, evaluates each one and upserts the
// monitoring rows.
type Runner struct {
	svc       *service.OptimizationService
	analytics repository.AnalyticsRepository
	exporter  *Exporter
	workers   int
}

func NewRunner(svc *service.OptimizationService, analytics repository.AnalyticsRepository, workers int) *Runner {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Runner{svc: svc, analytics: analytics, workers: workers}
}

// WithExporter attaches an optional CSV export step to the run.
func (r *Runner) WithExporter(e *Exporter) *Runner {
	r.exporter = e
	return r
}

// Run evaluates the selected groups concurrently. A failing group is logged
// and counted, never fatal; only listing the groups can abort the run.
func (r *Runner) Run(ctx context.Context, policy Policy) (*domain.BatchReport, error) {
	report := &domain.BatchReport{
		MethodCounts: make(map[string]int),
		StartedAt:    time.Now(),
	}

	keys, err := r.analytics.ListGroupKeys(ctx)
	if err != nil {
		return nil, err
	}
	report.GroupsTotal = len(keys)
	log.Info().Int("groups", len(keys)).Str("policy", string(policy)).Msg("batch run started")

	var (
		mu       sync.Mutex
		scoreSum float64
		scored   int
		rows     []domain.MonitoringRow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for _, key := range keys {
		key := key
		g.Go(func() error {
			if policy == PolicyMissing {
				exists, err := r.analytics.HasMonitoringRow(gctx, key)
				if err != nil {
					log.Error().Err(err).
						Int64("grouping_id", key.GroupingID).
						Str("quality", key.Quality).
						Msg("monitoring lookup failed")
					mu.Lock()
					report.Failed++
					mu.Unlock()
					return nil
				}
				if exists {
					mu.Lock()
					report.Skipped++
					mu.Unlock()
					return nil
				}
			}

			groupingID := key.GroupingID
			req := &domain.OptimizationRequest{GroupingID: &groupingID, Quality: key.Quality}

			resp, err := r.svc.EvaluateGroups(gctx, req)
			if err != nil {
				log.Error().Err(err).
					Int64("grouping_id", key.GroupingID).
					Str("quality", key.Quality).
					Msg("group evaluation failed")
				mu.Lock()
				report.Failed++
				mu.Unlock()
				return nil
			}
			if len(resp.Items) == 0 {
				mu.Lock()
				report.Skipped++
				mu.Unlock()
				return nil
			}

			for _, item := range resp.Items {
				row := buildMonitoringRow(item)
				if err := r.analytics.UpsertMonitoringRow(gctx, row); err != nil {
					log.Error().Err(err).
						Int64("grouping_id", item.GroupingID).
						Str("quality", item.Quality).
						Msg("monitoring upsert failed")
					mu.Lock()
					report.Failed++
					mu.Unlock()
					continue
				}

				mu.Lock()
				report.Inserted++
				report.MethodCounts[item.Projection.Metadata.Method]++
				report.WarningCount += len(item.Projection.Metadata.Warnings)
				scoreSum += item.Projection.Metadata.QualityScore
				scored++
				rows = append(rows, row)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if scored > 0 {
		report.AvgQualityScore = scoreSum / float64(scored)
	}
	report.CompletedAt = time.Now()

	if r.exporter != nil && len(rows) > 0 {
		if err := r.exporter.Export(ctx, rows, report.CompletedAt); err != nil {
			log.Warn().Err(err).Msg("batch export failed")
		}
	}

	log.Info().
		Int("inserted", report.Inserted).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Dur("elapsed", report.CompletedAt.Sub(report.StartedAt)).
		Msg("batch run completed")
	return report, nil
}

// buildMonitoringRow flattens one evaluation into its persisted analytics
// shape. The principal product is the first kept reference.
func buildMonitoringRow(item domain.GroupOptimization) domain.MonitoringRow {
	var productID *int64
	if len(item.RefsToKeep) > 0 {
		id := item.RefsToKeep[0].ProductID
		productID = &id
	}

	return domain.MonitoringRow{
		GroupingID:     item.GroupingID,
		ProductID:      productID,
		RefCount:       item.RefsTotal,
		Quality:        item.Quality,
		Revenue12M:     item.History.Totals.Revenue,
		Margin12M:      item.History.Totals.ActualMarginCost,
		Saving12M:      item.GainPotential,
		RevenueProj6M:  item.Projection.Totals.Revenue,
		MarginProj6M:   item.Projection.Totals.OptimizedMarginCost,
		Gain18M:        item.Synthesis.GainCost18M,
		ImprovementPct: item.Synthesis.ImprovementPct,
		GeneratedAt:    time.Now(),
	}
}
