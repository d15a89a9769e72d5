package repository

import (
	"context"

	"github.com/cbmdev/refopt/internal/domain"
)

// ProductRepository reads the pricing-side tables: grouping catalog, net
// purchase prices and monthly sales movements.
type ProductRepository interface {
	// ResolveProductIDs expands an identifier (grouping id, refint or an
	// explicit product list) into the product ids to evaluate.
	ResolveProductIDs(ctx context.Context, req *domain.OptimizationRequest) ([]int64, error)

	// GetProductSummaries returns one row per product with its grouping key,
	// quality class, floor purchase price and trailing 12-month sales.
	GetProductSummaries(ctx context.Context, productIDs []int64) ([]domain.ProductRef, error)

	// GetMonthlyFacts returns per-product monthly sales aggregates over the
	// trailing window, oldest month first.
	GetMonthlyFacts(ctx context.Context, productIDs []int64, months int) ([]domain.MonthlyFact, error)
}

// AnalyticsRepository owns the monitoring table written by batch runs.
type AnalyticsRepository interface {
	// ListGroupKeys returns the distinct (grouping_id, quality) pairs of the
	// catalog that are eligible for evaluation.
	ListGroupKeys(ctx context.Context) ([]domain.GroupKey, error)

	// HasMonitoringRow reports whether a monitoring row already exists for
	// the given group.
	HasMonitoringRow(ctx context.Context, key domain.GroupKey) (bool, error)

	// UpsertMonitoringRow inserts or refreshes the monitoring row keyed on
	// (grouping_id, quality).
	UpsertMonitoringRow(ctx context.Context, row domain.MonitoringRow) error
}
