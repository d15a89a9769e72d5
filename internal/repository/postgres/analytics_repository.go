package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cbmdev/refopt/internal/domain"
)

type analyticsRepository struct {
	db *DB
}

func NewAnalyticsRepository(db *DB) *analyticsRepository {
	return &analyticsRepository{db: db}
}

// ListGroupKeys returns the distinct eligible (grouping_id, quality) pairs,
// with the raw aftermarket sub-classes fused into PM.
func (r *analyticsRepository) ListGroupKeys(ctx context.Context) ([]domain.GroupKey, error) {
	query := `
		SELECT DISTINCT grouping_id,
		       CASE WHEN quality IN ('PMQ', 'PMV') THEN 'PM' ELSE quality END AS quality
		FROM product_groupings
		WHERE quality IN ('OEM', 'PMQ', 'PMV')
		  AND grouping_id IS NOT NULL
		ORDER BY grouping_id, quality`

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list group keys: %w", err)
	}
	defer rows.Close()

	var keys []domain.GroupKey
	for rows.Next() {
		var k domain.GroupKey
		if err := rows.Scan(&k.GroupingID, &k.Quality); err != nil {
			return nil, fmt.Errorf("scan group key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (r *analyticsRepository) HasMonitoringRow(ctx context.Context, key domain.GroupKey) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM optimization_monitoring
			WHERE grouping_id = $1 AND quality = $2
		)`
	if err := r.db.GetContext(ctx, &exists, query, key.GroupingID, key.Quality); err != nil {
		return false, fmt.Errorf("check monitoring row: %w", err)
	}
	return exists, nil
}

// UpsertMonitoringRow writes one analytics row per group, replacing any
// previous run's figures.
func (r *analyticsRepository) UpsertMonitoringRow(ctx context.Context, row domain.MonitoringRow) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO optimization_monitoring (
				grouping_id, product_id, ref_count, quality,
				revenue_12m, margin_12m, saving_12m,
				revenue_proj_6m, margin_proj_6m,
				gain_18m, improvement_pct, generated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (grouping_id, quality)
			DO UPDATE SET
				product_id = EXCLUDED.product_id,
				ref_count = EXCLUDED.ref_count,
				revenue_12m = EXCLUDED.revenue_12m,
				margin_12m = EXCLUDED.margin_12m,
				saving_12m = EXCLUDED.saving_12m,
				revenue_proj_6m = EXCLUDED.revenue_proj_6m,
				margin_proj_6m = EXCLUDED.margin_proj_6m,
				gain_18m = EXCLUDED.gain_18m,
				improvement_pct = EXCLUDED.improvement_pct,
				generated_at = EXCLUDED.generated_at`

		_, err := tx.ExecContext(ctx, query,
			row.GroupingID, row.ProductID, row.RefCount, row.Quality,
			row.Revenue12M, row.Margin12M, row.Saving12M,
			row.RevenueProj6M, row.MarginProj6M,
			row.Gain18M, row.ImprovementPct, row.GeneratedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert monitoring row: %w", err)
		}
		return nil
	})
}
