package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/cbmdev/refopt/internal/domain"
)

type productRepository struct {
	db *DB
}

func NewProductRepository(db *DB) *productRepository {
	return &productRepository{db: db}
}

// ResolveProductIDs expands the request into product ids. Explicit product
// lists pass through untouched; otherwise the grouping catalog is consulted,
// walking refint to its grouping when only a reference string is given.
func (r *productRepository) ResolveProductIDs(ctx context.Context, req *domain.OptimizationRequest) ([]int64, error) {
	if req.IsEmpty() {
		return nil, nil
	}
	if len(req.ProductIDs) > 0 {
		return req.ProductIDs, nil
	}

	var (
		query string
		args  []interface{}
	)

	switch {
	case req.GroupingID != nil:
		query = `
			SELECT DISTINCT product_id
			FROM product_groupings
			WHERE grouping_id = $1`
		args = append(args, *req.GroupingID)
		if req.Quality != "" {
			query += ` AND quality = ANY($2)`
			args = append(args, pq.Array(rawQualities(req.Quality)))
		}
	case req.Refint != "":
		// A reference string identifies one product; the evaluation wants
		// its whole substitution group.
		query = `
			SELECT DISTINCT t2.product_id
			FROM product_groupings t1
			JOIN product_groupings t2 ON t2.grouping_id = t1.grouping_id
			WHERE t1.refint = $1`
		args = append(args, req.Refint)
		if req.Quality != "" {
			query += ` AND t2.quality = ANY($2)`
			args = append(args, pq.Array(rawQualities(req.Quality)))
		}
	default:
		return nil, fmt.Errorf("request carries no resolvable identifier")
	}

	var ids []int64
	if err := sqlx.SelectContext(ctx, r.db, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("resolve product ids: %w", err)
	}

	log.Debug().Int("count", len(ids)).Msg("resolved product ids")
	return ids, nil
}

// rawQualities maps a normalized quality class back to the raw catalog
// labels it covers.
func rawQualities(quality string) []string {
	if quality == domain.QualityPM {
		return []string{"PMQ", "PMV"}
	}
	return []string{quality}
}

// GetProductSummaries joins the grouping catalog with the floor purchase
// price and the trailing 12-month sales of each product. Products without
// purchases or sales come back with zeros.
func (r *productRepository) GetProductSummaries(ctx context.Context, productIDs []int64) ([]domain.ProductRef, error) {
	if len(productIDs) == 0 {
		return []domain.ProductRef{}, nil
	}

	query := `
		WITH purchases AS (
			SELECT product_id, MIN(net_price) AS unit_cost
			FROM purchase_prices
			WHERE product_id = ANY($1)
			GROUP BY product_id
		),
		sales AS (
			SELECT product_id,
			       SUM(revenue) AS trailing_revenue,
			       SUM(qty) AS trailing_qty
			FROM sales_movements
			WHERE product_id = ANY($1)
			  AND movement_date >= date_trunc('month', now()) - interval '12 months'
			  AND movement_date < date_trunc('month', now())
			GROUP BY product_id
		)
		SELECT g.product_id,
		       g.refint,
		       g.grouping_id,
		       g.quality,
		       COALESCE(p.unit_cost, 0) AS unit_cost,
		       COALESCE(s.trailing_qty, 0) AS trailing_qty,
		       COALESCE(s.trailing_revenue, 0) AS trailing_revenue
		FROM (
			SELECT DISTINCT product_id, refint, grouping_id, quality
			FROM product_groupings
		) g
		LEFT JOIN purchases p ON p.product_id = g.product_id
		LEFT JOIN sales s ON s.product_id = g.product_id
		WHERE g.product_id = ANY($1)
		  AND g.quality IN ('OEM', 'PMQ', 'PMV')`

	var rows []domain.ProductRef
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, pq.Array(productIDs)); err != nil {
		return nil, fmt.Errorf("load product summaries: %w", err)
	}
	return rows, nil
}

// GetMonthlyFacts aggregates sales movements per product and calendar month
// over the trailing window. Months without movement simply do not appear.
func (r *productRepository) GetMonthlyFacts(ctx context.Context, productIDs []int64, months int) ([]domain.MonthlyFact, error) {
	if len(productIDs) == 0 {
		return []domain.MonthlyFact{}, nil
	}
	if months <= 0 {
		months = 12
	}

	query := `
		SELECT product_id,
		       to_char(date_trunc('month', movement_date), 'YYYY-MM') AS period,
		       SUM(qty) AS qty,
		       SUM(revenue) AS revenue,
		       SUM(margin_cost) AS margin_cost,
		       SUM(margin_pmp) AS margin_pmp
		FROM sales_movements
		WHERE product_id = ANY($1)
		  AND movement_date >= date_trunc('month', now()) - make_interval(months => $2)
		  AND movement_date < date_trunc('month', now())
		GROUP BY product_id, date_trunc('month', movement_date)
		ORDER BY period, product_id`

	var rows []domain.MonthlyFact
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, pq.Array(productIDs), months); err != nil {
		return nil, fmt.Errorf("load monthly facts: %w", err)
	}
	return rows, nil
}
