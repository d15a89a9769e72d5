package batch

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cbmdev/refopt/internal/domain"
	"github.com/cbmdev/refopt/internal/storage"
)

// Exporter writes the run's monitoring rows as a CSV object after a batch
// completes.
type Exporter struct {
	store storage.ObjectStorage
}

func NewExporter(store storage.ObjectStorage) *Exporter {
	return &Exporter{store: store}
}

// Export uploads one CSV per run, named by completion timestamp. Failures
// are logged by the caller; the batch result itself is already persisted.
func (e *Exporter) Export(ctx context.Context, rows []domain.MonitoringRow, completedAt time.Time) error {
	if e == nil || e.store == nil {
		return nil
	}

	data, err := encodeMonitoringCSV(rows)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("monitoring/run-%s.csv", completedAt.UTC().Format("20060102-150405"))
	if err := e.store.UploadObject(ctx, key, data, "text/csv"); err != nil {
		return err
	}

	log.Info().Str("key", key).Int("rows", len(rows)).Msg("batch export uploaded")
	return nil
}

func encodeMonitoringCSV(rows []domain.MonitoringRow) ([]byte, error) {
	sorted := make([]domain.MonitoringRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].GroupingID != sorted[j].GroupingID {
			return sorted[i].GroupingID < sorted[j].GroupingID
		}
		return sorted[i].Quality < sorted[j].Quality
	})

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"grouping_id", "product_id", "ref_count", "quality",
		"revenue_12m", "margin_12m", "saving_12m",
		"revenue_proj_6m", "margin_proj_6m",
		"gain_18m", "improvement_pct", "generated_at",
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for _, r := range sorted {
		productID := ""
		if r.ProductID != nil {
			productID = strconv.FormatInt(*r.ProductID, 10)
		}
		record := []string{
			strconv.FormatInt(r.GroupingID, 10),
			productID,
			strconv.Itoa(r.RefCount),
			r.Quality,
			formatAmount(r.Revenue12M),
			formatAmount(r.Margin12M),
			formatAmount(r.Saving12M),
			formatAmount(r.RevenueProj6M),
			formatAmount(r.MarginProj6M),
			formatAmount(r.Gain18M),
			formatAmount(r.ImprovementPct),
			r.GeneratedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
