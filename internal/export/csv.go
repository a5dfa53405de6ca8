// Package export writes scan results to CSV files and reads external CSV
// market feeds.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/alanyoungcy/skinarb/internal/domain"
)

// CSVExporter writes opportunities and deals as timestamped CSV files under
// a fixed directory. The directory is created on first use.
type CSVExporter struct {
	dir string
}

// NewCSVExporter creates a CSVExporter rooted at dir.
func NewCSVExporter(dir string) *CSVExporter {
	return &CSVExporter{dir: dir}
}

var opportunityHeader = []string{
	"item", "buy_price", "sell_price", "net_sell_price",
	"gross_profit", "net_profit", "profit_percent",
	"listing_count", "investment", "detected_at",
}

var dealHeader = []string{
	"item", "current_price", "reference_min_price", "discount_percent",
	"volume_24h", "volume_7d", "currency", "url", "found_at",
}

// ExportRun writes the run's opportunities to opportunities_<ts>.csv and
// returns the file path.
func (e *CSVExporter) ExportRun(run domain.OpportunityRun) (string, error) {
	path := e.filename("opportunities", run.StartedAt)

	records := make([][]string, 0, len(run.Opportunities))
	for _, o := range run.Opportunities {
		records = append(records, []string{
			o.Name,
			formatFloat(o.BuyPrice),
			formatFloat(o.SellPrice),
			formatFloat(o.NetSellPrice),
			formatFloat(o.GrossProfit),
			formatFloat(o.NetProfit),
			formatFloat(o.ProfitPct),
			strconv.Itoa(o.ListingCount),
			formatFloat(o.Investment),
			o.DetectedAt.UTC().Format(time.RFC3339),
		})
	}

	if err := e.writeFile(path, opportunityHeader, records); err != nil {
		return "", err
	}
	return path, nil
}

// ExportDeals writes the deals to deals_<ts>.csv and returns the file path.
func (e *CSVExporter) ExportDeals(deals []domain.DealCandidate) (string, error) {
	now := time.Now().UTC()
	if len(deals) > 0 {
		now = deals[0].DetectedAt
	}
	path := e.filename("deals", now)

	records := make([][]string, 0, len(deals))
	for _, d := range deals {
		records = append(records, []string{
			d.Name,
			formatFloat(d.CurrentPrice),
			formatFloat(d.ReferencePrice),
			formatFloat(d.DiscountPct),
			formatFloat(d.Volume24h),
			formatFloat(d.Volume7d),
			d.Currency,
			d.URL,
			d.DetectedAt.UTC().Format(time.RFC3339),
		})
	}

	if err := e.writeFile(path, dealHeader, records); err != nil {
		return "", err
	}
	return path, nil
}

func (e *CSVExporter) filename(kind string, ts time.Time) string {
	return filepath.Join(e.dir, fmt.Sprintf("%s_%s.csv", kind, ts.UTC().Format("2006-01-02_15-04-05")))
}

func (e *CSVExporter) writeFile(path string, header []string, records [][]string) error {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("export: create dir %s: %w", e.dir, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("export: write records: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("export: flush %s: %w", path, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
