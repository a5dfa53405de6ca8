package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alanyoungcy/skinarb/internal/domain"
)

// feedColumns maps the CSV header names an exported market feed may carry to
// FeedRow fields. Unknown columns are ignored so feeds from different export
// versions all load.
var feedColumns = map[string]func(*domain.FeedRow, string){
	"market_hash_name":  func(r *domain.FeedRow, v string) { r.Name = v },
	"current_min_price": func(r *domain.FeedRow, v string) { r.CurrentPrice = v },
	"suggested_price":   func(r *domain.FeedRow, v string) { r.SuggestedPrice = v },
	"volume_24h":        func(r *domain.FeedRow, v string) { r.Volume24h = v },
	"volume_7d":         func(r *domain.FeedRow, v string) { r.Volume7d = v },
	"currency":          func(r *domain.FeedRow, v string) { r.Currency = v },
}

// ReadFeed parses a CSV market feed. The first record is the header; every
// following record becomes one FeedRow with fields kept as raw strings, so
// malformed numeric values surface downstream per row instead of failing the
// whole file.
func ReadFeed(r io.Reader) ([]domain.FeedRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("export: read feed header: %w", err)
	}

	setters := make([]func(*domain.FeedRow, string), len(header))
	for i, col := range header {
		setters[i] = feedColumns[col]
	}

	var rows []domain.FeedRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("export: read feed record: %w", err)
		}

		var row domain.FeedRow
		for i, v := range record {
			if i < len(setters) && setters[i] != nil {
				setters[i](&row, v)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FileFeedSource loads a market feed from a CSV file on each call. The file's
// modification time doubles as the feed's publish time.
type FileFeedSource struct {
	path string
}

// NewFileFeedSource creates a FileFeedSource for path.
func NewFileFeedSource(path string) *FileFeedSource {
	return &FileFeedSource{path: path}
}

// Feed reads and parses the feed file.
func (s *FileFeedSource) Feed(ctx context.Context) ([]domain.FeedRow, time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, time.Time{}, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("export: open feed %s: %w", s.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("export: stat feed %s: %w", s.path, err)
	}

	rows, err := ReadFeed(f)
	if err != nil {
		return nil, time.Time{}, err
	}
	return rows, info.ModTime(), nil
}
