// Package skinport is the REST client for the Skinport public items API:
// one row per item with current minimum, suggested price, and quantity.
package skinport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/skinarb/internal/domain"
)

const snapshotTimeout = 2 * time.Minute

// Params are the query parameters for the items endpoint.
type Params struct {
	AppID    int    // game, 730 = CS2
	Currency string // ISO code, e.g. "EUR"
	Tradable bool   // only items tradable right now
}

// Client fetches the Skinport items list. Skinport allows 8 requests per 5
// minutes on this endpoint; the injected rate limiter keeps us under that.
type Client struct {
	baseURL    string
	params     Params
	httpClient *http.Client
	limiter    domain.RateLimiter
	snapshots  domain.SnapshotStore
	logger     *slog.Logger
}

// NewClient creates a Skinport client.
//
// baseURL is the API root, e.g. "https://api.skinport.com/v1".
func NewClient(baseURL string, params Params, limiter domain.RateLimiter, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		params:  params,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
		limiter: limiter,
		logger:  logger.With(slog.String("component", "skinport")),
	}
}

// SetSnapshotStore enables raw payload archival. Archives run on a detached
// goroutine and never block or fail the fetch.
func (c *Client) SetSnapshotStore(s domain.SnapshotStore) {
	c.snapshots = s
}

// Source returns the source identifier.
func (c *Client) Source() domain.Source {
	return domain.SourceSkinport
}

// apiItem is the wire shape of one items-endpoint row.
type apiItem struct {
	MarketHashName string  `json:"market_hash_name"`
	MinPrice       float64 `json:"min_price"`
	SuggestedPrice float64 `json:"suggested_price"`
	Quantity       int     `json:"quantity"`
	Currency       string  `json:"currency"`
}

// FetchItems downloads and validates the items list. All failures come back
// as *domain.FetchError; the call honours ctx deadlines end to end.
func (c *Client) FetchItems(ctx context.Context) (domain.MarketSnapshot, error) {
	if err := c.limiter.Wait(ctx, domain.SourceSkinport); err != nil {
		return domain.MarketSnapshot{}, fetchErr(classify(ctx, err), err)
	}

	q := url.Values{}
	q.Set("app_id", strconv.Itoa(c.params.AppID))
	q.Set("currency", c.params.Currency)
	q.Set("tradable", strconv.FormatBool(c.params.Tradable))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/items?"+q.Encode(), nil)
	if err != nil {
		return domain.MarketSnapshot{}, fetchErr(domain.FetchTransient, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; skinarb/1.0)")

	fetchedAt := time.Now().UTC()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.MarketSnapshot{}, fetchErr(classify(ctx, err), fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.MarketSnapshot{}, fetchErr(domain.FetchTransient, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.MarketSnapshot{}, fetchErr(classify(ctx, err), fmt.Errorf("read response: %w", err))
	}

	// The items endpoint returns a bare JSON array; anything else (error
	// objects included) is a validation failure.
	var payload []apiItem
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.MarketSnapshot{}, fetchErr(domain.FetchValidation, fmt.Errorf("decode payload: %w", err))
	}

	c.archiveRaw(fetchedAt, body)

	items := make([]domain.ReferenceItem, 0, len(payload))
	for _, it := range payload {
		items = append(items, domain.ReferenceItem{
			Name:           it.MarketHashName,
			MinPrice:       it.MinPrice,
			SuggestedPrice: it.SuggestedPrice,
			Quantity:       it.Quantity,
			Currency:       it.Currency,
		})
	}

	c.logger.Debug("items fetched",
		slog.Int("items", len(items)),
		slog.String("currency", c.params.Currency),
	)
	return domain.MarketSnapshot{
		Source:    domain.SourceSkinport,
		Items:     items,
		FetchedAt: fetchedAt,
	}, nil
}

// archiveRaw hands the raw body to the snapshot store on its own goroutine
// with a fresh context, so the caller's deadline and cancellation do not
// reach the archive call.
func (c *Client) archiveRaw(fetchedAt time.Time, body []byte) {
	if c.snapshots == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
		defer cancel()
		if err := c.snapshots.SaveRaw(ctx, domain.SourceSkinport, fetchedAt, body); err != nil {
			c.logger.Warn("snapshot archive failed", slog.String("error", err.Error()))
		}
	}()
}

func fetchErr(kind domain.FetchErrorKind, err error) *domain.FetchError {
	return domain.NewFetchError(domain.SourceSkinport, kind, err)
}

// classify maps a transport-level error to a fetch error kind. The context is
// consulted as well: some errors surface a hit deadline without wrapping the
// sentinel.
func classify(ctx context.Context, err error) domain.FetchErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.FetchTimeout
	}
	return domain.FetchTransient
}
