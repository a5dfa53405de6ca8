// Package lisskins is the REST client for the Lis-Skins bulk market export:
// one unauthenticated GET returning every active CS2 listing.
package lisskins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/skinarb/internal/domain"
)

// snapshotTimeout bounds the detached raw-payload archive call so an
// abandoned upload cannot linger across cycles.
const snapshotTimeout = 2 * time.Minute

// Client fetches the Lis-Skins market export. Calls are spaced through the
// injected rate limiter; the export endpoint bans aggressive pollers.
type Client struct {
	url        string
	httpClient *http.Client
	limiter    domain.RateLimiter
	snapshots  domain.SnapshotStore
	logger     *slog.Logger
}

// NewClient creates a Lis-Skins client.
//
// url is the full export URL, e.g.
// "https://lis-skins.com/market_export_json/api_csgo_full.json".
func NewClient(url string, limiter domain.RateLimiter, logger *slog.Logger) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
		limiter: limiter,
		logger:  logger.With(slog.String("component", "lisskins")),
	}
}

// SetSnapshotStore enables raw payload archival. Archives run on a detached
// goroutine and never block or fail the fetch.
func (c *Client) SetSnapshotStore(s domain.SnapshotStore) {
	c.snapshots = s
}

// Source returns the source identifier.
func (c *Client) Source() domain.Source {
	return domain.SourceLisSkins
}

// apiResponse is the wire shape of the market export.
type apiResponse struct {
	Status     string    `json:"status"`
	LastUpdate int64     `json:"last_update"`
	Items      []apiItem `json:"items"`
}

type apiItem struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// FetchItems downloads and validates one market export. All failures come
// back as *domain.FetchError; the call honours ctx deadlines end to end.
func (c *Client) FetchItems(ctx context.Context) (domain.MarketSnapshot, error) {
	if err := c.limiter.Wait(ctx, domain.SourceLisSkins); err != nil {
		return domain.MarketSnapshot{}, fetchErr(classify(ctx, err), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
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

	var payload apiResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.MarketSnapshot{}, fetchErr(domain.FetchValidation, fmt.Errorf("decode payload: %w", err))
	}
	if payload.Status != "success" {
		return domain.MarketSnapshot{}, fetchErr(domain.FetchValidation, fmt.Errorf("export status %q", payload.Status))
	}

	c.archiveRaw(fetchedAt, body)

	listings := make([]domain.Listing, 0, len(payload.Items))
	for _, it := range payload.Items {
		listings = append(listings, domain.Listing{Name: it.Name, Price: it.Price})
	}

	snap := domain.MarketSnapshot{
		Source:    domain.SourceLisSkins,
		Listings:  listings,
		FetchedAt: fetchedAt,
	}
	if payload.LastUpdate > 0 {
		snap.ServerTime = time.Unix(payload.LastUpdate, 0).UTC()
	}

	c.logger.Debug("market export fetched",
		slog.Int("listings", len(listings)),
		slog.Time("server_time", snap.ServerTime),
	)
	return snap, nil
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
		if err := c.snapshots.SaveRaw(ctx, domain.SourceLisSkins, fetchedAt, body); err != nil {
			c.logger.Warn("snapshot archive failed", slog.String("error", err.Error()))
		}
	}()
}

// fetchErr wraps err for this source.
func fetchErr(kind domain.FetchErrorKind, err error) *domain.FetchError {
	return domain.NewFetchError(domain.SourceLisSkins, kind, err)
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
