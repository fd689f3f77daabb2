// Package price reads historical USD prices for the chart views.
package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mrz1836/nopewallet/internal/chain"
	"github.com/mrz1836/nopewallet/internal/metrics"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

// DefaultHistoryURL is the public price history endpoint.
const DefaultHistoryURL = "https://paynope.com/v1/prices/history"

// DefaultWindow is the range shown when none is chosen.
const DefaultWindow = 10 * time.Minute

// Point is one recorded price.
type Point struct {
	PriceUSD   decimal.Decimal `json:"price_usd"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// wirePoint has recorded_at in unix seconds.
type wirePoint struct {
	PriceUSD   decimal.Decimal `json:"price_usd"`
	RecordedAt int64           `json:"recorded_at"`
}

// assetNames maps chains to the history service's asset names. Chains not
// listed are looked up by their ticker.
//
//nolint:gochecknoglobals // Immutable lookup table
var assetNames = map[chain.ID]string{
	chain.SOL:  "solana",
	chain.BTC:  "bitcoin",
	chain.ETH:  "ethereum",
	chain.TRX:  "tron",
	chain.BNB:  "binancecoin",
	chain.AVAX: "avalanche",
	chain.BASE: "base",
}

// AssetName returns the history service's name for id.
func AssetName(id chain.ID) string {
	if name, ok := assetNames[id]; ok {
		return name
	}
	return id.Symbol()
}

// Client queries GET {base}/{asset}.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      chain.RetryConfig
}

// NewClient creates a history client. An empty baseURL uses the default and
// a nil httpClient gets a 15 second timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultHistoryURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		retry:      chain.DefaultRetryConfig(),
	}
}

// History returns the asset's recorded prices, oldest first.
func (c *Client) History(ctx context.Context, asset string) ([]Point, error) {
	asset = strings.TrimSpace(asset)
	if asset == "" {
		return nil, walleterr.WithSuggestion(walleterr.ErrInvalidInput, "an asset name is required")
	}
	endpoint := c.baseURL + "/" + url.PathEscape(asset)

	raw, err := chain.RetryWithConfig(ctx, c.retry, func(ctx context.Context) ([]wirePoint, error) {
		return c.get(ctx, endpoint)
	})
	if err != nil {
		return nil, err
	}

	points := make([]Point, 0, len(raw))
	for _, p := range raw {
		points = append(points, Point{PriceUSD: p.PriceUSD, RecordedAt: time.Unix(p.RecordedAt, 0).UTC()})
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].RecordedAt.Before(points[j].RecordedAt)
	})
	return points, nil
}

// ChainHistory is History for a chain's asset.
func (c *Client) ChainHistory(ctx context.Context, id chain.ID) ([]Point, error) {
	return c.History(ctx, AssetName(id))
}

func (c *Client) get(ctx context.Context, endpoint string) (points []wirePoint, err error) {
	start := time.Now()
	defer func() { metrics.Global.RecordRPCCall("price", time.Since(start), err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, chain.TransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, chain.TransportError(err)
	}
	if err := chain.StatusError(resp.StatusCode, body); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(body, &points); err != nil {
		return nil, walleterr.WithCause(walleterr.ErrNetworkError, fmt.Errorf("decoding price history: %w", err))
	}
	return points, nil
}

// Window keeps the points recorded within d of the newest one. points must
// be sorted.
func Window(points []Point, d time.Duration) []Point {
	if len(points) == 0 || d <= 0 {
		return points
	}
	cutoff := points[len(points)-1].RecordedAt.Add(-d)
	i := sort.Search(len(points), func(i int) bool {
		return !points[i].RecordedAt.Before(cutoff)
	})
	return points[i:]
}

// Change is the percentage move from the first point to the last. It is
// false when there are fewer than two points or the first price is zero.
func Change(points []Point) (decimal.Decimal, bool) {
	if len(points) < 2 {
		return decimal.Zero, false
	}
	first, last := points[0].PriceUSD, points[len(points)-1].PriceUSD
	if first.IsZero() {
		return decimal.Zero, false
	}
	return last.Sub(first).Div(first).Mul(decimal.NewFromInt(100)), true
}
