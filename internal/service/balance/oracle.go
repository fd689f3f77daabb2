package balance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mrz1836/nopewallet/internal/chain"
	"github.com/mrz1836/nopewallet/internal/metrics"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

// DefaultOracleURL is the public balance oracle.
const DefaultOracleURL = "https://paynope.com/v1/balance_check"

const maxOracleResponse = 1 << 20

// UnitShift is how many places the oracle's figure for id sits below the
// display unit. The oracle reports BTC in satoshi and AVAX in nAVAX; every
// other chain is already in display units.
func UnitShift(id chain.ID) int {
	switch id {
	case chain.BTC:
		return 8
	case chain.AVAX:
		return 9
	default:
		return 0
	}
}

// Oracle queries GET {base}/{address}/{symbol}.
type Oracle struct {
	baseURL    string
	httpClient *http.Client
	limiter    *chain.RateLimiter
	retry      chain.RetryConfig
}

// OracleOption configures an Oracle.
type OracleOption func(*Oracle)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) OracleOption {
	return func(o *Oracle) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithRateLimiter sets the per-host limiter. Nil disables limiting.
func WithRateLimiter(l *chain.RateLimiter) OracleOption {
	return func(o *Oracle) { o.limiter = l }
}

// WithRetry sets the retry policy.
func WithRetry(cfg chain.RetryConfig) OracleOption {
	return func(o *Oracle) { o.retry = cfg }
}

// NewOracle creates an oracle client for baseURL. An empty URL uses the default.
func NewOracle(baseURL string, opts ...OracleOption) *Oracle {
	if baseURL == "" {
		baseURL = DefaultOracleURL
	}
	o := &Oracle{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    chain.DefaultRateLimiter(),
		retry:      chain.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// oracleQuote is the wire form. Figures may arrive as numbers or strings.
type oracleQuote struct {
	Balance     *decimal.Decimal `json:"balance"`
	USD         *decimal.Decimal `json:"usd"`
	Price       *decimal.Decimal `json:"price"`
	TRC20Tokens *decimal.Decimal `json:"trc20_tokens"`
}

// Quote implements Source. The balance is normalized to display units.
func (o *Oracle) Quote(ctx context.Context, id chain.ID, address string) (*Quote, error) {
	if !id.IsValid() {
		return nil, walleterr.WithDetails(walleterr.ErrUnsupportedChain, map[string]string{"chain": id.String()})
	}
	if strings.TrimSpace(address) == "" {
		return nil, walleterr.WithSuggestion(walleterr.ErrInvalidAddress, "an address is required")
	}

	endpoint := fmt.Sprintf("%s/%s/%s", o.baseURL, url.PathEscape(address), url.PathEscape(id.Symbol()))
	raw, err := chain.RetryWithConfig(ctx, o.retry, func(ctx context.Context) (*oracleQuote, error) {
		return o.get(ctx, id, endpoint)
	})
	if err != nil {
		return nil, err
	}
	if raw.Balance == nil {
		return nil, walleterr.WithCause(walleterr.ErrNetworkError, &chain.RemoteError{Message: "oracle returned no balance"})
	}

	return &Quote{
		Balance:     chain.NormalizeUnits(*raw.Balance, UnitShift(id)),
		USD:         raw.USD,
		Price:       raw.Price,
		TRC20Tokens: raw.TRC20Tokens,
	}, nil
}

func (o *Oracle) get(ctx context.Context, id chain.ID, endpoint string) (q *oracleQuote, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if err := o.limiter.Wait(ctx, req.URL.Host); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { metrics.Global.RecordRPCCall(id.String(), time.Since(start), err) }()

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, chain.TransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxOracleResponse))
	if err != nil {
		return nil, chain.TransportError(err)
	}
	if err := chain.StatusError(resp.StatusCode, body); err != nil {
		return nil, err
	}

	var out oracleQuote
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, walleterr.WithCause(walleterr.ErrNetworkError, fmt.Errorf("decoding balance: %w", err))
	}
	return &out, nil
}
