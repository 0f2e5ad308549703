package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ark-poiop/dkwjawj-renew/internal/contracts"
	"github.com/ark-poiop/dkwjawj-renew/pkg/httputil"
	"github.com/ark-poiop/dkwjawj-renew/pkg/logger"
)

// Provider is the source tag suffix of Yahoo quotes
const Provider = "yahoo"

// Client reads international quotes from the Yahoo Finance chart API
// ⭐ SSOT: 해외 지수/종목 시세는 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	now        func() time.Time
}

// NewClient creates a new Yahoo chart client
func NewClient(baseURL string, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
		now:        time.Now,
	}
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta chartMeta `json:"meta"`
}

// 값이 빠진 응답을 구분하기 위해 포인터 사용
type chartMeta struct {
	Symbol             string   `json:"symbol"`
	Currency           string   `json:"currency"`
	RegularMarketPrice *float64 `json:"regularMarketPrice"`
	ChartPreviousClose *float64 `json:"chartPreviousClose"`
	PreviousClose      *float64 `json:"previousClose"`
	RegularMarketTime  int64    `json:"regularMarketTime"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Provider returns the provider name used in source tags
func (c *Client) Provider() string {
	return Provider
}

// Segment returns the market segment served by Yahoo
func (c *Client) Segment() contracts.Segment {
	return contracts.SegmentInternational
}

// Fetch gets the latest regular-market quote for one ticker.
// 변동률은 전일 종가 대비로 계산
func (c *Client) Fetch(ctx context.Context, inst contracts.Instrument) (contracts.RawQuote, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=1d&interval=1d", c.baseURL, url.PathEscape(inst.Code))

	resp, err := c.httpClient.Get(ctx, endpoint)
	if err != nil {
		return contracts.RawQuote{}, c.fail(inst, contracts.FailureNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return contracts.RawQuote{}, c.fail(inst, contracts.FailureNetwork, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return contracts.RawQuote{}, c.fail(inst, classifyStatus(resp.StatusCode),
			fmt.Errorf("chart API status %d", resp.StatusCode))
	}

	var parsed chartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return contracts.RawQuote{}, c.fail(inst, contracts.FailureMalformed, fmt.Errorf("decode chart: %w", err))
	}
	if parsed.Chart.Error != nil {
		return contracts.RawQuote{}, c.fail(inst, contracts.FailureMalformed,
			fmt.Errorf("chart error: %s - %s", parsed.Chart.Error.Code, parsed.Chart.Error.Description))
	}
	if len(parsed.Chart.Result) == 0 {
		return contracts.RawQuote{}, c.fail(inst, contracts.FailureMalformed, fmt.Errorf("empty chart result"))
	}

	meta := parsed.Chart.Result[0].Meta
	price := value(meta.RegularMarketPrice)
	prev := value(meta.ChartPreviousClose)
	if math.IsNaN(prev) {
		prev = value(meta.PreviousClose)
	}

	change, pct := math.NaN(), math.NaN()
	if !math.IsNaN(price) && !math.IsNaN(prev) && prev != 0 {
		change = price - prev
		pct = change / prev * 100
	}

	quote := contracts.RawQuote{
		Symbol:    inst.Symbol,
		Price:     price,
		Change:    change,
		ChangePct: pct,
		FetchedAt: c.now(),
		Source:    contracts.LiveSource(Provider),
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": inst.Symbol,
		"ticker": inst.Code,
		"price":  quote.Price,
	}).Debug("Fetched Yahoo quote")

	return quote, nil
}

func (c *Client) fail(inst contracts.Instrument, class contracts.FailureClass, err error) error {
	return contracts.NewFetchError(Provider, inst.Symbol, class, err)
}

func classifyStatus(code int) contracts.FailureClass {
	switch {
	case code == http.StatusTooManyRequests:
		return contracts.FailureRateLimit
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return contracts.FailureAuth
	case code >= 500:
		return contracts.FailureNetwork
	default:
		return contracts.FailureMalformed
	}
}

func value(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}
