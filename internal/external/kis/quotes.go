package kis

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ark-poiop/dkwjawj-renew/internal/contracts"
)

const (
	pathIndexPrice = "/uapi/domestic-stock/v1/quotations/inquire-index-price"
	pathStockPrice = "/uapi/domestic-stock/v1/quotations/inquire-price"

	trIndexPrice = "FHPUP02100000" // 국내업종 현재지수
	trStockPrice = "FHKST01010100" // 국내주식 현재가
)

type indexPriceResponse struct {
	apiError
	Output struct {
		Price     string `json:"bstp_nmix_prpr"`
		Change    string `json:"bstp_nmix_prdy_vrss"`
		ChangePct string `json:"bstp_nmix_prdy_ctrt"`
	} `json:"output"`
}

type stockPriceResponse struct {
	apiError
	Output struct {
		Price     string `json:"stck_prpr"`
		Change    string `json:"prdy_vrss"`
		ChangePct string `json:"prdy_ctrt"`
	} `json:"output"`
}

// Provider returns the provider name used in source tags
func (c *Client) Provider() string {
	return Provider
}

// Segment returns the market segment served by KIS
func (c *Client) Segment() contracts.Segment {
	return contracts.SegmentDomestic
}

// Fetch gets the current quote of one domestic index or equity.
// 실패는 모두 *contracts.FetchError 로 분류해서 반환 (재시도 없음)
func (c *Client) Fetch(ctx context.Context, inst contracts.Instrument) (contracts.RawQuote, error) {
	if !c.Configured() {
		return contracts.RawQuote{}, c.fail(inst, contracts.FailureAuth, fmt.Errorf("KIS credentials not configured"))
	}

	var (
		price, change, pct string
		env                apiError
	)

	switch inst.Kind {
	case contracts.KindIndex:
		var resp indexPriceResponse
		path := fmt.Sprintf("%s?FID_COND_MRKT_DIV_CODE=U&FID_INPUT_ISCD=%s", pathIndexPrice, inst.Code)
		if err := c.get(ctx, path, trIndexPrice, &resp); err != nil {
			return contracts.RawQuote{}, c.fail(inst, c.classify(err), err)
		}
		env = resp.apiError
		price, change, pct = resp.Output.Price, resp.Output.Change, resp.Output.ChangePct
	default:
		var resp stockPriceResponse
		path := fmt.Sprintf("%s?fid_cond_mrkt_div_code=J&fid_input_iscd=%s", pathStockPrice, inst.Code)
		if err := c.get(ctx, path, trStockPrice, &resp); err != nil {
			return contracts.RawQuote{}, c.fail(inst, c.classify(err), err)
		}
		env = resp.apiError
		price, change, pct = resp.Output.Price, resp.Output.Change, resp.Output.ChangePct
	}

	if class, err := c.checkEnvelope(env); err != nil {
		return contracts.RawQuote{}, c.fail(inst, class, err)
	}

	quote := contracts.RawQuote{
		Symbol:    inst.Symbol,
		Price:     parseNum(price),
		Change:    parseNum(change),
		ChangePct: parseNum(pct),
		FetchedAt: c.now(),
		Source:    contracts.LiveSource(Provider),
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol":     inst.Symbol,
		"price":      quote.Price,
		"change_pct": quote.ChangePct,
	}).Debug("Fetched KIS quote")

	return quote, nil
}

func (c *Client) fail(inst contracts.Instrument, class contracts.FailureClass, err error) error {
	return contracts.NewFetchError(Provider, inst.Symbol, class, err)
}

// parseNum parses KIS numeric strings ("71,500", "-0.69"); absent values become NaN
func parseNum(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
