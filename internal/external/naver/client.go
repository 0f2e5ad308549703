package naver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"github.com/ark-poiop/dkwjawj-renew/pkg/httputil"
	"github.com/ark-poiop/dkwjawj-renew/pkg/logger"
)

// Name identifies the source in headlines and logs
const Name = "naver"

// Client handles communication with Naver Finance
// ⭐ SSOT: Naver Finance 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new Naver Finance client
func NewClient(baseURL string, httpClient *httputil.Client, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://finance.naver.com"
	}
	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("module", "naver"),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// fetchHTML fetches HTML from Naver Finance, decoding EUC-KR pages to UTF-8
func (c *Client) fetchHTML(ctx context.Context, path string, params url.Values) (io.ReadCloser, error) {
	fullURL := fmt.Sprintf("%s%s", c.baseURL, path)
	if len(params) > 0 {
		fullURL = fmt.Sprintf("%s?%s", fullURL, params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Referer", c.baseURL+"/")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	// 네이버 금융 구형 페이지는 EUC-KR
	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.Contains(ct, "euc-kr") || strings.Contains(ct, "ks_c_5601") {
		return struct {
			io.Reader
			io.Closer
		}{transform.NewReader(resp.Body, korean.EUCKR.NewDecoder()), resp.Body}, nil
	}
	return resp.Body, nil
}
