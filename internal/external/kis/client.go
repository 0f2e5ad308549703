package kis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ark-poiop/dkwjawj-renew/internal/contracts"
	"github.com/ark-poiop/dkwjawj-renew/pkg/config"
	"github.com/ark-poiop/dkwjawj-renew/pkg/httputil"
	"github.com/ark-poiop/dkwjawj-renew/pkg/logger"
)

// Provider is the source tag suffix of KIS quotes
const Provider = "kis"

// KIS 게이트웨이 오류 코드
const (
	msgRateLimited  = "EGW00201" // 초당 거래건수 초과
	msgTokenExpired = "EGW00123" // 기간이 만료된 token
	msgTokenInvalid = "EGW00121" // 유효하지 않은 token
)

// Client handles communication with KIS (한국투자증권) API
// ⭐ SSOT: KIS API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	cfg        config.KISConfig
	now        func() time.Time

	// Token management
	accessToken string
	tokenExpiry time.Time
	tokenMu     sync.RWMutex
}

// NewClient creates a new KIS API client
func NewClient(cfg config.KISConfig, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		cfg:        cfg,
		now:        time.Now,
	}
}

// TokenResponse represents the OAuth token response
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// apiError is the common KIS response envelope
type apiError struct {
	RtCd  string `json:"rt_cd"`
	MsgCd string `json:"msg_cd"`
	Msg1  string `json:"msg1"`
}

// Configured reports whether credentials are present
func (c *Client) Configured() bool {
	return c.cfg.Configured()
}

// getToken gets a valid access token, refreshing if necessary
func (c *Client) getToken(ctx context.Context) (string, error) {
	c.tokenMu.RLock()
	if c.accessToken != "" && c.now().Before(c.tokenExpiry) {
		token := c.accessToken
		c.tokenMu.RUnlock()
		return token, nil
	}
	c.tokenMu.RUnlock()

	// Need to refresh token
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	// Double-check after acquiring write lock
	if c.accessToken != "" && c.now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	// Request new token
	url := fmt.Sprintf("%s/oauth2/tokenP", c.cfg.BaseURL)
	resp, err := c.httpClient.PostJSON(ctx, url, map[string]string{
		"grant_type": "client_credentials",
		"appkey":     c.cfg.AppKey,
		"appsecret":  c.cfg.AppSecret,
	})
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &statusError{code: resp.StatusCode, body: string(respBody)}
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token response without access_token")
	}

	c.accessToken = tokenResp.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(tokenResp.ExpiresIn-60) * time.Second) // 1분 여유

	c.logger.WithFields(map[string]interface{}{
		"expires_in": tokenResp.ExpiresIn,
	}).Info("KIS access token refreshed")

	return c.accessToken, nil
}

// invalidateToken drops the cached token after the gateway rejects it
func (c *Client) invalidateToken() {
	c.tokenMu.Lock()
	c.accessToken = ""
	c.tokenMu.Unlock()
}

// get makes an authenticated GET and decodes the body into out
func (c *Client) get(ctx context.Context, path, trID string, out interface{}) error {
	token, err := c.getToken(ctx)
	if err != nil {
		return &authError{err: err}
	}

	url := fmt.Sprintf("%s%s", c.cfg.BaseURL, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	// Set required headers
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("authorization", fmt.Sprintf("Bearer %s", token))
	req.Header.Set("appkey", c.cfg.AppKey)
	req.Header.Set("appsecret", c.cfg.AppSecret)
	req.Header.Set("tr_id", trID)
	req.Header.Set("custtype", "P")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &statusError{code: resp.StatusCode, body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &decodeError{err: err}
	}
	return nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("API error status %d: %s", e.code, strings.TrimSpace(e.body))
}

type authError struct{ err error }

func (e *authError) Error() string { return "get token: " + e.err.Error() }
func (e *authError) Unwrap() error { return e.err }

type decodeError struct{ err error }

func (e *decodeError) Error() string { return "decode response: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

// classify maps a transport/API error onto the fetch failure taxonomy
func (c *Client) classify(err error) contracts.FailureClass {
	var se *statusError
	if errors.As(err, &se) {
		switch {
		case strings.Contains(se.body, msgRateLimited) || se.code == http.StatusTooManyRequests:
			return contracts.FailureRateLimit
		case strings.Contains(se.body, msgTokenExpired) || strings.Contains(se.body, msgTokenInvalid):
			c.invalidateToken()
			return contracts.FailureAuth
		case se.code == http.StatusUnauthorized || se.code == http.StatusForbidden:
			return contracts.FailureAuth
		case se.code >= 500:
			return contracts.FailureNetwork
		default:
			return contracts.FailureMalformed
		}
	}

	var ae *authError
	if errors.As(err, &ae) {
		var inner *statusError
		if errors.As(ae.err, &inner) && inner.code >= 500 {
			return contracts.FailureNetwork
		}
		var netErr interface{ Timeout() bool }
		if errors.As(ae.err, &netErr) || errors.Is(ae.err, context.DeadlineExceeded) {
			return contracts.FailureNetwork
		}
		return contracts.FailureAuth
	}

	var de *decodeError
	if errors.As(err, &de) {
		return contracts.FailureMalformed
	}

	return contracts.FailureNetwork
}

// checkEnvelope turns a non-zero rt_cd into a classified error
func (c *Client) checkEnvelope(env apiError) (contracts.FailureClass, error) {
	if env.RtCd == "0" {
		return "", nil
	}

	err := fmt.Errorf("API error: %s - %s", env.MsgCd, env.Msg1)
	switch env.MsgCd {
	case msgRateLimited:
		return contracts.FailureRateLimit, err
	case msgTokenExpired, msgTokenInvalid:
		c.invalidateToken()
		return contracts.FailureAuth, err
	default:
		return contracts.FailureMalformed, err
	}
}
