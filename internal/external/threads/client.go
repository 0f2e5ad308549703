package threads

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ark-poiop/dkwjawj-renew/pkg/config"
	"github.com/ark-poiop/dkwjawj-renew/pkg/httputil"
	"github.com/ark-poiop/dkwjawj-renew/pkg/logger"
)

// MaxTextLength is the Threads text post limit (characters)
const MaxTextLength = 500

// Client calls the Threads Graph API
// ⭐ SSOT: Threads API 호출은 이 클라이언트에서만
type Client struct {
	httpClient  *httputil.Client
	logger      *logger.Logger
	baseURL     string
	userID      string
	accessToken string
}

// NewClient creates a new Threads API client
func NewClient(cfg config.ThreadsConfig, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient:  httpClient,
		logger:      log,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		userID:      cfg.UserID,
		accessToken: cfg.AccessToken,
	}
}

// Configured reports whether real posts can be made
func (c *Client) Configured() bool {
	return c.accessToken != "" && c.userID != ""
}

type idResponse struct {
	ID    string `json:"id"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

// CreateTextContainer creates an unpublished TEXT media container
func (c *Client) CreateTextContainer(ctx context.Context, text string) (string, error) {
	form := url.Values{}
	form.Set("media_type", "TEXT")
	form.Set("text", text)
	form.Set("access_token", c.accessToken)
	return c.post(ctx, fmt.Sprintf("%s/%s/threads", c.baseURL, c.userID), form)
}

// PublishContainer publishes a previously created container
func (c *Client) PublishContainer(ctx context.Context, creationID string) (string, error) {
	form := url.Values{}
	form.Set("creation_id", creationID)
	form.Set("access_token", c.accessToken)
	return c.post(ctx, fmt.Sprintf("%s/%s/threads_publish", c.baseURL, c.userID), form)
}

func (c *Client) post(ctx context.Context, endpoint string, form url.Values) (string, error) {
	resp, err := c.httpClient.PostForm(ctx, endpoint, form)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body failed: %w", err)
	}

	var out idResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("threads api error %d (%s): %s", out.Error.Code, out.Error.Type, out.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if out.ID == "" {
		return "", fmt.Errorf("threads api returned no id")
	}
	return out.ID, nil
}
