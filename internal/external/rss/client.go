package rss

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/ark-poiop/dkwjawj-renew/internal/contracts"
	"github.com/ark-poiop/dkwjawj-renew/pkg/httputil"
	"github.com/ark-poiop/dkwjawj-renew/pkg/logger"
)

// Name identifies the source in headlines and logs
const Name = "rss"

// Client reads international market headlines from RSS/Atom feeds
type Client struct {
	feeds      []string
	httpClient *httputil.Client
	parser     *gofeed.Parser
	logger     *logger.Logger
}

// NewClient creates a new RSS client
func NewClient(feeds []string, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		feeds:      feeds,
		httpClient: httpClient,
		parser:     gofeed.NewParser(),
		logger:     log.WithField("module", "rss"),
	}
}

// Name returns the headline source name
func (c *Client) Name() string {
	return Name
}

// Headlines merges all feeds newest first.
// 일부 피드 실패는 건너뛰고, 전부 실패했을 때만 오류
func (c *Client) Headlines(ctx context.Context, limit int) ([]contracts.Headline, error) {
	if len(c.feeds) == 0 {
		return nil, fmt.Errorf("no rss feeds configured")
	}

	var (
		all     []contracts.Headline
		lastErr error
		ok      int
	)
	for _, feedURL := range c.feeds {
		items, err := c.fetchFeed(ctx, feedURL)
		if err != nil {
			lastErr = err
			c.logger.WithError(err).WithField("feed", feedURL).Warn("Failed to fetch feed")
			continue
		}
		ok++
		all = append(all, items...)
	}
	if ok == 0 {
		return nil, fmt.Errorf("all rss feeds failed: %w", lastErr)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Published.After(all[j].Published)
	})

	out := make([]contracts.Headline, 0, len(all))
	seen := make(map[string]bool)
	for _, h := range all {
		if seen[h.Title] {
			continue
		}
		seen[h.Title] = true
		out = append(out, h)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (c *Client) fetchFeed(ctx context.Context, feedURL string) ([]contracts.Headline, error) {
	resp, err := c.httpClient.Get(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	feed, err := c.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]contracts.Headline, 0, len(feed.Items))
	for _, item := range feed.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		h := contracts.Headline{
			Title:   title,
			Link:    item.Link,
			Source:  Name,
			Segment: contracts.SegmentInternational,
		}
		if item.PublishedParsed != nil {
			h.Published = item.PublishedParsed.UTC()
		} else if item.UpdatedParsed != nil {
			h.Published = item.UpdatedParsed.UTC()
		}
		items = append(items, h)
	}
	return items, nil
}
