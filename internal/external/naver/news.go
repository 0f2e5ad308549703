package naver

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ark-poiop/dkwjawj-renew/internal/contracts"
)

const mainNewsPath = "/news/mainnews.naver"

// Name returns the headline source name
func (c *Client) Name() string {
	return Name
}

// Headlines scrapes the main news list of Naver Finance (domestic issues)
func (c *Client) Headlines(ctx context.Context, limit int) ([]contracts.Headline, error) {
	body, err := c.fetchHTML(ctx, mainNewsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch main news: %w", err)
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse main news: %w", err)
	}

	headlines := c.parseHeadlines(doc, limit)

	c.logger.WithFields(map[string]interface{}{
		"count": len(headlines),
	}).Debug("Fetched headlines")
	return headlines, nil
}

// parseHeadlines reads ".mainNewsList .articleSubject a" entries, skipping duplicates
func (c *Client) parseHeadlines(doc *goquery.Document, limit int) []contracts.Headline {
	var out []contracts.Headline
	seen := make(map[string]bool)

	doc.Find(".mainNewsList .articleSubject a").EachWithBreak(func(i int, a *goquery.Selection) bool {
		title := strings.Join(strings.Fields(a.Text()), " ")
		if title == "" || seen[title] {
			return true
		}
		seen[title] = true

		h := contracts.Headline{
			Title:   title,
			Source:  Name,
			Segment: contracts.SegmentDomestic,
		}
		if href, ok := a.Attr("href"); ok {
			h.Link = c.absolute(href)
		}
		out = append(out, h)
		return limit <= 0 || len(out) < limit
	})
	return out
}

func (c *Client) absolute(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
