// Package source is the client for the upstream article-listing
// service. The cache treats it as an opaque feed: articles come back
// already scored and tagged, ready for offline preparation.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Article is an upstream article as served by the listing backend.
type Article struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Content         string    `json:"content,omitempty"`
	Category        string    `json:"category"`
	RegionTags      []string  `json:"country_focus,omitempty"`
	ImageURL        string    `json:"thumbnail,omitempty"`
	PublishedAt     time.Time `json:"published_at"`
	EngagementScore float64   `json:"engagement_score"`
	Trending        bool      `json:"is_trending"`
}

// Filters narrows an article listing request.
type Filters struct {
	Category string
	Region   string
	Search   string
	Trending bool
	Page     int
	PageSize int
}

// Result is one page of the article feed.
type Result struct {
	Articles []Article `json:"articles"`
	HasMore  bool      `json:"has_more"`
}

type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates an article-source client for the given base URL.
func NewClient(baseURL string) *Client {
	r := retryablehttp.NewClient()
	r.RetryMax = 2
	r.Logger = nil
	r.HTTPClient.Timeout = 30 * time.Second
	return &Client{
		baseURL: baseURL,
		client:  r.StandardClient(),
	}
}

// FetchArticles requests one page of articles matching the filters.
func (c *Client) FetchArticles(ctx context.Context, f Filters) (*Result, error) {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Region != "" {
		q.Set("region", f.Region)
	}
	if f.Search != "" {
		q.Set("q", f.Search)
	}
	if f.Trending {
		q.Set("trending", "true")
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(f.PageSize))
	}

	endpoint := c.baseURL + "/articles"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create article request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch articles: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("article source returned status %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode article listing: %w", err)
	}
	return &result, nil
}
