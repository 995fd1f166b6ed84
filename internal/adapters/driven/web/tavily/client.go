// Package tavily provides the web evidence provider backed by the Tavily
// search and extract API.
package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.WebEvidenceProvider = (*Client)(nil)

// Default configuration values.
const (
	DefaultBaseURL           = "https://api.tavily.com"
	DefaultSearchDepth       = "advanced"
	DefaultTimeout           = 15 * time.Second
	DefaultRequestsPerSecond = 2.0

	// MaxResults is the most results Tavily returns for one search.
	MaxResults = 10

	// snippetLength bounds search result content, in characters.
	snippetLength = 500

	// extractLength bounds extracted page content, in characters.
	extractLength = 4000

	// defaultScore stands in for a result without a score.
	defaultScore = 0.5
)

// ErrRateLimited is returned while the API is asking callers to back off.
var ErrRateLimited = errors.New("tavily: rate limited")

// Config holds configuration for the Tavily client.
type Config struct {
	// APIKey is the Tavily API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.tavily.com).
	BaseURL string

	// SearchDepth is "basic" or "advanced" (default: advanced).
	SearchDepth string

	// RequestsPerSecond is the sustained request rate (default: 2).
	RequestsPerSecond float64

	// Timeout is the request timeout (default: 15s).
	Timeout time.Duration
}

// Client calls the Tavily API.
type Client struct {
	http        *http.Client
	baseURL     string
	apiKey      string
	searchDepth string
	limiter     *rateLimiter
}

// searchRequest is the /search request body.
type searchRequest struct {
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results"`
	SearchDepth       string `json:"search_depth"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
	IncludeImages     bool   `json:"include_images"`
}

// searchResponse is the /search response body.
type searchResponse struct {
	Results []struct {
		URL     string   `json:"url"`
		Title   string   `json:"title"`
		Content string   `json:"content"`
		Score   *float64 `json:"score"`
	} `json:"results"`
}

// extractRequest is the /extract request body.
type extractRequest struct {
	URLs []string `json:"urls"`
}

// extractResponse is the /extract response body.
type extractResponse struct {
	Results []struct {
		URL        string `json:"url"`
		Title      string `json:"title"`
		RawContent string `json:"raw_content"`
		Content    string `json:"content"`
	} `json:"results"`
	FailedResults []struct {
		URL   string `json:"url"`
		Error string `json:"error"`
	} `json:"failed_results"`
}

// errorResponse is the error body Tavily returns on failure.
type errorResponse struct {
	Detail struct {
		Error string `json:"error"`
	} `json:"detail"`
}

// NewClient creates a Tavily client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("tavily: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.SearchDepth == "" {
		cfg.SearchDepth = DefaultSearchDepth
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		http:        &http.Client{Timeout: cfg.Timeout},
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		searchDepth: cfg.SearchDepth,
		limiter:     newRateLimiter(cfg.RequestsPerSecond, 1),
	}, nil
}

// Search returns at most maxResults web results for query.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]domain.WebResult, error) {
	if maxResults <= 0 {
		return []domain.WebResult{}, nil
	}
	if maxResults > MaxResults {
		maxResults = MaxResults
	}

	var resp searchResponse
	err := c.post(ctx, "/search", searchRequest{
		Query:       query,
		MaxResults:  maxResults,
		SearchDepth: c.searchDepth,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	results := make([]domain.WebResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.URL == "" {
			continue
		}
		score := defaultScore
		if r.Score != nil {
			score = *r.Score
		}
		results = append(results, domain.WebResult{
			URL:     r.URL,
			Title:   r.Title,
			Content: truncate(r.Content, snippetLength),
			Score:   score,
		})
		if len(results) == maxResults {
			break
		}
	}
	logger.Debug("Tavily search returned %d results", len(results))
	return results, nil
}

// Extract fetches the readable content of one page.
func (c *Client) Extract(ctx context.Context, url string) (*domain.WebResult, error) {
	var resp extractResponse
	if err := c.post(ctx, "/extract", extractRequest{URLs: []string{url}}, &resp); err != nil {
		return nil, fmt.Errorf("extract %s: %w", url, err)
	}

	for _, r := range resp.Results {
		content := r.RawContent
		if content == "" {
			content = r.Content
		}
		if strings.TrimSpace(content) == "" {
			continue
		}
		result := &domain.WebResult{
			URL:     r.URL,
			Title:   r.Title,
			Content: truncate(content, extractLength),
			Score:   1.0,
		}
		if result.URL == "" {
			result.URL = url
		}
		return result, nil
	}

	if len(resp.FailedResults) > 0 && resp.FailedResults[0].Error != "" {
		return nil, fmt.Errorf("extract %s: %s", url, resp.FailedResults[0].Error)
	}
	return nil, fmt.Errorf("extract %s: no content", url)
}

// post sends a JSON request and decodes the JSON response into out.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.limiter.backoff(resp.Header)
		return ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		var apiErr errorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Detail.Error != "" {
			return fmt.Errorf("tavily error (status %d): %s", resp.StatusCode, apiErr.Detail.Error)
		}
		return fmt.Errorf("tavily error (status %d): %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
