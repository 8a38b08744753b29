package acquire

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// WebSearcher queries an image-search HTTP endpoint speaking a ddg-style
// JSON shape: {"results": [{"image": "<url>"}, ...]}.
type WebSearcher struct {
	endpoint string
	client   *http.Client
}

func NewWebSearcher(endpoint string, timeout time.Duration) *WebSearcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WebSearcher{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (s *WebSearcher) Search(ctx context.Context, keyword string, limit int) ([]string, error) {
	q := url.Values{}
	q.Set("q", keyword)
	q.Set("max_results", fmt.Sprintf("%d", limit))

	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, s.endpoint+"?"+q.Encode(), nil,
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserIdentity)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image source answered %d", resp.StatusCode)
	}

	var payload struct {
		Results []struct {
			Image string `json:"image"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("image source sent a broken response: %w", err)
	}

	urls := make([]string, 0, len(payload.Results))
	for _, r := range payload.Results {
		if r.Image != "" {
			urls = append(urls, r.Image)
		}
	}
	if limit < len(urls) {
		urls = urls[:limit]
	}
	return urls, nil
}
