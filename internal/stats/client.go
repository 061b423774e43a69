package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPStatsClient implements ChannelStats against a stats sidecar exposing
// GET <base>/stats/<messageID>. The Bot API has no message statistics
// surface, so channel analytics come from a separate MTProto-side service.
type HTTPStatsClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ ChannelStats = (*HTTPStatsClient)(nil)

// NewHTTPStatsClient builds a client for the given sidecar base URL.
func NewHTTPStatsClient(baseURL string) (*HTTPStatsClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("stats api url cannot be empty")
	}
	return &HTTPStatsClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}, nil
}

// FetchMessageStats retrieves the engagement snapshot for one message.
func (c *HTTPStatsClient) FetchMessageStats(ctx context.Context, messageID int) (*PostStats, error) {
	url := fmt.Sprintf("%s/stats/%d", c.baseURL, messageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stats request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("stats error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var snapshot PostStats
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("decode stats response: %w", err)
	}
	return &snapshot, nil
}
